package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"

	"github.com/md-rashed-zaman/cabook/services/availability-service/internal/model"
)

// Settings loads the business schedule. Missing fields fall back to an all-closed
// week, no off days and the default horizon.
func (c *Client) Settings(ctx context.Context) (model.ScheduleConfig, error) {
	var w settingsWire
	if err := c.getJSON(ctx, "/api/settings", nil, &w); err != nil {
		return model.ScheduleConfig{}, err
	}
	return w.toModel(c.loc), nil
}

// Ledger loads the appointments for date, optionally scoped to one professional.
// The backend answers either with a bare array or with an object that also carries
// the professional's unavailability windows.
func (c *Client) Ledger(ctx context.Context, date, professionalID string) (model.Ledger, error) {
	q := url.Values{"date": {date}}
	if professionalID != "" {
		q.Set("ca_id", professionalID)
	}
	var raw json.RawMessage
	if err := c.getJSON(ctx, "/api/appointments", q, &raw); err != nil {
		return model.Ledger{}, err
	}

	raw = bytes.TrimSpace(raw)
	var ledger model.Ledger
	if len(raw) > 0 && raw[0] == '{' {
		var w ledgerWire
		if err := json.Unmarshal(raw, &w); err != nil {
			return model.Ledger{}, err
		}
		for _, a := range w.Appointments {
			ledger.Appointments = append(ledger.Appointments, a.toModel(c.loc))
		}
		for _, u := range w.Unavailable {
			ledger.Unavailable = append(ledger.Unavailable, u.toModel(c.loc))
		}
		return ledger, nil
	}

	appts, err := decodeList[appointmentWire](raw, "appointments")
	if err != nil {
		return model.Ledger{}, err
	}
	for _, a := range appts {
		ledger.Appointments = append(ledger.Appointments, a.toModel(c.loc))
	}
	return ledger, nil
}

func (c *Client) Professional(ctx context.Context, id string) (model.Professional, error) {
	var w professionalWire
	if err := c.getJSON(ctx, "/api/professionals/"+url.PathEscape(id), nil, &w); err != nil {
		return model.Professional{}, err
	}
	return w.toModel(c.loc), nil
}

func (c *Client) Professionals(ctx context.Context) ([]model.Professional, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, "/api/professionals", nil, &raw); err != nil {
		return nil, err
	}
	list, err := decodeList[professionalWire](raw, "professionals")
	if err != nil {
		return nil, err
	}
	out := make([]model.Professional, 0, len(list))
	for _, w := range list {
		out = append(out, w.toModel(c.loc))
	}
	return out, nil
}
