package storage

import (
	"context"
	"fmt"

	"github.com/md-rashed-zaman/cabook/libs/db"
	"github.com/md-rashed-zaman/cabook/services/availability-service/internal/model"
)

// LedgerRepository reads the booking service's replicated tables. It never writes.
type LedgerRepository struct {
	q          db.Querier
	businessID string
}

func NewLedgerRepository(q db.Querier, businessID string) *LedgerRepository {
	return &LedgerRepository{q: q, businessID: businessID}
}

// Ledger returns the appointments for date and, when a professional is given,
// that professional's unavailability windows on the same date. Unassigned
// appointments are always included.
func (r *LedgerRepository) Ledger(ctx context.Context, date, professionalID string) (model.Ledger, error) {
	appts, err := r.appointments(ctx, date, professionalID)
	if err != nil {
		return model.Ledger{}, fmt.Errorf("storage: appointments: %w", err)
	}
	ledger := model.Ledger{Appointments: appts}
	if professionalID == "" {
		return ledger, nil
	}
	if ledger.Unavailable, err = r.windows(ctx, date, professionalID); err != nil {
		return model.Ledger{}, fmt.Errorf("storage: unavailability: %w", err)
	}
	return ledger, nil
}

func (r *LedgerRepository) appointments(ctx context.Context, date, professionalID string) ([]model.Appointment, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id::text,
			to_char(appointment_date, 'YYYY-MM-DD'),
			to_char(time_slot, 'HH24:MI'),
			COALESCE(duration_minutes, 0),
			COALESCE(status, ''),
			COALESCE(professional_id::text, '')
		FROM appointments
		WHERE business_id = $1
			AND appointment_date = $2::date
			AND ($3 = '' OR professional_id IS NULL OR professional_id::text = $3)
		ORDER BY time_slot
	`, r.businessID, date, professionalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Appointment
	for rows.Next() {
		var a model.Appointment
		var status string
		if err := rows.Scan(&a.ID, &a.Date, &a.TimeSlot, &a.DurationMinutes, &status, &a.ProfessionalID); err != nil {
			return nil, err
		}
		a.Status = model.Status(status)
		out = append(out, a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *LedgerRepository) windows(ctx context.Context, date, professionalID string) ([]model.UnavailabilityWindow, error) {
	rows, err := r.q.Query(ctx, `
		SELECT to_char(unavailable_date, 'YYYY-MM-DD'),
			to_char(start_time, 'HH24:MI'),
			to_char(end_time, 'HH24:MI'),
			COALESCE(reason, '')
		FROM professional_unavailability
		WHERE business_id = $1
			AND professional_id::text = $2
			AND unavailable_date = $3::date
		ORDER BY start_time
	`, r.businessID, professionalID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.UnavailabilityWindow
	for rows.Next() {
		var w model.UnavailabilityWindow
		if err := rows.Scan(&w.Date, &w.StartTime, &w.EndTime, &w.Reason); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}
