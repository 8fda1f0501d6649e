package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/md-rashed-zaman/cabook/libs/kafkax"
	"github.com/md-rashed-zaman/cabook/services/availability-service/internal/metrics"
	"github.com/md-rashed-zaman/cabook/services/availability-service/internal/model"
	"github.com/segmentio/kafka-go"
)

const (
	TopicBooked          = "booking.appointment.booked.v1"
	TopicCancelled       = "booking.appointment.cancelled.v1"
	TopicScheduleUpdated = "settings.schedule.updated.v1"
)

// Topics lists every topic the service subscribes to.
var Topics = []string{TopicBooked, TopicCancelled, TopicScheduleUpdated}

var ErrMissingDate = errors.New("event has neither date nor start_time")

type Invalidator interface {
	InvalidateDate(ctx context.Context, date string) error
	InvalidateSettings(ctx context.Context) error
}

type Notifier interface {
	NotifyDate(date string)
	NotifySettings()
}

// Payload is the subset of booking and settings events the service reads.
type Payload struct {
	BusinessID     string `json:"business_id"`
	Date           string `json:"date"`
	StartTime      string `json:"start_time"`
	ProfessionalID string `json:"professional_id"`
	StaffID        string `json:"staff_id"`
}

type Consumer struct {
	businessID  string
	location    *time.Location
	invalidator Invalidator
	notifier    Notifier
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

func New(businessID string, loc *time.Location, inv Invalidator, n Notifier, logger *slog.Logger, m *metrics.Metrics) *Consumer {
	if loc == nil {
		loc = time.UTC
	}
	return &Consumer{
		businessID:  businessID,
		location:    loc,
		invalidator: inv,
		notifier:    n,
		logger:      logger,
		metrics:     m,
	}
}

// Run consumes one topic until ctx is done, then closes the reader.
func (c *Consumer) Run(ctx context.Context, r kafkax.MessageReader) error {
	defer r.Close()
	return kafkax.Consume(ctx, r, c.logger, c.Handle)
}

func (c *Consumer) Handle(ctx context.Context, msg kafka.Message) error {
	var p Payload
	if err := json.Unmarshal(msg.Value, &p); err != nil {
		return fmt.Errorf("decode %s payload: %w", msg.Topic, err)
	}
	if p.BusinessID != "" && p.BusinessID != c.businessID {
		return nil
	}

	switch msg.Topic {
	case TopicScheduleUpdated:
		if err := c.invalidator.InvalidateSettings(ctx); err != nil {
			return fmt.Errorf("invalidate settings: %w", err)
		}
		c.metrics.Invalidated("settings")
		c.notifier.NotifySettings()
		c.logger.Info("schedule updated", "event_id", kafkax.ExtractEventMeta(msg).EventID)
		return nil
	case TopicBooked, TopicCancelled:
		date, err := c.eventDate(p)
		if err != nil {
			return err
		}
		if err := c.invalidator.InvalidateDate(ctx, date); err != nil {
			return fmt.Errorf("invalidate %s: %w", date, err)
		}
		c.metrics.Invalidated("date")
		c.notifier.NotifyDate(date)
		c.logger.Debug("ledger invalidated", "date", date, "topic", msg.Topic,
			"professional_id", firstNonEmpty(p.ProfessionalID, p.StaffID))
		return nil
	default:
		c.logger.Warn("unexpected topic", "topic", msg.Topic)
		return nil
	}
}

// eventDate resolves the business-local calendar date an event touches.
func (c *Consumer) eventDate(p Payload) (string, error) {
	if d := strings.TrimSpace(p.Date); d != "" {
		if len(d) > len(model.DateLayout) {
			d = d[:len(model.DateLayout)]
		}
		day, err := time.ParseInLocation(model.DateLayout, d, c.location)
		if err != nil {
			return "", fmt.Errorf("event date %q: %w", p.Date, err)
		}
		return day.Format(model.DateLayout), nil
	}
	if s := strings.TrimSpace(p.StartTime); s != "" {
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return "", fmt.Errorf("event start_time %q: %w", p.StartTime, err)
		}
		return ts.In(c.location).Format(model.DateLayout), nil
	}
	return "", ErrMissingDate
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
