package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/md-rashed-zaman/cabook/services/availability-service/internal/availability"
	"github.com/md-rashed-zaman/cabook/services/availability-service/internal/backend"
	"github.com/md-rashed-zaman/cabook/services/availability-service/internal/metrics"
	"github.com/md-rashed-zaman/cabook/services/availability-service/internal/model"
	"github.com/md-rashed-zaman/cabook/services/availability-service/internal/snapshot"
)

var (
	ErrInvalidDate         = errors.New("date must be YYYY-MM-DD")
	ErrScheduleData        = errors.New("malformed schedule data")
	ErrUnknownProfessional = errors.New("unknown professional")
)

type Status string

const (
	StatusOpen        Status = "open"
	StatusClosed      Status = "closed"
	StatusUnavailable Status = "unavailable"
)

type DaySlots struct {
	Date           string       `json:"date"`
	ProfessionalID string       `json:"professional_id,omitempty"`
	Status         Status       `json:"status"`
	Available      int          `json:"available"`
	Slots          []model.Slot `json:"slots"`
}

type Calendar struct {
	Today              string              `json:"today"`
	Timezone           string              `json:"timezone"`
	Status             Status              `json:"status"`
	AdvanceBookingDays int                 `json:"advance_booking_days"`
	Days               []model.CalendarDay `json:"days"`
}

type ProfessionalLister interface {
	Professionals(ctx context.Context) ([]model.Professional, error)
}

type Options struct {
	Location *time.Location
	// Now defaults to time.Now; tests pin it.
	Now func() time.Time
}

// Planner is the caller side of the engine: it resolves snapshots and turns
// source failures into "nothing bookable" answers.
type Planner struct {
	settings      snapshot.SettingsSource
	professionals ProfessionalLister
	loader        *snapshot.Loader
	loc           *time.Location
	now           func() time.Time
	logger        *slog.Logger
	metrics       *metrics.Metrics
	tracer        trace.Tracer
}

func New(settings snapshot.SettingsSource, professionals ProfessionalLister, loader *snapshot.Loader, opts Options, logger *slog.Logger, m *metrics.Metrics) *Planner {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Planner{
		settings:      settings,
		professionals: professionals,
		loader:        loader,
		loc:           opts.Location,
		now:           opts.Now,
		logger:        logger,
		metrics:       m,
		tracer:        otel.Tracer("planner"),
	}
}

func (p *Planner) Location() *time.Location { return p.loc }

// Today is the current calendar date in the business location.
func (p *Planner) Today() string {
	return p.now().In(p.loc).Format(model.DateLayout)
}

func (p *Planner) ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(model.DateLayout, strings.TrimSpace(s), p.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d, nil
}

func (p *Planner) Settings(ctx context.Context) (model.ScheduleConfig, error) {
	return p.settings.Settings(ctx)
}

func (p *Planner) Calendar(ctx context.Context) (Calendar, error) {
	now := p.now().In(p.loc)
	cal := Calendar{Today: now.Format(model.DateLayout), Timezone: p.loc.String()}

	cfg, err := p.settings.Settings(ctx)
	p.metrics.ObserveFetch("settings", err)
	if err != nil {
		if ctx.Err() != nil {
			return Calendar{}, ctx.Err()
		}
		p.logger.Warn("calendar settings unavailable", "err", err)
		cal.Status = StatusUnavailable
		cal.Days = []model.CalendarDay{}
		return cal, nil
	}
	cal.Status = StatusOpen
	cal.AdvanceBookingDays = cfg.Horizon()
	cal.Days = availability.BuildCalendar(cfg, now)
	return cal, nil
}

// Slots loads a fresh snapshot for date and computes its grid.
func (p *Planner) Slots(ctx context.Context, date, professionalID string) (DaySlots, error) {
	return p.resolve(ctx, date, professionalID, func(ctx context.Context, day time.Time) (snapshot.Snapshot, error) {
		return p.loader.Load(ctx, day, professionalID)
	})
}

// SlotsWith reuses already loaded settings; live sessions use it on every reselection.
func (p *Planner) SlotsWith(ctx context.Context, cfg model.ScheduleConfig, date, professionalID string) (DaySlots, error) {
	return p.resolve(ctx, date, professionalID, func(ctx context.Context, day time.Time) (snapshot.Snapshot, error) {
		return p.loader.LoadDay(ctx, cfg, day, professionalID)
	})
}

func (p *Planner) resolve(ctx context.Context, date, professionalID string, load func(context.Context, time.Time) (snapshot.Snapshot, error)) (DaySlots, error) {
	day, err := p.ParseDate(date)
	if err != nil {
		return DaySlots{}, err
	}
	start := time.Now()

	snap, err := load(ctx, day)
	if err != nil {
		if ctx.Err() != nil {
			return DaySlots{}, ctx.Err()
		}
		var se *snapshot.SourceError
		if errors.As(err, &se) && se.Source == "professional" && errors.Is(err, backend.ErrNotFound) {
			return DaySlots{}, fmt.Errorf("%w: %s", ErrUnknownProfessional, professionalID)
		}
		p.logger.Warn("availability sources unavailable", "date", date, "professional_id", professionalID, "err", err)
		p.metrics.ObserveComputation(string(StatusUnavailable), time.Since(start))
		return DaySlots{
			Date:           day.Format(model.DateLayout),
			ProfessionalID: professionalID,
			Status:         StatusUnavailable,
			Slots:          []model.Slot{},
		}, nil
	}

	out, err := p.Compute(ctx, snap)
	result := string(out.Status)
	if err != nil {
		result = "error"
	}
	p.metrics.ObserveComputation(result, time.Since(start))
	return out, err
}

// Compute runs the engine over a resolved snapshot at the current time.
func (p *Planner) Compute(ctx context.Context, snap snapshot.Snapshot) (DaySlots, error) {
	_, span := p.tracer.Start(ctx, "availability.generate_slots", trace.WithAttributes(
		attribute.String("date", snap.Date.Format(model.DateLayout)),
		attribute.String("professional_id", snap.ProfessionalID),
		attribute.Int("appointments", len(snap.Appointments)),
	))
	defer span.End()

	now := p.now()
	out := DaySlots{
		Date:           snap.Date.Format(model.DateLayout),
		ProfessionalID: snap.ProfessionalID,
		Status:         StatusClosed,
		Slots:          []model.Slot{},
	}
	if snap.Professional != nil && !snap.Professional.Active {
		return out, nil
	}
	if !availability.IsSelectable(snap.Config, snap.Date, now.In(p.loc)) {
		return out, nil
	}

	slots, err := availability.GenerateSlots(snap.Config, snap.Query(now))
	if err != nil {
		span.RecordError(err)
		return DaySlots{}, fmt.Errorf("%w: %w", ErrScheduleData, err)
	}
	out.Status = StatusOpen
	out.Slots = slots
	for _, s := range slots {
		if !s.IsDisabled {
			out.Available++
		}
	}
	return out, nil
}

// Professionals lists the active professionals for the picker.
func (p *Planner) Professionals(ctx context.Context) ([]model.Professional, error) {
	all, err := p.professionals.Professionals(ctx)
	p.metrics.ObserveFetch("professionals", err)
	if err != nil {
		return nil, err
	}
	active := make([]model.Professional, 0, len(all))
	for _, pro := range all {
		if pro.Active {
			active = append(active, pro)
		}
	}
	return active, nil
}
