package snapshot

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/md-rashed-zaman/cabook/services/availability-service/internal/availability"
	"github.com/md-rashed-zaman/cabook/services/availability-service/internal/metrics"
	"github.com/md-rashed-zaman/cabook/services/availability-service/internal/model"
)

type SettingsSource interface {
	Settings(ctx context.Context) (model.ScheduleConfig, error)
}

type LedgerSource interface {
	Ledger(ctx context.Context, date, professionalID string) (model.Ledger, error)
}

type ProfessionalSource interface {
	Professional(ctx context.Context, id string) (model.Professional, error)
}

// SourceError names which input could not be fetched.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("snapshot: %s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// Snapshot is every input the engine needs for one date, all fetched together.
type Snapshot struct {
	Config         model.ScheduleConfig
	Date           time.Time
	ProfessionalID string
	Professional   *model.Professional
	Appointments   []model.Appointment
	// Unavailable is the union of the professional's windows and the ledger's.
	Unavailable []model.UnavailabilityWindow
}

func (s Snapshot) Query(now time.Time) availability.SlotQuery {
	return availability.SlotQuery{
		Date:           s.Date,
		ProfessionalID: s.ProfessionalID,
		Appointments:   s.Appointments,
		Unavailable:    s.Unavailable,
		Now:            now,
	}
}

type Loader struct {
	settings      SettingsSource
	ledger        LedgerSource
	professionals ProfessionalSource
	metrics       *metrics.Metrics
	tracer        trace.Tracer
}

func NewLoader(settings SettingsSource, ledger LedgerSource, professionals ProfessionalSource, m *metrics.Metrics) *Loader {
	return &Loader{
		settings:      settings,
		ledger:        ledger,
		professionals: professionals,
		metrics:       m,
		tracer:        otel.Tracer("snapshot"),
	}
}

// Load fetches settings, the ledger and the professional concurrently. Any
// failure fails the whole snapshot.
func (l *Loader) Load(ctx context.Context, date time.Time, professionalID string) (Snapshot, error) {
	ctx, span := l.tracer.Start(ctx, "snapshot.load", trace.WithAttributes(
		attribute.String("date", date.Format(model.DateLayout)),
		attribute.String("professional_id", professionalID),
	))
	defer span.End()

	var cfg model.ScheduleConfig
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cfg, err = l.settings.Settings(gctx)
		l.metrics.ObserveFetch("settings", err)
		if err != nil {
			return &SourceError{Source: "settings", Err: err}
		}
		return nil
	})
	var snap Snapshot
	g.Go(func() error {
		var err error
		snap, err = l.loadDay(gctx, date, professionalID)
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return Snapshot{}, err
	}
	snap.Config = cfg
	return snap, nil
}

// LoadDay refreshes only the per-date inputs on top of already loaded settings.
func (l *Loader) LoadDay(ctx context.Context, cfg model.ScheduleConfig, date time.Time, professionalID string) (Snapshot, error) {
	ctx, span := l.tracer.Start(ctx, "snapshot.load_day")
	defer span.End()

	snap, err := l.loadDay(ctx, date, professionalID)
	if err != nil {
		span.RecordError(err)
		return Snapshot{}, err
	}
	snap.Config = cfg
	return snap, nil
}

func (l *Loader) loadDay(ctx context.Context, date time.Time, professionalID string) (Snapshot, error) {
	day := date.Format(model.DateLayout)
	var (
		ledger       model.Ledger
		professional *model.Professional
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ledger, err = l.ledger.Ledger(gctx, day, professionalID)
		l.metrics.ObserveFetch("ledger", err)
		if err != nil {
			return &SourceError{Source: "ledger", Err: err}
		}
		return nil
	})
	if professionalID != "" && l.professionals != nil {
		g.Go(func() error {
			p, err := l.professionals.Professional(gctx, professionalID)
			l.metrics.ObserveFetch("professional", err)
			if err != nil {
				return &SourceError{Source: "professional", Err: err}
			}
			professional = &p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		Date:           date,
		ProfessionalID: professionalID,
		Professional:   professional,
		Appointments:   ledger.Appointments,
	}
	if professionalID != "" {
		snap.Unavailable = unionWindows(day, professional, ledger.Unavailable)
	}
	return snap, nil
}

func unionWindows(date string, p *model.Professional, fromLedger []model.UnavailabilityWindow) []model.UnavailabilityWindow {
	seen := map[model.UnavailabilityWindow]struct{}{}
	var out []model.UnavailabilityWindow
	add := func(w model.UnavailabilityWindow) {
		if w.Date == "" {
			w.Date = date
		}
		if w.Date != date {
			return
		}
		key := w
		key.Reason = ""
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, w)
	}
	if p != nil {
		for _, w := range p.Unavailable {
			add(w)
		}
	}
	for _, w := range fromLedger {
		add(w)
	}
	return out
}
