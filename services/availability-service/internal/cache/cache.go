package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/md-rashed-zaman/cabook/services/availability-service/internal/metrics"
	"github.com/md-rashed-zaman/cabook/services/availability-service/internal/model"
)

type SettingsSource interface {
	Settings(ctx context.Context) (model.ScheduleConfig, error)
}

type LedgerSource interface {
	Ledger(ctx context.Context, date, professionalID string) (model.Ledger, error)
}

// allProfessionals is the hash field for an unscoped ledger.
const allProfessionals = "_all"

type Options struct {
	BusinessID  string
	SettingsTTL time.Duration
	LedgerTTL   time.Duration
}

// generationTTL outlives any source read; a lapsed counter only refuses writes.
const generationTTL = 24 * time.Hour

// A fill is written only if the key's generation still matches the value read
// before the source call, so a fetch that raced an invalidation is dropped.
var (
	fillLedgerScript = redis.NewScript(`
local gen = redis.call("GET", KEYS[1]) or "0"
if gen ~= ARGV[1] then
  return 0
end
redis.call("HSET", KEYS[2], ARGV[2], ARGV[3])
redis.call("PEXPIRE", KEYS[2], ARGV[4])
return 1
`)
	fillSettingsScript = redis.NewScript(`
local gen = redis.call("GET", KEYS[1]) or "0"
if gen ~= ARGV[1] then
  return 0
end
redis.call("SET", KEYS[2], ARGV[2], "PX", ARGV[3])
return 1
`)
)

// Store keeps settings and per-date ledger snapshots in Redis. Every Redis
// failure is logged and the caller falls through to the source.
type Store struct {
	rdb     redis.Cmdable
	opts    Options
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewStore(rdb redis.Cmdable, opts Options, logger *slog.Logger, m *metrics.Metrics) *Store {
	if opts.SettingsTTL <= 0 {
		opts.SettingsTTL = 5 * time.Minute
	}
	if opts.LedgerTTL <= 0 {
		opts.LedgerTTL = 30 * time.Second
	}
	return &Store{rdb: rdb, opts: opts, logger: logger, metrics: m}
}

func (s *Store) settingsKey() string {
	return fmt.Sprintf("availability:%s:settings", s.opts.BusinessID)
}

func (s *Store) ledgerKey(date string) string {
	return fmt.Sprintf("availability:%s:ledger:%s", s.opts.BusinessID, date)
}

func (s *Store) generationKey(dataKey string) string {
	return dataKey + ":gen"
}

// generation returns the current invalidation counter of dataKey ("0" when never invalidated).
func (s *Store) generation(ctx context.Context, dataKey string) (string, error) {
	gen, err := s.rdb.Get(ctx, s.generationKey(dataKey)).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	return gen, err
}

// invalidate drops dataKey and bumps its generation in one transaction.
func (s *Store) invalidate(ctx context.Context, dataKey string) error {
	genKey := s.generationKey(dataKey)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, dataKey)
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, generationTTL)
		return nil
	})
	return err
}

// fill runs a fill script and reports whether the entry was written.
func (s *Store) fill(ctx context.Context, script *redis.Script, keys []string, args ...any) (bool, error) {
	n, err := script.Run(ctx, s.rdb, keys, args...).Int64()
	return n == 1, err
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) InvalidateSettings(ctx context.Context) error {
	if err := s.invalidate(ctx, s.settingsKey()); err != nil {
		return fmt.Errorf("cache: invalidate settings: %w", err)
	}
	return nil
}

// InvalidateDate drops every professional's ledger snapshot for date.
func (s *Store) InvalidateDate(ctx context.Context, date string) error {
	if err := s.invalidate(ctx, s.ledgerKey(date)); err != nil {
		return fmt.Errorf("cache: invalidate %s: %w", date, err)
	}
	return nil
}

// Settings wraps src with the settings snapshot cache.
func (s *Store) Settings(src SettingsSource) SettingsSource {
	return settingsCache{store: s, src: src}
}

// Ledger wraps src with the ledger snapshot cache.
func (s *Store) Ledger(src LedgerSource) LedgerSource {
	return ledgerCache{store: s, src: src}
}

type settingsCache struct {
	store *Store
	src   SettingsSource
}

func (c settingsCache) Settings(ctx context.Context) (model.ScheduleConfig, error) {
	s := c.store
	key := s.settingsKey()
	var cfg model.ScheduleConfig
	data, err := s.rdb.Get(ctx, key).Bytes()
	if s.decode("settings", data, err, &cfg) {
		return cfg, nil
	}
	gen, genErr := s.generation(ctx, key)

	cfg, err = c.src.Settings(ctx)
	if err != nil {
		return model.ScheduleConfig{}, err
	}
	if genErr != nil {
		return cfg, nil
	}
	payload, err := json.Marshal(cfg)
	if err != nil {
		return cfg, nil
	}
	written, err := s.fill(ctx, fillSettingsScript, []string{s.generationKey(key), key},
		gen, payload, s.opts.SettingsTTL.Milliseconds())
	switch {
	case err != nil:
		s.logger.Warn("settings cache write failed", "err", err)
	case !written:
		s.logger.Debug("settings invalidated during fetch; not cached")
	}
	return cfg, nil
}

type ledgerCache struct {
	store *Store
	src   LedgerSource
}

func (c ledgerCache) Ledger(ctx context.Context, date, professionalID string) (model.Ledger, error) {
	s := c.store
	field := professionalID
	if field == "" {
		field = allProfessionals
	}

	key := s.ledgerKey(date)
	var ledger model.Ledger
	data, err := s.rdb.HGet(ctx, key, field).Bytes()
	if s.decode("ledger", data, err, &ledger) {
		return ledger, nil
	}
	gen, genErr := s.generation(ctx, key)

	ledger, err = c.src.Ledger(ctx, date, professionalID)
	if err != nil {
		return model.Ledger{}, err
	}
	if genErr != nil {
		return ledger, nil
	}
	payload, err := json.Marshal(ledger)
	if err != nil {
		return ledger, nil
	}
	written, err := s.fill(ctx, fillLedgerScript, []string{s.generationKey(key), key},
		gen, field, payload, s.opts.LedgerTTL.Milliseconds())
	switch {
	case err != nil:
		s.logger.Warn("ledger cache write failed", "date", date, "err", err)
	case !written:
		s.logger.Debug("ledger invalidated during fetch; not cached", "date", date)
	}
	return ledger, nil
}

// decode reports a usable hit. Misses, Redis errors and corrupt entries all
// return false so the caller goes to the source.
func (s *Store) decode(kind string, data []byte, err error, v any) bool {
	switch {
	case errors.Is(err, redis.Nil):
		s.metrics.ObserveCache(kind, "miss")
		return false
	case err != nil:
		s.metrics.ObserveCache(kind, "error")
		s.logger.Warn("cache read failed", "kind", kind, "err", err)
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		s.metrics.ObserveCache(kind, "error")
		s.logger.Warn("cache entry corrupt", "kind", kind, "err", err)
		return false
	}
	s.metrics.ObserveCache(kind, "hit")
	return true
}
