package appconfig

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BACKEND_URL", "http://backend:8000")
	t.Setenv("BUSINESS_ID", "biz-1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" || cfg.GRPCPort != "9090" {
		t.Fatalf("unexpected ports %q %q", cfg.Port, cfg.GRPCPort)
	}
	if cfg.Location != time.UTC {
		t.Fatalf("expected UTC, got %v", cfg.Location)
	}
	if cfg.SettingsTTL != 5*time.Minute || cfg.LedgerTTL != 30*time.Second {
		t.Fatalf("unexpected ttls %v %v", cfg.SettingsTTL, cfg.LedgerTTL)
	}
	if cfg.KafkaGroupID != "availability-service-biz-1" {
		t.Fatalf("unexpected group id %q", cfg.KafkaGroupID)
	}
	if cfg.RedisEnabled() || cfg.KafkaEnabled() || cfg.AdminEnabled() {
		t.Fatalf("expected optional integrations off, got %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BACKEND_URL", "http://backend:8000")
	t.Setenv("BUSINESS_ID", "biz-1")
	t.Setenv("TIMEZONE", "Asia/Dhaka")
	t.Setenv("LEDGER_CACHE_TTL", "45")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://book.example.com")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Location.String() != "Asia/Dhaka" {
		t.Fatalf("unexpected location %v", cfg.Location)
	}
	if cfg.LedgerTTL != 45*time.Second {
		t.Fatalf("expected bare seconds accepted, got %v", cfg.LedgerTTL)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "kafka-2:9092" || !cfg.KafkaEnabled() {
		t.Fatalf("unexpected brokers %v", cfg.KafkaBrokers)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || !cfg.AdminEnabled() {
		t.Fatalf("unexpected cors/admin config %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	cases := map[string]map[string]string{
		"missing backend":  {"BUSINESS_ID": "biz-1"},
		"missing business": {"BACKEND_URL": "http://backend"},
		"bad timezone":     {"BACKEND_URL": "http://backend", "BUSINESS_ID": "biz-1", "TIMEZONE": "Mars/Olympus"},
		"bad ttl":          {"BACKEND_URL": "http://backend", "BUSINESS_ID": "biz-1", "SETTINGS_CACHE_TTL": "soon"},
		"bad port":         {"BACKEND_URL": "http://backend", "BUSINESS_ID": "biz-1", "PORT": "http"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("BACKEND_URL", "")
			t.Setenv("BUSINESS_ID", "")
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
