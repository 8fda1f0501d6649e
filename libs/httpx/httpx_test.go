package httpx

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(okHandler(), mark("a"), mark("b"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("unexpected order %v", order)
	}
}

func TestRequestIDEchoedAndLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	var observed RequestInfo
	h := Chain(okHandler(), WithRequestID, WithAccessLog(logger, func(info RequestInfo) { observed = info }))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/slots", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)

	if rw.Header().Get(RequestIDHeader) != "req-123" {
		t.Fatalf("expected request id echoed, got %q", rw.Header().Get(RequestIDHeader))
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"request_id":"req-123"`)) {
		t.Fatalf("expected request id in access log: %s", buf.String())
	}
	if observed.Status != http.StatusOK || observed.Path != "/api/v1/public/slots" {
		t.Fatalf("unexpected observed info %+v", observed)
	}
}

func TestMemoryLimiter(t *testing.T) {
	rl := NewMemoryLimiter(2, time.Minute)
	base := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return base }

	h := Chain(okHandler(), RateLimit(rl, nil, true))
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rw := httptest.NewRecorder()
		h.ServeHTTP(rw, req)
		codes = append(codes, rw.Code)
	}
	if codes[0] != 200 || codes[1] != 200 || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected codes %v", codes)
	}

	base = base.Add(2 * time.Minute)
	if ok, _ := rl.Allow(context.Background(), "10.0.0.1"); !ok {
		t.Fatal("expected window reset")
	}
}

func TestRedisLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	rl := NewRedisLimiter(rdb, 1, time.Minute, "test")
	ctx := context.Background()
	if ok, err := rl.Allow(ctx, "1.2.3.4"); err != nil || !ok {
		t.Fatalf("expected first request allowed, ok=%v err=%v", ok, err)
	}
	if ok, err := rl.Allow(ctx, "1.2.3.4"); err != nil || ok {
		t.Fatalf("expected second request rejected, ok=%v err=%v", ok, err)
	}
	if ok, _ := rl.Allow(ctx, "5.6.7.8"); !ok {
		t.Fatal("expected other client allowed")
	}
}

func TestRateLimitFailClosed(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	h := Chain(okHandler(), RateLimit(NewRedisLimiter(rdb, 5, time.Minute, ""), nil, false))
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/", nil))
	if rw.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rw.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	h := Chain(okHandler(), WithCORS(CORSPolicy{
		AllowedOrigins: []string{"https://book.example.com"},
		AllowedMethods: []string{"GET", "OPTIONS"},
	}))
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/public/calendar", nil)
	req.Header.Set("Origin", "https://book.example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rw.Code)
	}
	if rw.Header().Get("Access-Control-Allow-Origin") != "https://book.example.com" {
		t.Fatalf("unexpected allow origin %q", rw.Header().Get("Access-Control-Allow-Origin"))
	}
}
