package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimit_AllowsThenBlocks(t *testing.T) {
	h := RateLimit(60, 2)(okHandler())
	req := httptest.NewRequest("GET", "/api", nil)
	req.RemoteAddr = "1.2.3.4:1234"

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != 200 {
			t.Fatalf("want 200 got %d", rr.Code)
		}
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != 429 {
		t.Fatalf("want 429 got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatalf("want Retry-After header on 429")
	}

	// another client has its own bucket
	other := httptest.NewRequest("GET", "/api", nil)
	other.RemoteAddr = "5.6.7.8:1234"
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, other)
	if rr.Code != 200 {
		t.Fatalf("other client: want 200 got %d", rr.Code)
	}
}

func TestRateLimit_Refills(t *testing.T) {
	l := newLimiter(1, 1, time.Minute)
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }

	if ok, _ := l.allow("a"); !ok {
		t.Fatalf("first request should pass")
	}
	ok, wait := l.allow("a")
	if ok {
		t.Fatalf("second request should be limited")
	}
	if wait <= 0 || wait > time.Second {
		t.Fatalf("unexpected wait %v", wait)
	}
	now = now.Add(1100 * time.Millisecond)
	if ok, _ := l.allow("a"); !ok {
		t.Fatalf("bucket should have refilled")
	}
}

func TestRateLimit_SweepsIdleBuckets(t *testing.T) {
	l := newLimiter(1, 1, time.Minute)
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }

	l.allow("a")
	l.allow("b")
	if n := l.size(); n != 2 {
		t.Fatalf("want 2 buckets, got %d", n)
	}
	now = now.Add(2 * time.Minute)
	l.allow("c")
	if n := l.size(); n != 1 {
		t.Fatalf("idle buckets should be dropped, got %d", n)
	}
}

func TestRateLimit_DisabledAndForwardedFor(t *testing.T) {
	h := RateLimit(0, 0)(okHandler())
	req := httptest.NewRequest("GET", "/api", nil)
	for i := 0; i < 10; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != 200 {
			t.Fatalf("disabled limiter blocked request %d", i)
		}
	}

	req.Header.Set("X-Forwarded-For", "9.9.9.9, 10.0.0.1")
	if got := clientIP(req); got != "9.9.9.9" {
		t.Fatalf("clientIP = %q", got)
	}
}
