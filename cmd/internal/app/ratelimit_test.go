package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAttemptLimiter_SlidingWindow(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_760_000_000, 0)
	l := newAttemptLimiter(2, time.Minute)
	l.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if ok, _ := l.allow(); !ok {
			t.Fatalf("attempt %d denied", i)
		}
	}

	now = now.Add(20 * time.Second)
	ok, retry := l.allow()
	if ok || retry != 40*time.Second {
		t.Fatalf("third attempt ok=%v retry=%v", ok, retry)
	}

	now = now.Add(41 * time.Second)
	if ok, _ := l.allow(); !ok {
		t.Fatalf("attempt after window denied")
	}
}

func TestAttemptLimiter_NilAllowsAll(t *testing.T) {
	t.Parallel()

	l := newAttemptLimiter(0, time.Minute)
	for i := 0; i < 100; i++ {
		if ok, _ := l.allow(); !ok {
			t.Fatalf("nil limiter denied")
		}
	}
}

func TestAttemptLimiter_Handler(t *testing.T) {
	t.Parallel()

	l := newAttemptLimiter(1, time.Minute)
	h := l.limit(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

	rr := httptest.NewRecorder()
	h(rr, httptest.NewRequest(http.MethodPost, "/v1/login", nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("first status=%d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h(rr, httptest.NewRequest(http.MethodPost, "/v1/login", nil))
	if rr.Code != http.StatusTooManyRequests || rr.Header().Get("Retry-After") != "60" {
		t.Fatalf("second status=%d retry-after=%q", rr.Code, rr.Header().Get("Retry-After"))
	}
}
