package middlewarectx

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestRateLimitMiddleware(t *testing.T) {
	testHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("success")); err != nil {
			t.Errorf("failed to write response: %v", err)
		}
	})

	t.Run("allows requests within rate limit", func(t *testing.T) {
		mw := RateLimitMiddleware(newNoopLogger(), rate.NewLimiter(10, 10))
		req := httptest.NewRequest(http.MethodGet, "/test", nil)

		for range 10 {
			w := httptest.NewRecorder()
			mw(testHandler).ServeHTTP(w, req)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "success", w.Body.String())
		}
	})

	t.Run("blocks requests exceeding rate limit", func(t *testing.T) {
		mw := RateLimitMiddleware(newNoopLogger(), rate.NewLimiter(1, 1))
		req := httptest.NewRequest(http.MethodGet, "/test", nil)

		w := httptest.NewRecorder()
		mw(testHandler).ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		mw(testHandler).ServeHTTP(w, req)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.JSONEq(t, `{"status":"Error","error":"too many requests"}`, w.Body.String())
	})

	t.Run("allows requests after rate limit reset", func(t *testing.T) {
		mw := RateLimitMiddleware(newNoopLogger(), rate.NewLimiter(rate.Every(50*time.Millisecond), 1))
		req := httptest.NewRequest(http.MethodGet, "/test", nil)

		w := httptest.NewRecorder()
		mw(testHandler).ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		mw(testHandler).ServeHTTP(w, req)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)

		time.Sleep(60 * time.Millisecond)
		w = httptest.NewRecorder()
		mw(testHandler).ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
