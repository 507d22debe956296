package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/sdk/zctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func get(h http.Handler, mod func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	if mod != nil {
		mod(req)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestWrap_Order(t *testing.T) {
	var calls []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls = append(calls, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	get(Wrap(okHandler(), mw("a"), mw("b"), mw("c")), nil)
	assert.Equal(t, []string{"a", "b", "c"}, calls)
}

func TestRecovery(t *testing.T) {
	h := Wrap(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), Recovery())

	w := get(h, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"code":500,"message":"internal error"}`, w.Body.String())
}

func TestRequestID(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	var seen string
	h := Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
		zctx.From(r.Context()).Info("inside")
	}), RequestID(zap.New(core)))

	w := get(h, nil)
	require.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get(RequestIDHeader))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, seen, logs.All()[0].ContextMap()["request_id"])

	w = get(h, func(r *http.Request) { r.Header.Set(RequestIDHeader, "abc-123") })
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))

	w = get(h, func(r *http.Request) { r.Header.Set(RequestIDHeader, "bad\x01id") })
	assert.NotEqual(t, "bad\x01id", w.Header().Get(RequestIDHeader))
}

func TestLogRequests_RoutePattern(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(zctx.Base(req.Context(), zap.New(core))))
		})
	})
	r.Use(LogRequests())
	r.Get("/orders/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "/orders/42", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "/orders/{id}", fields["route"])
	assert.EqualValues(t, http.StatusTeapot, fields["status"])
}

func TestCORS(t *testing.T) {
	h := CORS(CORSConfig{AllowOrigins: []string{"https://shop.example.com"}, AllowCredentials: true, MaxAge: 600})(okHandler())

	w := get(h, func(r *http.Request) {
		r.Method = http.MethodOptions
		r.Header.Set("Origin", "https://SHOP.example.com")
		r.Header.Set("Access-Control-Request-Method", "POST")
	})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://shop.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "600", w.Header().Get("Access-Control-Max-Age"))

	w = get(h, func(r *http.Request) { r.Header.Set("Origin", "https://evil.example.com") })
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_Wildcard(t *testing.T) {
	h := CORS(CORSConfig{})(okHandler())
	w := get(h, func(r *http.Request) { r.Header.Set("Origin", "https://any.example.com") })
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{Max: 3, Window: time.Minute})
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	h := rl.Middleware()(okHandler())

	for i := range 3 {
		w := get(h, nil)
		assert.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
		assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
	}

	w := get(h, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "20", w.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"code":429,"message":"rate limit exceeded"}`, w.Body.String())

	other := get(h, func(r *http.Request) { r.RemoteAddr = "10.0.0.2:1" })
	assert.Equal(t, http.StatusOK, other.Code, "clients have separate buckets")

	now = now.Add(20 * time.Second)
	assert.Equal(t, http.StatusOK, get(h, nil).Code)
}

func TestRateLimit_Evict(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{Max: 1, Window: time.Second})
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	h := rl.Middleware()(okHandler())

	get(h, nil)
	assert.Zero(t, rl.Evict())
	now = now.Add(2 * time.Second)
	assert.Equal(t, 1, rl.Evict())
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.1.1.1:5555"
	assert.Equal(t, "10.1.1.1", ClientIP(r))

	r.Header.Set("X-Real-IP", "10.2.2.2")
	assert.Equal(t, "10.2.2.2", ClientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", ClientIP(r))
}
