package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-faster/jx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serve(h http.Handler, prepare func(r *http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	if prepare != nil {
		prepare(req)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, body []byte) (code int, kind, message string) {
	t.Helper()
	err := jx.DecodeBytes(body).Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "code":
			code, err = d.Int()
		case "kind":
			kind, err = d.Str()
		case "message":
			message, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	require.NoError(t, err)
	return code, kind, message
}

func TestRateLimit_UnderLimit(t *testing.T) {
	h := RateLimit(RateLimitConfig{Max: 5, Window: time.Minute})(okHandler())

	for i := range 5 {
		w := serve(h, nil)
		assert.Equal(t, http.StatusOK, w.Code, "request %d should pass", i+1)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, 4-i, mustAtoi(t, w.Header().Get("X-RateLimit-Remaining")))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	}
}

func TestRateLimit_OverLimit(t *testing.T) {
	h := RateLimit(RateLimitConfig{Max: 2, Window: time.Minute})(okHandler())

	for range 2 {
		require.Equal(t, http.StatusOK, serve(h, nil).Code)
	}

	w := serve(h, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	code, kind, message := decodeError(t, w.Body.Bytes())
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, "rate_limited", kind)
	assert.Equal(t, "rate limit exceeded", message)
}

func TestRateLimit_DifferentIPs(t *testing.T) {
	h := RateLimit(RateLimitConfig{Max: 1, Window: time.Minute})(okHandler())

	from := func(addr string) func(r *http.Request) {
		return func(r *http.Request) { r.RemoteAddr = addr }
	}
	assert.Equal(t, http.StatusOK, serve(h, from("10.0.0.1:1234")).Code)
	assert.Equal(t, http.StatusOK, serve(h, from("10.0.0.2:1234")).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(h, from("10.0.0.1:5678")).Code)
}

func TestRateLimit_XForwardedFor(t *testing.T) {
	h := RateLimit(RateLimitConfig{Max: 1, Window: time.Minute})(okHandler())

	assert.Equal(t, http.StatusOK, serve(h, func(r *http.Request) {
		r.Header.Set("X-Forwarded-For", "203.0.113.50, 70.41.3.18")
	}).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(h, func(r *http.Request) {
		r.RemoteAddr = "192.168.1.2:5555"
		r.Header.Set("X-Forwarded-For", "203.0.113.50")
	}).Code)
}

func TestRateLimit_SessionOrIP(t *testing.T) {
	h := RateLimit(RateLimitConfig{
		Max:     1,
		Window:  time.Minute,
		KeyFunc: SessionOrIP("X-Session-ID", "session_id"),
	})(okHandler())

	header := func(id string) func(r *http.Request) {
		return func(r *http.Request) { r.Header.Set("X-Session-ID", id) }
	}
	cookie := func(id string) func(r *http.Request) {
		return func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "session_id", Value: id}) }
	}

	// Shoppers behind one IP are limited separately.
	assert.Equal(t, http.StatusOK, serve(h, header("a")).Code)
	assert.Equal(t, http.StatusOK, serve(h, header("b")).Code)
	// The cookie and the header identify the same session.
	assert.Equal(t, http.StatusTooManyRequests, serve(h, cookie("a")).Code)
	// Anonymous requests fall back to the IP.
	assert.Equal(t, http.StatusOK, serve(h, nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(h, nil).Code)
}

func TestLimiter_SlidingWindow(t *testing.T) {
	l := newLimiter(RateLimitConfig{Max: 4, Window: time.Minute})
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	for range 4 {
		_, _, ok := l.take("k", start)
		require.True(t, ok)
	}
	_, _, ok := l.take("k", start.Add(30*time.Second))
	assert.False(t, ok, "window still full")

	// Half way into the next window half of the previous count still applies.
	next := start.Add(90 * time.Second)
	for range 2 {
		_, _, ok = l.take("k", next)
		require.True(t, ok)
	}
	_, _, ok = l.take("k", next)
	assert.False(t, ok)

	// Two idle windows reset the key.
	_, _, ok = l.take("k", start.Add(5*time.Minute))
	assert.True(t, ok)

	l.sweep(start.Add(time.Hour))
	assert.Empty(t, l.byKey)
}

func mustAtoi(t *testing.T, s string) int {
	t.Helper()
	n, err := strconv.Atoi(s)
	require.NoError(t, err)
	return n
}
