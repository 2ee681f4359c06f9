package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pcprep/pcprep-api/internal/pkg/jwthelper"
)

const signingKey = "middleware-test-key-0123456789"

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.GET("/p/:token", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{
			"uid":  ctx.GetUint(CtxUserID),
			"role": ctx.GetString(CtxRole),
		})
	})

	return r
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestVerifyJWT(t *testing.T) {
	r := newRouter(NewAuthenticator(signingKey).VerifyJWT())

	token, err := jwthelper.GenerateToken([]byte(signingKey), 7, "CHEF", "test", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/p/x", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := serve(r, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"uid":7,"role":"CHEF"}`, w.Body.String())

	w = serve(r, httptest.NewRequest(http.MethodGet, "/p/x?access_token="+token, nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, httptest.NewRequest(http.MethodGet, "/p/x", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"invalid_token"`)

	other, err := jwthelper.GenerateToken([]byte("another-key-entirely-0123"), 7, "CHEF", "test", time.Hour)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/p/x", nil)
	req.Header.Set("Authorization", "Bearer "+other)
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)
}

func TestSecurityHeaders(t *testing.T) {
	w := serve(newRouter(SecurityHeaders()), httptest.NewRequest(http.MethodGet, "/p/x", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-referrer", w.Header().Get("Referrer-Policy"))
}

const (
	tokenOne = "0b6c1f1e-6b8e-4f57-9f55-2f3c9c1d7a01"
	tokenTwo = "6f1d7c3a-2a4e-4e1b-8d57-5c8b0e9f4b02"
)

func TestTokenLimiter_IsPerKey(t *testing.T) {
	clk := testclock.NewClock(time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC))
	l := NewTokenLimiter(clk, 0.01, 2)

	for i := 0; i < 2; i++ {
		ok, _ := l.Reserve("a")
		require.True(t, ok)
	}

	ok, retryAfter := l.Reserve("a")
	assert.False(t, ok)
	assert.Equal(t, 100*time.Second, retryAfter)

	ok, _ = l.Reserve("b")
	assert.True(t, ok)

	clk.Advance(100 * time.Second)
	ok, _ = l.Reserve("a")
	assert.True(t, ok)

	ok, _ = l.Reserve("a")
	assert.False(t, ok)
	l.SetLimits(1000, 10)
	clk.Advance(time.Second)
	ok, _ = l.Reserve("a")
	assert.True(t, ok)
}

func TestTokenLimiter_DropsIdleBuckets(t *testing.T) {
	clk := testclock.NewClock(time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC))
	l := NewTokenLimiter(clk, 1, 1)

	l.Reserve("a")
	l.Reserve("b")
	assert.Equal(t, 2, l.Len())

	clk.Advance(11 * time.Minute)
	l.Reserve("c")
	assert.Equal(t, 1, l.Len())
}

func TestPublicWriteLimit(t *testing.T) {
	clk := testclock.NewClock(time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC))
	limiter := NewTokenLimiter(clk, 0.01, 1)
	r := newRouter(PublicWriteLimit(limiter, "token"))

	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/p/"+tokenOne, nil)).Code)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/p/"+tokenOne, nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "100", w.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/p/"+tokenTwo, nil)).Code)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/p/not-a-token", nil)).Code)
	}
	assert.Equal(t, 2, limiter.Len())
}

func TestPollHint(t *testing.T) {
	w := serve(newRouter(PollHint(1500*time.Millisecond)), httptest.NewRequest(http.MethodGet, "/p/x", nil))

	assert.Equal(t, "2", w.Header().Get("X-Poll-Interval"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	w = serve(newRouter(PollHint(0)), httptest.NewRequest(http.MethodGet, "/p/x", nil))
	assert.Equal(t, "1", w.Header().Get("X-Poll-Interval"))
}
