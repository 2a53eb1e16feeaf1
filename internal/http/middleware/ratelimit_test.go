package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	echo "github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func limiterRequest(form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/whatsapp", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return req
}

func TestSenderLimitDisabledPassesThrough(t *testing.T) {
	mw := SenderLimit(SenderLimitConfig{PerMinute: 0})
	form := url.Values{"From": {"whatsapp:+15551234567"}}

	rec := invoke(t, mw, limiterRequest(form))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSenderLimitSkipsCallsWithoutSender(t *testing.T) {
	mw := SenderLimit(SenderLimitConfig{Redis: redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}), PerMinute: 1})

	rec := invoke(t, mw, limiterRequest(url.Values{"Body": {"hi"}}))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSenderLimitFailsOpenOnRedisError(t *testing.T) {
	// nothing listens on port 1, so the pipeline errors immediately
	mw := SenderLimit(SenderLimitConfig{Redis: redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}), PerMinute: 1})
	form := url.Values{"From": {"whatsapp:+15551234567"}}

	rec := invoke(t, mw, limiterRequest(form))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSenderLimitRejectsOverLimit(t *testing.T) {
	srv := miniredis.RunT(t)
	mw := SenderLimit(SenderLimitConfig{Redis: redis.NewClient(&redis.Options{Addr: srv.Addr()}), PerMinute: 2})
	form := url.Values{"From": {"whatsapp:+15551234567"}}

	// keep all three calls inside one window
	if rem := 60 - time.Now().Unix()%60; rem < 2 {
		time.Sleep(time.Duration(rem) * time.Second)
	}

	for i := 0; i < 2; i++ {
		rec := invoke(t, mw, limiterRequest(form))
		require.Equal(t, http.StatusOK, rec.Code, "call %d under the cap", i+1)
	}

	rec := invoke(t, mw, limiterRequest(form))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	secs, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.Greater(t, secs, 0)
	assert.LessOrEqual(t, secs, 60)
}

func TestSenderLimitCountsSendersSeparately(t *testing.T) {
	srv := miniredis.RunT(t)
	mw := SenderLimit(SenderLimitConfig{Redis: redis.NewClient(&redis.Options{Addr: srv.Addr()}), PerMinute: 1})

	rec := invoke(t, mw, limiterRequest(url.Values{"From": {"whatsapp:+15551111111"}}))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = invoke(t, mw, limiterRequest(url.Values{"From": {"whatsapp:+15552222222"}}))
	assert.Equal(t, http.StatusOK, rec.Code, "the window is per sender")
}
