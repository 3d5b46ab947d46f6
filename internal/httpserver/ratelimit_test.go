package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Raventwist88/ontrakk/internal/config"
)

func limitedHandler(rps, burst int) (http.Handler, *int) {
	calls := 0
	h := RateLimitMiddleware(&config.Config{RateLimitRPS: rps, RateLimitBurst: burst}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	return h, &calls
}

func hit(h http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/v1/entries", nil)
	req.RemoteAddr = remoteAddr
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRateLimit_SecondRequestReturns429(t *testing.T) {
	h, calls := limitedHandler(1, 1)

	require.Equal(t, http.StatusOK, hit(h, "1.2.3.4:12345").Code)

	rr := hit(h, "1.2.3.4:12345")
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "1", rr.Header().Get("Retry-After"))
	assert.Equal(t, 1, *calls)

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, "rate_limited", body.Error.Code)
}

func TestRateLimit_DisabledWhenZero(t *testing.T) {
	h, calls := limitedHandler(0, 0)

	for i := 0; i < 10; i++ {
		require.Equal(t, http.StatusOK, hit(h, "1.2.3.4:12345").Code, "request %d", i)
	}
	assert.Equal(t, 10, *calls)
}

func TestRateLimit_BurstDefaultsToRPS(t *testing.T) {
	h, _ := limitedHandler(3, 0)

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, hit(h, "9.9.9.9:1").Code, "request %d", i)
	}
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "9.9.9.9:1").Code)
}

func TestRateLimit_DifferentIPsIndependent(t *testing.T) {
	h, _ := limitedHandler(1, 1)

	assert.Equal(t, http.StatusOK, hit(h, "1.2.3.4:1").Code)
	assert.Equal(t, http.StatusOK, hit(h, "5.6.7.8:1").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "1.2.3.4:2").Code)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:443"
	req.Header.Set("X-Forwarded-For", " 203.0.113.7 , 10.0.0.1")
	assert.Equal(t, "203.0.113.7", clientIP(req))

	req.Header.Del("X-Forwarded-For")
	assert.Equal(t, "10.0.0.1", clientIP(req))

	req.RemoteAddr = "no-port"
	assert.Equal(t, "no-port", clientIP(req))
}

func TestRateLimiterStore_EvictsIdleClients(t *testing.T) {
	store := newRateLimiterStore(1, 1)
	require.True(t, store.get("busy").Allow())

	for i := 1; i < cleanupEvery; i++ {
		store.get(fmt.Sprintf("10.0.%d.%d", i/256, i%256))
	}

	// only the drained bucket survives the sweep
	assert.Equal(t, 1, store.size())
}
