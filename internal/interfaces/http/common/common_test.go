package common

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestParsePositiveInt(t *testing.T) {
	v, ok := ParsePositiveInt(" 25 ", 10)
	assert.Equal(t, 25, v)
	assert.True(t, ok)

	for _, raw := range []string{"", "0", "-3", "abc"} {
		v, ok := ParsePositiveInt(raw, 10)
		assert.Equal(t, 10, v, raw)
		assert.False(t, ok, raw)
	}
}

func TestParseTimeParam(t *testing.T) {
	got, err := ParseTimeParam("2026-10-01T09:00:00+09:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), got)

	got, err = ParseTimeParam("2026-10-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), got)

	got, err = ParseTimeParam("")
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	_, err = ParseTimeParam("yesterday")
	assert.Error(t, err)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.5:52000"
	assert.Equal(t, "203.0.113.5", ClientIP(req))

	req.RemoteAddr = "203.0.113.6"
	assert.Equal(t, "203.0.113.6", ClientIP(req))

	req.RemoteAddr = "[2001:db8::1]:443"
	assert.Equal(t, "2001:db8::1", ClientIP(req))
}

func TestRealIP(t *testing.T) {
	trusted := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8"), netip.MustParsePrefix("2001:db8:ffff::/48")}

	tests := []struct {
		name       string
		remoteAddr string
		forwarded  []string
		realIP     string
		want       string
	}{
		{name: "untrusted peer keeps socket address", remoteAddr: "192.0.2.1:1234", forwarded: []string{"198.51.100.23"}, want: "192.0.2.1"},
		{name: "untrusted peer ignores real ip", remoteAddr: "192.0.2.1:1234", realIP: "198.51.100.23", want: "192.0.2.1"},
		{name: "trusted peer single hop", remoteAddr: "10.1.2.3:1234", forwarded: []string{"198.51.100.23"}, want: "198.51.100.23"},
		{name: "trusted hops are skipped", remoteAddr: "10.1.2.3:1234", forwarded: []string{"203.0.113.9, 198.51.100.23, 10.0.0.7"}, want: "198.51.100.23"},
		{name: "repeated headers form one chain", remoteAddr: "10.1.2.3:1234", forwarded: []string{"203.0.113.9", "198.51.100.23"}, want: "198.51.100.23"},
		{name: "all hops trusted yields leftmost", remoteAddr: "10.1.2.3:1234", forwarded: []string{"10.0.0.9, 10.0.0.7"}, want: "10.0.0.9"},
		{name: "real ip fallback", remoteAddr: "10.1.2.3:1234", realIP: "198.51.100.23", want: "198.51.100.23"},
		{name: "garbage header keeps socket address", remoteAddr: "10.1.2.3:1234", forwarded: []string{"not-an-ip"}, want: "10.1.2.3"},
		{name: "trusted ipv6 peer", remoteAddr: "[2001:db8:ffff::1]:443", forwarded: []string{"2001:db8:1::5"}, want: "2001:db8:1::5"},
		{name: "mapped ipv4 peer", remoteAddr: "[::ffff:10.1.2.3]:443", forwarded: []string{"198.51.100.23"}, want: "198.51.100.23"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got string
			handler := RealIP(trusted)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				got = ClientIP(r)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remoteAddr
			for _, value := range tc.forwarded {
				req.Header.Add("X-Forwarded-For", value)
			}
			if tc.realIP != "" {
				req.Header.Set("X-Real-IP", tc.realIP)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRealIPWithoutTrustedProxies(t *testing.T) {
	var got string
	handler := RealIP(nil)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = ClientIP(r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "127.0.0.1:5000"
	req.Header.Set("X-Forwarded-For", "198.51.100.23")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "127.0.0.1", got)
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(zap.NewNop(), rec, http.StatusServiceUnavailable, "Service temporarily unavailable", "Database connection not established")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Service temporarily unavailable", body["error"])
	assert.NotContains(t, body, "details")
}

type statusCounter struct{ codes []int }

func (s *statusCounter) RecordHTTPStatus(code int) { s.codes = append(s.codes, code) }

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	counter := &statusCounter{}

	h := middleware.RequestID(RequestLogger(zap.New(core), counter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write(bytes.Repeat([]byte("x"), 4))
	})))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fail", nil))

	assert.Equal(t, []int{http.StatusOK, http.StatusInternalServerError}, counter.codes)
	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zap.InfoLevel, entries[0].Level)
	assert.Equal(t, int64(4), entries[0].ContextMap()["bytes"])
	assert.NotEmpty(t, entries[0].ContextMap()["requestId"])
	assert.Equal(t, zap.ErrorLevel, entries[1].Level)
}
