package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	adminapp "github.com/sngm3741/dispatch-contact/api/internal/admin/application"
	admindomain "github.com/sngm3741/dispatch-contact/api/internal/admin/domain"
	"github.com/sngm3741/dispatch-contact/api/internal/config"
	adminhttp "github.com/sngm3741/dispatch-contact/api/internal/interfaces/http/admin"
	commonhttp "github.com/sngm3741/dispatch-contact/api/internal/interfaces/http/common"
	publichttp "github.com/sngm3741/dispatch-contact/api/internal/interfaces/http/public"
	"github.com/sngm3741/dispatch-contact/api/internal/metrics"
	publicapp "github.com/sngm3741/dispatch-contact/api/internal/public/application"
	"github.com/sngm3741/dispatch-contact/api/internal/public/domain"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type stubIntake struct {
	ready bool
}

func (s stubIntake) Submit(context.Context, io.Reader, publicapp.RequestMeta) publicapp.SubmitResult {
	return publicapp.SubmitResult{Outcome: publicapp.OutcomeCreated, ID: "65f1a2b3c4d5e6f7a8b9c0d1"}
}

func (s stubIntake) Ready(context.Context) bool { return s.ready }

type stubAdminSubmissions struct{}

func (stubAdminSubmissions) List(context.Context, adminapp.SubmissionFilter, adminapp.Paging) ([]domain.Submission, error) {
	return []domain.Submission{}, nil
}

func (stubAdminSubmissions) Detail(context.Context, string) (*domain.Submission, error) {
	return nil, nil
}

func (stubAdminSubmissions) SourceActivity(_ context.Context, ip string, since time.Time) (admindomain.SourceActivity, error) {
	return admindomain.SourceActivity{SourceIP: ip, Since: since}, nil
}

type stubAdminNotifications struct{}

func (stubAdminNotifications) ListFailed(context.Context, int) ([]admindomain.FailedNotification, error) {
	return []admindomain.FailedNotification{}, nil
}

func testRouter(t *testing.T, ready bool, withAdmin bool, origins ...string) http.Handler {
	t.Helper()
	registry := prometheus.NewRegistry()
	intake := stubIntake{ready: ready}
	rc := routerConfig{
		Logger:         zap.NewNop(),
		Collector:      metrics.NewCollector(registry),
		Gatherer:       registry,
		AllowedOrigins: origins,
		Public:         publichttp.NewHandler(publichttp.Config{Submissions: intake}),
		Ready:          intake.Ready,
	}
	if withAdmin {
		rc.Admin = adminhttp.NewHandler(adminhttp.Config{
			Submissions:   stubAdminSubmissions{},
			Notifications: stubAdminNotifications{},
		})
		rc.Verifier = newTokenVerifier(config.AuthConfig{
			JWTConfigs: []config.JWTConfig{{Issuer: "dispatch-admin", Secret: []byte(testSecret)}},
		})
	}
	return newRouter(rc)
}

func signToken(t *testing.T, secret string, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validClaims() authClaims {
	now := time.Now()
	return authClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "dispatch-admin",
			Subject:   "ops-1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		Name: "Ops",
	}
}

func TestTokenVerifier(t *testing.T) {
	verifier := newTokenVerifier(config.AuthConfig{
		JWTConfigs: []config.JWTConfig{
			{Issuer: "dispatch-admin", Secret: []byte(testSecret)},
			{Issuer: "dispatch-dashboard", Secret: []byte(strings.Repeat("d", 32))},
		},
		JWTAudience: "intake",
	})

	claims := validClaims()
	claims.Audience = jwt.ClaimStrings{"intake"}
	parsed, err := verifier.parse(signToken(t, testSecret, claims))
	require.NoError(t, err)
	assert.Equal(t, "ops-1", parsed.Subject)

	dashboard := validClaims()
	dashboard.Issuer = "dispatch-dashboard"
	dashboard.Audience = jwt.ClaimStrings{"intake"}
	_, err = verifier.parse(signToken(t, strings.Repeat("d", 32), dashboard))
	require.NoError(t, err)

	cases := map[string]func(c *authClaims) string{
		"wrong audience": func(c *authClaims) string {
			c.Audience = jwt.ClaimStrings{"other"}
			return testSecret
		},
		"wrong issuer": func(c *authClaims) string {
			c.Audience = jwt.ClaimStrings{"intake"}
			c.Issuer = "someone-else"
			return testSecret
		},
		"expired": func(c *authClaims) string {
			c.Audience = jwt.ClaimStrings{"intake"}
			c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
			return testSecret
		},
		"missing subject": func(c *authClaims) string {
			c.Audience = jwt.ClaimStrings{"intake"}
			c.Subject = ""
			return testSecret
		},
		"wrong secret": func(c *authClaims) string {
			c.Audience = jwt.ClaimStrings{"intake"}
			return strings.Repeat("x", 32)
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := validClaims()
			secret := mutate(&c)
			_, err := verifier.parse(signToken(t, secret, c))
			assert.ErrorIs(t, err, errInvalidToken)
		})
	}
}

func TestTokenVerifierRejectsNoneAlgorithm(t *testing.T) {
	verifier := newTokenVerifier(config.AuthConfig{
		JWTConfigs: []config.JWTConfig{{Issuer: "dispatch-admin", Secret: []byte(testSecret)}},
	})
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, validClaims()).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = verifier.parse(token)
	assert.ErrorIs(t, err, errInvalidToken)
}

func TestAdminRoutesRequireBearerToken(t *testing.T) {
	router := testRouter(t, true, true)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{name: "missing header", status: http.StatusUnauthorized},
		{name: "basic scheme", header: "Basic Zm9vOmJhcg==", status: http.StatusUnauthorized},
		{name: "empty bearer", header: "Bearer ", status: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer not.a.jwt", status: http.StatusUnauthorized},
		{name: "valid", header: "Bearer " + signToken(t, testSecret, validClaims()), status: http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/admin/notifications/failed", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusUnauthorized {
				var body commonhttp.ErrorResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, "Unauthorized", body.Error)
			}
		})
	}
}

func TestAdminRoutesAbsentWithoutAuth(t *testing.T) {
	router := testRouter(t, true, false)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/messages", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORS(t *testing.T) {
	router := testRouter(t, true, false, "https://dispatch.example")

	preflight := httptest.NewRequest(http.MethodOptions, "/api/messages", nil)
	preflight.Header.Set("Origin", "https://dispatch.example")
	preflight.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, preflight)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://dispatch.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET,POST,OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))

	foreign := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	foreign.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, foreign)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSWildcardEchoesOrigin(t *testing.T) {
	router := testRouter(t, true, false, "*")

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://anywhere.example")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "https://anywhere.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestLivenessAndReadiness(t *testing.T) {
	ready := testRouter(t, true, false)
	notReady := testRouter(t, false, false)

	status := func(h http.Handler, path string) int {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, status(ready, "/live"))
	assert.Equal(t, http.StatusOK, status(ready, "/ready"))
	assert.Equal(t, http.StatusOK, status(notReady, "/live"))
	assert.Equal(t, http.StatusServiceUnavailable, status(notReady, "/ready"))
}

func TestMetricsEndpointCountsRequests(t *testing.T) {
	router := testRouter(t, true, false)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader(`{}`)))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `intake_http_requests_total{status_code="201"} 1`)
}

func TestUnknownRouteReturnsJSON404(t *testing.T) {
	router := testRouter(t, true, false)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}
