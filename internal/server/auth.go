package server

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/sngm3741/dispatch-contact/api/internal/config"
	commonhttp "github.com/sngm3741/dispatch-contact/api/internal/interfaces/http/common"
)

const tokenLeeway = 30 * time.Second

var errInvalidToken = errors.New("access token is invalid")

type authClaims struct {
	jwt.RegisteredClaims
	Name              string `json:"name,omitempty"`
	PreferredUsername string `json:"preferred_username,omitempty"`
}

// tokenVerifier accepts HS256 tokens signed by any configured issuer.
type tokenVerifier struct {
	configs  []config.JWTConfig
	audience string
	now      func() time.Time
}

func newTokenVerifier(cfg config.AuthConfig) *tokenVerifier {
	return &tokenVerifier{
		configs:  append([]config.JWTConfig(nil), cfg.JWTConfigs...),
		audience: cfg.JWTAudience,
		now:      time.Now,
	}
}

// parse tries each issuer in order and returns the first set of claims that
// verifies.
func (v *tokenVerifier) parse(tokenString string) (*authClaims, error) {
	if len(v.configs) == 0 {
		return nil, errors.New("authentication is not configured")
	}

	for _, cfg := range v.configs {
		claims := &authClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
			if token.Method != jwt.SigningMethodHS256 {
				return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
			}
			return cfg.Secret, nil
		}, jwt.WithLeeway(tokenLeeway), jwt.WithTimeFunc(v.now))
		if err != nil || !token.Valid {
			continue
		}
		if cfg.Issuer != "" && claims.Issuer != cfg.Issuer {
			continue
		}
		if claims.Subject == "" {
			continue
		}
		if v.audience != "" && !slices.Contains(claims.Audience, v.audience) {
			continue
		}
		return claims, nil
	}

	return nil, errInvalidToken
}

// middleware requires a valid bearer token and stores the principal in the
// request context.
func (v *tokenVerifier) middleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
			if authHeader == "" {
				commonhttp.WriteError(logger, w, http.StatusUnauthorized, "Unauthorized", "Authorization header is missing")
				return
			}

			const bearerPrefix = "Bearer "
			if !strings.HasPrefix(authHeader, bearerPrefix) {
				commonhttp.WriteError(logger, w, http.StatusUnauthorized, "Unauthorized", "Use a Bearer token")
				return
			}

			tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, bearerPrefix))
			if tokenString == "" {
				commonhttp.WriteError(logger, w, http.StatusUnauthorized, "Unauthorized", "Access token is empty")
				return
			}

			claims, err := v.parse(tokenString)
			if err != nil {
				logger.Debug("admin token rejected", zap.Error(err), zap.String("path", r.URL.Path))
				commonhttp.WriteError(logger, w, http.StatusUnauthorized, "Unauthorized", err.Error())
				return
			}

			user := commonhttp.AuthenticatedUser{
				ID:       claims.Subject,
				Name:     claims.Name,
				Username: claims.PreferredUsername,
				Issuer:   claims.Issuer,
			}
			next.ServeHTTP(w, r.WithContext(commonhttp.ContextWithUser(r.Context(), user)))
		})
	}
}
