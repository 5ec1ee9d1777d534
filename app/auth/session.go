package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/vibast-solutions/ms-go-shop/app/types"
	"github.com/vibast-solutions/ms-go-shop/config"
)

const (
	AdminCookieName = "shop_admin_session"

	adminSubject = "admin"
	adminIssuer  = "shop-admin"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAdminDisabled      = errors.New("admin login is not configured")
	ErrInvalidSession     = errors.New("invalid session")
)

// SessionManager issues signed admin session cookies after a static credential check.
type SessionManager struct {
	username string
	password string
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

func NewSessionManager(cfg config.AdminConfig) *SessionManager {
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionManager{
		username: cfg.Username,
		password: cfg.Password,
		secret:   []byte(cfg.SessionSecret),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (m *SessionManager) Enabled() bool {
	return m.password != "" && len(m.secret) > 0
}

// Login checks the credentials and returns a signed session token.
func (m *SessionManager) Login(username, password string) (string, time.Time, error) {
	if !m.Enabled() {
		return "", time.Time{}, ErrAdminDisabled
	}

	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(m.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(m.password)) == 1
	if !userOK || !passOK {
		return "", time.Time{}, ErrInvalidCredentials
	}

	now := m.now()
	expiresAt := now.Add(m.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   adminSubject,
		Issuer:    adminIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

func (m *SessionManager) Verify(tokenStr string) error {
	if !m.Enabled() {
		return ErrAdminDisabled
	}

	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return ErrInvalidSession
	}
	if claims.Subject != adminSubject || claims.Issuer != adminIssuer {
		return ErrInvalidSession
	}
	return nil
}

func (m *SessionManager) Cookie(token string, expiresAt time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     AdminCookieName,
		Value:    token,
		Path:     "/admin",
		Expires:  expiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func (m *SessionManager) ExpiredCookie() *http.Cookie {
	return &http.Cookie{
		Name:     AdminCookieName,
		Value:    "",
		Path:     "/admin",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// RequireAdmin rejects requests without a valid session cookie.
func (m *SessionManager) RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			cookie, err := ctx.Cookie(AdminCookieName)
			if err != nil || m.Verify(cookie.Value) != nil {
				return ctx.JSON(http.StatusUnauthorized, &types.ErrorResponse{Error: "Unauthorized"})
			}
			return next(ctx)
		}
	}
}

// RequireAPIKey accepts either the X-API-Key header or a bearer token.
// With neither credential configured every request is rejected.
func RequireAPIKey(cfg config.AppConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if apiKey := ctx.Request().Header.Get("X-API-Key"); cfg.APIKey != "" && apiKey != "" &&
				subtle.ConstantTimeCompare([]byte(apiKey), []byte(cfg.APIKey)) == 1 {
				return next(ctx)
			}

			header := ctx.Request().Header.Get(echo.HeaderAuthorization)
			if token, ok := strings.CutPrefix(header, "Bearer "); ok && cfg.BearerToken != "" &&
				subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), []byte(cfg.BearerToken)) == 1 {
				return next(ctx)
			}

			return ctx.JSON(http.StatusUnauthorized, &types.ErrorResponse{Error: "Unauthorized"})
		}
	}
}
