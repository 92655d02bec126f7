package http

import (
	"fmt"
	"net"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Claims carried by dashboard API tokens.
type Claims struct {
	TenantID string `json:"tenant_id"`
	jwt.RegisteredClaims
}

// identity is what authentication resolved for a request.
type identity struct {
	UserID   string
	TenantID string
	// Anonymous is true when no valid token was presented.
	Anonymous bool
}

// authenticate parses an optional bearer token. Chat traffic may be
// anonymous (public widget); dashboard routes require a valid token and
// enforce that separately.
func (s *Server) authenticate(c echo.Context) (identity, error) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return identity{Anonymous: true}, nil
	}
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return identity{}, fmt.Errorf("malformed authorization header")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.signingKey, nil
	})
	if err != nil || !token.Valid {
		return identity{}, fmt.Errorf("invalid token")
	}
	if claims.Subject == "" || claims.TenantID == "" {
		return identity{}, fmt.Errorf("token missing identity claims")
	}
	return identity{UserID: claims.Subject, TenantID: claims.TenantID}, nil
}

// requireAuth wraps dashboard handlers that must not serve anonymous
// traffic.
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := s.authenticate(c)
		if err != nil || id.Anonymous {
			return errorJSON(c, 401, CodeUnauthorized, "authentication required")
		}
		c.Set(identityKey, id)
		return next(c)
	}
}

const identityKey = "authenticated_identity"

func identityFrom(c echo.Context) (identity, bool) {
	id, ok := c.Get(identityKey).(identity)
	return id, ok
}

// clientIP resolves the caller address for anonymous rate limiting.
// Proxy headers are consulted first, then the connection address.
func clientIP(c echo.Context) string {
	if fwd := c.Request().Header.Get("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if first != "" {
			return first
		}
	}
	if real := c.Request().Header.Get("X-Real-IP"); real != "" {
		return strings.TrimSpace(real)
	}
	host, _, err := net.SplitHostPort(c.Request().RemoteAddr)
	if err != nil {
		return c.Request().RemoteAddr
	}
	return host
}
