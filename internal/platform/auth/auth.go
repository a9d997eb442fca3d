// Package auth establishes which party is invoking an operation. The workflow
// engines only need the acting role (clinic, employer, authority, specialist,
// reception) for transition guards; session handling lives outside this core.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Roles recognized on approval and queue transitions.
const (
	RoleClinic     = "clinic"
	RoleEmployer   = "employer"
	RoleAuthority  = "authority"
	RoleSpecialist = "specialist"
	RoleReception  = "reception"
	RoleAdmin      = "admin"
)

type contextKey string

const (
	PartyIDKey contextKey = "party_id"
	RolesKey   contextKey = "party_roles"
)

// Claims carried in the bearer token.
type Claims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles"`
}

// JWTMiddleware verifies an HS256 bearer token and stores the acting party's
// id and roles in the request context.
func JWTMiddleware(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return secret, nil
			})
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			ctx := c.Request().Context()
			ctx = context.WithValue(ctx, PartyIDKey, claims.Subject)
			ctx = context.WithValue(ctx, RolesKey, claims.Roles)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// DevAuthMiddleware grants an admin principal to every request. Development
// only.
func DevAuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			ctx = context.WithValue(ctx, PartyIDKey, "dev")
			ctx = context.WithValue(ctx, RolesKey, []string{RoleAdmin})
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// PartyFromContext returns the acting party's id, or "".
func PartyFromContext(ctx context.Context) string {
	id, _ := ctx.Value(PartyIDKey).(string)
	return id
}

// RolesFromContext returns the acting party's roles.
func RolesFromContext(ctx context.Context) []string {
	roles, _ := ctx.Value(RolesKey).([]string)
	return roles
}

// RequireRole checks that the acting party holds at least one of roles. Admin
// passes every check.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			held := RolesFromContext(c.Request().Context())
			for _, required := range roles {
				for _, has := range held {
					if has == required || has == RoleAdmin {
						return next(c)
					}
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				"required role: "+strings.Join(roles, " or "))
		}
	}
}
