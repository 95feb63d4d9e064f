package handler

import (
	"log/slog"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sumire/homestead/internal/domain"
)

const (
	contextKeyOwnerID = "owner_id"
)

// TokenVerifier resolves a bearer token to the player it was issued for.
type TokenVerifier interface {
	ValidateToken(token string) (int64, error)
}

// RequestLogger logs each HTTP request with structured fields.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				// Resolve the status before logging it.
				c.Error(err)
			}

			attrs := []any{
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", c.Response().Status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			}
			if id, ok := GetOwnerID(c); ok {
				attrs = append(attrs, "owner_id", id)
			}
			slog.Info("http request", attrs...)

			return nil
		}
	}
}

// JWTAuth validates the Bearer token and injects the owner ID into echo context.
func JWTAuth(tokens TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return domain.ErrUnauthorized
			}

			scheme, token, ok := strings.Cut(header, " ")
			if !ok || scheme != "Bearer" || token == "" {
				return domain.ErrUnauthorized
			}

			ownerID, err := tokens.ValidateToken(token)
			if err != nil {
				return domain.ErrUnauthorized
			}

			c.Set(contextKeyOwnerID, ownerID)
			return next(c)
		}
	}
}

// GetOwnerID extracts the authenticated player ID from echo context.
func GetOwnerID(c echo.Context) (int64, bool) {
	id, ok := c.Get(contextKeyOwnerID).(int64)
	return id, ok
}
