package middleware // reusable HTTP middleware for the echo router

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/restaurant-reservation/internal/utils"
)

// bearer extracts the raw token from an "Authorization: Bearer ..." header.
func bearer(c echo.Context) (string, bool) {
    auth := c.Request().Header.Get("Authorization")
    if !strings.HasPrefix(auth, "Bearer ") {
        return "", false
    }
    raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
    return raw, raw != ""
}

// authenticate verifies raw and stores the user id (uint64) and role in the
// context.
func authenticate(c echo.Context, secret, raw string) error {
    claims, err := utils.ParseAccessToken(secret, raw)
    if err != nil {
        return err
    }
    id, err := claims.UserID()
    if err != nil {
        return err
    }
    c.Set(ContextUserID, id)
    c.Set(ContextRole, claims.Role)
    return nil
}

// JWTAuth rejects requests without a valid Bearer access token. Handlers
// read the caller via UserID(c) and Role(c).
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            raw, ok := bearer(c)
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            if err := authenticate(c, secret, raw); err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }
            return next(c)
        }
    }
}

// OptionalJWT authenticates the caller when a Bearer token is present and
// lets anonymous requests through. A token that is present but invalid is
// still rejected.
func OptionalJWT(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            raw, ok := bearer(c)
            if !ok {
                return next(c)
            }
            if err := authenticate(c, secret, raw); err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }
            return next(c)
        }
    }
}
