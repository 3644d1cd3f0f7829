package middleware

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// Context keys set by the JWT middlewares.
const (
    ContextUserID = "user_id"
    ContextRole   = "role"
)

// UserID returns the authenticated user id stored by JWTAuth or
// OptionalJWT, and false for anonymous requests.
func UserID(c echo.Context) (uint64, bool) {
    id, ok := c.Get(ContextUserID).(uint64)
    return id, ok && id != 0
}

// Role returns the authenticated role, or "" for anonymous requests.
func Role(c echo.Context) string {
    r, _ := c.Get(ContextRole).(string)
    return r
}

// identity names the caller for rate-limit keys: the user id when
// authenticated, "guest" otherwise.
func identity(c echo.Context) string {
    if id, ok := UserID(c); ok {
        return strconv.FormatUint(id, 10)
    }
    return "guest"
}
