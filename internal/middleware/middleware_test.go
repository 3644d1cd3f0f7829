package middleware

import (
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/alicebob/miniredis/v2"
    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "go.uber.org/zap"

    "github.com/iliyamo/restaurant-reservation/internal/config"
    "github.com/iliyamo/restaurant-reservation/internal/model"
    "github.com/iliyamo/restaurant-reservation/internal/utils"
)

const secret = "test-secret"

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
    t.Helper()
    mr := miniredis.RunT(t)
    rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
    t.Cleanup(func() { _ = rdb.Close() })
    return mr, rdb
}

func bearerFor(t *testing.T, id uint64, role string) string {
    t.Helper()
    tok, err := utils.NewAccessToken(secret, id, role, 5)
    require.NoError(t, err)
    return "Bearer " + tok.Token
}

func whoami(c echo.Context) error {
    id, ok := UserID(c)
    return c.JSON(http.StatusOK, echo.Map{"id": id, "ok": ok, "role": Role(c)})
}

func do(e *echo.Echo, method, path, auth string) *httptest.ResponseRecorder {
    req := httptest.NewRequest(method, path, nil)
    if auth != "" {
        req.Header.Set("Authorization", auth)
    }
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec
}

func TestJWTAuth(t *testing.T) {
    e := echo.New()
    e.GET("/me", whoami, JWTAuth(secret))

    assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/me", "").Code)
    assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/me", "Bearer nope").Code)

    rec := do(e, http.MethodGet, "/me", bearerFor(t, 7, model.RoleDiner))
    require.Equal(t, http.StatusOK, rec.Code)
    assert.JSONEq(t, `{"id":7,"ok":true,"role":"DINER"}`, rec.Body.String())
}

func TestOptionalJWT(t *testing.T) {
    e := echo.New()
    e.GET("/me", whoami, OptionalJWT(secret))

    rec := do(e, http.MethodGet, "/me", "")
    require.Equal(t, http.StatusOK, rec.Code)
    assert.JSONEq(t, `{"id":0,"ok":false,"role":""}`, rec.Body.String())

    rec = do(e, http.MethodGet, "/me", bearerFor(t, 3, model.RoleAdmin))
    require.Equal(t, http.StatusOK, rec.Code)
    assert.JSONEq(t, `{"id":3,"ok":true,"role":"ADMIN"}`, rec.Body.String())

    assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/me", "Bearer broken").Code)
}

func TestRequireRole(t *testing.T) {
    e := echo.New()
    e.GET("/admin", whoami, JWTAuth(secret), RequireRole(model.RoleAdmin))

    assert.Equal(t, http.StatusForbidden, do(e, http.MethodGet, "/admin", bearerFor(t, 1, model.RoleDiner)).Code)
    assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/admin", bearerFor(t, 1, model.RoleAdmin)).Code)
}

func TestTokenBucket(t *testing.T) {
    _, rdb := newRedis(t)
    cfg := config.RateLimitConfig{
        Enabled:        true,
        Capacity:       2,
        RefillTokens:   1,
        RefillInterval: time.Minute,
        TTL:            10 * time.Minute,
        KeyStrategy:    "ip_user",
        Prefix:         "rl",
    }
    e := echo.New()
    e.GET("/ping", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, NewTokenBucket(cfg, rdb, zap.NewNop()))

    first := do(e, http.MethodGet, "/ping", "")
    assert.Equal(t, http.StatusNoContent, first.Code)
    assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
    assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))

    assert.Equal(t, http.StatusNoContent, do(e, http.MethodGet, "/ping", "").Code)

    limited := do(e, http.MethodGet, "/ping", "")
    assert.Equal(t, http.StatusTooManyRequests, limited.Code)
    assert.NotEmpty(t, limited.Header().Get("Retry-After"))
    assert.Contains(t, limited.Body.String(), "rate limit exceeded")
}

func TestTokenBucket_FailsOpen(t *testing.T) {
    mr, rdb := newRedis(t)
    cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute, Prefix: "rl"}
    e := echo.New()
    e.GET("/ping", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, NewTokenBucket(cfg, rdb, nil))

    mr.Close()
    for i := 0; i < 3; i++ {
        assert.Equal(t, http.StatusNoContent, do(e, http.MethodGet, "/ping", "").Code)
    }
}

func TestTokenBucket_DisabledWithoutRedis(t *testing.T) {
    cfg := config.RateLimitConfig{Enabled: true, Capacity: 1}
    e := echo.New()
    e.GET("/ping", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, NewTokenBucket(cfg, nil, nil))
    for i := 0; i < 3; i++ {
        assert.Equal(t, http.StatusNoContent, do(e, http.MethodGet, "/ping", "").Code)
    }
}

func TestBuildRateKey(t *testing.T) {
    e := echo.New()
    req := httptest.NewRequest(http.MethodGet, "/v1/restaurants", nil)
    req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
    c := e.NewContext(req, httptest.NewRecorder())
    c.SetPath("/v1/restaurants")

    cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip"}
    assert.Equal(t, "rl:ip:10.0.0.1", buildRateKey(cfg, c))

    cfg.KeyStrategy = "user"
    assert.Equal(t, "rl:user:guest", buildRateKey(cfg, c))
    c.Set(ContextUserID, uint64(9))
    assert.Equal(t, "rl:user:9", buildRateKey(cfg, c))

    cfg.KeyStrategy = ""
    assert.Equal(t, "rl:ip:10.0.0.1:user:9:route:GET /v1/restaurants", buildRateKey(cfg, c))
}

func TestRedisCache(t *testing.T) {
    _, rdb := newRedis(t)
    cfg := config.CacheConfig{
        Enabled:      true,
        Methods:      map[string]bool{"GET": true},
        TTL:          time.Minute,
        Prefix:       "cache",
        MaxBodyBytes: 1024,
    }
    calls := 0
    e := echo.New()
    e.GET("/items/:id", func(c echo.Context) error {
        calls++
        return c.JSON(http.StatusOK, echo.Map{"id": c.Param("id"), "calls": calls})
    }, NewRedisCache(cfg, rdb, zap.NewNop()))

    miss := do(e, http.MethodGet, "/items/1", "")
    require.Equal(t, http.StatusOK, miss.Code)
    assert.Equal(t, "MISS", miss.Header().Get("X-Cache"))

    hit := do(e, http.MethodGet, "/items/1", "")
    require.Equal(t, http.StatusOK, hit.Code)
    assert.Equal(t, "HIT", hit.Header().Get("X-Cache"))
    assert.Equal(t, miss.Body.String(), hit.Body.String())
    assert.Contains(t, hit.Header().Get(echo.HeaderContentType), "application/json")

    other := do(e, http.MethodGet, "/items/2", "")
    assert.Equal(t, "MISS", other.Header().Get("X-Cache"))
    assert.Equal(t, 2, calls)

    require.NoError(t, PurgeCache(t.Context(), rdb, "cache"))
    assert.Equal(t, "MISS", do(e, http.MethodGet, "/items/1", "").Header().Get("X-Cache"))
    assert.Equal(t, 3, calls)
}

func TestRedisCache_SkipsErrorsAndLargeBodies(t *testing.T) {
    _, rdb := newRedis(t)
    cfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute, Prefix: "cache", MaxBodyBytes: 16}
    e := echo.New()
    mw := NewRedisCache(cfg, rdb, nil)
    e.GET("/missing", func(c echo.Context) error {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
    }, mw)
    e.GET("/big", func(c echo.Context) error {
        return c.String(http.StatusOK, "this body is longer than sixteen bytes")
    }, mw)

    for i := 0; i < 2; i++ {
        assert.Equal(t, "MISS", do(e, http.MethodGet, "/missing", "").Header().Get("X-Cache"))
        rec := do(e, http.MethodGet, "/big", "")
        assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
        assert.Equal(t, "this body is longer than sixteen bytes", rec.Body.String())
    }
}

func TestPayloadCodec_RejectsShortInput(t *testing.T) {
    _, _, _, ok := decodePayload([]byte{0, 1})
    assert.False(t, ok)
}
