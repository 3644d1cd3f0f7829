package middleware

import (
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"
    "go.uber.org/zap/zapcore"
)

// RequestLogger logs one line per request.
// 5xx responses log at error level, 4xx at warn.
func RequestLogger(logger *zap.Logger) echo.MiddlewareFunc {
    logger = logger.Named("http")
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                c.Error(err)
            }

            req := c.Request()
            status := c.Response().Status
            elapsed := time.Since(start)
            route := c.Path()

            level := zapcore.InfoLevel
            switch {
            case status >= 500:
                level = zapcore.ErrorLevel
            case status >= 400:
                level = zapcore.WarnLevel
            }
            if ce := logger.Check(level, "request"); ce != nil {
                fields := []zap.Field{
                    zap.String("method", req.Method),
                    zap.String("path", req.URL.Path),
                    zap.String("route", route),
                    zap.Int("status", status),
                    zap.Duration("elapsed", elapsed),
                    zap.String("ip", c.RealIP()),
                }
                if id, ok := UserID(c); ok {
                    fields = append(fields, zap.Uint64("user_id", id))
                }
                if err != nil {
                    fields = append(fields, zap.Error(err))
                }
                ce.Write(fields...)
            }
            return nil
        }
    }
}
