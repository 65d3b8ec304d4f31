package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RebuildFunc 重新读取配置并编译，成功时返回新的快照。
type RebuildFunc func(ctx context.Context) (Snapshot, error)

// AppOptions 控制诊断服务的依赖。
type AppOptions struct {
	Logger     *logrus.Logger
	Snapshots  *SnapshotStore
	ListenPort int
}

const contextKeyRequestID = "_swforge_request_id"

// NewApp 构建只暴露 /-/ 诊断接口的 Fiber 应用，其余路径统一返回 404。
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Snapshots == nil {
		return nil, errors.New("snapshot store is required")
	}
	if opts.ListenPort <= 0 {
		return nil, fmt.Errorf("invalid listen port: %d", opts.ListenPort)
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
	})

	app.Use(recover.New())
	app.Use(requestContextMiddleware(opts.Logger))

	app.Use(diagnosticsOnly(opts.Logger))

	return app, nil
}

// diagnosticsOnly 放行 /-/ 前缀的请求，其余路径直接返回 404。
func diagnosticsOnly(logger *logrus.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		if isDiagnosticsPath(string(c.Request().URI().Path())) {
			return c.Next()
		}
		return renderNotFound(c, logger)
	}
}

// requestContextMiddleware 生成请求 ID，并在请求结束后输出访问日志。
func requestContextMiddleware(logger *logrus.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)

		start := time.Now()
		err := c.Next()
		logger.WithFields(logrus.Fields{
			"action":      "request",
			"request_id":  reqID,
			"method":      c.Method(),
			"path":        c.Path(),
			"status":      c.Response().StatusCode(),
			"duration_ms": time.Since(start).Milliseconds(),
		}).Debug("diagnostics request")
		return err
	}
}

func renderNotFound(c fiber.Ctx, logger *logrus.Logger) error {
	logger.WithFields(logrus.Fields{
		"action": "route_lookup",
		"path":   c.Path(),
	}).Debug("path not served")

	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error": "not_found",
	})
}

// RequestID returns the request identifier stored by the router middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}

func isDiagnosticsPath(path string) bool {
	return strings.HasPrefix(path, "/-/")
}
