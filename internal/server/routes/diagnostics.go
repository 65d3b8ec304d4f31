package routes

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/swforge/internal/compiler"
	"github.com/any-hub/swforge/internal/config"
	"github.com/any-hub/swforge/internal/server"
)

// RegisterDiagnosticRoutes 暴露 /-/ 诊断接口，读取 SnapshotStore 中最近一次编译结果。
func RegisterDiagnosticRoutes(app *fiber.App, store *server.SnapshotStore, rebuild server.RebuildFunc, logger *logrus.Logger) {
	if app == nil || store == nil {
		return
	}

	app.Get("/-/healthz", func(c fiber.Ctx) error {
		snap, ok := store.Current()
		if !ok {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "no_artifact"})
		}
		return c.JSON(encodeSummary(snap))
	})

	app.Get("/-/strategies", func(c fiber.Ctx) error {
		snap, ok := store.Current()
		if !ok {
			return noArtifact(c)
		}
		return c.JSON(fiber.Map{
			"strategies":  emptyIfNil(snap.Artifact.Strategies),
			"cache_names": emptyIfNil(snap.Artifact.CacheNames),
		})
	})

	app.Get("/-/strategies/:name", func(c fiber.Ctx) error {
		name := strings.TrimSpace(c.Params("name"))
		if name == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "strategy_name_required"})
		}
		if _, ok := store.Current(); !ok {
			return noArtifact(c)
		}
		strategy, ok := store.Strategy(name)
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "strategy_not_found"})
		}
		return c.JSON(strategy)
	})

	app.Get("/-/deprecations", func(c fiber.Ctx) error {
		snap, ok := store.Current()
		if !ok {
			return noArtifact(c)
		}
		return c.JSON(fiber.Map{"deprecations": emptyIfNil(snap.Artifact.Deprecations)})
	})

	app.Get("/-/artifact", func(c fiber.Ctx) error {
		snap, ok := store.Current()
		if !ok {
			return noArtifact(c)
		}
		c.Set(fiber.HeaderContentType, "text/javascript; charset=utf-8")
		return c.SendString(snap.Artifact.Text)
	})

	if rebuild == nil {
		return
	}
	app.Post("/-/rebuild", func(c fiber.Ctx) error {
		snap, err := rebuild(c.Context())
		if err != nil {
			if logger != nil {
				logger.WithFields(logrus.Fields{
					"action":     "rebuild",
					"request_id": server.RequestID(c),
				}).Error(err.Error())
			}
			return c.Status(fiber.StatusUnprocessableEntity).JSON(encodeError(err))
		}
		store.Set(snap)
		current, _ := store.Current()
		return c.JSON(encodeSummary(current))
	})
}

type summaryPayload struct {
	Status       string    `json:"status"`
	JobID        string    `json:"job_id"`
	ConfigPath   string    `json:"config_path,omitempty"`
	Dest         string    `json:"dest,omitempty"`
	CompiledAt   time.Time `json:"compiled_at"`
	Strategies   int       `json:"strategies"`
	CacheNames   int       `json:"cache_names"`
	Deprecations int       `json:"deprecations"`
	Bytes        int       `json:"bytes"`
}

func encodeSummary(snap server.Snapshot) summaryPayload {
	return summaryPayload{
		Status:       "ok",
		JobID:        snap.JobID,
		ConfigPath:   snap.ConfigPath,
		Dest:         snap.Dest,
		CompiledAt:   snap.CompiledAt,
		Strategies:   len(snap.Artifact.Strategies),
		CacheNames:   len(snap.Artifact.CacheNames),
		Deprecations: len(snap.Artifact.Deprecations),
		Bytes:        len(snap.Artifact.Text),
	}
}

type errorPayload struct {
	Error  string `json:"error"`
	Kind   string `json:"kind,omitempty"`
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason"`
}

// encodeError 区分配置错误与规则不一致，便于调用方定位问题。
func encodeError(err error) errorPayload {
	var fe *config.FieldError
	if errors.As(err, &fe) {
		return errorPayload{Error: "invalid_config", Kind: string(fe.Kind), Field: fe.Field, Reason: fe.Reason}
	}
	var ce *compiler.ConsistencyError
	if errors.As(err, &ce) {
		return errorPayload{Error: "inconsistent_rules", Kind: ce.Rule, Reason: ce.Reason}
	}
	return errorPayload{Error: "rebuild_failed", Reason: err.Error()}
}

func noArtifact(c fiber.Ctx) error {
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "no_artifact"})
}

func emptyIfNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
