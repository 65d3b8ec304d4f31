package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/any-hub/swforge/internal/compiler"
	"github.com/any-hub/swforge/internal/config"
	"github.com/any-hub/swforge/internal/logging"
)

const tracerName = "github.com/any-hub/swforge"

// session 是一次命令执行中已加载的配置与日志器。
type session struct {
	opts    cliOptions
	cfg     *config.Config
	notices []config.Deprecation
	logger  *logrus.Logger
}

// openSession 读取并归一化配置，初始化日志，并输出弃用提示。
func openSession(ctx context.Context, opts cliOptions, action string) (*session, error) {
	cfg, notices, err := loadConfig(ctx, opts)
	if err != nil {
		return nil, err
	}

	logger, err := logging.InitLogger(cfg.Global, stdErr)
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	logging.LogDeprecations(logger, action, notices)

	return &session{opts: opts, cfg: cfg, notices: notices, logger: logger}, nil
}

// reload 重新读取配置但沿用当前日志器，日志输出在进程内只初始化一次。
func (s *session) reload(ctx context.Context, action string) (*session, error) {
	cfg, notices, err := loadConfig(ctx, s.opts)
	if err != nil {
		return nil, err
	}
	logging.LogDeprecations(s.logger, action, notices)
	return &session{opts: s.opts, cfg: cfg, notices: notices, logger: s.logger}, nil
}

func loadConfig(ctx context.Context, opts cliOptions) (*config.Config, []config.Deprecation, error) {
	_, span := otel.Tracer(tracerName).Start(ctx, "swforge.normalize")
	defer span.End()
	span.SetAttributes(attribute.String("swforge.config_path", opts.configPath))

	cfg, notices, err := config.Load(opts.configPath)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		return nil, nil, fmt.Errorf("加载配置失败: %w", err)
	}
	span.SetAttributes(attribute.Int("swforge.deprecations", len(notices)))
	return cfg, notices, nil
}

// readTemplate 读取 Service Worker 模板；文件不存在时使用内置骨架。
func (s *session) readTemplate() (string, error) {
	path := resolveTemplatePath(s.opts, s.cfg)
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && s.opts.templatePath == "" {
			s.logger.WithFields(logrus.Fields{
				"action": "template",
				"path":   path,
			}).Warn("模板不存在，使用内置骨架")
			return "", nil
		}
		return "", fmt.Errorf("读取模板失败: %w", err)
	}
	return string(data), nil
}

// compile 编译当前配置，返回带任务 ID 的结果。
func (s *session) compile(ctx context.Context) (*compiler.Result, error) {
	tpl, err := s.readTemplate()
	if err != nil {
		return nil, err
	}
	return compiler.Build(ctx, compiler.Job{
		Config:       s.cfg,
		PublicPrefix: s.opts.publicPrefix,
		Template:     tpl,
		Deprecations: s.notices,
	})
}
