package compiler

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/any-hub/swforge/internal/config"
	"github.com/any-hub/swforge/internal/provider"
)

const tracerName = "github.com/any-hub/swforge/internal/compiler"

// Job 是一次独立的编译任务，各 Job 之间不共享可变状态。
type Job struct {
	ID           string
	Config       *config.Config
	PublicPrefix string
	Template     string
	Deprecations []config.Deprecation
	Registry     *provider.Registry
}

// Result 关联任务 ID 与编译产物。
type Result struct {
	JobID    string
	Artifact *Artifact
}

// Build 收集策略并编译单个任务，过程记录在 OpenTelemetry span 中。
func Build(ctx context.Context, job Job) (*Result, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	ctx, span := otel.Tracer(tracerName).Start(ctx, "swforge.compile",
		trace.WithAttributes(attribute.String("swforge.job_id", job.ID)),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	defer span.End()

	art, err := build(ctx, job)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("swforge.strategies", len(art.Strategies)),
		attribute.StringSlice("swforge.cache_names", art.CacheNames),
	)
	span.SetStatus(codes.Ok, "")
	return &Result{JobID: job.ID, Artifact: art}, nil
}

func build(ctx context.Context, job Job) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if job.Config == nil {
		return nil, fmt.Errorf("任务 %s 缺少配置", job.ID)
	}
	rc := provider.NewRuntimeContext(job.Config, job.PublicPrefix)

	_, span := otel.Tracer(tracerName).Start(ctx, "swforge.collect")
	strategies, err := provider.Collect(job.Config, rc, job.Registry)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.End()
		return nil, err
	}
	span.End()

	return Compile(job.Config, strategies, Options{
		Template:     job.Template,
		Runtime:      rc,
		Deprecations: job.Deprecations,
	})
}

// CompileAll 并行编译多个任务，结果顺序与 jobs 一致；limit<=0 表示不限并发。
// 任一任务失败时返回第一个错误，其余任务通过 ctx 取消。
func CompileAll(ctx context.Context, jobs []Job, limit int) ([]*Result, error) {
	results := make([]*Result, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i := range jobs {
		job := jobs[i]
		g.Go(func() error {
			res, err := Build(gctx, job)
			if err != nil {
				if job.ID != "" {
					return fmt.Errorf("编译任务 %s 失败: %w", job.ID, err)
				}
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
