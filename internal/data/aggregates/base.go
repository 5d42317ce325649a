package aggregates

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/slotswap-backend/internal/data/txn"
	domainagg "github.com/yungbote/slotswap-backend/internal/domain/aggregates"
	"github.com/yungbote/slotswap-backend/internal/observability"
	"github.com/yungbote/slotswap-backend/internal/platform/logger"
)

type BaseDeps struct {
	Log    *logger.Logger
	Runner TxRunner
	Hooks  Hooks
	Tracer trace.Tracer
}

func (d BaseDeps) withDefaults() BaseDeps {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.Hooks == nil {
		d.Hooks = HooksFunc(nil)
	}
	if d.Tracer == nil {
		d.Tracer = observability.Tracer()
	}
	return d
}

// executeWrite runs fn inside one coordinator scope and reports the outcome
// to hooks and the active span. Errors come back mapped to aggregate codes.
func executeWrite(ctx context.Context, deps BaseDeps, op string, fn func(s txn.Scope) error) error {
	start := time.Now()
	deps = deps.withDefaults()
	op = strings.TrimSpace(op)
	if op == "" {
		op = "aggregate.write"
	}
	ctx, span := deps.Tracer.Start(ctx, op)
	defer span.End()

	outcome := WriteOutcome{Op: op, Status: "success"}
	var err error
	if deps.Runner == nil {
		err = domainagg.NewError(domainagg.CodeInternal, op, "aggregate has no transaction runner", nil)
	} else {
		err = deps.Runner.InTx(ctx, func(s txn.Scope) error {
			outcome.Atomic = s.Atomic()
			return fn(s)
		})
	}
	mapped := MapError(op, err)

	if mapped != nil {
		outcome.Status = aggregateErrorStatus(mapped)
		outcome.Conflict = errors.Is(mapped, ErrConflict)
		outcome.Retryable = domainagg.IsCode(mapped, domainagg.CodeRetryable)
		span.RecordError(mapped)
		span.SetStatus(codes.Error, outcome.Status)
	}
	span.SetAttributes(
		attribute.String("aggregate.status", outcome.Status),
		attribute.Bool("aggregate.atomic", outcome.Atomic),
	)
	outcome.Duration = time.Since(start)
	deps.Hooks.WriteFinished(outcome)
	return mapped
}

func aggregateErrorStatus(err error) string {
	if err == nil {
		return "success"
	}
	code := strings.TrimSpace(string(domainagg.CodeOf(err)))
	if code == "" {
		code = strings.TrimSpace(string(domainagg.CodeOf(MapError("aggregate.status", err))))
	}
	if code == "" {
		return "failure"
	}
	return code
}
