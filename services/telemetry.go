package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/run-contest/contest"
	"github.com/Dosada05/run-contest/models"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry wraps every state-changing operation with a span, a log line and
// the operation metrics.
type Telemetry struct {
	logger     *slog.Logger
	tracer     trace.Tracer
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

func NewTelemetry(logger *slog.Logger, tracer trace.Tracer, reg prometheus.Registerer) *Telemetry {
	t := &Telemetry{
		logger: logger,
		tracer: tracer,
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contest_operations_total",
			Help: "Contest and registry operations by outcome code.",
		}, []string{"operation", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "contest_operation_duration_seconds",
			Help:    "Latency of contest and registry operations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	if reg != nil {
		reg.MustRegister(t.operations, t.duration)
	}
	return t
}

// Operations exposes the outcome counter for tests.
func (t *Telemetry) Operations() *prometheus.CounterVec { return t.operations }

// outcomeCode labels an operation result: "ok", the contest reason code, or
// "error" for infrastructure failures.
func outcomeCode(err error) string {
	if err == nil {
		return "ok"
	}
	if code := contest.CodeOf(err); code != "" {
		return string(code)
	}
	return "error"
}

func (t *Telemetry) observe(ctx context.Context, operation string, target models.Address, caller models.Address, fn func(ctx context.Context) error) (err error) {
	ctx, span := t.tracer.Start(ctx, operation, trace.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("target", target.String()),
		attribute.String("caller", caller.String()),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operation, r)
		}
		code := outcomeCode(err)
		t.duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
		t.operations.WithLabelValues(operation, code).Inc()
		span.SetAttributes(attribute.String("code", code))

		attrs := []any{
			slog.String("operation", operation),
			slog.String("target", target.String()),
			slog.String("caller", caller.String()),
			slog.String("code", code),
		}
		var domainErr *contest.Error
		switch {
		case err == nil:
			span.SetStatus(codes.Ok, "")
			t.logger.InfoContext(ctx, "operation committed", attrs...)
		case errors.As(err, &domainErr):
			// Rejections are expected outcomes, not faults.
			t.logger.InfoContext(ctx, "operation rejected", append(attrs, slog.String("reason", err.Error()))...)
		default:
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			t.logger.ErrorContext(ctx, "operation failed", append(attrs, slog.Any("error", err))...)
		}
	}()

	return fn(ctx)
}
