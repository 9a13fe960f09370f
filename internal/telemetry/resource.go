// Package telemetry wires OpenTelemetry traces, metrics and logs to an OTLP
// gRPC collector, and builds the process logger.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/Tomlord1122/http-todo/internal/config"
)

func newResource(serviceName, environment string) (*resource.Resource, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.DeploymentEnvironment(environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// Providers holds the SDK providers started by Setup.
type Providers struct {
	// Logger writes to stdout and, when export is enabled, to the collector.
	Logger *slog.Logger

	conn     *grpc.ClientConn
	shutdown []func(context.Context) error
}

// Shutdown flushes and stops every provider in reverse start order, then
// closes the collector connection.
func (p *Providers) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(p.shutdown) - 1; i >= 0; i-- {
		if err := p.shutdown[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	p.shutdown = nil
	return errors.Join(errs...)
}

// Setup builds the process logger and, when cfg.Telemetry names a collector,
// installs global tracer, meter and logger providers exporting to it.
func Setup(ctx context.Context, cfg config.Config) (*Providers, error) {
	local, err := NewLogger(cfg.Log, nil)
	if err != nil {
		return nil, err
	}
	p := &Providers{Logger: local}
	if !cfg.Telemetry.Enabled() {
		return p, nil
	}

	res, err := newResource(cfg.Telemetry.ServiceName, cfg.App.Env)
	if err != nil {
		return nil, err
	}

	// One connection serves all three exporters. Exporters built on a
	// caller-owned connection never close it, so Shutdown does.
	p.conn, err = grpc.NewClient(cfg.Telemetry.Endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}
	p.shutdown = append(p.shutdown, func(context.Context) error { return p.conn.Close() })

	tp, err := InitTracerProvider(ctx, p.conn, res)
	if err != nil {
		_ = p.Shutdown(ctx)
		return nil, err
	}
	p.shutdown = append(p.shutdown, tp.Shutdown)

	mp, err := InitMeterProvider(ctx, p.conn, res)
	if err != nil {
		_ = p.Shutdown(ctx)
		return nil, err
	}
	p.shutdown = append(p.shutdown, mp.Shutdown)

	lp, bridged, err := InitLoggerProvider(ctx, p.conn, res, cfg.Telemetry.ServiceName)
	if err != nil {
		_ = p.Shutdown(ctx)
		return nil, err
	}
	p.shutdown = append(p.shutdown, lp.Shutdown)

	p.Logger, err = NewLogger(cfg.Log, bridged.Handler())
	if err != nil {
		_ = p.Shutdown(ctx)
		return nil, err
	}
	return p, nil
}
