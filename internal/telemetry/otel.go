// Package telemetry wires OpenTelemetry metrics, traces and logs. Every
// exporter is optional; with no endpoints configured the global providers
// stay no-op.
package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type Options struct {
	ServiceName    string
	ServiceVersion string
	// MetricsEndpoint is an OTLP/gRPC host:port.
	MetricsEndpoint string
	// HTTPEndpoint is an OTLP/HTTP host:port used for traces and logs.
	HTTPEndpoint   string
	Insecure       bool
	ExportInterval time.Duration
}

func (o Options) Enabled() bool {
	return strings.TrimSpace(o.MetricsEndpoint) != "" || strings.TrimSpace(o.HTTPEndpoint) != ""
}

// LogsEnabled reports whether Setup installs a log provider.
func (o Options) LogsEnabled() bool {
	return strings.TrimSpace(o.HTTPEndpoint) != ""
}

// Setup installs the configured providers globally. The returned shutdown
// flushes and stops them; it is safe to call when nothing was installed.
func Setup(ctx context.Context, opts Options) (shutdown func(context.Context) error, err error) {
	var shutdownFuncs []func(context.Context) error
	shutdown = func(ctx context.Context) error {
		var err error
		for _, fn := range shutdownFuncs {
			err = errors.Join(err, fn(ctx))
		}
		shutdownFuncs = nil
		return err
	}
	if !opts.Enabled() {
		return shutdown, nil
	}
	handleErr := func(inErr error) {
		err = errors.Join(inErr, shutdown(ctx))
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	name := strings.TrimSpace(opts.ServiceName)
	if name == "" {
		name = "inboxdraft"
	}
	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithHost(),
		resource.WithAttributes(
			attribute.String("service.name", name),
			attribute.String("service.version", strings.TrimSpace(opts.ServiceVersion)),
		))
	if err != nil {
		handleErr(err)
		return shutdown, err
	}

	if endpoint := strings.TrimSpace(opts.MetricsEndpoint); endpoint != "" {
		mp, err := newMeterProvider(ctx, res, endpoint, opts)
		if err != nil {
			handleErr(err)
			return shutdown, err
		}
		shutdownFuncs = append(shutdownFuncs, mp.Shutdown)
		otel.SetMeterProvider(mp)
	}

	if endpoint := strings.TrimSpace(opts.HTTPEndpoint); endpoint != "" {
		tp, err := newTracerProvider(ctx, res, endpoint, opts.Insecure)
		if err != nil {
			handleErr(err)
			return shutdown, err
		}
		shutdownFuncs = append(shutdownFuncs, tp.Shutdown)
		otel.SetTracerProvider(tp)

		lp, err := newLoggerProvider(ctx, res, endpoint, opts.Insecure)
		if err != nil {
			handleErr(err)
			return shutdown, err
		}
		shutdownFuncs = append(shutdownFuncs, lp.Shutdown)
		global.SetLoggerProvider(lp)
	}
	return shutdown, nil
}

// LogHandler bridges slog records to the global OTel log provider.
func LogHandler() slog.Handler {
	return otelslog.NewHandler(instrumentationName)
}

func newMeterProvider(ctx context.Context, res *resource.Resource, endpoint string, opts Options) (*sdkmetric.MeterProvider, error) {
	exporterOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(endpoint)}
	if opts.Insecure {
		exporterOpts = append(exporterOpts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, exporterOpts...)
	if err != nil {
		return nil, err
	}
	interval := opts.ExportInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	), nil
}

func newTracerProvider(ctx context.Context, res *resource.Resource, endpoint string, insecure bool) (*sdktrace.TracerProvider, error) {
	exporterOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
	if insecure {
		exporterOpts = append(exporterOpts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, exporterOpts...)
	if err != nil {
		return nil, err
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
	), nil
}

func newLoggerProvider(ctx context.Context, res *resource.Resource, endpoint string, insecure bool) (*sdklog.LoggerProvider, error) {
	exporterOpts := []otlploghttp.Option{otlploghttp.WithEndpoint(endpoint)}
	if insecure {
		exporterOpts = append(exporterOpts, otlploghttp.WithInsecure())
	}
	exporter, err := otlploghttp.New(ctx, exporterOpts...)
	if err != nil {
		return nil, err
	}
	return sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	), nil
}
