// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package rtelemetry wraps OpenTelemetry tracing behind the small
// interface the render core's frame orchestrator accepts explicitly.
// Nothing here is resolved through a package-level global: callers
// construct a Tracer and hand it to whatever needs it.
package rtelemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// NewSDKProvider builds a real TracerProvider via the sdk, for
// embedders that want genuine span/trace IDs even before wiring an
// exporter. opts carries the embedder's exporter, sampler and resource
// choices; called with none, the provider still produces real spans,
// just ones nothing reads.
func NewSDKProvider(opts ...sdktrace.TracerProviderOption) *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(opts...)
}

// Tracer opens spans for one frame's worth of recording. Additive
// instrumentation only: nothing in the render core depends on a span
// existing, so a Tracer backed by the default no-op provider is
// always safe to use.
type Tracer struct {
	t trace.Tracer
}

// New wraps the named tracer from tp. A nil tp resolves through
// otel.GetTracerProvider(), which is a no-op provider until the
// embedder configures a real one via the sdk.
func New(name string, tp trace.TracerProvider) Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return Tracer{t: tp.Tracer(name)}
}

// StartFrame opens a span covering one frame's record/submit cycle.
func (t Tracer) StartFrame(ctx context.Context, frameIndex int) (context.Context, trace.Span) {
	return t.t.Start(ctx, "frame", trace.WithAttributes(
		attribute.Int("frame.index", frameIndex),
	))
}

// StartPass opens a span covering one pass's recording within a
// frame. binCount is the number of draw bins the pass is about to
// record, attached so slow frames can be correlated with bin load.
func (t Tracer) StartPass(ctx context.Context, passName string, binCount int) (context.Context, trace.Span) {
	return t.t.Start(ctx, "pass."+passName, trace.WithAttributes(
		attribute.String("pass.name", passName),
		attribute.Int("pass.bin_count", binCount),
	))
}
