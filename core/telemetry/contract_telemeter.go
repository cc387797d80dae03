package telemetry

import (
	"context"

	"github.com/hyperledger/fabric-chaincode-go/shim"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "devicereg"

type TraceContext struct {
	ctx       context.Context
	remote    bool
	remoteCtx context.Context
}

// Context returns the context carrying the current span.
func (tc TraceContext) Context() context.Context {
	if tc.ctx == nil {
		return context.Background()
	}
	return tc.ctx
}

// IsRemote reports whether the context was extracted from the caller's transient map.
func (tc TraceContext) IsRemote() bool {
	return tc.remote
}

type TracingHandler struct {
	Tracer      trace.Tracer
	Propagators propagation.TextMapPropagator
}

// NewTracingHandler binds a handler to the globally installed provider.
func NewTracingHandler() *TracingHandler {
	return &TracingHandler{
		Tracer:      otel.GetTracerProvider().Tracer(tracerName),
		Propagators: otel.GetTextMapPropagator(),
	}
}

// StartNewSpan starts new span
func (th *TracingHandler) StartNewSpan(traceCtx TraceContext, spanName string, opts ...trace.SpanStartOption) (TraceContext, trace.Span) {
	ctx, span := th.Tracer.Start(traceCtx.Context(), spanName, opts...)
	return TraceContext{
		ctx:       ctx,
		remote:    traceCtx.remote,
		remoteCtx: traceCtx.remoteCtx,
	}, span
}

// ContextFromStub extracts the caller's trace context from the transient map.
func (th *TracingHandler) ContextFromStub(stub shim.ChaincodeStubInterface) TraceContext {
	traceCtx := TraceContext{
		ctx: context.Background(),
	}

	transientMap, err := stub.GetTransient()
	if err != nil || len(transientMap) == 0 {
		return traceCtx
	}

	traceCtx.ctx = th.Propagators.Extract(context.Background(), UnpackTransientMap(transientMap))
	traceCtx.remote = trace.SpanContextFromContext(traceCtx.ctx).IsRemote()
	traceCtx.remoteCtx = traceCtx.ctx

	return traceCtx
}

// RemoteCarrier returns the caller's context ready to be forwarded to
// another chaincode. It is empty when the call was not traced remotely.
func (th *TracingHandler) RemoteCarrier(traceCtx TraceContext) propagation.MapCarrier {
	carrier := propagation.MapCarrier{}
	if !traceCtx.remote {
		return carrier
	}

	th.Propagators.Inject(traceCtx.remoteCtx, carrier)
	return carrier
}
