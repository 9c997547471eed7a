package trace

import "context"

type (
	tracerKey struct{}
	parentKey struct{}
)

// WithTracer returns ctx carrying t. A nil t attaches Nop.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	return context.WithValue(orBackground(ctx), tracerKey{}, t)
}

// FromContext returns the tracer attached to ctx, or Nop.
func FromContext(ctx context.Context) Tracer {
	if ctx != nil {
		if t, ok := ctx.Value(tracerKey{}).(Tracer); ok {
			return t
		}
	}
	return Nop
}

// WithParent returns ctx carrying spanID as the parent of spans begun below it.
func WithParent(ctx context.Context, spanID uint64) context.Context {
	return context.WithValue(orBackground(ctx), parentKey{}, spanID)
}

// ParentSpan returns the span id stored by WithParent, or 0.
func ParentSpan(ctx context.Context) uint64 {
	if ctx == nil {
		return 0
	}
	id, _ := ctx.Value(parentKey{}).(uint64)
	return id
}

func orBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
