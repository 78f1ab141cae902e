package respbuilder

import "context"

type traceCtxKey struct{}

// Trace is the request identity echoed back in every response body and in Tracer-ID header.
type Trace struct {
	RemoteAddr string
	TraceID    string
}

// Inject stores t in ctx, done once per request by the access logger middleware.
func Inject(ctx context.Context, t Trace) context.Context {
	return context.WithValue(ctx, traceCtxKey{}, t)
}

// Extract returns zero Trace when ctx does not come from an HTTP request, i.e: the apidoc generator.
func Extract(ctx context.Context) Trace {
	if ctx == nil {
		return Trace{}
	}

	t, _ := ctx.Value(traceCtxKey{}).(Trace)
	return t
}
