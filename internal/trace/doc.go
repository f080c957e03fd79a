// Package trace records structured events for binir operations.
//
// It is the project's logging layer: library code never prints, it emits
// events to the Tracer carried by a context.Context, and the CLI decides
// where they go.
//
// # Usage
//
//	binir verify --trace=- --trace-level=module app.bnir
//
// # Tracers
//
//   - Nop: zero-cost tracer used when tracing is off
//   - StreamTracer: writes each event immediately (file or stderr)
//   - RingTracer: keeps the last N events in memory for post-mortem dumps
//   - MultiTracer: fans out to several tracers
//
// # Levels and scopes
//
// Events carry a Scope (command, pass, module, node) and are filtered by the
// tracer Level: LevelPhase keeps commands and passes such as encode/decode,
// LevelModule adds per-module events, LevelDebug keeps everything.
//
// # Context propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopePass, "decode_ir", 0)
//	defer span.End("")
package trace
