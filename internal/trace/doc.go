// Package trace is fwkit's structured event log.
//
// Commands, pipeline stages and per-item work (a reflowed file, an external
// tool invocation) emit span and point events. Events go to a stream
// (stderr or a file), to an in-memory ring kept for post-mortem dumps, or both.
//
// # Usage
//
//	fwkit flash --trace=- --trace-level=detail firmware.elf
//
// # Levels
//
//   - LevelOff: nothing
//   - LevelError: ring only, dumped when a command fails
//   - LevelStage: command and stage boundaries
//   - LevelDetail: per-file and per-tool events
//   - LevelDebug: everything, including captured tool output
//
// # Context propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopeStage, "convert", parentID)
//	defer span.End("")
package trace
