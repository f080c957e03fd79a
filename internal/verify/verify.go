// Package verify checks many container files concurrently. Each file is
// decoded into its own ir.Context, so workers share no IR state.
package verify

import (
	"bytes"
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"binir/internal/container"
	"binir/internal/trace"
	"binir/ir"
	"binir/ir/wire"
)

// Options control Files.
type Options struct {
	Jobs      int  // <= 0 uses GOMAXPROCS
	RoundTrip bool // also re-encode and compare bytes
	Progress  ProgressSink
}

// Result is the outcome for one file. Err is nil when the file passed.
type Result struct {
	Path    string
	Header  container.Header
	Modules int
	Symbols int
	Nodes   int
	Err     error
	Elapsed time.Duration
}

// Files verifies every path. A failing file does not stop the others; the
// returned error is only set when ctx is cancelled.
func Files(ctx context.Context, files []string, opts Options) ([]Result, error) {
	results := make([]Result, len(files))
	if len(files) == 0 {
		return results, nil
	}
	for _, path := range files {
		emit(opts.Progress, Event{File: path, Status: StatusQueued})
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	tracer := trace.FromContext(ctx)
	parent := trace.CurrentSpan(ctx).SpanID

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(files)))
	for i, path := range files {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			span := trace.Begin(tracer, trace.ScopeModule, "verify_file", parent).WithExtra("file", path)
			// each index is written by exactly one goroutine
			results[i] = verifyFile(trace.WithSpan(gctx, span), path, opts)
			detail := "ok"
			if results[i].Err != nil {
				detail = results[i].Err.Error()
			}
			span.End(detail)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func verifyFile(ctx context.Context, path string, opts Options) Result {
	start := time.Now()
	res := Result{Path: path}
	fail := func(stage Stage, err error) Result {
		res.Err = fmt.Errorf("%s: %w", stage, err)
		res.Elapsed = time.Since(start)
		trace.Point(trace.FromContext(ctx), trace.ScopeModule, "verify_failed", res.Err.Error(), trace.CurrentSpan(ctx).SpanID)
		emit(opts.Progress, Event{File: path, Stage: stage, Status: StatusError, Err: err, Elapsed: res.Elapsed})
		return res
	}

	emit(opts.Progress, Event{File: path, Stage: StageRead, Status: StatusWorking})
	msg, h, err := container.ReadFile(path)
	if err != nil {
		return fail(StageRead, err)
	}
	res.Header = h

	emit(opts.Progress, Event{File: path, Stage: StageDecode, Status: StatusWorking})
	c := ir.NewContext()
	r, err := ir.DecodeIRContext(ctx, c, msg)
	if err != nil {
		return fail(StageDecode, err)
	}
	res.Modules = r.NumModules()
	res.Nodes = c.Len()

	emit(opts.Progress, Event{File: path, Stage: StageValidate, Status: StatusWorking})
	for m := range r.Modules() {
		res.Symbols += m.NumSymbols()
		if err := ir.Validate(m); err != nil {
			return fail(StageValidate, err)
		}
	}

	if opts.RoundTrip {
		emit(opts.Progress, Event{File: path, Stage: StageRoundTrip, Status: StatusWorking})
		if err := roundTrip(ctx, r); err != nil {
			return fail(StageRoundTrip, err)
		}
	}

	res.Elapsed = time.Since(start)
	emit(opts.Progress, Event{File: path, Status: StatusDone, Elapsed: res.Elapsed})
	return res
}

// roundTrip checks that encoding r, decoding the result into a fresh
// Context and encoding again yields the same bytes.
func roundTrip(ctx context.Context, r *ir.IR) error {
	first, err := ir.EncodeIRContext(ctx, r)
	if err != nil {
		return err
	}
	want, err := wire.Marshal(first)
	if err != nil {
		return err
	}
	back, err := ir.DecodeIRContext(ctx, ir.NewContext(), first)
	if err != nil {
		return err
	}
	again, err := ir.EncodeIRContext(ctx, back)
	if err != nil {
		return err
	}
	got, err := wire.Marshal(again)
	if err != nil {
		return err
	}
	if !bytes.Equal(want, got) {
		return fmt.Errorf("re-encoding changed %d bytes into %d", len(want), len(got))
	}
	return nil
}

func emit(sink ProgressSink, ev Event) {
	if sink != nil {
		sink.OnEvent(ev)
	}
}
