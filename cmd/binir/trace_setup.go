package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"binir/internal/config"
	"binir/internal/trace"
)

// setupTracing builds the tracer from flags, falling back to binir.toml for
// anything the flags leave unset, and attaches it to the command context.
func setupTracing(cmd *cobra.Command, cfg config.Config) (func(), error) {
	root := cmd.Root()

	traceOutput, err := root.PersistentFlags().GetString("trace")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace flag: %w", err)
	}
	levelStr, err := root.PersistentFlags().GetString("trace-level")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-level flag: %w", err)
	}
	modeStr, err := root.PersistentFlags().GetString("trace-mode")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-mode flag: %w", err)
	}
	formatStr, err := root.PersistentFlags().GetString("trace-format")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-format flag: %w", err)
	}
	ringSize, err := root.PersistentFlags().GetInt("trace-ring-size")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}

	if levelStr == "" {
		levelStr = cfg.Trace.Level
		// --trace alone means "trace at the default level"
		if traceOutput != "" && (levelStr == "" || levelStr == "off") {
			levelStr = "phase"
		}
	}
	if traceOutput == "" {
		traceOutput = cfg.Trace.Output
	}
	if formatStr == "" {
		formatStr = cfg.Trace.Format
	}

	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return nil, err
	}
	if level == trace.LevelOff {
		setContext(cmd, trace.WithTracer(commandContext(cmd), trace.Nop))
		return func() {}, nil
	}
	mode, err := trace.ParseMode(modeStr)
	if err != nil {
		return nil, err
	}
	format, err := trace.ParseFormat(formatStr)
	if err != nil {
		return nil, err
	}

	tracer, err := trace.New(trace.Config{
		Level:      level,
		Mode:       mode,
		Format:     format,
		OutputPath: traceOutput,
		RingSize:   ringSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	ctx := trace.WithTracer(commandContext(cmd), tracer)
	span := trace.Begin(tracer, trace.ScopeCommand, cmd.CommandPath(), 0)
	setContext(cmd, trace.WithSpan(ctx, span))

	return func() {
		span.End("")
		// ring mode keeps events in memory until the command ends
		if ring, ok := tracer.(*trace.RingTracer); ok {
			if err := ring.Dump(cmd.ErrOrStderr(), format); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "trace: dump error: %v\n", err)
			}
		}
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}, nil
}
