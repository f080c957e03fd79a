package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"binir/internal/ui"
	"binir/internal/verify"
)

type verifyOutcome struct {
	results []verify.Result
	err     error
}

func runVerifyWithUI(ctx context.Context, title string, files []string, opts verify.Options) ([]verify.Result, error) {
	events := make(chan verify.Event, 256)
	outcomeCh := make(chan verifyOutcome, 1)

	go func() {
		opts.Progress = verify.ChannelSink{Ch: events}
		res, err := verify.Files(ctx, files, opts)
		outcomeCh <- verifyOutcome{results: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	// the program may quit before the batch ends; keep workers unblocked
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.results, uiErr
	}
	return outcome.results, outcome.err
}
