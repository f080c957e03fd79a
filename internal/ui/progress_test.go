package ui

import (
	"math"
	"strings"
	"testing"

	"binir/internal/verify"
)

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("Truncate = %q", got)
	}
	if got := Truncate("a/very/long/path.bnir", 10); got != "a/very/..." {
		t.Fatalf("Truncate = %q", got)
	}
	// wide runes count as two cells
	if got := Truncate("日本語ファイル", 6); got != "日..." {
		t.Fatalf("Truncate = %q", got)
	}
}

func TestProgressModelTracksFiles(t *testing.T) {
	events := make(chan verify.Event)
	model := NewProgressModel("verifying", []string{"a.bnir", "b.bnir"}, events).(*progressModel)

	model.applyEvent(verify.Event{File: "a.bnir", Stage: verify.StageDecode, Status: verify.StatusWorking})
	model.applyEvent(verify.Event{File: "b.bnir", Status: verify.StatusDone})
	model.applyEvent(verify.Event{File: "unknown", Status: verify.StatusDone})

	if model.items[0].status != "decoding" || model.items[1].status != "done" {
		t.Fatalf("statuses = %q, %q", model.items[0].status, model.items[1].status)
	}
	if got := model.completion(); math.Abs(got-0.7) > 1e-9 {
		t.Fatalf("completion = %v", got)
	}
	view := model.View()
	if !strings.Contains(view, "verifying") || !strings.Contains(view, "b.bnir") {
		t.Fatalf("view missing content:\n%s", view)
	}
}
