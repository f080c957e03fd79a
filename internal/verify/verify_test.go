package verify

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"binir/internal/container"
	"binir/internal/testkit"
	"binir/ir"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) OnEvent(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) final(file string) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	var last Status
	for _, ev := range s.events {
		if ev.File == file {
			last = ev.Status
		}
	}
	return last
}

func writeSample(t *testing.T, dir, name string) string {
	t.Helper()
	msg, err := ir.EncodeIR(testkit.MustSample(ir.NewContext()).IR)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if _, err := container.WriteFile(path, msg, container.Options{Compression: container.CompressionXZ}); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFilesReportsEachFile(t *testing.T) {
	dir := t.TempDir()
	good := []string{writeSample(t, dir, "a.bnir"), writeSample(t, dir, "b.bnir"), writeSample(t, dir, "c.bnir")}
	bad := filepath.Join(dir, "bad.bnir")
	if err := os.WriteFile(bad, []byte("definitely not a container"), 0o600); err != nil {
		t.Fatal(err)
	}
	files := append(good, bad)

	sink := &recordingSink{}
	results, err := Files(context.Background(), files, Options{Jobs: 2, RoundTrip: true, Progress: sink})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	for i, res := range results {
		if res.Path != files[i] {
			t.Fatalf("result %d is for %s", i, res.Path)
		}
	}
	for _, res := range results[:3] {
		if res.Err != nil {
			t.Fatalf("%s: %v", res.Path, res.Err)
		}
		if res.Modules != 1 || res.Symbols != 4 || res.Nodes == 0 {
			t.Fatalf("%s: %+v", res.Path, res)
		}
		if sink.final(res.Path) != StatusDone {
			t.Fatalf("%s: last status %s", res.Path, sink.final(res.Path))
		}
	}
	if results[3].Err == nil {
		t.Fatalf("garbage file passed")
	}
	if sink.final(bad) != StatusError {
		t.Fatalf("garbage file last status %s", sink.final(bad))
	}
}

func TestFilesStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	path := writeSample(t, t.TempDir(), "a.bnir")
	if _, err := Files(ctx, []string{path}, Options{Jobs: 1}); err == nil {
		t.Fatalf("cancelled context not reported")
	}
}

func TestFilesEmpty(t *testing.T) {
	results, err := Files(context.Background(), nil, Options{})
	if err != nil || len(results) != 0 {
		t.Fatalf("Files(nil) = %v, %v", results, err)
	}
}
