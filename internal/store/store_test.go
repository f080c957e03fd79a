package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"binir/internal/container"
	"binir/internal/testkit"
	"binir/ir"
	"binir/ir/wire"
)

func openTemp(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "irs.db"), opts...)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sample(t *testing.T) *wire.IR {
	t.Helper()
	msg, err := ir.EncodeIR(testkit.MustSample(ir.NewContext()).IR)
	if err != nil {
		t.Fatal(err)
	}
	return msg
}

func TestPutGet(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	msg := sample(t)
	e, err := s.Put(ctx, "sample", msg)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if e.UUID != uuid.UUID(msg.Node.UUID) || e.Modules != 1 || len(e.Digest) != 64 {
		t.Fatalf("entry %+v", e)
	}

	back, got, err := s.Get(ctx, e.UUID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Digest != e.Digest || got.Name != "sample" || got.Compression != container.CompressionXZ {
		t.Fatalf("entry after Get %+v", got)
	}
	r, err := ir.DecodeIR(ir.NewContext(), back)
	if err != nil {
		t.Fatalf("DecodeIR: %v", err)
	}
	if _, ok := r.FindModule("sample"); !ok {
		t.Fatalf("module lost in store")
	}
}

func TestPutReplacesByUUID(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t, WithCompression(container.CompressionNone))
	msg := sample(t)
	if _, err := s.Put(ctx, "first", msg); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Put(ctx, "second", msg); err != nil {
		t.Fatal(err)
	}
	other := sample(t)
	if _, err := s.Put(ctx, "another", other); err != nil {
		t.Fatal(err)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].Name != "another" || list[1].Name != "second" {
		t.Fatalf("list = %+v", list)
	}
	if list[1].Compression != container.CompressionNone {
		t.Fatalf("compression option ignored")
	}
}

func TestGetAndDeleteMissing(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	id := uuid.New()
	if _, _, err := s.Get(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get: %v", err)
	}
	if err := s.Delete(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Delete: %v", err)
	}

	e, err := s.Put(ctx, "x", sample(t))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, e.UUID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if list, _ := s.List(ctx); len(list) != 0 {
		t.Fatalf("row survived delete: %+v", list)
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if _, err := s.Put(ctx, "mem", sample(t)); err != nil {
		t.Fatal(err)
	}
	if list, err := s.List(ctx); err != nil || len(list) != 1 {
		t.Fatalf("List = %v, %v", list, err)
	}
}
