// Package store keeps encoded IRs in a SQLite database, one row per IR,
// keyed by the IR's UUID.
package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"binir/internal/container"
	"binir/internal/trace"
	"binir/ir/wire"
)

const driverName = "sqlite"

// ErrNotFound is returned by Get and Delete for unknown UUIDs.
var ErrNotFound = errors.New("store: ir not found")

var schema = []string{`
CREATE TABLE IF NOT EXISTS irs (
	uuid        TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	modules     INTEGER NOT NULL,
	digest      TEXT NOT NULL,
	compression INTEGER NOT NULL,
	payload     BLOB NOT NULL,
	created_at  INTEGER NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS irs_name ON irs(name)`,
}

// Entry describes one stored IR.
type Entry struct {
	UUID        uuid.UUID
	Name        string
	Modules     int
	Digest      string // blake3 of the encoded IR, hex
	Compression container.Compression
	Size        int // stored payload bytes
	Created     time.Time
}

// Store is a handle on one database file.
type Store struct {
	db          *sql.DB
	compression container.Compression
}

// Option configures Open.
type Option func(*Store)

// WithCompression sets how payloads are stored.
func WithCompression(c container.Compression) Option {
	return func(s *Store) { s.compression = c }
}

// Open opens or creates the database at path. ":memory:" gives a private
// in-memory store.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise see its own database
		db.SetMaxOpenConns(1)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close() //nolint:errcheck
		return nil, fmt.Errorf("store: %w", err)
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close() //nolint:errcheck
			return nil, fmt.Errorf("store: create schema: %w", err)
		}
	}
	s := &Store{db: db, compression: container.CompressionXZ}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Put stores msg under its UUID, replacing any previous row for it.
func (s *Store) Put(ctx context.Context, name string, msg *wire.IR) (Entry, error) {
	span := trace.Begin(trace.FromContext(ctx), trace.ScopePass, "store_put", trace.CurrentSpan(ctx).SpanID).WithExtra("name", name)
	defer span.End("")

	var buf bytes.Buffer
	h, err := container.Write(&buf, msg, container.Options{Compression: s.compression})
	if err != nil {
		return Entry{}, err
	}
	e := Entry{
		UUID:        uuid.UUID(msg.Node.UUID),
		Name:        name,
		Modules:     len(msg.Modules),
		Digest:      hex.EncodeToString(h.Checksum[:]),
		Compression: h.Compression,
		Size:        buf.Len(),
		Created:     time.Now().UTC().Truncate(time.Second),
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO irs (uuid, name, modules, digest, compression, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(uuid) DO UPDATE SET
			name = excluded.name,
			modules = excluded.modules,
			digest = excluded.digest,
			compression = excluded.compression,
			payload = excluded.payload,
			created_at = excluded.created_at`,
		e.UUID.String(), e.Name, e.Modules, e.Digest, int(e.Compression), buf.Bytes(), e.Created.Unix())
	if err != nil {
		return Entry{}, fmt.Errorf("store: put %s: %w", e.UUID, err)
	}
	return e, nil
}

// Get loads the IR stored under id.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*wire.IR, Entry, error) {
	span := trace.Begin(trace.FromContext(ctx), trace.ScopePass, "store_get", trace.CurrentSpan(ctx).SpanID).WithExtra("uuid", id.String())
	defer span.End("")

	row := s.db.QueryRowContext(ctx, `
		SELECT uuid, name, modules, digest, compression, length(payload), created_at, payload
		FROM irs WHERE uuid = ?`, id.String())
	var payload []byte
	e, err := scanEntry(row, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, Entry{}, err
	}
	msg, _, err := container.Read(bytes.NewReader(payload))
	if err != nil {
		return nil, e, fmt.Errorf("store: %s: %w", id, err)
	}
	return msg, e, nil
}

// List returns every stored IR ordered by name, then UUID.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT uuid, name, modules, digest, compression, length(payload), created_at
		FROM irs ORDER BY name, uuid`)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	return out, nil
}

// Delete removes the row for id.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM irs WHERE uuid = ?`, id.String())
	if err != nil {
		return fmt.Errorf("store: delete %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: delete %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner, payload *[]byte) (Entry, error) {
	var (
		e       Entry
		id      string
		comp    int
		created int64
	)
	dest := []any{&id, &e.Name, &e.Modules, &e.Digest, &comp, &e.Size, &created}
	if payload != nil {
		dest = append(dest, payload)
	}
	if err := row.Scan(dest...); err != nil {
		return Entry{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return Entry{}, fmt.Errorf("store: bad uuid %q: %w", id, err)
	}
	e.UUID = parsed
	e.Compression = container.Compression(comp)
	e.Created = time.Unix(created, 0).UTC()
	return e, nil
}
