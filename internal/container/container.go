// Package container frames an encoded IR for storage on disk.
//
// Layout (all integers little endian):
//
//	magic       [4]byte  "BNIR"
//	version     uint16
//	compression uint8
//	reserved    uint8
//	length      uint64   payload bytes as stored
//	checksum    [32]byte blake3 of the uncompressed payload
//	payload     msgpack-encoded wire.IR, optionally xz-compressed
package container

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ulikunitz/xz"
	"github.com/zeebo/blake3"

	"binir/ir/wire"
)

// Magic opens every container.
var Magic = [4]byte{'B', 'N', 'I', 'R'}

// FormatVersion is the container layout written by Write.
const FormatVersion uint16 = 1

const headerSize = 4 + 2 + 1 + 1 + 8 + 32

// MaxPayload bounds the payload Read accepts.
const MaxPayload = 1 << 32

// maxDecompressed bounds the payload after xz decompression.
var maxDecompressed int64 = MaxPayload

// Compression selects how the payload is stored.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionXZ
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionXZ:
		return "xz"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// ParseCompression converts a flag or config value.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return CompressionNone, nil
	case "xz":
		return CompressionXZ, nil
	default:
		return CompressionNone, fmt.Errorf("unknown compression %q (expected: none|xz)", s)
	}
}

var (
	ErrBadMagic    = errors.New("container: not a binir file")
	ErrChecksum    = errors.New("container: checksum mismatch")
	ErrUnsupported = errors.New("container: unsupported")
)

// Header describes a container without its payload.
type Header struct {
	Version     uint16
	Compression Compression
	Length      uint64
	Checksum    [32]byte
}

// Options control Write.
type Options struct {
	Compression Compression
}

// Write encodes msg and frames it onto w.
func Write(w io.Writer, msg *wire.IR, opts Options) (Header, error) {
	raw, err := wire.Marshal(msg)
	if err != nil {
		return Header{}, err
	}
	payload, err := compress(raw, opts.Compression)
	if err != nil {
		return Header{}, err
	}
	h := Header{
		Version:     FormatVersion,
		Compression: opts.Compression,
		Length:      uint64(len(payload)),
		Checksum:    blake3.Sum256(raw),
	}
	if _, err := w.Write(h.marshal()); err != nil {
		return Header{}, fmt.Errorf("container: write header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return Header{}, fmt.Errorf("container: write payload: %w", err)
	}
	return h, nil
}

// Read parses one container from r and decodes its payload.
func Read(r io.Reader) (*wire.IR, Header, error) {
	h, raw, err := ReadRaw(r)
	if err != nil {
		return nil, h, err
	}
	var msg wire.IR
	if err := wire.Unmarshal(raw, &msg); err != nil {
		return nil, h, err
	}
	return &msg, h, nil
}

// ReadRaw returns the header and the verified, uncompressed payload.
func ReadRaw(r io.Reader) (Header, []byte, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return h, nil, err
	}
	if h.Length > MaxPayload {
		return h, nil, fmt.Errorf("%w: payload of %d bytes", ErrUnsupported, h.Length)
	}
	// the buffer grows with the bytes actually present, not with the header
	stored, err := io.ReadAll(io.LimitReader(r, int64(h.Length)))
	if err != nil {
		return h, nil, fmt.Errorf("container: read payload: %w", err)
	}
	if uint64(len(stored)) != h.Length {
		return h, nil, fmt.Errorf("container: read payload: %w: %d of %d bytes", io.ErrUnexpectedEOF, len(stored), h.Length)
	}
	raw, err := decompress(stored, h.Compression)
	if err != nil {
		return h, nil, err
	}
	if blake3.Sum256(raw) != h.Checksum {
		return h, nil, ErrChecksum
	}
	return h, raw, nil
}

// ReadHeader parses and checks the fixed-size header.
func ReadHeader(r io.Reader) (Header, error) {
	var buf [headerSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return Header{}, ErrBadMagic
		}
		return Header{}, fmt.Errorf("container: read header: %w", err)
	}
	if !bytes.Equal(buf[:4], Magic[:]) {
		return Header{}, ErrBadMagic
	}
	h := Header{
		Version:     binary.LittleEndian.Uint16(buf[4:6]),
		Compression: Compression(buf[6]),
		Length:      binary.LittleEndian.Uint64(buf[8:16]),
	}
	copy(h.Checksum[:], buf[16:])
	if h.Version != FormatVersion {
		return h, fmt.Errorf("%w: format version %d", ErrUnsupported, h.Version)
	}
	if h.Compression > CompressionXZ {
		return h, fmt.Errorf("%w: %s", ErrUnsupported, h.Compression)
	}
	return h, nil
}

func (h Header) marshal() []byte {
	buf := make([]byte, headerSize)
	copy(buf, Magic[:])
	binary.LittleEndian.PutUint16(buf[4:6], h.Version)
	buf[6] = byte(h.Compression)
	binary.LittleEndian.PutUint64(buf[8:16], h.Length)
	copy(buf[16:], h.Checksum[:])
	return buf
}

func compress(raw []byte, c Compression) ([]byte, error) {
	switch c {
	case CompressionNone:
		return raw, nil
	case CompressionXZ:
		var buf bytes.Buffer
		zw, err := xz.NewWriter(&buf)
		if err != nil {
			return nil, fmt.Errorf("container: xz: %w", err)
		}
		if _, err := zw.Write(raw); err != nil {
			return nil, fmt.Errorf("container: xz: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("container: xz: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, c)
	}
}

func decompress(stored []byte, c Compression) ([]byte, error) {
	switch c {
	case CompressionNone:
		return stored, nil
	case CompressionXZ:
		zr, err := xz.NewReader(bytes.NewReader(stored))
		if err != nil {
			return nil, fmt.Errorf("container: xz: %w", err)
		}
		raw, err := io.ReadAll(io.LimitReader(zr, maxDecompressed+1))
		if err != nil {
			return nil, fmt.Errorf("container: xz: %w", err)
		}
		if int64(len(raw)) > maxDecompressed {
			return nil, fmt.Errorf("%w: payload expands past %d bytes", ErrUnsupported, maxDecompressed)
		}
		return raw, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, c)
	}
}
