package wire

import (
	"bytes"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// Message is any top-level record that can be written on its own.
type Message interface {
	*IR | *Module | *Symbol | *Section | *ByteInterval | *DataObject | *CFG
}

// Marshal encodes msg with msgpack.
func Marshal[M Message](msg M) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, msg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes data into msg.
func Unmarshal[M Message](data []byte, msg M) error {
	return Decode(bytes.NewReader(data), msg)
}

// Encode writes msg to w.
func Encode[M Message](w io.Writer, msg M) error {
	enc := msgpack.NewEncoder(w)
	enc.UseCompactInts(true)
	if err := enc.Encode(msg); err != nil {
		return fmt.Errorf("wire: encode %T: %w", msg, err)
	}
	return nil
}

// Decode reads one msg from r.
func Decode[M Message](r io.Reader, msg M) error {
	dec := msgpack.NewDecoder(r)
	if err := dec.Decode(msg); err != nil {
		return fmt.Errorf("wire: decode %T: %w", msg, err)
	}
	return nil
}
