package wire

import (
	"bytes"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

func TestUUIDEncodesAsBytes(t *testing.T) {
	id := UUID{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	data, err := msgpack.Marshal(id)
	if err != nil {
		t.Fatal(err)
	}
	// bin8 header + length + 16 bytes
	if len(data) != 18 || data[0] != 0xc4 || data[1] != 16 {
		t.Fatalf("unexpected encoding % x", data)
	}
	var back UUID
	if err := msgpack.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back != id {
		t.Fatalf("uuid changed: %x", back)
	}
}

func TestUUIDRejectsWrongLength(t *testing.T) {
	data, err := msgpack.Marshal([]byte{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	var u UUID
	if err := msgpack.Unmarshal(data, &u); err == nil {
		t.Fatalf("short uuid accepted")
	}
}

func TestMarshalIsDeterministic(t *testing.T) {
	msg := &Symbol{
		Node:        Node{UUID: UUID{7}, Properties: []Property{{Key: "k", Kind: PropString, Str: "v"}}},
		Name:        "main",
		HasReferent: true,
		Referent:    UUID{9},
		Storage:     2,
	}
	a, err := Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("encoding is not stable")
	}
	var back Symbol
	if err := Unmarshal(a, &back); err != nil {
		t.Fatal(err)
	}
	if back.Name != "main" || back.Referent != (UUID{9}) || back.Node.Properties[0].Str != "v" {
		t.Fatalf("decoded %+v", back)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	var m Module
	if err := Decode(bytes.NewReader([]byte{0xc1}), &m); err == nil {
		t.Fatalf("garbage accepted")
	}
}
