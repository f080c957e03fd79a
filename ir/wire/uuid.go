package wire

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// UUID is a 16-byte node identity. It is encoded as a msgpack bin of fixed
// length rather than as an array of integers.
type UUID [16]byte

var (
	_ msgpack.CustomEncoder = UUID{}
	_ msgpack.CustomDecoder = (*UUID)(nil)
)

func (u UUID) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.EncodeBytes(u[:])
}

func (u *UUID) DecodeMsgpack(dec *msgpack.Decoder) error {
	b, err := dec.DecodeBytes()
	if err != nil {
		return err
	}
	if len(b) != len(u) {
		return fmt.Errorf("wire: uuid must be %d bytes, got %d", len(u), len(b))
	}
	copy(u[:], b)
	return nil
}
