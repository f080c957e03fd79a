package testkit

import (
	"bytes"
	"fmt"

	"binir/ir"
	"binir/ir/wire"
)

// CheckRoundTrip runs the full persistence cycle on r:
// 1) encode and marshal r
// 2) unmarshal and decode into a fresh Context
// 3) re-encode the result and compare the bytes with step 1
// It returns the decoded IR so callers can inspect it further.
func CheckRoundTrip(r *ir.IR) (*ir.IR, error) {
	if r == nil {
		return nil, fmt.Errorf("nil ir")
	}
	msg, err := ir.EncodeIR(r)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	first, err := wire.Marshal(msg)
	if err != nil {
		return nil, err
	}

	var back wire.IR
	if err := wire.Unmarshal(first, &back); err != nil {
		return nil, err
	}
	c := ir.NewContext()
	decoded, err := ir.DecodeIR(c, &back)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	again, err := ir.EncodeIR(decoded)
	if err != nil {
		return nil, fmt.Errorf("re-encode: %w", err)
	}
	second, err := wire.Marshal(again)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(first, second) {
		return nil, fmt.Errorf("round trip changed the encoding: %d bytes before, %d after", len(first), len(second))
	}

	// every module must still satisfy its structural invariants
	for m := range decoded.Modules() {
		if err := ir.Validate(m); err != nil {
			return nil, err
		}
	}
	return decoded, nil
}
