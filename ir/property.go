package ir

import (
	"iter"
	"maps"
	"slices"

	"github.com/google/uuid"
)

// Value is the closed set of types a property bag can hold.
type Value interface {
	isValue()
}

type (
	IntValue    int64
	UintValue   uint64
	FloatValue  float64
	BoolValue   bool
	StringValue string
	BytesValue  []byte
	AddrValue   Addr
	UUIDValue   uuid.UUID
)

func (IntValue) isValue()    {}
func (UintValue) isValue()   {}
func (FloatValue) isValue()  {}
func (BoolValue) isValue()   {}
func (StringValue) isValue() {}
func (BytesValue) isValue()  {}
func (AddrValue) isValue()   {}
func (UUIDValue) isValue()   {}

// Properties is a per-node string-keyed bag, independent of the node's
// structural fields.
type Properties struct {
	m map[string]Value
}

// Set stores v under key, replacing any previous value. A nil v removes key.
func (p *Properties) Set(key string, v Value) {
	if v == nil {
		p.Remove(key)
		return
	}
	if p.m == nil {
		p.m = make(map[string]Value)
	}
	p.m[key] = v
}

// Get returns the value under key or a *LookupError.
func (p *Properties) Get(key string) (Value, error) {
	v, ok := p.m[key]
	if !ok {
		return nil, &LookupError{What: "property", Key: key}
	}
	return v, nil
}

// Lookup is the non-failing form of Get.
func (p *Properties) Lookup(key string) (Value, bool) {
	v, ok := p.m[key]
	return v, ok
}

// Remove deletes key and reports whether it was present.
func (p *Properties) Remove(key string) bool {
	if _, ok := p.m[key]; !ok {
		return false
	}
	delete(p.m, key)
	return true
}

func (p *Properties) Clear() { clear(p.m) }

func (p *Properties) Len() int { return len(p.m) }

func (p *Properties) Empty() bool { return len(p.m) == 0 }

// Keys returns the keys in ascending order.
func (p *Properties) Keys() []string {
	return slices.Sorted(maps.Keys(p.m))
}

// All yields key/value pairs in ascending key order.
func (p *Properties) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		for _, k := range p.Keys() {
			if !yield(k, p.m[k]) {
				return
			}
		}
	}
}
