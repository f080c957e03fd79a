package ir

import (
	"fmt"
	"maps"
	"slices"

	"github.com/vmihailenco/msgpack/v5"
)

// AuxData is an opaque named table attached to a module or an IR. TypeName
// describes the encoding of Data so that readers can check it before
// decoding.
type AuxData struct {
	TypeName string
	Data     []byte
}

// AuxDataContainer stores aux data tables by name.
type AuxDataContainer struct {
	aux map[string]AuxData
}

func (c *AuxDataContainer) auxContainer() *AuxDataContainer { return c }

// AddAuxData stores d under name, replacing any previous table.
func (c *AuxDataContainer) AddAuxData(name string, d AuxData) {
	if c.aux == nil {
		c.aux = make(map[string]AuxData)
	}
	c.aux[name] = d
}

func (c *AuxDataContainer) AuxData(name string) (AuxData, bool) {
	d, ok := c.aux[name]
	return d, ok
}

func (c *AuxDataContainer) RemoveAuxData(name string) bool {
	if _, ok := c.aux[name]; !ok {
		return false
	}
	delete(c.aux, name)
	return true
}

// AuxDataNames returns table names in ascending order.
func (c *AuxDataContainer) AuxDataNames() []string {
	return slices.Sorted(maps.Keys(c.aux))
}

func (c *AuxDataContainer) NumAuxData() int { return len(c.aux) }

// AuxHolder is implemented by every node that carries aux data.
type AuxHolder interface {
	auxContainer() *AuxDataContainer
}

// AuxSchema binds a table name and type name to a Go type.
type AuxSchema[T any] struct {
	Name     string
	TypeName string
}

// Well-known aux data tables.
var (
	CommentsAux      = AuxSchema[map[Addr]string]{Name: "comments", TypeName: "mapping<Addr,string>"}
	FunctionNamesAux = AuxSchema[map[string]Addr]{Name: "functionNames", TypeName: "mapping<string,Addr>"}
	AlignmentAux     = AuxSchema[map[Addr]uint64]{Name: "alignment", TypeName: "mapping<Addr,uint64>"}
)

// PutAux encodes v with msgpack and stores it under the schema's name.
func PutAux[T any](h AuxHolder, s AuxSchema[T], v T) error {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("aux data %q: %w", s.Name, err)
	}
	h.auxContainer().AddAuxData(s.Name, AuxData{TypeName: s.TypeName, Data: data})
	return nil
}

// GetAux decodes the table stored under the schema's name. A missing table
// is a *LookupError; a table with a different type name is rejected before
// decoding.
func GetAux[T any](h AuxHolder, s AuxSchema[T]) (T, error) {
	var out T
	d, ok := h.auxContainer().AuxData(s.Name)
	if !ok {
		return out, &LookupError{What: "aux data", Key: s.Name}
	}
	if d.TypeName != s.TypeName {
		return out, fmt.Errorf("aux data %q: stored type %q does not match schema type %q", s.Name, d.TypeName, s.TypeName)
	}
	if err := msgpack.Unmarshal(d.Data, &out); err != nil {
		return out, fmt.Errorf("aux data %q: %w", s.Name, err)
	}
	return out, nil
}
