package ir

import (
	"iter"
	"slices"
)

// Version is the IR format version written by this package.
const Version uint32 = 1

// IR is the root node: an ordered set of modules plus global aux data.
type IR struct {
	nodeBase
	AuxDataContainer
	version uint32
	modules []*Module
}

func NewIR(c *Context) *IR {
	return register(c, &IR{version: Version})
}

// Version is the format version the IR was created or decoded with.
func (r *IR) Version() uint32 { return r.version }

// AddModules appends modules in order.
func (r *IR) AddModules(ms ...*Module) {
	r.modules = append(r.modules, ms...)
}

// AddModule creates a module and appends it.
func (r *IR) AddModule(c *Context, name string) *Module {
	m := NewModule(c, name)
	r.modules = append(r.modules, m)
	return m
}

func (r *IR) Modules() iter.Seq[*Module] { return slices.Values(r.modules) }

func (r *IR) NumModules() int { return len(r.modules) }

// FindModule returns the first module named name.
func (r *IR) FindModule(name string) (*Module, bool) {
	for _, m := range r.modules {
		if m.name == name {
			return m, true
		}
	}
	return nil, false
}
