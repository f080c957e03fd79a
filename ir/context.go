package ir

import (
	"fmt"
	"iter"

	"fortio.org/safecast"
	"github.com/google/uuid"
)

// NodeID is the arena slot of a node inside its Context.
type NodeID uint32

const (
	// NoNodeID marks a node that is not registered in any Context.
	NoNodeID NodeID = 0
)

// IsValid reports whether the ID refers to an allocated slot.
func (id NodeID) IsValid() bool { return id != NoNodeID }

// Context is the arena that owns every node created in it.
type Context struct {
	nodes  []Node // index 0 reserved for NoNodeID
	byUUID map[uuid.UUID]NodeID

	// epoch advances whenever a mutation can move some node's effective
	// address. Address-keyed indexes compare it to decide when to rebuild.
	epoch uint64
}

// NewContext creates an empty arena.
func NewContext() *Context {
	return &Context{
		nodes:  make([]Node, 1, 64),
		byUUID: make(map[uuid.UUID]NodeID, 64),
	}
}

// register places n in the arena under a fresh random UUID.
func register[T Node](c *Context, n T) T {
	adopt(c, n, uuid.New())
	return n
}

// adopt places n in the arena under the given UUID.
func adopt(c *Context, n Node, id uuid.UUID) {
	if c == nil {
		panic("ir: nil context")
	}
	value, err := safecast.Conv[uint32](len(c.nodes))
	if err != nil {
		panic(fmt.Errorf("node arena overflow: %w", err))
	}
	b := n.base()
	b.ctx = c
	b.id = NodeID(value)
	b.uuid = id
	c.nodes = append(c.nodes, n)
	c.byUUID[id] = b.id
}

// Len reports the number of live nodes.
func (c *Context) Len() int { return len(c.nodes) - 1 }

// Node returns the node stored in slot id.
func (c *Context) Node(id NodeID) (Node, bool) {
	if !id.IsValid() || int(id) >= len(c.nodes) {
		return nil, false
	}
	return c.nodes[id], true
}

// FindNode returns the node currently registered under id.
func (c *Context) FindNode(id uuid.UUID) (Node, bool) {
	slot, ok := c.byUUID[id]
	if !ok {
		return nil, false
	}
	return c.nodes[slot], true
}

// Nodes yields every live node in creation order.
func (c *Context) Nodes() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		for _, n := range c.nodes[1:] {
			if !yield(n) {
				return
			}
		}
	}
}

// Reset releases every node at once. Nodes obtained before the call must no
// longer be used.
func (c *Context) Reset() {
	for _, n := range c.nodes[1:] {
		b := n.base()
		b.ctx = nil
		b.id = NoNodeID
	}
	clear(c.nodes)
	c.nodes = c.nodes[:1]
	clear(c.byUUID)
	c.epoch++
}

func (c *Context) touch() {
	if c != nil {
		c.epoch++
	}
}

// Lookup finds the node registered under id and checks its concrete type.
func Lookup[T Node](c *Context, id uuid.UUID) (T, bool) {
	var zero T
	n, ok := c.FindNode(id)
	if !ok {
		return zero, false
	}
	t, ok := n.(T)
	return t, ok
}
