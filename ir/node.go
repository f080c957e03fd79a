package ir

import "github.com/google/uuid"

// Node is implemented by every arena-owned entity.
type Node interface {
	// ID is the arena slot; it is not stable across serialization.
	ID() NodeID
	// UUID is the stable identity of the node.
	UUID() uuid.UUID
	// SetUUID overrides the identity. The caller guarantees uniqueness.
	SetUUID(id uuid.UUID)
	Properties() *Properties
	Context() *Context

	base() *nodeBase
}

type nodeBase struct {
	ctx   *Context
	id    NodeID
	uuid  uuid.UUID
	props Properties
}

func (n *nodeBase) base() *nodeBase { return n }

func (n *nodeBase) ID() NodeID { return n.id }

func (n *nodeBase) UUID() uuid.UUID { return n.uuid }

func (n *nodeBase) Context() *Context { return n.ctx }

func (n *nodeBase) Properties() *Properties { return &n.props }

func (n *nodeBase) SetUUID(id uuid.UUID) {
	if c := n.ctx; c != nil {
		if cur, ok := c.byUUID[n.uuid]; ok && cur == n.id {
			delete(c.byUUID, n.uuid)
		}
		c.byUUID[id] = n.id
	}
	n.uuid = id
}
