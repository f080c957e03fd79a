package ir

import (
	"fmt"
	"iter"
	"slices"

	"fortio.org/safecast"
)

// VertexID is a CFG-local descriptor. It is unrelated to the block's UUID
// and is not preserved by serialization.
type VertexID uint32

// Edge is a directed control-flow relation. Edge kinds are not modelled.
type Edge struct {
	From VertexID
	To   VertexID
}

// CFGReader is the read-only view of a control-flow graph.
type CFGReader interface {
	NumVertices() int
	NumEdges() int
	Block(v VertexID) (Block, bool)
	Vertex(b Block) (VertexID, bool)
	Blocks() iter.Seq[Block]
	Vertices() iter.Seq2[VertexID, Block]
	Edges() iter.Seq[Edge]
	Successors(v VertexID) iter.Seq[VertexID]
	Predecessors(v VertexID) iter.Seq[VertexID]
}

var _ CFGReader = (*CFG)(nil)

// CFG is a directed graph whose vertices hold blocks. A block occupies at
// most one vertex, so a block's UUID identifies its vertex across a
// serialization round trip.
type CFG struct {
	blocks []Block
	index  map[Block]VertexID
	succ   [][]VertexID
	pred   [][]VertexID
	edges  []Edge
}

func NewCFG() *CFG {
	return &CFG{index: make(map[Block]VertexID)}
}

// AddBlock inserts b as a vertex and returns its descriptor. Adding a block
// that is already a vertex returns the existing descriptor.
func (g *CFG) AddBlock(b Block) VertexID {
	b = normalizeBlock(b)
	if b == nil {
		panic("ir: nil block added to CFG")
	}
	if v, ok := g.index[b]; ok {
		return v
	}
	value, err := safecast.Conv[uint32](len(g.blocks))
	if err != nil {
		panic(fmt.Errorf("cfg vertex overflow: %w", err))
	}
	v := VertexID(value)
	g.blocks = append(g.blocks, b)
	g.succ = append(g.succ, nil)
	g.pred = append(g.pred, nil)
	g.index[b] = v
	return v
}

// AddEdge inserts a directed edge. Parallel edges are allowed.
func (g *CFG) AddEdge(from, to VertexID) error {
	if !g.valid(from) || !g.valid(to) {
		return invariantf("edge %d -> %d references a missing vertex (have %d)", from, to, len(g.blocks))
	}
	g.edges = append(g.edges, Edge{From: from, To: to})
	g.succ[from] = append(g.succ[from], to)
	g.pred[to] = append(g.pred[to], from)
	return nil
}

func (g *CFG) valid(v VertexID) bool { return int(v) < len(g.blocks) }

func (g *CFG) NumVertices() int { return len(g.blocks) }

func (g *CFG) NumEdges() int { return len(g.edges) }

func (g *CFG) Block(v VertexID) (Block, bool) {
	if !g.valid(v) {
		return nil, false
	}
	return g.blocks[v], true
}

func (g *CFG) Vertex(b Block) (VertexID, bool) {
	v, ok := g.index[normalizeBlock(b)]
	return v, ok
}

// Blocks yields vertex payloads in vertex order, which is insertion order
// and not address order.
func (g *CFG) Blocks() iter.Seq[Block] {
	return slices.Values(g.blocks)
}

func (g *CFG) Vertices() iter.Seq2[VertexID, Block] {
	return func(yield func(VertexID, Block) bool) {
		for i, b := range g.blocks {
			if !yield(VertexID(i), b) {
				return
			}
		}
	}
}

func (g *CFG) Edges() iter.Seq[Edge] {
	return slices.Values(g.edges)
}

func (g *CFG) Successors(v VertexID) iter.Seq[VertexID] {
	if !g.valid(v) {
		return func(func(VertexID) bool) {}
	}
	return slices.Values(g.succ[v])
}

func (g *CFG) Predecessors(v VertexID) iter.Seq[VertexID] {
	if !g.valid(v) {
		return func(func(VertexID) bool) {}
	}
	return slices.Values(g.pred[v])
}
