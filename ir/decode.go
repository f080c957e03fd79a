package ir

import (
	"context"
	"fmt"
	"reflect"
	"slices"

	"github.com/google/uuid"

	"binir/internal/trace"
	"binir/ir/wire"
)

// decoder rebuilds nodes from messages in two phases. Materialized nodes
// stay outside the arena until every reference has resolved; only then are
// they committed with their original UUIDs. A failed decode leaves the
// target Context untouched.
type decoder struct {
	ctx     *Context
	pending []Node
	seen    map[uuid.UUID]struct{}
	// records holds collection entries so a repeated entry binds to the node
	// decoded the first time.
	records map[uuid.UUID]record

	// scope maps UUIDs to nodes materialized for the module being decoded.
	scope     map[uuid.UUID]Node
	referents []referentRef
}

type record struct {
	node Node
	msg  any
}

type referentRef struct {
	sym    *Symbol
	target uuid.UUID
}

func newDecoder(c *Context) *decoder {
	return &decoder{
		ctx:     c,
		seen:    make(map[uuid.UUID]struct{}),
		records: make(map[uuid.UUID]record),
	}
}

// DecodeIR rebuilds an IR and all of its modules in c.
func DecodeIR(c *Context, msg *wire.IR) (*IR, error) {
	return DecodeIRContext(context.Background(), c, msg)
}

// DecodeIRContext is DecodeIR with tracing taken from ctx.
func DecodeIRContext(ctx context.Context, c *Context, msg *wire.IR) (*IR, error) {
	if msg == nil {
		return nil, invariantf("nil ir message")
	}
	if msg.Version != Version {
		return nil, invariantf("ir format version %d is not supported (want %d)", msg.Version, Version)
	}
	t := trace.FromContext(ctx)
	span := trace.Begin(t, trace.ScopePass, "decode_ir", trace.CurrentSpan(ctx).SpanID)
	defer span.End("")

	d := newDecoder(c)
	r := &IR{version: msg.Version}
	if err := d.materialize(r, msg.Node); err != nil {
		return nil, err
	}
	d.decodeAux(&r.AuxDataContainer, msg.AuxData)
	for i := range msg.Modules {
		ms := trace.Begin(t, trace.ScopeModule, "decode_module", span.ID()).WithExtra("module", msg.Modules[i].Name)
		m, err := d.module(&msg.Modules[i])
		ms.End("")
		if err != nil {
			return nil, err
		}
		r.modules = append(r.modules, m)
	}
	d.commit()
	return r, nil
}

// DecodeModule rebuilds one module in c.
func DecodeModule(c *Context, msg *wire.Module) (*Module, error) {
	if msg == nil {
		return nil, invariantf("nil module message")
	}
	d := newDecoder(c)
	m, err := d.module(msg)
	if err != nil {
		return nil, err
	}
	d.commit()
	return m, nil
}

// DecodeSymbol rebuilds a single symbol. Its referent must already be live
// in c, e.g. because the module holding it was decoded first.
func DecodeSymbol(c *Context, msg *wire.Symbol) (*Symbol, error) {
	if msg == nil {
		return nil, invariantf("nil symbol message")
	}
	d := newDecoder(c)
	s, err := d.symbol(msg)
	if err != nil {
		return nil, err
	}
	if msg.HasReferent {
		target := uuid.UUID(msg.Referent)
		n, ok := c.FindNode(target)
		if !ok {
			return nil, &IdentityError{Ref: "symbol referent", UUID: target, Reason: fmt.Sprintf("symbol %q", msg.Name)}
		}
		b, ok := n.(Block)
		if !ok {
			return nil, &IdentityError{Ref: "symbol referent", UUID: target, Reason: fmt.Sprintf("%T is not a block", n)}
		}
		s.referent = b
	}
	d.commit()
	return s, nil
}

func (d *decoder) commit() {
	for _, n := range d.pending {
		adopt(d.ctx, n, n.UUID())
	}
	d.pending = nil
	d.ctx.touch()
}

// materialize restores identity and properties of n and records it for
// resolution and commit.
func (d *decoder) materialize(n Node, msg wire.Node) error {
	id := uuid.UUID(msg.UUID)
	if _, dup := d.seen[id]; dup {
		return &IdentityError{Ref: "node", UUID: id, Reason: "duplicate identity in message"}
	}
	d.seen[id] = struct{}{}
	b := n.base()
	b.uuid = id
	for _, p := range msg.Properties {
		v, err := decodeValue(p)
		if err != nil {
			return fmt.Errorf("node %s: %w", id, err)
		}
		b.props.Set(p.Key, v)
	}
	d.pending = append(d.pending, n)
	if d.scope != nil {
		d.scope[id] = n
	}
	return nil
}

// repeated returns the node decoded earlier for an entry that appears again
// in an ordered collection. The same UUID on a different record is an
// IdentityError.
func (d *decoder) repeated(id wire.UUID, msg any) (Node, bool, error) {
	rec, ok := d.records[uuid.UUID(id)]
	if !ok {
		return nil, false, nil
	}
	if !reflect.DeepEqual(rec.msg, msg) {
		return nil, false, &IdentityError{Ref: "node", UUID: uuid.UUID(id), Reason: "two different records share one identity"}
	}
	d.enterScope(rec.node)
	return rec.node, true, nil
}

func (d *decoder) remember(n Node, msg any) {
	d.records[n.UUID()] = record{node: n, msg: msg}
}

// enterScope makes n and the nodes it owns resolvable from the module
// being decoded.
func (d *decoder) enterScope(n Node) {
	if d.scope == nil {
		return
	}
	d.scope[n.UUID()] = n
	if s, ok := n.(*Section); ok {
		for _, bi := range s.intervals {
			d.scope[bi.uuid] = bi
			for _, b := range bi.blocks {
				d.scope[b.UUID()] = b
			}
		}
	}
}

func (d *decoder) module(msg *wire.Module) (*Module, error) {
	d.scope = make(map[uuid.UUID]Node)
	d.referents = d.referents[:0]
	defer func() { d.scope = nil }()

	m, err := d.materializeModule(msg)
	if err != nil {
		return nil, fmt.Errorf("module %q: %w", msg.Name, err)
	}
	if err := d.resolveModule(m, msg); err != nil {
		return nil, fmt.Errorf("module %q: %w", msg.Name, err)
	}
	return m, nil
}

// materializeModule is phase one: every node of the module exists with its
// original UUID and scalar fields; no reference is bound yet.
func (d *decoder) materializeModule(msg *wire.Module) (*Module, error) {
	m := newModuleShell(msg.Name)
	if err := d.materialize(m, msg.Node); err != nil {
		return nil, err
	}
	m.binaryPath = msg.BinaryPath
	m.format = FileFormat(msg.FileFormat)
	m.isa = ISA(msg.ISA)
	m.preferredAddr = Addr(msg.PreferredAddr)
	m.rebaseDelta = msg.RebaseDelta
	d.decodeAux(&m.AuxDataContainer, msg.AuxData)

	img, err := d.imageByteMap(&msg.ImageByteMap)
	if err != nil {
		return nil, err
	}
	m.image = img
	img.module = m

	for _, sm := range msg.Sections {
		n, ok, err := d.repeated(sm.Node.UUID, sm)
		if err != nil {
			return nil, err
		}
		if !ok {
			if n, err = d.section(&sm); err != nil {
				return nil, err
			}
			d.remember(n, sm)
		}
		s, isSection := n.(*Section)
		if !isSection {
			return nil, &IdentityError{Ref: "section", UUID: n.UUID(), Reason: fmt.Sprintf("resolves to %T", n)}
		}
		m.sections = append(m.sections, s)
	}
	for _, dm := range msg.Data {
		n, ok, err := d.repeated(dm.Node.UUID, dm)
		if err != nil {
			return nil, err
		}
		if !ok {
			n = &DataObject{address: Addr(dm.Address), size: dm.Size}
			if err := d.materialize(n, dm.Node); err != nil {
				return nil, err
			}
			d.remember(n, dm)
		}
		do, isData := n.(*DataObject)
		if !isData {
			return nil, &IdentityError{Ref: "data object", UUID: n.UUID(), Reason: fmt.Sprintf("resolves to %T", n)}
		}
		m.data = append(m.data, do)
	}
	for _, pm := range msg.ProxyBlocks {
		b, err := d.listedBlock(pm)
		if err != nil {
			return nil, err
		}
		p, ok := b.(*ProxyBlock)
		if !ok {
			return nil, invariantf("%s block %s in proxy list", b.Kind(), b.UUID())
		}
		m.proxies = append(m.proxies, p)
	}
	for _, bm := range msg.CFG.Blocks {
		if _, err := d.listedBlock(bm); err != nil {
			return nil, err
		}
	}
	for _, sm := range msg.Symbols {
		n, ok, err := d.repeated(sm.Node.UUID, sm)
		if err != nil {
			return nil, err
		}
		if !ok {
			s, err := d.symbol(&sm)
			if err != nil {
				return nil, err
			}
			if sm.HasReferent {
				d.referents = append(d.referents, referentRef{sym: s, target: uuid.UUID(sm.Referent)})
			}
			d.remember(s, sm)
			n = s
		}
		s, isSymbol := n.(*Symbol)
		if !isSymbol {
			return nil, &IdentityError{Ref: "symbol", UUID: n.UUID(), Reason: fmt.Sprintf("resolves to %T", n)}
		}
		m.symbols = append(m.symbols, s)
	}
	return m, nil
}

// listedBlock decodes a block held by the proxy list or the cfg, reusing
// the node when the same block was listed before.
func (d *decoder) listedBlock(msg wire.Block) (Block, error) {
	n, ok, err := d.repeated(msg.Node.UUID, msg)
	if err != nil {
		return nil, err
	}
	if ok {
		b, isBlock := n.(Block)
		if !isBlock {
			return nil, &IdentityError{Ref: "block", UUID: n.UUID(), Reason: fmt.Sprintf("resolves to %T", n)}
		}
		return b, nil
	}
	b, err := d.block(msg)
	if err != nil {
		return nil, err
	}
	d.remember(b, msg)
	return b, nil
}

// resolveModule is phase two: every UUID reference recorded in the message
// is bound to a node materialized in phase one.
func (d *decoder) resolveModule(m *Module, msg *wire.Module) error {
	for _, ref := range d.referents {
		b, err := resolveAs[Block](d.scope, ref.target, "symbol referent")
		if err != nil {
			return err
		}
		ref.sym.referent = b
	}
	for _, v := range msg.CFG.Vertices {
		b, err := resolveAs[Block](d.scope, uuid.UUID(v), "cfg vertex")
		if err != nil {
			return err
		}
		m.cfg.AddBlock(b)
	}
	for _, e := range msg.CFG.Edges {
		from, err := d.vertex(m.cfg, e.Source, "cfg edge source")
		if err != nil {
			return err
		}
		to, err := d.vertex(m.cfg, e.Target, "cfg edge target")
		if err != nil {
			return err
		}
		if err := m.cfg.AddEdge(from, to); err != nil {
			return err
		}
	}
	for _, entry := range msg.SymbolicExpressions {
		e, err := d.symExpr(entry.Expr)
		if err != nil {
			return fmt.Errorf("symbolic expression at %s: %w", Addr(entry.Address), err)
		}
		m.symExprs[Addr(entry.Address)] = e
	}
	return nil
}

func (d *decoder) vertex(g *CFG, id wire.UUID, ref string) (VertexID, error) {
	b, err := resolveAs[Block](d.scope, uuid.UUID(id), ref)
	if err != nil {
		return 0, err
	}
	v, ok := g.Vertex(b)
	if !ok {
		return 0, &IdentityError{Ref: ref, UUID: b.UUID(), Reason: "block is not a cfg vertex"}
	}
	return v, nil
}

func (d *decoder) symExpr(msg wire.SymbolicExpression) (SymbolicExpression, error) {
	sym1, err := resolveAs[*Symbol](d.scope, uuid.UUID(msg.Symbol1), "symbolic expression symbol")
	if err != nil {
		return nil, err
	}
	switch msg.Kind {
	case wire.SymExprAddrConst:
		return SymAddrConst{Offset: msg.Offset, Sym: sym1}, nil
	case wire.SymExprStackConst:
		return SymStackConst{Offset: msg.Offset, Sym: sym1}, nil
	case wire.SymExprAddrAddr:
		sym2, err := resolveAs[*Symbol](d.scope, uuid.UUID(msg.Symbol2), "symbolic expression symbol")
		if err != nil {
			return nil, err
		}
		return SymAddrAddr{Scale: msg.Scale, Offset: msg.Offset, Sym1: sym1, Sym2: sym2}, nil
	default:
		return nil, fmt.Errorf("unknown symbolic expression kind %d", msg.Kind)
	}
}

func resolveAs[T Node](scope map[uuid.UUID]Node, id uuid.UUID, ref string) (T, error) {
	var zero T
	n, ok := scope[id]
	if !ok {
		return zero, &IdentityError{Ref: ref, UUID: id}
	}
	t, ok := n.(T)
	if !ok {
		return zero, &IdentityError{Ref: ref, UUID: id, Reason: fmt.Sprintf("resolves to %T", n)}
	}
	return t, nil
}

func (d *decoder) imageByteMap(msg *wire.ImageByteMap) (*ImageByteMap, error) {
	if msg.MinAddr > msg.MaxAddr || uint64(len(msg.Data)) != msg.MaxAddr-msg.MinAddr {
		return nil, invariantf("image byte map holds %d bytes for span 0x%x..0x%x", len(msg.Data), msg.MinAddr, msg.MaxAddr)
	}
	img := &ImageByteMap{
		fileName:   msg.FileName,
		baseAddr:   Addr(msg.BaseAddr),
		entryPoint: Addr(msg.EntryPoint),
		relocated:  msg.Relocated,
		minAddr:    Addr(msg.MinAddr),
		maxAddr:    Addr(msg.MaxAddr),
		data:       slices.Clone(msg.Data),
	}
	if err := d.materialize(img, msg.Node); err != nil {
		return nil, err
	}
	return img, nil
}

func (d *decoder) section(msg *wire.Section) (*Section, error) {
	s := &Section{name: msg.Name, flags: SectionFlags(msg.Flags)}
	if err := d.materialize(s, msg.Node); err != nil {
		return nil, err
	}
	for i := range msg.ByteIntervals {
		bi, err := d.byteInterval(&msg.ByteIntervals[i])
		if err != nil {
			return nil, fmt.Errorf("section %q: %w", msg.Name, err)
		}
		bi.section = s
		s.intervals = append(s.intervals, bi)
	}
	return s, nil
}

func (d *decoder) byteInterval(msg *wire.ByteInterval) (*ByteInterval, error) {
	bi := &ByteInterval{
		address:    Addr(msg.Address),
		hasAddress: msg.HasAddress,
		size:       msg.Size,
	}
	if err := bi.SetContents(msg.Contents); err != nil {
		return nil, err
	}
	if err := d.materialize(bi, msg.Node); err != nil {
		return nil, err
	}
	for _, bm := range msg.Blocks {
		b, err := d.block(bm)
		if err != nil {
			return nil, err
		}
		p := placementOf(b)
		if p == nil {
			return nil, invariantf("%s block %s inside byte interval %s", b.Kind(), b.UUID(), bi.uuid)
		}
		if err := bi.checkBounds(p.offset, p.size); err != nil {
			return nil, err
		}
		p.interval = bi
		bi.blocks = append(bi.blocks, b)
	}
	return bi, nil
}

func (d *decoder) block(msg wire.Block) (Block, error) {
	var b Block
	switch msg.Kind {
	case wire.BlockCode:
		b = &CodeBlock{placement: placement{offset: msg.Offset, size: msg.Size}, mode: DecodeMode(msg.DecodeMode)}
	case wire.BlockData:
		b = &DataBlock{placement: placement{offset: msg.Offset, size: msg.Size}}
	case wire.BlockProxy:
		b = &ProxyBlock{}
	default:
		return nil, fmt.Errorf("block %s: unknown kind %d", uuid.UUID(msg.Node.UUID), msg.Kind)
	}
	if err := d.materialize(b, msg.Node); err != nil {
		return nil, err
	}
	return b, nil
}

func (d *decoder) symbol(msg *wire.Symbol) (*Symbol, error) {
	s := &Symbol{
		name:       msg.Name,
		address:    Addr(msg.Address),
		hasAddress: msg.HasAddress,
		storage:    StorageKind(msg.Storage),
	}
	if err := d.materialize(s, msg.Node); err != nil {
		return nil, err
	}
	return s, nil
}

func (d *decoder) decodeAux(c *AuxDataContainer, msgs []wire.AuxData) {
	for _, a := range msgs {
		c.AddAuxData(a.Name, AuxData{TypeName: a.TypeName, Data: slices.Clone(a.Data)})
	}
}
