package ir

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"binir/internal/trace"
	"binir/ir/wire"
)

// EncodeIR writes r and every module it owns.
func EncodeIR(r *IR) (*wire.IR, error) {
	return EncodeIRContext(context.Background(), r)
}

// EncodeIRContext is EncodeIR with tracing taken from ctx.
func EncodeIRContext(ctx context.Context, r *IR) (*wire.IR, error) {
	t := trace.FromContext(ctx)
	span := trace.Begin(t, trace.ScopePass, "encode_ir", trace.CurrentSpan(ctx).SpanID)
	defer span.End("")

	msg := &wire.IR{
		Node:    encodeNode(r),
		Version: r.version,
		Modules: make([]wire.Module, 0, len(r.modules)),
		AuxData: encodeAux(&r.AuxDataContainer),
	}
	for _, m := range r.modules {
		ms := trace.Begin(t, trace.ScopeModule, "encode_module", span.ID()).WithExtra("module", m.name)
		mm, err := EncodeModule(m)
		ms.End("")
		if err != nil {
			return nil, err
		}
		msg.Modules = append(msg.Modules, *mm)
	}
	return msg, nil
}

// EncodeModule flattens m into a message. Every cross-reference becomes a
// UUID; it fails with *IdentityError when m refers to a node that m does not
// own, since such a message could never be decoded.
func EncodeModule(m *Module) (*wire.Module, error) {
	owned := ownedBlocks(m)

	msg := &wire.Module{
		Node:                encodeNode(m),
		Name:                m.name,
		BinaryPath:          m.binaryPath,
		FileFormat:          uint8(m.format),
		ISA:                 uint8(m.isa),
		PreferredAddr:       uint64(m.preferredAddr),
		RebaseDelta:         m.rebaseDelta,
		ImageByteMap:        encodeImageByteMap(m.ImageByteMap()),
		Sections:            make([]wire.Section, 0, len(m.sections)),
		Data:                make([]wire.DataObject, 0, len(m.data)),
		ProxyBlocks:         make([]wire.Block, 0, len(m.proxies)),
		Symbols:             make([]wire.Symbol, 0, len(m.symbols)),
		SymbolicExpressions: make([]wire.SymbolicExpressionEntry, 0, len(m.symExprs)),
		AuxData:             encodeAux(&m.AuxDataContainer),
	}
	for _, s := range m.sections {
		msg.Sections = append(msg.Sections, encodeSection(s))
	}
	for _, d := range m.data {
		msg.Data = append(msg.Data, wire.DataObject{
			Node:    encodeNode(d),
			Address: uint64(d.address),
			Size:    d.size,
		})
	}
	for _, p := range m.proxies {
		msg.ProxyBlocks = append(msg.ProxyBlocks, encodeBlock(p))
	}

	cfg, err := encodeCFG(m.cfg, owned)
	if err != nil {
		return nil, err
	}
	msg.CFG = cfg
	for _, b := range cfg.Blocks {
		owned[uuid.UUID(b.Node.UUID)] = struct{}{}
	}

	inModule := make(map[*Symbol]struct{}, len(m.symbols))
	for s := range m.Symbols() {
		if s.referent != nil {
			if _, ok := owned[s.referent.UUID()]; !ok {
				return nil, &IdentityError{Ref: "symbol referent", UUID: s.referent.UUID(), Reason: fmt.Sprintf("block of symbol %q is not owned by module %q", s.name, m.name)}
			}
		}
		msg.Symbols = append(msg.Symbols, EncodeSymbol(s))
		inModule[s] = struct{}{}
	}

	for a, e := range m.SymbolicExpressions() {
		for _, s := range e.Symbols() {
			if s == nil {
				return nil, invariantf("symbolic expression at %s has a nil symbol", a)
			}
			if _, ok := inModule[s]; !ok {
				return nil, &IdentityError{Ref: "symbolic expression symbol", UUID: s.uuid, Reason: fmt.Sprintf("symbol %q at %s is not in module %q", s.name, a, m.name)}
			}
		}
		msg.SymbolicExpressions = append(msg.SymbolicExpressions, wire.SymbolicExpressionEntry{
			Address: uint64(a),
			Expr:    encodeSymExpr(e),
		})
	}
	return msg, nil
}

// ownedBlocks collects the UUIDs of blocks serialized by m's sections and
// proxy list.
func ownedBlocks(m *Module) map[uuid.UUID]struct{} {
	owned := make(map[uuid.UUID]struct{})
	for _, s := range m.sections {
		for _, bi := range s.intervals {
			for _, b := range bi.blocks {
				owned[b.UUID()] = struct{}{}
			}
		}
	}
	for _, p := range m.proxies {
		owned[p.uuid] = struct{}{}
	}
	return owned
}

func encodeCFG(g *CFG, owned map[uuid.UUID]struct{}) (wire.CFG, error) {
	msg := wire.CFG{
		Vertices: make([]wire.UUID, 0, len(g.blocks)),
		Blocks:   make([]wire.Block, 0),
		Edges:    make([]wire.Edge, 0, len(g.edges)),
	}
	for _, b := range g.blocks {
		msg.Vertices = append(msg.Vertices, wire.UUID(b.UUID()))
		if _, ok := owned[b.UUID()]; ok {
			continue
		}
		if p := placementOf(b); p != nil && p.interval != nil {
			return wire.CFG{}, &IdentityError{Ref: "cfg vertex", UUID: b.UUID(), Reason: "block lives in a byte interval outside the module"}
		}
		msg.Blocks = append(msg.Blocks, encodeBlock(b))
	}
	for _, e := range g.edges {
		msg.Edges = append(msg.Edges, wire.Edge{
			Source: wire.UUID(g.blocks[e.From].UUID()),
			Target: wire.UUID(g.blocks[e.To].UUID()),
		})
	}
	return msg, nil
}

func placementOf(b Block) *placement {
	switch v := b.(type) {
	case *CodeBlock:
		return &v.placement
	case *DataBlock:
		return &v.placement
	}
	return nil
}

// EncodeSymbol writes a single symbol. Its referent, if any, is written as a
// UUID only.
func EncodeSymbol(s *Symbol) wire.Symbol {
	msg := wire.Symbol{
		Node:       encodeNode(s),
		Name:       s.name,
		HasAddress: s.hasAddress,
		Address:    uint64(s.address),
		Storage:    uint8(s.storage),
	}
	if s.referent != nil {
		msg.HasReferent = true
		msg.Referent = wire.UUID(s.referent.UUID())
	}
	return msg
}

func encodeSection(s *Section) wire.Section {
	msg := wire.Section{
		Node:          encodeNode(s),
		Name:          s.name,
		Flags:         uint32(s.flags),
		ByteIntervals: make([]wire.ByteInterval, 0, len(s.intervals)),
	}
	for _, bi := range s.intervals {
		msg.ByteIntervals = append(msg.ByteIntervals, encodeByteInterval(bi))
	}
	return msg
}

func encodeByteInterval(bi *ByteInterval) wire.ByteInterval {
	msg := wire.ByteInterval{
		Node:       encodeNode(bi),
		HasAddress: bi.hasAddress,
		Address:    uint64(bi.address),
		Size:       bi.size,
		Contents:   slices.Clone(bi.contents),
		Blocks:     make([]wire.Block, 0, len(bi.blocks)),
	}
	for _, b := range bi.blocks {
		msg.Blocks = append(msg.Blocks, encodeBlock(b))
	}
	return msg
}

func encodeBlock(b Block) wire.Block {
	msg := wire.Block{Node: encodeNode(b)}
	switch v := b.(type) {
	case *CodeBlock:
		msg.Kind = wire.BlockCode
		msg.Offset, msg.Size = v.offset, v.size
		msg.DecodeMode = uint8(v.mode)
	case *DataBlock:
		msg.Kind = wire.BlockData
		msg.Offset, msg.Size = v.offset, v.size
	case *ProxyBlock:
		msg.Kind = wire.BlockProxy
	}
	return msg
}

func encodeImageByteMap(m *ImageByteMap) wire.ImageByteMap {
	return wire.ImageByteMap{
		Node:       encodeNode(m),
		FileName:   m.fileName,
		BaseAddr:   uint64(m.baseAddr),
		EntryPoint: uint64(m.entryPoint),
		Relocated:  m.relocated,
		MinAddr:    uint64(m.minAddr),
		MaxAddr:    uint64(m.maxAddr),
		Data:       slices.Clone(m.data),
	}
}

func encodeSymExpr(e SymbolicExpression) wire.SymbolicExpression {
	switch v := e.(type) {
	case SymAddrConst:
		return wire.SymbolicExpression{Kind: wire.SymExprAddrConst, Offset: v.Offset, Symbol1: wire.UUID(v.Sym.uuid)}
	case SymAddrAddr:
		return wire.SymbolicExpression{Kind: wire.SymExprAddrAddr, Scale: v.Scale, Offset: v.Offset, Symbol1: wire.UUID(v.Sym1.uuid), Symbol2: wire.UUID(v.Sym2.uuid)}
	case SymStackConst:
		return wire.SymbolicExpression{Kind: wire.SymExprStackConst, Offset: v.Offset, Symbol1: wire.UUID(v.Sym.uuid)}
	}
	return wire.SymbolicExpression{}
}

func encodeAux(c *AuxDataContainer) []wire.AuxData {
	out := make([]wire.AuxData, 0, len(c.aux))
	for _, name := range c.AuxDataNames() {
		d := c.aux[name]
		out = append(out, wire.AuxData{Name: name, TypeName: d.TypeName, Data: slices.Clone(d.Data)})
	}
	return out
}

func encodeNode(n Node) wire.Node {
	props := n.Properties()
	msg := wire.Node{
		UUID:       wire.UUID(n.UUID()),
		Properties: make([]wire.Property, 0, props.Len()),
	}
	for k, v := range props.All() {
		msg.Properties = append(msg.Properties, encodeValue(k, v))
	}
	return msg
}

func encodeValue(key string, v Value) wire.Property {
	p := wire.Property{Key: key}
	switch x := v.(type) {
	case IntValue:
		p.Kind, p.Int = wire.PropInt, int64(x)
	case UintValue:
		p.Kind, p.Uint = wire.PropUint, uint64(x)
	case FloatValue:
		p.Kind, p.Float = wire.PropFloat, float64(x)
	case BoolValue:
		p.Kind = wire.PropBool
		if x {
			p.Uint = 1
		}
	case StringValue:
		p.Kind, p.Str = wire.PropString, string(x)
	case BytesValue:
		p.Kind, p.Bytes = wire.PropBytes, slices.Clone([]byte(x))
	case AddrValue:
		p.Kind, p.Uint = wire.PropAddr, uint64(x)
	case UUIDValue:
		id := uuid.UUID(x)
		p.Kind, p.Bytes = wire.PropUUID, slices.Clone(id[:])
	}
	return p
}

func decodeValue(p wire.Property) (Value, error) {
	switch p.Kind {
	case wire.PropInt:
		return IntValue(p.Int), nil
	case wire.PropUint:
		return UintValue(p.Uint), nil
	case wire.PropFloat:
		return FloatValue(p.Float), nil
	case wire.PropBool:
		return BoolValue(p.Uint != 0), nil
	case wire.PropString:
		return StringValue(p.Str), nil
	case wire.PropBytes:
		return BytesValue(slices.Clone(p.Bytes)), nil
	case wire.PropAddr:
		return AddrValue(p.Uint), nil
	case wire.PropUUID:
		id, err := uuid.FromBytes(p.Bytes)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", p.Key, err)
		}
		return UUIDValue(id), nil
	default:
		return nil, fmt.Errorf("property %q: unknown kind %d", p.Key, p.Kind)
	}
}
