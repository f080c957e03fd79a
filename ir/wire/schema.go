package wire

// PropertyKind discriminates property bag values.
type PropertyKind uint8

const (
	PropInvalid PropertyKind = iota
	PropInt
	PropUint
	PropFloat
	PropBool
	PropString
	PropBytes
	PropAddr
	PropUUID
)

// Property is one property bag entry. Only the field selected by Kind is
// meaningful: Int, Uint (also Bool and Addr), Float, Str, Bytes (also UUID).
type Property struct {
	Key   string       `msgpack:"key"`
	Kind  PropertyKind `msgpack:"kind"`
	Int   int64        `msgpack:"i,omitempty"`
	Uint  uint64       `msgpack:"u,omitempty"`
	Float float64      `msgpack:"f,omitempty"`
	Str   string       `msgpack:"s,omitempty"`
	Bytes []byte       `msgpack:"b,omitempty"`
}

// Node is the identity header shared by every node message.
type Node struct {
	UUID       UUID       `msgpack:"uuid"`
	Properties []Property `msgpack:"props"`
}

// BlockKind discriminates block records.
type BlockKind uint8

const (
	BlockInvalid BlockKind = iota
	BlockCode
	BlockData
	BlockProxy
)

// Block is a code, data or proxy block. Offset is relative to the owning
// byte interval and is zero for blocks that have none.
type Block struct {
	Node       Node      `msgpack:"node"`
	Kind       BlockKind `msgpack:"kind"`
	Offset     uint64    `msgpack:"offset"`
	Size       uint64    `msgpack:"size"`
	DecodeMode uint8     `msgpack:"mode"`
}

type ByteInterval struct {
	Node       Node    `msgpack:"node"`
	HasAddress bool    `msgpack:"has_addr"`
	Address    uint64  `msgpack:"addr"`
	Size       uint64  `msgpack:"size"`
	Contents   []byte  `msgpack:"contents"`
	Blocks     []Block `msgpack:"blocks"`
}

type Section struct {
	Node          Node           `msgpack:"node"`
	Name          string         `msgpack:"name"`
	Flags         uint32         `msgpack:"flags"`
	ByteIntervals []ByteInterval `msgpack:"intervals"`
}

type DataObject struct {
	Node    Node   `msgpack:"node"`
	Address uint64 `msgpack:"addr"`
	Size    uint64 `msgpack:"size"`
}

type ImageByteMap struct {
	Node       Node   `msgpack:"node"`
	FileName   string `msgpack:"file"`
	BaseAddr   uint64 `msgpack:"base"`
	EntryPoint uint64 `msgpack:"entry"`
	Relocated  bool   `msgpack:"relocated"`
	MinAddr    uint64 `msgpack:"min"`
	MaxAddr    uint64 `msgpack:"max"`
	Data       []byte `msgpack:"data"`
}

// Edge is a CFG edge between the vertices holding two blocks.
type Edge struct {
	Source UUID `msgpack:"src"`
	Target UUID `msgpack:"dst"`
}

// CFG lists its vertices by block UUID in vertex order. Blocks that have no
// other owner (no byte interval, not a module proxy) are written in Blocks.
type CFG struct {
	Vertices []UUID  `msgpack:"vertices"`
	Blocks   []Block `msgpack:"blocks"`
	Edges    []Edge  `msgpack:"edges"`
}

type Symbol struct {
	Node        Node   `msgpack:"node"`
	Name        string `msgpack:"name"`
	HasAddress  bool   `msgpack:"has_addr"`
	Address     uint64 `msgpack:"addr"`
	HasReferent bool   `msgpack:"has_ref"`
	Referent    UUID   `msgpack:"ref"`
	Storage     uint8  `msgpack:"storage"`
}

// SymExprKind discriminates symbolic expression records.
type SymExprKind uint8

const (
	SymExprInvalid SymExprKind = iota
	SymExprAddrConst
	SymExprAddrAddr
	SymExprStackConst
)

type SymbolicExpression struct {
	Kind    SymExprKind `msgpack:"kind"`
	Scale   int64       `msgpack:"scale"`
	Offset  int64       `msgpack:"offset"`
	Symbol1 UUID        `msgpack:"sym1"`
	Symbol2 UUID        `msgpack:"sym2"`
}

// SymbolicExpressionEntry is one (address, expression) pair of the
// module's address map.
type SymbolicExpressionEntry struct {
	Address uint64             `msgpack:"addr"`
	Expr    SymbolicExpression `msgpack:"expr"`
}

type AuxData struct {
	Name     string `msgpack:"name"`
	TypeName string `msgpack:"type"`
	Data     []byte `msgpack:"data"`
}

type Module struct {
	Node                Node                      `msgpack:"node"`
	Name                string                    `msgpack:"name"`
	BinaryPath          string                    `msgpack:"path"`
	FileFormat          uint8                     `msgpack:"format"`
	ISA                 uint8                     `msgpack:"isa"`
	PreferredAddr       uint64                    `msgpack:"preferred"`
	RebaseDelta         int64                     `msgpack:"rebase"`
	ImageByteMap        ImageByteMap              `msgpack:"image"`
	Sections            []Section                 `msgpack:"sections"`
	Data                []DataObject              `msgpack:"data"`
	ProxyBlocks         []Block                   `msgpack:"proxies"`
	CFG                 CFG                       `msgpack:"cfg"`
	Symbols             []Symbol                  `msgpack:"symbols"`
	SymbolicExpressions []SymbolicExpressionEntry `msgpack:"symexprs"`
	AuxData             []AuxData                 `msgpack:"aux"`
}

type IR struct {
	Node    Node      `msgpack:"node"`
	Version uint32    `msgpack:"version"`
	Modules []Module  `msgpack:"modules"`
	AuxData []AuxData `msgpack:"aux"`
}
