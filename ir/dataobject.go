package ir

// DataObject marks a typed datum at a fixed address.
type DataObject struct {
	nodeBase
	address Addr
	size    uint64
}

func NewDataObject(c *Context, addr Addr, size uint64) *DataObject {
	return register(c, &DataObject{address: addr, size: size})
}

func (d *DataObject) Address() Addr { return d.address }

func (d *DataObject) SetAddress(a Addr) { d.address = a }

func (d *DataObject) Size() uint64 { return d.size }

func (d *DataObject) SetSize(size uint64) { d.size = size }
