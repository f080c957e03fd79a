// Package ir models the static structure of binary executables.
//
// # Ownership
//
// Every node (modules, sections, byte intervals, blocks, symbols, data
// objects) is created through a Context. The Context is an index-based arena:
// it owns its nodes for their whole lifetime, hands out a random UUID to each
// of them and never deletes a node individually. Dropping (or resetting) the
// Context releases everything at once; callers must not keep node references
// past that point.
//
// # Identity
//
// UUIDs are the only identity that survives serialization. Cross-references
// between nodes (CFG edges, symbol referents, symbols used by symbolic
// expressions) are written as UUIDs and rebound on decode:
//
//	msg, err := ir.EncodeModule(m)
//	...
//	m2, err := ir.DecodeModule(ir.NewContext(), msg)
//
// Decoding is two-phase: every node is materialized with its original UUID
// first, then every recorded reference is resolved against those UUIDs. A
// reference that cannot be resolved fails the whole decode with an
// *IdentityError and nothing is added to the target Context.
//
// # Concurrency
//
// Nothing in this package locks. A Context and its nodes may be read from
// several goroutines only while nobody mutates them. Distinct Contexts are
// fully independent.
package ir
