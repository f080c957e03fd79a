// Package wire defines the flat, reference-free message schema that IR
// nodes are serialized to, and its msgpack encoding.
//
// Every cross-reference between nodes is a UUID field. No message embeds
// another node it merely refers to; a node is written exactly once, inside
// the message of its structural owner. Variant records carry an explicit
// discriminant (BlockKind, SymExprKind, PropertyKind).
//
// Framing, versioning headers and compression belong to the transport, not
// to this package.
package wire
