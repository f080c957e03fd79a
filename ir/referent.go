package ir

// ReferentVisitor holds optional handlers for the referent kinds of a Symbol.
// All handlers share the result type R; use struct{} for handlers that
// return nothing.
type ReferentVisitor[R any] struct {
	Code  func(*CodeBlock) R
	Data  func(*DataBlock) R
	Proxy func(*ProxyBlock) R
	// CFGNode catches code and proxy blocks without a specific handler.
	CFGNode func(CFGNode) R
	// Node catches any referent without a more specific handler.
	Node func(Node) R
}

// Visit calls exactly one handler, the most specific one that matches the
// bound referent. It reports false when nothing is bound or when the visitor
// has no handler for the referent's kind.
func Visit[R any](s *Symbol, v ReferentVisitor[R]) (R, bool) {
	var zero R
	switch b := s.referent.(type) {
	case *CodeBlock:
		if v.Code != nil {
			return v.Code(b), true
		}
		if v.CFGNode != nil {
			return v.CFGNode(b), true
		}
	case *DataBlock:
		if v.Data != nil {
			return v.Data(b), true
		}
	case *ProxyBlock:
		if v.Proxy != nil {
			return v.Proxy(b), true
		}
		if v.CFGNode != nil {
			return v.CFGNode(b), true
		}
	case nil:
		return zero, false
	}
	if v.Node != nil {
		return v.Node(s.referent), true
	}
	return zero, false
}
