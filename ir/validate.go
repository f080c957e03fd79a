package ir

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Validate checks structural invariants of a module and reports every
// violation it finds, joined into one error.
func Validate(m *Module) error {
	if m == nil {
		return nil
	}
	var errs []error

	if m.image == nil {
		errs = append(errs, invariantf("module %q has no image byte map", m.name))
	}

	// 1. Intervals are consistent with their section and blocks.
	if err := validateIntervals(m); err != nil {
		errs = append(errs, err)
	}

	// 2. Identities are unique inside the module.
	if err := validateIdentities(m); err != nil {
		errs = append(errs, err)
	}

	// 3. Every reference targets something the module serializes.
	if err := validateReferences(m); err != nil {
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("module %q: %w", m.name, errors.Join(errs...))
}

func validateIntervals(m *Module) error {
	var errs []error
	for _, s := range m.sections {
		for _, bi := range s.intervals {
			if bi.section != s {
				errs = append(errs, invariantf("byte interval %s listed in section %q but owned by another", bi.uuid, s.name))
			}
			if uint64(len(bi.contents)) > bi.size {
				errs = append(errs, invariantf("byte interval %s: %d initialized bytes exceed size %d", bi.uuid, len(bi.contents), bi.size))
			}
			for _, b := range bi.blocks {
				p := placementOf(b)
				if p.interval != bi {
					errs = append(errs, invariantf("block %s listed in byte interval %s but placed elsewhere", b.UUID(), bi.uuid))
				}
				if err := bi.checkBounds(p.offset, p.size); err != nil {
					errs = append(errs, fmt.Errorf("block %s: %w", b.UUID(), err))
				}
			}
		}
	}
	return errors.Join(errs...)
}

func validateIdentities(m *Module) error {
	seen := make(map[uuid.UUID]Node)
	var errs []error
	check := func(n Node) {
		if prev, ok := seen[n.UUID()]; ok && prev != n {
			errs = append(errs, &IdentityError{Ref: "node", UUID: n.UUID(), Reason: "shared by two nodes"})
			return
		}
		seen[n.UUID()] = n
	}
	check(m)
	if m.image != nil {
		check(m.image)
	}
	for _, s := range m.sections {
		check(s)
		for _, bi := range s.intervals {
			check(bi)
			for _, b := range bi.blocks {
				check(b)
			}
		}
	}
	for _, d := range m.data {
		check(d)
	}
	for _, p := range m.proxies {
		check(p)
	}
	for _, b := range m.cfg.blocks {
		check(b)
	}
	for _, s := range m.symbols {
		check(s)
	}
	return errors.Join(errs...)
}

func validateReferences(m *Module) error {
	owned := ownedBlocks(m)
	var errs []error
	for _, b := range m.cfg.blocks {
		if _, ok := owned[b.UUID()]; ok {
			continue
		}
		if p := placementOf(b); p != nil && p.interval != nil {
			errs = append(errs, &IdentityError{Ref: "cfg vertex", UUID: b.UUID(), Reason: "block lives in a byte interval outside the module"})
			continue
		}
		owned[b.UUID()] = struct{}{}
	}
	symbols := make(map[*Symbol]struct{}, len(m.symbols))
	for _, s := range m.symbols {
		symbols[s] = struct{}{}
		if s.referent == nil {
			continue
		}
		if _, ok := owned[s.referent.UUID()]; !ok {
			errs = append(errs, &IdentityError{Ref: "symbol referent", UUID: s.referent.UUID(), Reason: fmt.Sprintf("block of symbol %q is not owned by the module", s.name)})
		}
	}
	for a, e := range m.SymbolicExpressions() {
		for _, s := range e.Symbols() {
			if s == nil {
				errs = append(errs, invariantf("symbolic expression at %s has a nil symbol", a))
				continue
			}
			if _, ok := symbols[s]; !ok {
				errs = append(errs, &IdentityError{Ref: "symbolic expression symbol", UUID: s.uuid, Reason: fmt.Sprintf("symbol %q at %s is not in the module", s.name, a)})
			}
		}
	}
	return errors.Join(errs...)
}
