// Package sigindex implements the Function Signature Index (spec §4.2,
// §4.1 contract) and the Fuzzy Signature Equality relation it is built on.
// Grounded on the teacher's collectInterfaceSatisfactions
// (goguard-go-bridge/analyzer.go), which performs the analogous
// structural-compatibility scan over go/types — this package performs the
// same kind of scan but for call-signature compatibility rather than
// interface satisfaction.
package sigindex

import (
	"github.com/goguard/mlta/internal/digest"
	"github.com/goguard/mlta/internal/irmodel"
	"github.com/goguard/mlta/internal/store"
)

// FuzzyEqual implements spec §4.2: two types are compatible when, after
// stripping equal levels of pointer indirection, they are identical, or
// both are named structures with the same name, or both are integers of
// equal bit width, or one side is a generic byte pointer and the other is
// any pointer or an integer-pointer-sized integer.
func FuzzyEqual(a, b irmodel.Type, layout irmodel.DataLayout) bool {
	// Strip equal levels of pointer indirection.
	for {
		ap, aok := a.(irmodel.PointerType)
		bp, bok := b.(irmodel.PointerType)
		if aok && bok {
			a, b = ap.Elem(), bp.Elem()
			continue
		}
		break
	}

	if a == nil || b == nil {
		return a == b
	}

	if sameStructuralIdentity(a, b) {
		return true
	}

	if an, aok := a.(irmodel.NamedType); aok {
		if bn, bok := b.(irmodel.NamedType); bok {
			if an.Name() == bn.Name() && an.PkgPath() == bn.PkgPath() {
				return true
			}
		}
	}

	if ab, aok := a.(irmodel.BasicType); aok {
		if bb, bok := b.(irmodel.BasicType); bok {
			if ab.IsInteger() && bb.IsInteger() && ab.BitWidth() == bb.BitWidth() {
				return true
			}
		}
	}

	aGeneric := isGenericBytePointer(a)
	bGeneric := isGenericBytePointer(b)
	if aGeneric && isPointerOrIntPtr(b, layout) {
		return true
	}
	if bGeneric && isPointerOrIntPtr(a, layout) {
		return true
	}

	return false
}

func sameStructuralIdentity(a, b irmodel.Type) bool {
	return digestOf(a) == digestOf(b)
}

// digestOf returns t's String() form as an identity-comparable key for
// FuzzyEqual's identical-type case; it uses neither a data layout nor the
// digest package's structural encoder. FuzzyEqual applies it to every
// pointer-stripped pair before the other cases, so two types are treated
// as identical exactly when their String() forms are equal.
func digestOf(t irmodel.Type) string {
	return t.String()
}

func isGenericBytePointer(t irmodel.Type) bool {
	if bt, ok := t.(irmodel.BasicType); ok {
		return bt.IsBytePointer()
	}
	return false
}

func isPointerOrIntPtr(t irmodel.Type, layout irmodel.DataLayout) bool {
	if _, ok := t.(irmodel.PointerType); ok {
		return true
	}
	if bt, ok := t.(irmodel.BasicType); ok {
		return bt.IsInteger() && bt.BitWidth() == layout.WordBits()
	}
	return false
}

// SignatureCompatible checks arity (exact, or fixed-prefix for a variadic
// callee) and every parameter/result type via FuzzyEqual. Intrinsics are
// never candidates — callers must filter before calling, per spec §4.2
// ("Intrinsics are never candidates").
func SignatureCompatible(call irmodel.SignatureType, fn irmodel.SignatureType, variadic bool, layout irmodel.DataLayout) bool {
	fixed := fn.NumParams()
	if variadic {
		if call.NumParams() < fixed {
			return false
		}
	} else if call.NumParams() != fixed {
		return false
	}
	for i := 0; i < fixed; i++ {
		if !FuzzyEqual(call.Param(i), fn.Param(i), layout) {
			return false
		}
	}
	if call.NumResults() != fn.NumResults() {
		return false
	}
	for i := 0; i < call.NumResults(); i++ {
		if !FuzzyEqual(call.Result(i), fn.Result(i), layout) {
			return false
		}
	}
	return true
}

// Build populates store.Store's signature index with every address-taken,
// non-intrinsic function in fns, keyed by FuncHash (spec §6: "populated
// with every address-taken non-intrinsic function keyed by funcHash").
// addressTaken reports whether fn's address was observed to escape its
// direct-call position anywhere in the seeded modules.
func Build(s *store.Store, fns []irmodel.Function, layout irmodel.DataLayout, addressTaken func(irmodel.Function) bool) {
	for _, fn := range fns {
		if fn.IsIntrinsic() {
			continue
		}
		if !addressTaken(fn) {
			continue
		}
		digest := digest.FuncHash(fn, layout)
		s.SigInsert(digest, store.FuncID(fn.QualifiedName()))
	}
}

// BuildPartial is Build's per-module equivalent for the worker-pool seed
// phase (internal/seed): it writes into a store.Partial instead of
// locking the shared Store directly.
func BuildPartial(p *store.Partial, fns []irmodel.Function, layout irmodel.DataLayout, addressTaken func(irmodel.Function) bool) {
	for _, fn := range fns {
		if fn.IsIntrinsic() {
			continue
		}
		if !addressTaken(fn) {
			continue
		}
		d := digest.FuncHash(fn, layout)
		p.AddSig(d, store.FuncID(fn.QualifiedName()))
	}
}
