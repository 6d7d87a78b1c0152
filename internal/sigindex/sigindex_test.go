package sigindex

import (
	"testing"

	"github.com/goguard/mlta/internal/irmodel"
	"github.com/goguard/mlta/internal/irtest"
	"github.com/goguard/mlta/internal/store"
)

func TestFuzzyEqual_IdenticalBasicTypes(t *testing.T) {
	if !FuzzyEqual(irtest.Int32, irtest.Int32, irtest.DefaultLayout) {
		t.Fatal("a type must be fuzzy-equal to itself")
	}
}

func TestFuzzyEqual_PointerStrippingEqualLevels(t *testing.T) {
	a := irtest.Pointer{E: irtest.Int32}
	b := irtest.Pointer{E: irtest.Int32}
	if !FuzzyEqual(a, b, irtest.DefaultLayout) {
		t.Fatal("pointers to the same pointee should be fuzzy-equal after stripping one level")
	}
}

func TestFuzzyEqual_PointerStrippingUnequalLevelsFails(t *testing.T) {
	a := irtest.Pointer{E: irtest.Pointer{E: irtest.Int32}}
	b := irtest.Pointer{E: irtest.Int32}
	if FuzzyEqual(a, b, irtest.DefaultLayout) {
		t.Fatal("double pointer must not be fuzzy-equal to a single pointer to the same base type")
	}
}

func TestFuzzyEqual_NamedStructsSameNameCompatible(t *testing.T) {
	u1 := irtest.Struct{Fs: []irmodel.StructField{{Name: "X", Type: irtest.Int32}}}
	u2 := irtest.Struct{Fs: []irmodel.StructField{{Name: "X", Type: irtest.Int64}, {Name: "Y", Type: irtest.BoolT}}}
	a := irtest.Named{N: "Widget", Pkg: "pkg", U: u1}
	b := irtest.Named{N: "Widget", Pkg: "pkg", U: u2}

	if !FuzzyEqual(a, b, irtest.DefaultLayout) {
		t.Fatal("named types sharing a name and package are compatible regardless of underlying shape")
	}
}

func TestFuzzyEqual_NamedStructsDifferentNameIncompatible(t *testing.T) {
	a := irtest.Named{N: "Widget", Pkg: "pkg"}
	b := irtest.Named{N: "Gadget", Pkg: "pkg"}
	if FuzzyEqual(a, b, irtest.DefaultLayout) {
		t.Fatal("differently-named types should not be fuzzy-equal")
	}
}

func TestFuzzyEqual_IntegerWidthMatchAcrossDistinctTypes(t *testing.T) {
	other := irtest.Basic{N: "myint32", Bits: 32, Int: true}
	if !FuzzyEqual(irtest.Int32, other, irtest.DefaultLayout) {
		t.Fatal("two distinct integer types of equal bit width must be fuzzy-equal")
	}
}

func TestFuzzyEqual_IntegerWidthMismatchIncompatible(t *testing.T) {
	if FuzzyEqual(irtest.Int32, irtest.Int64, irtest.DefaultLayout) {
		t.Fatal("integers of differing bit width must not be fuzzy-equal")
	}
}

func TestFuzzyEqual_GenericBytePointerMatchesAnyPointer(t *testing.T) {
	ptr := irtest.Pointer{E: irtest.Int32}
	if !FuzzyEqual(irtest.UnsafePointer, ptr, irtest.DefaultLayout) {
		t.Fatal("unsafe.Pointer must be fuzzy-equal to any concrete pointer type")
	}
	if !FuzzyEqual(ptr, irtest.UnsafePointer, irtest.DefaultLayout) {
		t.Fatal("fuzzy equality must be symmetric for the generic-byte-pointer case")
	}
}

func TestFuzzyEqual_GenericBytePointerMatchesWordWidthInt(t *testing.T) {
	if !FuzzyEqual(irtest.UnsafePointer, irtest.Uintptr, irtest.DefaultLayout) {
		t.Fatal("unsafe.Pointer must be fuzzy-equal to a word-width integer such as uintptr")
	}
}

func TestFuzzyEqual_GenericBytePointerRejectsNarrowerInt(t *testing.T) {
	if FuzzyEqual(irtest.UnsafePointer, irtest.Int32, irtest.DefaultLayout) {
		t.Fatal("unsafe.Pointer must not match an integer narrower than the word size")
	}
}

func TestSignatureCompatible_ExactArityAndTypes(t *testing.T) {
	call := irtest.Signature{Params: []irmodel.Type{irtest.Int32, irtest.StringT}, Results: []irmodel.Type{irtest.BoolT}}
	fn := irtest.Signature{Params: []irmodel.Type{irtest.Int32, irtest.StringT}, Results: []irmodel.Type{irtest.BoolT}}

	if !SignatureCompatible(call, fn, false, irtest.DefaultLayout) {
		t.Fatal("identical fixed-arity signatures should be compatible")
	}
}

func TestSignatureCompatible_ArityMismatchRejected(t *testing.T) {
	call := irtest.Signature{Params: []irmodel.Type{irtest.Int32}}
	fn := irtest.Signature{Params: []irmodel.Type{irtest.Int32, irtest.StringT}}

	if SignatureCompatible(call, fn, false, irtest.DefaultLayout) {
		t.Fatal("fixed-arity signatures of differing param count must be rejected")
	}
}

func TestSignatureCompatible_VariadicPrefixMatch(t *testing.T) {
	call := irtest.Signature{Params: []irmodel.Type{irtest.Int32, irtest.StringT, irtest.BoolT}}
	fn := irtest.Signature{Params: []irmodel.Type{irtest.Int32, irtest.StringT}}

	if !SignatureCompatible(call, fn, true, irtest.DefaultLayout) {
		t.Fatal("a call with extra trailing args should match a variadic callee's fixed prefix")
	}
}

func TestSignatureCompatible_VariadicCallShorterThanFixedRejected(t *testing.T) {
	call := irtest.Signature{Params: []irmodel.Type{irtest.Int32}}
	fn := irtest.Signature{Params: []irmodel.Type{irtest.Int32, irtest.StringT}}

	if SignatureCompatible(call, fn, true, irtest.DefaultLayout) {
		t.Fatal("a call with fewer args than the variadic callee's fixed prefix must be rejected")
	}
}

func TestSignatureCompatible_ResultMismatchRejected(t *testing.T) {
	call := irtest.Signature{Results: []irmodel.Type{irtest.BoolT}}
	fn := irtest.Signature{Results: []irmodel.Type{irtest.Int32}}

	if SignatureCompatible(call, fn, false, irtest.DefaultLayout) {
		t.Fatal("mismatched result types must be rejected")
	}
}

func TestBuild_SkipsIntrinsicsAndNonAddressTaken(t *testing.T) {
	s := store.New()
	sig := irtest.Signature{Params: []irmodel.Type{irtest.Int32}}
	fns := []irmodel.Function{
		irtest.Function{Name: "pkg.Taken", Sig: sig},
		irtest.Function{Name: "pkg.NotTaken", Sig: sig},
		irtest.Function{Name: "pkg.Intrinsic", Sig: sig, Intrinsic: true},
	}

	addressTaken := func(fn irmodel.Function) bool {
		return fn.QualifiedName() == "pkg.Taken" || fn.QualifiedName() == "pkg.Intrinsic"
	}

	Build(s, fns, irtest.DefaultLayout, addressTaken)

	all := s.AllFuncs()
	if _, ok := all[store.FuncID("pkg.Taken")]; !ok {
		t.Error("expected the address-taken, non-intrinsic function to be indexed")
	}
	if _, ok := all[store.FuncID("pkg.NotTaken")]; ok {
		t.Error("a function whose address was never taken must not be indexed")
	}
	if _, ok := all[store.FuncID("pkg.Intrinsic")]; ok {
		t.Error("an intrinsic must never be indexed even if address-taken")
	}
}

func TestBuildPartial_MergesIntoStoreViaMerge(t *testing.T) {
	s := store.New()
	p := store.NewPartial()
	sig := irtest.Signature{Params: []irmodel.Type{irtest.Int32}}
	fns := []irmodel.Function{irtest.Function{Name: "pkg.F", Sig: sig}}

	BuildPartial(p, fns, irtest.DefaultLayout, func(irmodel.Function) bool { return true })
	s.Merge(p)

	all := s.AllFuncs()
	if _, ok := all[store.FuncID("pkg.F")]; !ok {
		t.Fatal("expected BuildPartial's signature entry to survive a Merge into the shared store")
	}
}
