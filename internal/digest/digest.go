// Package digest implements the Type Digest component (spec §4.1): a
// stable content hash of IR types and ⟨type, field-index⟩ pairs, computed
// under a fixed data layout so digests are only meaningfully comparable
// across modules that agree on it.
//
// Grounded on the teacher's TypeRegistry (goguard-go-bridge/analyzer.go),
// which assigns a stable ID per types.Type via a map keyed by identity;
// this package instead derives the ID from structural *content* so that
// two structurally identical types — including anonymous structs with the
// same field sequence, per spec §4.1 — collide to the same digest without
// needing a shared registry. Hashing uses xxhash (cespare/xxhash/v2,
// already present in the retrieval pack) rather than hash/fnv for speed
// under whole-program seeding.
package digest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/goguard/mlta/internal/irmodel"
	"github.com/goguard/mlta/internal/store"
)

// TypeHash computes H(T) under layout L (spec §4.1 typeHash).
func TypeHash(t irmodel.Type, layout irmodel.DataLayout) store.TypeDigest {
	var b strings.Builder
	writeType(&b, t, layout, make(map[string]bool))
	return store.TypeDigest(xxhash.Sum64String(b.String()))
}

// TypeIdxHash computes the digest of slot key (T, i), distinct from any
// plain type digest by construction (the "#slot#" separator cannot appear
// in a type's structural encoding).
func TypeIdxHash(t irmodel.Type, layout irmodel.DataLayout, field int) store.TypeDigest {
	var b strings.Builder
	writeType(&b, t, layout, make(map[string]bool))
	b.WriteString("#slot#")
	b.WriteString(strconv.Itoa(field))
	return store.TypeDigest(xxhash.Sum64String(b.String()))
}

// SlotDigest is a convenience wrapper producing a full store.SlotKey.
func SlotDigest(t irmodel.Type, layout irmodel.DataLayout, field int) store.SlotKey {
	return store.SlotKey{Type: TypeHash(t, layout), Field: field}
}

// CallHash computes the digest of the signature observed at a call site.
// It takes the signature itself; stripping a pointer-to-signature callee
// type down to the bare signature is done by the caller
// (internal/resolver's calleeSignature).
func CallHash(sig irmodel.SignatureType, layout irmodel.DataLayout) store.CallSigDigest {
	return store.CallSigDigest(signatureHash(sig, layout))
}

// FuncHash computes a function's signature digest under the same scheme
// as CallHash, so CallHash(CI) == FuncHash(F) whenever a call to F's
// signature shape is possible (spec §4.1 contract).
func FuncHash(fn irmodel.Function, layout irmodel.DataLayout) store.CallSigDigest {
	return store.CallSigDigest(signatureHash(fn.Signature(), layout))
}

func signatureHash(sig irmodel.SignatureType, layout irmodel.DataLayout) uint64 {
	var b strings.Builder
	b.WriteString("fn(")
	for i := 0; i < sig.NumParams(); i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		writeType(&b, sig.Param(i), layout, make(map[string]bool))
	}
	if sig.Variadic() {
		b.WriteString(";...")
	}
	b.WriteString(")->(")
	for i := 0; i < sig.NumResults(); i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		writeType(&b, sig.Result(i), layout, make(map[string]bool))
	}
	b.WriteByte(')')
	return xxhash.Sum64String(b.String())
}

// writeType writes a structural encoding of t into b. visited breaks
// cycles through recursive named types (a struct containing a pointer to
// itself) by emitting a back-reference marker instead of recursing again
// — matching the spec §9 design note that every recursive walk carries
// its own visited set. It is keyed by the named type's String() form, so
// irmodel.Type implementations that are not valid map keys are accepted.
func writeType(b *strings.Builder, t irmodel.Type, layout irmodel.DataLayout, visited map[string]bool) {
	if t == nil {
		b.WriteString("<nil>")
		return
	}
	switch t.Kind() {
	case irmodel.KindBasic:
		bt := t.(irmodel.BasicType)
		if bt.IsBytePointer() {
			b.WriteString("byteptr")
			return
		}
		fmt.Fprintf(b, "basic:%d:%v", bt.BitWidth(), bt.IsInteger())
	case irmodel.KindPointer:
		pt := t.(irmodel.PointerType)
		b.WriteString("ptr<")
		writeType(b, pt.Elem(), layout, visited)
		b.WriteByte('>')
	case irmodel.KindNamed:
		nt := t.(irmodel.NamedType)
		// A named type's digest is its qualified name plus its
		// underlying shape: two distinct named types with identical
		// underlying structs must NOT collide (spec: "structures with
		// names ... must all be distinguishable"), but recursing into
		// the underlying keeps anonymous-vs-named comparable where the
		// spec calls for it (fuzzy equality, not digest equality, is
		// what treats two same-named structs as compatible).
		fmt.Fprintf(b, "named:%s.%s<", nt.PkgPath(), nt.Name())
		key := "named:" + nt.PkgPath() + "|" + t.String()
		if visited[key] {
			b.WriteString("...>")
			return
		}
		visited[key] = true
		writeType(b, nt.Underlying(), layout, visited)
		b.WriteByte('>')
	case irmodel.KindStruct:
		st := t.(irmodel.StructType)
		b.WriteString("struct{")
		for i := 0; i < st.NumFields(); i++ {
			if i > 0 {
				b.WriteByte(';')
			}
			f := st.Field(i)
			b.WriteString(f.Name)
			b.WriteByte(':')
			writeType(b, f.Type, layout, visited)
		}
		b.WriteByte('}')
	case irmodel.KindArray:
		at := t.(irmodel.ArrayType)
		fmt.Fprintf(b, "array[%d]<", at.Len())
		writeType(b, at.Elem(), layout, visited)
		b.WriteByte('>')
	case irmodel.KindSlice:
		st := t.(irmodel.SliceType)
		b.WriteString("slice<")
		writeType(b, st.Elem(), layout, visited)
		b.WriteByte('>')
	case irmodel.KindMap:
		mt := t.(irmodel.MapType)
		b.WriteString("map<")
		writeType(b, mt.Key(), layout, visited)
		b.WriteByte(',')
		writeType(b, mt.Elem(), layout, visited)
		b.WriteByte('>')
	case irmodel.KindChan:
		ct := t.(irmodel.ChanType)
		b.WriteString("chan<")
		writeType(b, ct.Elem(), layout, visited)
		b.WriteByte('>')
	case irmodel.KindInterface:
		it := t.(irmodel.InterfaceType)
		b.WriteString("iface{")
		for i := 0; i < it.NumMethods(); i++ {
			if i > 0 {
				b.WriteByte(';')
			}
			b.WriteString(it.Method(i))
		}
		b.WriteByte('}')
	case irmodel.KindSignature:
		st := t.(irmodel.SignatureType)
		b.WriteString("fn(")
		for i := 0; i < st.NumParams(); i++ {
			if i > 0 {
				b.WriteByte(',')
			}
			writeType(b, st.Param(i), layout, visited)
		}
		if st.Variadic() {
			b.WriteString(";...")
		}
		b.WriteString(")->(")
		for i := 0; i < st.NumResults(); i++ {
			if i > 0 {
				b.WriteByte(',')
			}
			writeType(b, st.Result(i), layout, visited)
		}
		b.WriteByte(')')
	case irmodel.KindTuple:
		b.WriteString("tuple:")
		b.WriteString(t.String())
	default:
		b.WriteString("unknown:")
		b.WriteString(t.String())
	}
}
