// Package ssair adapts golang.org/x/tools/go/ssa + go/types to the
// internal/irmodel contract, so the core MLTA packages (digest, basetype,
// confine, resolver) can run over real, loadable Go programs without ever
// importing go/ssa themselves.
//
// Grounded directly on the teacher's Compile pipeline shape
// (goguard-go-bridge/analyzer.go): packages.Load -> ssautil.AllPackages ->
// prog.Build(), and its TypeRegistry's one-map-per-program-run identity
// assignment. Where the teacher serializes a flat IR snapshot for a
// downstream process, this package instead wraps the live *ssa.Program
// objects behind irmodel's interfaces, so the analysis walks go/ssa
// directly rather than a re-hydrated copy of it.
package ssair

import (
	"go/types"

	"github.com/goguard/mlta/internal/irmodel"
)

// typ wraps a go/types.Type and satisfies irmodel.Type plus the narrower
// kind interfaces via embedding-free type assertions in Kind()'s callers
// (a single concrete struct handles every Kind — see kindOf).
type typ struct {
	t types.Type
}

func wrapType(t types.Type) irmodel.Type {
	if t == nil {
		return nil
	}
	return typ{t: t}
}

func (w typ) String() string { return w.t.String() }

func (w typ) Kind() irmodel.Kind { return kindOf(w.t) }

func kindOf(t types.Type) irmodel.Kind {
	switch u := t.(type) {
	case *types.Pointer:
		return irmodel.KindPointer
	case *types.Named:
		return irmodel.KindNamed
	case *types.Struct:
		return irmodel.KindStruct
	case *types.Array:
		return irmodel.KindArray
	case *types.Slice:
		return irmodel.KindSlice
	case *types.Map:
		return irmodel.KindMap
	case *types.Chan:
		return irmodel.KindChan
	case *types.Interface:
		return irmodel.KindInterface
	case *types.Signature:
		return irmodel.KindSignature
	case *types.Tuple:
		return irmodel.KindTuple
	case *types.Basic:
		if u.Kind() == types.UnsafePointer {
			return irmodel.KindBasic
		}
		return irmodel.KindBasic
	default:
		return irmodel.KindBasic
	}
}

// Elem implements irmodel.PointerType / SliceType / ArrayType / MapType /
// ChanType — whichever underlying go/types kind w wraps.
func (w typ) Elem() irmodel.Type {
	switch u := w.t.(type) {
	case *types.Pointer:
		return wrapType(u.Elem())
	case *types.Slice:
		return wrapType(u.Elem())
	case *types.Array:
		return wrapType(u.Elem())
	case *types.Map:
		return wrapType(u.Elem())
	case *types.Chan:
		return wrapType(u.Elem())
	}
	return nil
}

func (w typ) Key() irmodel.Type {
	if m, ok := w.t.(*types.Map); ok {
		return wrapType(m.Key())
	}
	return nil
}

func (w typ) Len() int64 {
	if a, ok := w.t.(*types.Array); ok {
		return a.Len()
	}
	return 0
}

func (w typ) Name() string {
	if n, ok := w.t.(*types.Named); ok {
		return n.Obj().Name()
	}
	return ""
}

func (w typ) PkgPath() string {
	if n, ok := w.t.(*types.Named); ok {
		if pkg := n.Obj().Pkg(); pkg != nil {
			return pkg.Path()
		}
	}
	return ""
}

func (w typ) Underlying() irmodel.Type {
	return wrapType(w.t.Underlying())
}

func (w typ) NumFields() int {
	if st, ok := underlyingStruct(w.t); ok {
		return st.NumFields()
	}
	return 0
}

func (w typ) Field(i int) irmodel.StructField {
	st, _ := underlyingStruct(w.t)
	f := st.Field(i)
	return irmodel.StructField{Name: f.Name(), Type: wrapType(f.Type())}
}

func underlyingStruct(t types.Type) (*types.Struct, bool) {
	st, ok := t.Underlying().(*types.Struct)
	return st, ok
}

func (w typ) NumMethods() int {
	it, ok := w.t.Underlying().(*types.Interface)
	if !ok {
		return 0
	}
	return it.NumMethods()
}

func (w typ) Method(i int) string {
	it := w.t.Underlying().(*types.Interface)
	return it.Method(i).Name()
}

func (w typ) Empty() bool {
	it, ok := w.t.Underlying().(*types.Interface)
	return ok && it.Empty()
}

func (w typ) signature() (*types.Signature, bool) {
	sig, ok := w.t.Underlying().(*types.Signature)
	return sig, ok
}

func (w typ) NumParams() int {
	sig, ok := w.signature()
	if !ok {
		return 0
	}
	return sig.Params().Len()
}

func (w typ) Param(i int) irmodel.Type {
	sig, _ := w.signature()
	return wrapType(sig.Params().At(i).Type())
}

func (w typ) NumResults() int {
	sig, ok := w.signature()
	if !ok {
		return 0
	}
	return sig.Results().Len()
}

func (w typ) Result(i int) irmodel.Type {
	sig, _ := w.signature()
	return wrapType(sig.Results().At(i).Type())
}

func (w typ) Variadic() bool {
	sig, ok := w.signature()
	return ok && sig.Variadic()
}

func (w typ) HasRecv() bool {
	sig, ok := w.signature()
	return ok && sig.Recv() != nil
}

func (w typ) Recv() irmodel.Type {
	sig, ok := w.signature()
	if !ok || sig.Recv() == nil {
		return nil
	}
	return wrapType(sig.Recv().Type())
}

func (w typ) BitWidth() int {
	bt, ok := w.t.Underlying().(*types.Basic)
	if !ok {
		return 0
	}
	return basicBitWidth(bt)
}

func basicBitWidth(bt *types.Basic) int {
	switch bt.Kind() {
	case types.Bool:
		return 1
	case types.Int8, types.Uint8:
		return 8
	case types.Int16, types.Uint16:
		return 16
	case types.Int32, types.Uint32, types.Float32:
		return 32
	case types.Int64, types.Uint64, types.Float64, types.Complex64:
		return 64
	case types.Complex128:
		return 128
	case types.Int, types.Uint, types.Uintptr:
		return 64
	default:
		return 0
	}
}

func (w typ) IsInteger() bool {
	bt, ok := w.t.Underlying().(*types.Basic)
	if !ok {
		return false
	}
	return bt.Info()&types.IsInteger != 0
}

func (w typ) IsBytePointer() bool {
	bt, ok := w.t.(*types.Basic)
	return ok && bt.Kind() == types.UnsafePointer
}
