package ssair

import (
	"golang.org/x/tools/go/ssa"

	"github.com/goguard/mlta/internal/irmodel"
)

type funcWrap struct {
	fn *ssa.Function
}

func wrapFunction(fn *ssa.Function) irmodel.Function {
	return funcWrap{fn: fn}
}

// QualifiedName uses ssa.Function's own RelString, which already produces
// a package-path-qualified, receiver-qualified name ("pkg.Func",
// "(*pkg.T).Method") stable within one *ssa.Program — the same role the
// teacher's TypeRegistry map-by-identity plays for types, but go/ssa gives
// this one to us directly for functions.
func (w funcWrap) QualifiedName() string { return w.fn.RelString(nil) }

func (w funcWrap) Signature() irmodel.SignatureType {
	return wrapType(w.fn.Signature).(irmodel.SignatureType)
}

func (w funcWrap) Params() []irmodel.Value {
	out := make([]irmodel.Value, len(w.fn.Params))
	for i, p := range w.fn.Params {
		out[i] = wrapValue(p)
	}
	return out
}

// IsIntrinsic is always false for a *ssa.Function: go/ssa's intrinsics
// (len, append, copy, print, ...) are *ssa.Builtin values, a distinct kind
// that never flows through a Function-typed slot.
func (w funcWrap) IsIntrinsic() bool { return false }

func (w funcWrap) IsVariadic() bool { return w.fn.Signature.Variadic() }

func (w funcWrap) HasBody() bool { return w.fn.Blocks != nil }

func (w funcWrap) Instructions() []irmodel.Instruction {
	var out []irmodel.Instruction
	for bi, b := range w.fn.Blocks {
		for _, instr := range b.Instrs {
			if wrapped := wrapInstr(instr, w.fn, bi); wrapped != nil {
				out = append(out, wrapped)
			}
		}
	}
	return out
}

func (w funcWrap) Pos() irmodel.Position {
	return posOf(w.fn.Prog.Fset, w.fn.Pos())
}
