package ssair

import (
	"reflect"

	"golang.org/x/tools/go/ssa"

	"github.com/goguard/mlta/internal/irmodel"
)

// value wraps any ssa.Value. Every concrete ssa.Value implementation is a
// pointer type, so reflect.Value.Pointer() gives a stable identity for the
// visited-set bookkeeping internal/basetype and internal/confine's walks
// rely on (irmodel.Value.ID).
type value struct{ v ssa.Value }

func (w value) Type() irmodel.Type { return wrapType(w.v.Type()) }
func (w value) Name() string       { return w.v.Name() }
func (w value) ID() uintptr        { return reflect.ValueOf(w.v).Pointer() }

// rawSSAValue lets context.go's def-use oracles (IsParam, UsersOf,
// StoredThrough) recover the underlying ssa.Value regardless of which
// irmodel.Value wrapper carries it: value and everything that embeds it
// (constWrap, funcValueWrap, globalWrap) get this for free, and callInst
// (which doesn't embed value, since a Go/Defer call has no result to back
// Type/Name) implements it separately in instr.go.
type rawSSAValue interface {
	ssaValue() ssa.Value
}

func (w value) ssaValue() ssa.Value { return w.v }

// wrapValue dispatches an ssa.Value to the narrowest irmodel.Value variant
// it denotes: a function reference becomes a FuncValue, a global becomes a
// Global, a compile-time constant becomes a Const, everything else is a
// plain Value.
func wrapValue(v ssa.Value) irmodel.Value {
	if v == nil {
		return nil
	}
	switch vv := v.(type) {
	case *ssa.Function:
		return funcValueWrap{value{v}, vv}
	case *ssa.MakeClosure:
		if fn, ok := vv.Fn.(*ssa.Function); ok {
			return funcValueWrap{value{v}, fn}
		}
		return value{v}
	case *ssa.Global:
		return globalWrap{value{v}, vv}
	case *ssa.Const:
		return constWrap{value{v}, vv}
	case *ssa.Call:
		return wrapCallValue(vv)
	default:
		return value{v}
	}
}

// wrapCallValue wraps a *ssa.Call reached as an operand (e.g. the source
// of a cast) into the same callInst shape wrapInstr produces for it on its
// own block, so a predicate like the Alias Recovery module's isCallResult
// (spec §4.6) sees an irmodel.CallInst regardless of whether the call was
// reached via Function.Instructions() or as another instruction's operand.
// Built directly rather than through wrapCall: wrapCall's copy-builtin
// special case returns a memcpyInst, which doesn't implement irmodel.Value,
// and a builtin call's int result is never a byte-pointer alias source
// anyway.
func wrapCallValue(v *ssa.Call) irmodel.Value {
	b := base{pos: posOf(v.Parent().Prog.Fset, v.Pos())}
	if blk := v.Block(); blk != nil {
		b.block = blk.Index
	}
	_, intrinsic := v.Common().Value.(*ssa.Builtin)
	return callInst{base: b, common: v.Common(), result: v, intrinsic: intrinsic}
}

type constWrap struct {
	value
	c *ssa.Const
}

func (w constWrap) IsNil() bool { return w.c.IsNil() }

type funcValueWrap struct {
	value
	fn *ssa.Function
}

func (w funcValueWrap) Func() irmodel.Function { return wrapFunction(w.fn) }

type globalWrap struct {
	value
	g *ssa.Global
}

func (w globalWrap) QualifiedName() string { return qualifiedGlobalName(w.g) }

func qualifiedGlobalName(g *ssa.Global) string {
	if g.Pkg != nil && g.Pkg.Pkg != nil {
		return g.Pkg.Pkg.Path() + "." + g.Name()
	}
	return g.Name()
}

func wrapValues(vs []ssa.Value) []irmodel.Value {
	out := make([]irmodel.Value, len(vs))
	for i, v := range vs {
		out[i] = wrapValue(v)
	}
	return out
}
