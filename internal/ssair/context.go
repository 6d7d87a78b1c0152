package ssair

import (
	"reflect"

	"golang.org/x/tools/go/ssa"

	"github.com/goguard/mlta/internal/basetype"
	"github.com/goguard/mlta/internal/irmodel"
)

// NewContext builds the basetype.Context a single function's walks run
// under, backing the three oracles the core resolver needs (UsersOf,
// IsParam, StoredThrough) with go/ssa's own def-use info — the same
// Referrers()-based traversal the retrieval pack's other SSA consumers
// (e.g. the taint propagators in other_examples) use to walk def-use
// edges, rather than a hand-rolled use list.
//
// NewContext matches seed.ContextFactory's signature (irmodel.Function, not
// *ssa.Function) so it can be passed to seed.Run directly; fn must be one
// produced by this package's wrapFunction.
func NewContext(irFn irmodel.Function, layout irmodel.DataLayout, fieldInsensitive bool) *basetype.Context {
	fn := irFn.(funcWrap).fn
	params := make(map[*ssa.Parameter]bool, len(fn.Params))
	for _, p := range fn.Params {
		params[p] = true
	}

	return &basetype.Context{
		Layout:           layout,
		Alias:            BuildSSAAliasMap(fn),
		FieldInsensitive: fieldInsensitive,
		StoredThrough:    storedThroughOracle(fn),
		IsParam: func(v irmodel.Value) bool {
			w, ok := v.(rawSSAValue)
			if !ok {
				return false
			}
			p, ok := w.ssaValue().(*ssa.Parameter)
			return ok && params[p]
		},
		UsersOf: usersOf(fn),
	}
}

// usersOf returns the UsersOf oracle for fn: for every referrer of v, dispatch
// to the narrow wrapper confine.confineCallOperands type-switches on
// (StoreInst, CastInst), since a plain wrapValue would lose that distinction.
func usersOf(fn *ssa.Function) func(irmodel.Value) []irmodel.Value {
	return func(v irmodel.Value) []irmodel.Value {
		w, ok := v.(rawSSAValue)
		if !ok {
			return nil
		}
		refs := w.ssaValue().Referrers()
		if refs == nil {
			return nil
		}
		out := make([]irmodel.Value, 0, len(*refs))
		for _, r := range *refs {
			// *ssa.Store produces no result, so it is not itself an
			// ssa.Value; storeValueWrap satisfies both irmodel.Value and
			// irmodel.StoreInst so it can still sit in a []irmodel.Value.
			if st, ok := r.(*ssa.Store); ok {
				out = append(out, storeValueWrap{
					base:  base{pos: posOf(fn.Prog.Fset, st.Pos())},
					store: st,
				})
				continue
			}
			if wrapped := wrapInstr(r, fn, -1); wrapped != nil {
				if iv, ok := wrapped.(irmodel.Value); ok {
					out = append(out, iv)
				}
			}
		}
		return out
	}
}

// storeValueWrap lets a *ssa.Store (which produces no SSA result, so it is
// not an ssa.Value) satisfy irmodel.Value well enough to occupy a slot in a
// []irmodel.Value slice; Type/Name/ID are never consulted for the StoreInst
// case confine.go dispatches to, only Addr()/Val().
type storeValueWrap struct {
	base
	store *ssa.Store
}

func (w storeValueWrap) Addr() irmodel.Value { return wrapValue(w.store.Addr) }
func (w storeValueWrap) Val() irmodel.Value  { return wrapValue(w.store.Val) }
func (w storeValueWrap) Type() irmodel.Type  { return nil }
func (w storeValueWrap) Name() string        { return "" }
func (w storeValueWrap) ID() uintptr         { return reflect.ValueOf(w.store).Pointer() }

// storedThroughOracle reports, for a value v, whether v is ever used as the
// address operand of an *ssa.Store anywhere in fn (spec §4.3: "the terminal
// value is stored through").
func storedThroughOracle(fn *ssa.Function) basetype.StoreSink {
	return func(v irmodel.Value) bool {
		w, ok := v.(rawSSAValue)
		if !ok {
			return false
		}
		sv := w.ssaValue()
		refs := sv.Referrers()
		if refs == nil {
			return false
		}
		for _, r := range *refs {
			if st, ok := r.(*ssa.Store); ok && st.Addr == sv {
				return true
			}
		}
		return false
	}
}

// BuildSSAAliasMap is BuildAliasMap specialized to accept a *ssa.Function
// directly, so internal/seed's ContextFactory callback (which only sees
// irmodel.Function) can be wired without forcing internal/basetype to
// import go/ssa.
func BuildSSAAliasMap(fn *ssa.Function) basetype.AliasMap {
	return basetype.BuildAliasMap(wrapFunction(fn))
}
