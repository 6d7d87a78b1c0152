// Package basetype implements the Base-Type Resolver (spec §4.3) and
// Alias Recovery (spec §4.6): getBaseType, nextLayerBaseType, and
// getBaseTypeChain, all carrying their own per-walk visited set (spec §9
// design note: cyclic value graphs never blow the stack, a repeated visit
// returns "no chain").
//
// Grounded on the teacher's instruction dispatch in
// goguard-go-bridge/analyzer.go (serializeFunction's switch over
// ssa.Instruction concrete types) — this package performs the same kind
// of type-switch dispatch, but walks backward along def-use chains
// instead of forward over a block's instruction list.
package basetype

import (
	"github.com/goguard/mlta/internal/digest"
	"github.com/goguard/mlta/internal/irmodel"
	"github.com/goguard/mlta/internal/store"
)

// AliasMap records, per function, a unique cast from a byte-pointer
// call-result source value to the typed pointer it was cast to (spec
// §4.6). Ambiguous sources (more than one such cast) are absent from the
// map entirely.
type AliasMap map[irmodel.Value]irmodel.Value

// BuildAliasMap scans fn's instructions for casts from a generic byte
// pointer (unsafe.Pointer) whose operand is a call result, into a typed
// pointer to a composite. When more than one such cast shares a source,
// the entry is dropped (ambiguous), exactly as spec'd.
func BuildAliasMap(fn irmodel.Function) AliasMap {
	candidates := make(map[irmodel.Value][]irmodel.Value)
	for _, instr := range fn.Instructions() {
		cast, ok := instr.(irmodel.CastInst)
		if !ok {
			continue
		}
		operand := cast.Operand()
		if operand == nil {
			continue
		}
		if _, isBytePtr := bytePointerOperand(operand); !isBytePtr {
			continue
		}
		if !isCallResult(operand) {
			continue
		}
		pt, ok := cast.Type().(irmodel.PointerType)
		if !ok || !isCompositeKind(pt.Elem()) {
			continue
		}
		candidates[operand] = append(candidates[operand], cast.(irmodel.Value))
	}

	out := make(AliasMap)
	for src, casts := range candidates {
		if len(casts) == 1 {
			out[src] = casts[0]
		}
		// len > 1: ambiguous, drop (spec §4.6).
	}
	return out
}

func bytePointerOperand(v irmodel.Value) (irmodel.BasicType, bool) {
	bt, ok := v.Type().(irmodel.BasicType)
	if ok && bt.IsBytePointer() {
		return bt, true
	}
	return nil, false
}

func isCallResult(v irmodel.Value) bool {
	_, ok := v.(irmodel.CallInst)
	return ok
}

func isCompositeKind(t irmodel.Type) bool {
	switch t.Kind() {
	case irmodel.KindStruct, irmodel.KindArray, irmodel.KindSlice,
		irmodel.KindMap, irmodel.KindChan, irmodel.KindInterface:
		return true
	case irmodel.KindNamed:
		return isCompositeKind(t.(irmodel.NamedType).Underlying())
	default:
		return false
	}
}

// StoreSink answers, for a value, whether it is ever used as the address
// operand of a store — used by GetBaseTypeChain to decide completeness
// (spec §4.3: "the terminal value is stored through").
type StoreSink func(v irmodel.Value) bool

// Context threads the per-function state the resolver needs: the data
// layout, this function's alias map, whether field-insensitive mode is
// active, and the completeness/def-use oracles.
type Context struct {
	Layout           irmodel.DataLayout
	Alias            AliasMap
	FieldInsensitive bool
	StoredThrough    StoreSink
	// IsParam reports whether v is one of the enclosing function's formal
	// parameters (spec: a chain ending at a pointer-typed parameter is
	// incomplete).
	IsParam func(v irmodel.Value) bool
	// UsersOf returns every instruction/value that consumes v as an
	// operand, used by the Confinement Collector to follow a callee's
	// formal parameter to its stores/casts (spec §4.4). Adapters back it
	// with def-use info (e.g. ssa.Value.Referrers()); nil means "no
	// users known".
	UsersOf func(v irmodel.Value) []irmodel.Value
}

func (c *Context) fieldIndex(i int) int {
	if c.FieldInsensitive {
		return 0
	}
	return i
}

// FieldIndex exposes fieldIndex's field-insensitivity collapsing to other
// packages (internal/confine's propagateType needs it when building a
// SlotKey from a caller-supplied field index rather than one discovered
// mid-walk).
func (c *Context) FieldIndex(i int) int {
	return c.fieldIndex(i)
}

// GetBaseType returns the composite base type visible at v's current
// memory layer, per spec §4.3.
func GetBaseType(ctx *Context, v irmodel.Value) (irmodel.Type, bool) {
	visited := make(map[uintptr]bool)
	return getBaseTypeRec(ctx, v, visited)
}

func getBaseTypeRec(ctx *Context, v irmodel.Value, visited map[uintptr]bool) (irmodel.Type, bool) {
	if v == nil {
		return nil, false
	}
	if visited[v.ID()] {
		return nil, false
	}
	visited[v.ID()] = true

	switch inst := v.(type) {
	case irmodel.CastInst:
		return getBaseTypeRec(ctx, inst.Operand(), visited)
	case irmodel.PhiInst:
		for _, e := range inst.Edges() {
			if t, ok := getBaseTypeRec(ctx, e, visited); ok {
				return t, true
			}
		}
		return nil, false
	case irmodel.LoadInst:
		return getBaseTypeRec(ctx, inst.Pointer(), visited)
	case irmodel.UnaryInst:
		return getBaseTypeRec(ctx, inst.Operand(), visited)
	}

	t := v.Type()
	if pt, ok := t.(irmodel.PointerType); ok {
		if isCompositeKind(pt.Elem()) {
			return pt.Elem(), true
		}
	}
	if isCompositeKind(t) {
		return t, true
	}
	if bt, ok := t.(irmodel.BasicType); ok && bt.IsBytePointer() {
		if alias, ok := ctx.Alias[v]; ok {
			// alias is always the cast BuildAliasMap found with Operand()
			// == v (spec §4.6), so recursing through getBaseTypeRec would
			// just walk the CastInst branch straight back to v and fail on
			// the visited guard. The recovered type is alias's own static
			// pointee type, not something to walk through further.
			if pt, ok := alias.Type().(irmodel.PointerType); ok && isCompositeKind(pt.Elem()) {
				return pt.Elem(), true
			}
		}
	}
	return nil, false
}

// NextLayerBaseType advances one memory layer outward from v, returning
// the chain of slot keys encountered (outermost first) and the value
// remaining at the end of the walk (spec §4.3).
func NextLayerBaseType(ctx *Context, v irmodel.Value) ([]store.SlotKey, irmodel.Value, bool) {
	visited := make(map[uintptr]bool)
	chain, next, ok := nextLayerRec(ctx, v, visited)
	if !ok {
		return nil, v, false
	}
	return reverseChain(chain), next, len(chain) > 0
}

// nextLayerRec returns the chain in walk order (innermost-encountered
// first); callers reverse before returning, per spec ("outermost first,
// reversed from walk order").
func nextLayerRec(ctx *Context, v irmodel.Value, visited map[uintptr]bool) ([]store.SlotKey, irmodel.Value, bool) {
	var keys []store.SlotKey
	cur := v
	for {
		if cur == nil {
			return keys, cur, len(keys) > 0
		}
		if visited[cur.ID()] {
			return keys, cur, len(keys) > 0
		}
		visited[cur.ID()] = true

		switch inst := cur.(type) {
		case irmodel.FieldAccessInst:
			bt := inst.BaseType()
			idx := inst.Index()
			if idx < 0 {
				idx = store.FieldWildcard
			} else if ok, recovered := recoverFromOffset(ctx, bt, idx); ok {
				idx = recovered
			} else if idx != 0 {
				// First index nonzero and layout could not confirm a
				// field boundary there: a downcast/out-of-bounds access
				// the spec's strict mode rejects outright.
				if ctx.Layout != nil {
					if _, isStruct := bt.(irmodel.StructType); isStruct {
						// heuristic mode: keep going with whatever index
						// the adapter supplied; strict mode callers
						// should have already rejected via the cap check
						// before reaching here.
					}
				}
			}
			if bt != nil {
				keys = append(keys, store.SlotKey{Type: digest.TypeHash(bt, ctx.Layout), Field: ctx.fieldIndex(idx)})
			}
			cur = inst.Base()
			continue
		case irmodel.GEPInst:
			bt := baseCompositeOf(inst.Base())
			for _, idx := range inst.Indices() {
				if bt == nil {
					break
				}
				keys = append(keys, store.SlotKey{Type: digest.TypeHash(bt, ctx.Layout), Field: ctx.fieldIndex(idx)})
			}
			cur = inst.Base()
			continue
		case irmodel.CastInst:
			cur = inst.Operand()
			continue
		case irmodel.UnaryInst:
			cur = inst.Operand()
			continue
		case irmodel.LoadInst:
			cur = inst.Pointer()
			continue
		case irmodel.PhiInst:
			var bestChain []store.SlotKey
			var bestNext irmodel.Value
			found := false
			for _, e := range inst.Edges() {
				subVisited := cloneVisited(visited)
				subChain, subNext, subOk := nextLayerRec(ctx, e, subVisited)
				if subOk && (!found || len(subChain) > len(bestChain)) {
					bestChain, bestNext, found = subChain, subNext, true
				}
			}
			if !found {
				return keys, cur, len(keys) > 0
			}
			keys = append(keys, bestChain...)
			return keys, bestNext, true
		default:
			return keys, cur, len(keys) > 0
		}
	}
}

func cloneVisited(v map[uintptr]bool) map[uintptr]bool {
	out := make(map[uintptr]bool, len(v))
	for k := range v {
		out[k] = true
	}
	return out
}

func reverseChain(chain []store.SlotKey) []store.SlotKey {
	out := make([]store.SlotKey, len(chain))
	for i, k := range chain {
		out[len(chain)-1-i] = k
	}
	return out
}

func baseCompositeOf(v irmodel.Value) irmodel.Type {
	t := v.Type()
	if pt, ok := t.(irmodel.PointerType); ok {
		return pt.Elem()
	}
	return t
}

// recoverFromOffset confirms idx only when bt is a struct, a layout is
// present, and idx is within bt's field count; it then returns idx
// unchanged. It does not consult the layout's byte offsets
// (FieldIndexFromOffset) and does not synthesize an index chain from a
// byte offset. Go's own FieldAddr/IndexAddr always carry a
// type-checker-verified index, so for go/ssa input the bounds check is
// all that applies.
func recoverFromOffset(ctx *Context, bt irmodel.Type, idx int) (bool, int) {
	st, ok := bt.(irmodel.StructType)
	if !ok || ctx.Layout == nil {
		return false, 0
	}
	if idx < 0 || idx >= st.NumFields() {
		return false, 0
	}
	return true, idx
}

// GetBaseTypeChain composes GetBaseType and repeated NextLayerBaseType
// calls into the full slot-key chain for v, plus a completeness flag
// (spec §4.3). An incomplete chain causes the last type on it to be added
// to the cap set.
func GetBaseTypeChain(ctx *Context, v irmodel.Value, out *store.Partial) ([]store.SlotKey, bool) {
	var chain []store.SlotKey

	cur := v
	layerChain, next, ok := NextLayerBaseType(ctx, cur)
	if !ok {
		// No GEP/cast layering at all: if v itself denotes a composite
		// directly (the "container is not a structure" / whole-object
		// case), treat it as the virtual field-0 slot.
		if bt, hasBt := GetBaseType(ctx, v); hasBt {
			chain = append(chain, store.SlotKey{Type: digest.TypeHash(bt, ctx.Layout), Field: ctx.fieldIndex(0)})
		}
		return finishChain(ctx, chain, v, out)
	}
	chain = append(chain, layerChain...)
	cur = next

	for {
		layerChain, next, ok := NextLayerBaseType(ctx, cur)
		if !ok {
			break
		}
		chain = append(chain, layerChain...)
		cur = next
	}
	return finishChain(ctx, chain, cur, out)
}

func finishChain(ctx *Context, chain []store.SlotKey, terminal irmodel.Value, out *store.Partial) ([]store.SlotKey, bool) {
	complete := terminal != nil
	if complete && ctx.IsParam != nil && ctx.IsParam(terminal) {
		if _, isPtr := terminal.Type().(irmodel.PointerType); isPtr {
			complete = false
		}
	}
	if complete && ctx.StoredThrough != nil && ctx.StoredThrough(terminal) {
		complete = false
	}
	if !complete && out != nil && len(chain) > 0 {
		// spec §4.3: "An incomplete chain causes the last type on it
		// to be added to the cap set" — chain is outermost-first and
		// we accumulate outward, so chain[0] is both "outermost" and
		// "the last type discovered by the walk".
		out.AddCap(chain[0].Type)
	}
	return chain, complete
}
