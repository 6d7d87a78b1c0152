package confine

import (
	"github.com/goguard/mlta/internal/basetype"
	"github.com/goguard/mlta/internal/digest"
	"github.com/goguard/mlta/internal/irmodel"
	"github.com/goguard/mlta/internal/store"
)

// PropInFunction implements typePropInFunction (spec §4.5): stores whose
// stored value is not a function and not a constant aggregate, and
// memory-copy operations, are processed as (destination, source) pairs
// and routed through propagateType/escapeType.
func PropInFunction(fn irmodel.Function, ctx *basetype.Context, out *store.Partial) {
	for _, instr := range fn.Instructions() {
		switch v := instr.(type) {
		case irmodel.StoreInst:
			if _, _, isFunc := resolveStoredFunction(v.Val()); isFunc {
				continue
			}
			if isConstantAggregate(v.Val()) {
				continue
			}
			propagatePair(v.Addr(), v.Val(), ctx, out)
		case irmodel.MemcpyInst:
			propagatePair(v.Dst(), v.Src(), ctx, out)
		}
	}
}

func isConstantAggregate(v irmodel.Value) bool {
	c, ok := v.(irmodel.Const)
	if !ok {
		return false
	}
	return isCompositeKind(c.Type())
}

// propagatePair implements the destination/source dispatch in spec §4.5:
//  1. nextLayerBaseType(source) chain -> propagateType for every slot.
//  2. else getBaseType(source) composite B -> propagateType(dest, B, 0).
//  3. else source is a non-address-taken function-pointer-typed value
//     -> propagateType(dest, funcType(source), 0).
//  4. else source is pointer-typed at all -> escapeType(dest).
func propagatePair(dest, source irmodel.Value, ctx *basetype.Context, out *store.Partial) {
	if chain, _, ok := basetype.NextLayerBaseType(ctx, source); ok {
		for _, slot := range chain {
			propagateType(dest, slot.Type, slot.Field, ctx, out)
		}
		return
	}
	if b, ok := basetype.GetBaseType(ctx, source); ok {
		propagateType(dest, digest.TypeHash(b, ctx.Layout), 0, ctx, out)
		return
	}
	if sig, ok := source.Type().(irmodel.SignatureType); ok {
		if _, isFunc := source.(irmodel.FuncValue); !isFunc {
			propagateType(dest, digest.TypeHash(sig, ctx.Layout), 0, ctx, out)
			return
		}
	}
	if _, isPtr := source.Type().(irmodel.PointerType); isPtr {
		escapeType(dest, ctx, out)
	}
}

// propagateType implements spec §4.5 propagateType(destV, fromT, fromI):
// compute destV's base-type chain and add a propagation edge from every
// slot on it (other than the source slot itself) to (fromT, fromI).
func propagateType(destV irmodel.Value, fromT store.TypeDigest, fromI int, ctx *basetype.Context, out *store.Partial) {
	from := store.SlotKey{Type: fromT, Field: ctx.FieldIndex(fromI)}
	chain, _ := basetype.GetBaseTypeChain(ctx, destV, out)
	for _, to := range chain {
		out.AddProp(to, from)
	}
}

// escapeType implements spec §4.5 escapeType(v): every slot on v's
// base-type chain is added to the escape set.
func escapeType(v irmodel.Value, ctx *basetype.Context, out *store.Partial) {
	chain, _ := basetype.GetBaseTypeChain(ctx, v, out)
	for _, slot := range chain {
		out.AddEscape(slot)
	}
}
