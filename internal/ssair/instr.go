package ssair

import (
	"go/token"
	"go/types"

	"golang.org/x/tools/go/ssa"

	"github.com/goguard/mlta/internal/irmodel"
)

func posOf(fset *token.FileSet, p token.Pos) irmodel.Position {
	if !p.IsValid() || fset == nil {
		return irmodel.Position{}
	}
	pp := fset.Position(p)
	return irmodel.Position{File: pp.Filename, Line: pp.Line, Col: pp.Column}
}

// base carries the Instruction half (Block/Pos) shared by every wrapper
// below.
type base struct {
	block int
	pos   irmodel.Position
}

func (b base) Block() int            { return b.block }
func (b base) Pos() irmodel.Position { return b.pos }

// wrapInstr dispatches one ssa.Instruction to the narrowest irmodel
// wrapper it denotes. Instructions with no special dispatch role (ssa.If,
// ssa.Jump, ssa.Return, ssa.Panic, ssa.RunDefers, ssa.Select, ...) return a
// genericInstr so Instructions() still reports them, even though no
// resolver pass type-switches on them specifically.
func wrapInstr(instr ssa.Instruction, fn *ssa.Function, block int) irmodel.Instruction {
	b := base{block: block, pos: posOf(fn.Prog.Fset, instr.Pos())}

	switch v := instr.(type) {
	case *ssa.UnOp:
		if v.Op == token.MUL {
			return loadInst{base: b, value: value{v}, ptr: v.X}
		}
		return unaryInst{base: b, value: value{v}, operand: v.X}
	case *ssa.ChangeType:
		return castInst{base: b, value: value{v}, operand: v.X}
	case *ssa.Convert:
		return castInst{base: b, value: value{v}, operand: v.X}
	case *ssa.ChangeInterface:
		return castInst{base: b, value: value{v}, operand: v.X}
	case *ssa.MakeInterface:
		return castInst{base: b, value: value{v}, operand: v.X}
	case *ssa.SliceToArrayPointer:
		return castInst{base: b, value: value{v}, operand: v.X}
	case *ssa.Phi:
		return phiInst{base: b, value: value{v}, edges: v.Edges}
	case *ssa.FieldAddr:
		return fieldAccessInst{base: b, value: value{v}, base_: v.X, index: v.Field, isAddr: true}
	case *ssa.Field:
		return fieldAccessInst{base: b, value: value{v}, base_: v.X, index: v.Field, isAddr: false}
	case *ssa.IndexAddr:
		return fieldAccessInst{base: b, value: value{v}, base_: v.X, index: -1, isAddr: true}
	case *ssa.Index:
		return fieldAccessInst{base: b, value: value{v}, base_: v.X, index: -1, isAddr: false}
	case *ssa.Store:
		return storeInst{base: b, addr: v.Addr, val: v.Val}
	case *ssa.Call:
		return wrapCall(b, v.Common(), v, false, false)
	case *ssa.Go:
		return wrapCall(b, v.Common(), nil, true, false)
	case *ssa.Defer:
		return wrapCall(b, v.Common(), nil, false, true)
	default:
		return genericInstr{base: b}
	}
}

type genericInstr struct{ base }

// loadInst: *ssa.UnOp with Op == token.MUL (spec §4.3: "load: recurse into
// the pointer operand without adding a slot").
type loadInst struct {
	base
	value
	ptr ssa.Value
}

func (w loadInst) Pointer() irmodel.Value { return wrapValue(w.ptr) }

// unaryInst covers every other *ssa.UnOp (NOT, ARROW non-commaok, etc.).
type unaryInst struct {
	base
	value
	operand ssa.Value
}

func (w unaryInst) Operand() irmodel.Value { return wrapValue(w.operand) }

// castInst covers ChangeType/Convert/ChangeInterface/MakeInterface/
// SliceToArrayPointer: every reinterpret/convert op the resolver recurses
// through transparently.
type castInst struct {
	base
	value
	operand ssa.Value
}

func (w castInst) Operand() irmodel.Value { return wrapValue(w.operand) }

type phiInst struct {
	base
	value
	edges []ssa.Value
}

func (w phiInst) Edges() []irmodel.Value { return wrapValues(w.edges) }

// fieldAccessInst covers FieldAddr/Field (statically indexed) and
// IndexAddr/Index (dynamically indexed, reported as the wildcard field
// per spec's slot-key convention).
type fieldAccessInst struct {
	base
	value
	base_  ssa.Value
	index  int
	isAddr bool
}

func (w fieldAccessInst) Base() irmodel.Value { return wrapValue(w.base_) }

// BaseType is the composite type Base points to for the *Addr family
// (FieldAddr/IndexAddr operate on a pointer to the aggregate) or holds
// directly for the value family (Field/Index operate on the aggregate
// itself).
func (w fieldAccessInst) BaseType() irmodel.Type {
	t := w.base_.Type()
	if w.isAddr {
		if pt, ok := t.Underlying().(*types.Pointer); ok {
			t = pt.Elem()
		}
	}
	return wrapType(t)
}

func (w fieldAccessInst) Index() int   { return w.index }
func (w fieldAccessInst) IsAddr() bool { return w.isAddr }

type storeInst struct {
	base
	addr ssa.Value
	val  ssa.Value
}

func (w storeInst) Addr() irmodel.Value { return wrapValue(w.addr) }
func (w storeInst) Val() irmodel.Value  { return wrapValue(w.val) }

type memcpyInst struct {
	base
	dst, src ssa.Value
}

func (w memcpyInst) Dst() irmodel.Value { return wrapValue(w.dst) }
func (w memcpyInst) Src() irmodel.Value { return wrapValue(w.src) }

// callInst covers ssa.Call, ssa.Go, ssa.Defer via their shared
// *ssa.CallCommon. ssa.Go/ssa.Defer produce no value, so Type/Name fall
// back to the zero value rather than delegating to a nonexistent result.
type callInst struct {
	base
	common    *ssa.CallCommon
	result    ssa.Value
	isGo      bool
	isDefer   bool
	intrinsic bool
}

func wrapCall(b base, cc *ssa.CallCommon, result ssa.Value, isGo, isDefer bool) irmodel.Instruction {
	if bi, ok := cc.Value.(*ssa.Builtin); ok {
		if bi.Name() == "copy" && len(cc.Args) == 2 {
			return memcpyInst{base: b, dst: cc.Args[0], src: cc.Args[1]}
		}
		return callInst{base: b, common: cc, result: result, isGo: isGo, isDefer: isDefer, intrinsic: true}
	}
	return callInst{base: b, common: cc, result: result, isGo: isGo, isDefer: isDefer}
}

func (w callInst) Type() irmodel.Type {
	if w.result == nil {
		return nil
	}
	return wrapType(w.result.Type())
}

func (w callInst) Name() string {
	if w.result == nil {
		return ""
	}
	return w.result.Name()
}

func (w callInst) ID() uintptr {
	if w.result != nil {
		return value{w.result}.ID()
	}
	return value{w.common.Value}.ID()
}

// Callee is the receiver for invoke-mode (interface method) calls and the
// function value for every other call form; both live in common.Value.
// Invoke-mode calls are treated as indirect (StaticCallee returns nil
// below) since the dispatched method is resolved by runtime interface
// type, not by a typed function-pointer slot the layered resolver walks.
func (w callInst) Callee() irmodel.Value { return wrapValue(w.common.Value) }

func (w callInst) StaticCallee() irmodel.Function {
	fn := w.common.StaticCallee()
	if fn == nil {
		return nil
	}
	return wrapFunction(fn)
}

func (w callInst) Args() []irmodel.Value { return wrapValues(w.common.Args) }
func (w callInst) IsGo() bool            { return w.isGo }
func (w callInst) IsDefer() bool         { return w.isDefer }
func (w callInst) IsIntrinsic() bool     { return w.intrinsic }

// ssaValue implements rawSSAValue (value.go) so context.go's def-use
// oracles can recover the underlying ssa.Value the same way they do for
// the plain value wrapper, mirroring ID()'s own result/common.Value
// fallback.
func (w callInst) ssaValue() ssa.Value {
	if w.result != nil {
		return w.result
	}
	return w.common.Value
}
