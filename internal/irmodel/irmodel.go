// Package irmodel defines the whole-program IR contract the MLTA core
// consumes. It owns no IR itself — loading, parsing, and SSA construction
// are external collaborators (see internal/ssair for the concrete Go
// adapter); the core packages (digest, basetype, confine, store, resolver)
// depend only on these interfaces.
package irmodel

// Kind classifies a Type the way the spec's type model distinguishes
// pointers, integers, structures, arrays, vectors, and function types.
type Kind int

const (
	KindBasic Kind = iota
	KindPointer
	KindNamed
	KindStruct
	KindArray
	KindSlice
	KindMap
	KindChan
	KindInterface
	KindSignature
	KindTuple
)

func (k Kind) String() string {
	switch k {
	case KindBasic:
		return "Basic"
	case KindPointer:
		return "Pointer"
	case KindNamed:
		return "Named"
	case KindStruct:
		return "Struct"
	case KindArray:
		return "Array"
	case KindSlice:
		return "Slice"
	case KindMap:
		return "Map"
	case KindChan:
		return "Chan"
	case KindInterface:
		return "Interface"
	case KindSignature:
		return "Signature"
	case KindTuple:
		return "Tuple"
	default:
		return "Unknown"
	}
}

// Type is the minimal structural surface the Type Digest needs from every
// type kind. Concrete kinds narrow via the interfaces below; callers
// type-switch on Kind() rather than on the concrete Go type.
type Type interface {
	Kind() Kind
	String() string
}

// PointerType is a pointer to Elem.
type PointerType interface {
	Type
	Elem() Type
}

// NamedType is a defined (named) type with an underlying representation.
// Two NamedTypes with the same Name and same package path are the
// "named structures with the same name" case of fuzzy signature equality.
type NamedType interface {
	Type
	Name() string
	PkgPath() string
	Underlying() Type
}

// StructField describes one field of a StructType.
type StructField struct {
	Name string
	Type Type
}

// StructType is a composite aggregate with an ordered field list.
type StructType interface {
	Type
	NumFields() int
	Field(i int) StructField
}

// ArrayType is a fixed-length homogeneous aggregate (the spec's "array").
type ArrayType interface {
	Type
	Len() int64
	Elem() Type
}

// SliceType is a variable-length homogeneous aggregate (the spec's
// "vector" — Go has no SIMD vector type, so slice plays that
// structurally-distinct role: same element-typed-sequence shape as Array,
// digest-distinguishable from it).
type SliceType interface {
	Type
	Elem() Type
}

// MapType, ChanType round out the composite kinds Go SSA can produce.
type MapType interface {
	Type
	Key() Type
	Elem() Type
}

type ChanType interface {
	Type
	Elem() Type
}

// InterfaceType exposes its method set for fuzzy-equality and
// confinement bookkeeping (method sets are not otherwise consulted by
// MLTA — interface satisfaction is a supplemented side-table, not an
// input to layered resolution).
type InterfaceType interface {
	Type
	NumMethods() int
	Method(i int) string
	Empty() bool
}

// SignatureType is a function type: the shape callHash/funcHash digest.
type SignatureType interface {
	Type
	NumParams() int
	Param(i int) Type
	NumResults() int
	Result(i int) Type
	Variadic() bool
	HasRecv() bool
	Recv() Type
}

// BasicType covers integers, floats, bools, strings, and the generic byte
// pointer (unsafe.Pointer plays void*/char*'s role).
type BasicType interface {
	Type
	BitWidth() int
	IsInteger() bool
	IsBytePointer() bool
}

// DataLayout lets the Base-Type Resolver reconstruct a GEP-style index
// chain from a raw byte offset, and lets digests stay comparable only
// across modules that agree on layout.
type DataLayout interface {
	WordBits() int
	Sizeof(t Type) int64
	Alignof(t Type) int64
	// FieldIndexFromOffset returns the field of st whose byte offset
	// within st equals offset, if any such field starts exactly there.
	FieldIndexFromOffset(st StructType, offset int64) (index int, ok bool)
}

// Value is anything an instruction can operate on or produce: SSA values,
// parameters, constants, and globals all implement it.
type Value interface {
	Type() Type
	Name() string
	// ID is a stable-within-module identity for visited-set bookkeeping;
	// it need not be meaningful outside the owning Function.
	ID() uintptr
}

// Const is a compile-time constant value, including the null/nil case.
type Const interface {
	Value
	IsNil() bool
}

// FuncValue is a Value that denotes the address of a Function: this is
// the spec's "address-taken function" detector — any FuncValue observed
// outside the callee position of a direct call makes that Function
// address-taken.
type FuncValue interface {
	Value
	Func() Function
}

// Instruction is the common supertype for every IR operation the
// confinement/propagation/base-type walks dispatch on. Walks type-switch
// on the narrower interfaces below (Load, Store, Cast, Phi, FieldAccess,
// Call) rather than enumerating concrete kinds, per the tagged-variant
// dispatch pattern.
type Instruction interface {
	Block() int
	Pos() Position
}

// Position is a source location, threaded through purely for reporting
// (call-site reports) — never consulted by the algorithm itself.
type Position struct {
	File string
	Line int
	Col  int
}

func (p Position) Valid() bool { return p.File != "" }

// LoadInst dereferences Pointer. Maps to a *ssa.UnOp with Op == token.MUL.
type LoadInst interface {
	Instruction
	Value
	Pointer() Value
}

// CastInst is a reinterpret/convert/interface-wrap operation that recurses
// into Operand without adding a slot key: ssa.ChangeType, ssa.Convert,
// ssa.ChangeInterface, ssa.MakeInterface, ssa.SliceToArrayPointer.
type CastInst interface {
	Instruction
	Value
	Operand() Value
}

// UnaryInst covers unary SSA ops that are not loads (e.g. negation) —
// present so nextLayerBaseType's "unary: recurse into operand" case has
// somewhere to dispatch that is not conflated with Load.
type UnaryInst interface {
	Instruction
	Value
	Operand() Value
}

// PhiInst joins values from multiple predecessors.
type PhiInst interface {
	Instruction
	Value
	Edges() []Value
}

// FieldAccessInst is a composite field or index projection: FieldAddr,
// Field, IndexAddr, Index. Index == -1 means "index not statically known"
// (a runtime slice/array index), which the Base-Type Resolver treats as
// the wildcard field per the spec's slot-key convention.
type FieldAccessInst interface {
	Instruction
	Value
	Base() Value
	// BaseType is the composite type Base points to (for *Addr variants)
	// or holds (for value variants).
	BaseType() Type
	Index() int
	// IsAddr is true for the *Addr family (FieldAddr/IndexAddr), which
	// produce a pointer to the slot rather than its value.
	IsAddr() bool
}

// GEPInst is a multi-index access chain in one instruction (Go SSA never
// emits these — every access is single-index — but the interface exists
// so nextLayerBaseType's "every index in the access path" rule has a
// well-defined multi-key emission point if an adapter ever needs it).
type GEPInst interface {
	Instruction
	Value
	Base() Value
	Indices() []int
}

// StoreInst writes Val into the memory addressed by Addr.
type StoreInst interface {
	Instruction
	Addr() Value
	Val() Value
}

// CallInst is a call, go statement, or deferred call. StaticCallee is nil
// for an indirect call (the callee is a first-class function value).
type CallInst interface {
	Instruction
	Value
	Callee() Value
	StaticCallee() Function
	Args() []Value
	IsGo() bool
	IsDefer() bool
	IsIntrinsic() bool
}

// MemcpyInst models a bulk aggregate copy — Go's analog is a whole
// struct/array ssa.Store or a copy() builtin call, not a separate
// instruction, but the resolver treats it identically to the spec's
// memcpy-intrinsic case: operand 1 flows into operand 0.
type MemcpyInst interface {
	Instruction
	Dst() Value
	Src() Value
}

// Function is a Go function, method, or closure.
type Function interface {
	// QualifiedName is stable and unique within a Module; used as the
	// Callee set's element identity.
	QualifiedName() string
	Signature() SignatureType
	Params() []Value
	IsIntrinsic() bool
	IsVariadic() bool
	// HasBody is false for external/declared-only functions.
	HasBody() bool
	Instructions() []Instruction
	Pos() Position
}

// Global is a package-level variable, the root of a possible confinement
// initializer tree.
type Global interface {
	Value
	QualifiedName() string
}

// Module is one compilation unit's worth of functions and globals, sharing
// one DataLayout.
type Module interface {
	Functions() []Function
	Globals() []Global
	Layout() DataLayout
}
