// Package irtest provides small hand-built fakes for the irmodel type
// contract, used by unit tests that exercise type-digesting and
// signature-matching logic without needing a compiled Go program behind
// them. Grounded in the teacher's own testing style (stdlib testing,
// hand-written fixtures, no mocking library) — these are plain structs,
// not a generated mock.
package irtest

import "github.com/goguard/mlta/internal/irmodel"

type Basic struct {
	N        string
	Bits     int
	Int      bool
	BytePtr  bool
}

func (b Basic) Kind() irmodel.Kind  { return irmodel.KindBasic }
func (b Basic) String() string      { return b.N }
func (b Basic) BitWidth() int       { return b.Bits }
func (b Basic) IsInteger() bool     { return b.Int }
func (b Basic) IsBytePointer() bool { return b.BytePtr }

var (
	Int32  = Basic{N: "int32", Bits: 32, Int: true}
	Int64  = Basic{N: "int64", Bits: 64, Int: true}
	Uintptr = Basic{N: "uintptr", Bits: 64, Int: true}
	UnsafePointer = Basic{N: "unsafe.Pointer", Bits: 64, BytePtr: true}
	StringT = Basic{N: "string"}
	BoolT   = Basic{N: "bool"}
)

type Pointer struct{ E irmodel.Type }

func (p Pointer) Kind() irmodel.Kind { return irmodel.KindPointer }
func (p Pointer) String() string     { return "*" + p.E.String() }
func (p Pointer) Elem() irmodel.Type { return p.E }

type Named struct {
	N    string
	Pkg  string
	U    irmodel.Type
}

func (n Named) Kind() irmodel.Kind    { return irmodel.KindNamed }
func (n Named) String() string        { return n.Pkg + "." + n.N }
func (n Named) Name() string          { return n.N }
func (n Named) PkgPath() string       { return n.Pkg }
func (n Named) Underlying() irmodel.Type { return n.U }

type Struct struct {
	Nm string
	Fs []irmodel.StructField
}

func (s Struct) Kind() irmodel.Kind { return irmodel.KindStruct }
func (s Struct) String() string     { return "struct:" + s.Nm }
func (s Struct) NumFields() int     { return len(s.Fs) }
func (s Struct) Field(i int) irmodel.StructField { return s.Fs[i] }

type Array struct {
	L int64
	E irmodel.Type
}

func (a Array) Kind() irmodel.Kind { return irmodel.KindArray }
func (a Array) String() string     { return "array" }
func (a Array) Len() int64         { return a.L }
func (a Array) Elem() irmodel.Type { return a.E }

type Slice struct{ E irmodel.Type }

func (s Slice) Kind() irmodel.Kind { return irmodel.KindSlice }
func (s Slice) String() string     { return "slice" }
func (s Slice) Elem() irmodel.Type { return s.E }

type Map struct{ K, V irmodel.Type }

func (m Map) Kind() irmodel.Kind { return irmodel.KindMap }
func (m Map) String() string     { return "map" }
func (m Map) Key() irmodel.Type  { return m.K }
func (m Map) Elem() irmodel.Type { return m.V }

type Chan struct{ E irmodel.Type }

func (c Chan) Kind() irmodel.Kind { return irmodel.KindChan }
func (c Chan) String() string     { return "chan" }
func (c Chan) Elem() irmodel.Type { return c.E }

type Interface struct{ Methods []string }

func (i Interface) Kind() irmodel.Kind { return irmodel.KindInterface }
func (i Interface) String() string     { return "interface" }
func (i Interface) NumMethods() int    { return len(i.Methods) }
func (i Interface) Method(n int) string { return i.Methods[n] }
func (i Interface) Empty() bool        { return len(i.Methods) == 0 }

type Signature struct {
	Params   []irmodel.Type
	Results  []irmodel.Type
	IsVariadic bool
	Receiver irmodel.Type
}

func (s Signature) Kind() irmodel.Kind      { return irmodel.KindSignature }
func (s Signature) String() string          { return "func" }
func (s Signature) NumParams() int          { return len(s.Params) }
func (s Signature) Param(i int) irmodel.Type  { return s.Params[i] }
func (s Signature) NumResults() int         { return len(s.Results) }
func (s Signature) Result(i int) irmodel.Type { return s.Results[i] }
func (s Signature) Variadic() bool          { return s.IsVariadic }
func (s Signature) HasRecv() bool           { return s.Receiver != nil }
func (s Signature) Recv() irmodel.Type      { return s.Receiver }

// Layout is a trivial DataLayout with a fixed word size and unit sizes —
// sufficient for tests that don't exercise byte-offset recovery.
type Layout struct{ Bits int }

func (l Layout) WordBits() int { return l.Bits }
func (l Layout) Sizeof(t irmodel.Type) int64  { return int64(l.Bits / 8) }
func (l Layout) Alignof(t irmodel.Type) int64 { return int64(l.Bits / 8) }
func (l Layout) FieldIndexFromOffset(st irmodel.StructType, offset int64) (int, bool) {
	idx := int(offset / int64(l.Bits/8))
	if idx < 0 || idx >= st.NumFields() {
		return 0, false
	}
	return idx, true
}

var DefaultLayout = Layout{Bits: 64}

// Function is a minimal irmodel.Function fake for signature-index tests:
// no body, no instructions, just the identity and signature surface
// sigindex.Build/BuildPartial consult.
type Function struct {
	Name      string
	Sig       Signature
	Intrinsic bool
}

func (f Function) QualifiedName() string           { return f.Name }
func (f Function) Signature() irmodel.SignatureType { return f.Sig }
func (f Function) Params() []irmodel.Value         { return nil }
func (f Function) IsIntrinsic() bool               { return f.Intrinsic }
func (f Function) IsVariadic() bool                { return f.Sig.Variadic() }
func (f Function) HasBody() bool                    { return false }
func (f Function) Instructions() []irmodel.Instruction { return nil }
func (f Function) Pos() irmodel.Position            { return irmodel.Position{} }
