package mlta

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/goguard/mlta/internal/irmodel"
	"github.com/goguard/mlta/internal/resolver"
	"github.com/goguard/mlta/internal/store"
)

// writeModule lays out a minimal, dependency-free Go module in a temp dir,
// mirroring the teacher's call_edges_test.go fixtures (a go.mod plus one
// source file written directly with os.WriteFile).
func writeModule(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module testpkg\n\ngo 1.21\n"), 0o644); err != nil {
		t.Fatalf("writing go.mod: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "main.go"), []byte(src), 0o644); err != nil {
		t.Fatalf("writing main.go: %v", err)
	}
	return dir
}

func loadEngine(t *testing.T, dir string, opts Options) *Engine {
	t.Helper()
	e, err := Load(context.Background(), dir, []string{"./..."}, opts)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return e
}

const twoFieldVTableSrc = `package testpkg

type Ops struct {
	A func(int) int
	B func(int) int
}

func addOne(x int) int { return x + 1 }
func double(x int) int { return x * 2 }

func MakeOps() Ops {
	return Ops{A: addOne, B: double}
}

func CallA(o Ops, x int) int {
	return o.A(x)
}

func CallB(o Ops, x int) int {
	return o.B(x)
}
`

// TestFullMLTA_TwoCandidatesOnePerField verifies field sensitivity: a
// struct with two function-typed fields, each confined by a distinct
// function, resolves an indirect call through one field to only that
// field's function — not the sibling field's.
func TestFullMLTA_TwoCandidatesOnePerField(t *testing.T) {
	dir := writeModule(t, twoFieldVTableSrc)
	e := loadEngine(t, dir, Options{Mode: resolver.FullMLTA})

	callA, ok := e.FuncByName("testpkg.CallA")
	if !ok {
		t.Fatal("expected to find testpkg.CallA")
	}
	callB, ok := e.FuncByName("testpkg.CallB")
	if !ok {
		t.Fatal("expected to find testpkg.CallB")
	}

	fsA := resolveSoleIndirectCall(t, e, callA)
	fsB := resolveSoleIndirectCall(t, e, callB)

	if _, ok := fsA["testpkg.addOne"]; !ok {
		t.Errorf("CallA's indirect call should resolve to addOne, got %v", fsA)
	}
	if _, ok := fsA["testpkg.double"]; ok {
		t.Errorf("CallA's indirect call through field A must not include double (field B's function), got %v", fsA)
	}

	if _, ok := fsB["testpkg.double"]; !ok {
		t.Errorf("CallB's indirect call should resolve to double, got %v", fsB)
	}
	if _, ok := fsB["testpkg.addOne"]; ok {
		t.Errorf("CallB's indirect call through field B must not include addOne (field A's function), got %v", fsB)
	}
}

// TestMatchSignatures_IsSupersetOfFullMLTA checks the mode-monotonicity
// invariant: FullMLTA's result for a given call site is always a subset of
// what MatchSignatures (no layering, signature bucket only) returns for
// the same call site.
func TestMatchSignatures_IsSupersetOfFullMLTA(t *testing.T) {
	dir := writeModule(t, twoFieldVTableSrc)

	full := loadEngine(t, dir, Options{Mode: resolver.FullMLTA})
	sigOnly := loadEngine(t, dir, Options{Mode: resolver.MatchSignatures})

	callA, _ := full.FuncByName("testpkg.CallA")
	callASig, _ := sigOnly.FuncByName("testpkg.CallA")

	fsFull := resolveSoleIndirectCall(t, full, callA)
	fsSig := resolveSoleIndirectCall(t, sigOnly, callASig)

	for id := range fsFull {
		if _, ok := fsSig[id]; !ok {
			t.Errorf("FullMLTA result %v must be a subset of MatchSignatures result %v", fsFull, fsSig)
		}
	}
}

// TestNoIndirectCalls_AlwaysEmpty verifies spec's NoIndirectCalls mode:
// every indirect call resolves to the empty set regardless of what the
// seed phase observed.
func TestNoIndirectCalls_AlwaysEmpty(t *testing.T) {
	dir := writeModule(t, twoFieldVTableSrc)
	e := loadEngine(t, dir, Options{Mode: resolver.NoIndirectCalls})

	callA, _ := e.FuncByName("testpkg.CallA")
	fs := resolveSoleIndirectCall(t, e, callA)
	if len(fs) != 0 {
		t.Errorf("NoIndirectCalls must resolve every indirect call to the empty set, got %v", fs)
	}
}

// TestFullMLTA_Deterministic checks that two independent Loads over the
// same source produce the same resolution for the same call site (spec's
// determinism invariant: final maps don't depend on seed ordering).
func TestFullMLTA_Deterministic(t *testing.T) {
	dir := writeModule(t, twoFieldVTableSrc)

	e1 := loadEngine(t, dir, Options{Mode: resolver.FullMLTA})
	e2 := loadEngine(t, dir, Options{Mode: resolver.FullMLTA})

	callA1, _ := e1.FuncByName("testpkg.CallA")
	callA2, _ := e2.FuncByName("testpkg.CallA")

	fs1 := resolveSoleIndirectCall(t, e1, callA1)
	fs2 := resolveSoleIndirectCall(t, e2, callA2)

	if len(fs1) != len(fs2) {
		t.Fatalf("two runs over identical source disagree on result size: %v vs %v", fs1, fs2)
	}
	for id := range fs1 {
		if _, ok := fs2[id]; !ok {
			t.Errorf("two runs over identical source disagree: %v vs %v", fs1, fs2)
		}
	}
}

// TestReportIndirectCalls_CoversAllIndirectSites sanity-checks the CLI
// report path end to end: ReportIndirectCalls must surface an entry for
// each of this fixture's two indirect call sites, CallA's and CallB's.
func TestReportIndirectCalls_CoversAllIndirectSites(t *testing.T) {
	dir := writeModule(t, twoFieldVTableSrc)
	e := loadEngine(t, dir, Options{Mode: resolver.FullMLTA})

	reports := e.ReportIndirectCalls()
	var sawCallA, sawCallB bool
	for _, r := range reports {
		switch r.Function {
		case "testpkg.CallA":
			sawCallA = true
		case "testpkg.CallB":
			sawCallB = true
		}
	}
	if !sawCallA {
		t.Error("expected a report entry for testpkg.CallA's indirect call")
	}
	if !sawCallB {
		t.Error("expected a report entry for testpkg.CallB's indirect call")
	}
}

// TestFieldInsensitive_IsSupersetOfFieldSensitive checks the spec §8
// field-insensitive equivalence: running with MLTA_FIELD_INSENSITIVE must
// yield, for a given call site, a superset of the field-sensitive run,
// since every confinement/propagation emission collapses onto field 0
// instead of the real field index.
func TestFieldInsensitive_IsSupersetOfFieldSensitive(t *testing.T) {
	dir := writeModule(t, twoFieldVTableSrc)

	sensitive := loadEngine(t, dir, Options{Mode: resolver.FullMLTA})
	insensitive := loadEngine(t, dir, Options{Mode: resolver.FullMLTA, FieldInsensitive: true})

	callASens, _ := sensitive.FuncByName("testpkg.CallA")
	callAInsens, _ := insensitive.FuncByName("testpkg.CallA")

	fsSens := resolveSoleIndirectCall(t, sensitive, callASens)
	fsInsens := resolveSoleIndirectCall(t, insensitive, callAInsens)

	for id := range fsSens {
		if _, ok := fsInsens[id]; !ok {
			t.Errorf("field-insensitive result %v must be a superset of field-sensitive result %v", fsInsens, fsSens)
		}
	}
	// The insensitive run collapses both fields into slot 0, so it should
	// additionally pick up double (field B's function) on CallA's call.
	if _, ok := fsInsens["testpkg.double"]; !ok {
		t.Errorf("field-insensitive CallA resolution should include double via the collapsed slot, got %v", fsInsens)
	}
}

const memcpyPropagationSrc = `package testpkg

import "unsafe"

type Handler struct {
	Fn func(int) int
}

func handlerOne(x int) int { return x + 1 }
func handlerTwo(x int) int { return x - 1 }

func MakeA() Handler {
	return Handler{Fn: handlerOne}
}

func MakeB() Handler {
	return Handler{Fn: handlerTwo}
}

func CopyAndCall(x int) int {
	a := MakeA()
	var b Handler
	*(*Handler)(unsafe.Pointer(&b)) = *(*Handler)(unsafe.Pointer(&a))
	return b.Fn(x)
}
`

// TestMemcpyPropagation_UnionsBothSources exercises spec §8 scenario 4: an
// aggregate-to-aggregate copy (here expressed as a struct assignment
// through unsafe.Pointer casts, the idiomatic Go analogue of a memcpy
// intrinsic) propagates the source slot's candidates to the destination
// slot. CopyAndCall's indirect call through b.Fn should see handlerOne
// (confined directly at Handler's field 0 via MakeA) still reachable after
// the copy.
func TestMemcpyPropagation_UnionsBothSources(t *testing.T) {
	dir := writeModule(t, memcpyPropagationSrc)
	e := loadEngine(t, dir, Options{Mode: resolver.FullMLTA})

	fn, ok := e.FuncByName("testpkg.CopyAndCall")
	if !ok {
		t.Fatal("expected to find testpkg.CopyAndCall")
	}
	fs := resolveSoleIndirectCall(t, e, fn)
	if _, ok := fs["testpkg.handlerOne"]; !ok {
		t.Errorf("expected handlerOne reachable through Handler's field-0 confinement, got %v", fs)
	}
}

const aliasRecoverySrc = `package testpkg

import "unsafe"

type Handler struct {
	Fn func(int) int
}

func handlerAliased(x int) int { return x * 3 }

func rawPtr() unsafe.Pointer {
	h := new(Handler)
	return unsafe.Pointer(h)
}

func UseAlias(x int) int {
	raw := rawPtr()
	typed := (*Handler)(raw)
	*(*func(int) int)(raw) = handlerAliased
	return typed.Fn(x)
}
`

// TestAliasRecovery_CallResultCastToComposite exercises spec §4.6/§8
// scenario 3: handlerAliased is confined not through typed (a plain
// *Handler value), but through a second cast of the same byte-pointer
// call result (raw) straight to a function-pointer type — a store the
// Confinement Collector can only resolve back to Handler's field 0 by
// consulting the Alias map BuildAliasMap built from the first cast
// (raw -> typed). Without alias recovery wired, this store can't be
// attributed to any composite slot and handlerAliased never reaches
// UseAlias's indirect call through typed.Fn.
func TestAliasRecovery_CallResultCastToComposite(t *testing.T) {
	dir := writeModule(t, aliasRecoverySrc)
	e := loadEngine(t, dir, Options{Mode: resolver.FullMLTA})

	fn, ok := e.FuncByName("testpkg.UseAlias")
	if !ok {
		t.Fatal("expected to find testpkg.UseAlias")
	}
	fs := resolveSoleIndirectCall(t, e, fn)
	if _, ok := fs["testpkg.handlerAliased"]; !ok {
		t.Errorf("expected handlerAliased reachable via alias-recovered confinement at Handler's field 0, got %v", fs)
	}
}

// resolveSoleIndirectCall walks fn's instructions, finds the one indirect
// call instruction (StaticCallee() == nil), and returns its
// FindCalleesWithMLTA result. Fails the test if fn has no indirect call.
func resolveSoleIndirectCall(t *testing.T, e *Engine, fn irmodel.Function) store.CalleeSet {
	t.Helper()
	ctx := e.NewFunctionContext(fn)
	for _, instr := range fn.Instructions() {
		ci, ok := instr.(irmodel.CallInst)
		if !ok || ci.IsIntrinsic() || ci.StaticCallee() != nil {
			continue
		}
		fs, _ := e.FindCalleesWithMLTA(ci, ctx)
		return fs
	}
	t.Fatalf("expected to find an indirect call in %s", fn.QualifiedName())
	return nil
}
