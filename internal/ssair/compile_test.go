package ssair

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/goguard/mlta/internal/irmodel"
)

func writeTestModule(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module testssair\n\ngo 1.21\n"), 0o644)
	os.WriteFile(filepath.Join(dir, "main.go"), []byte(src), 0o644)
	return dir
}

const simpleSrc = `package main

import "fmt"

func helper() {
	fmt.Println("hi")
}

func main() {
	helper()
}
`

func TestCompile_WrapsFunctionsAndPackages(t *testing.T) {
	dir := writeTestModule(t, simpleSrc)

	prog, err := Compile(dir, []string{"./..."})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if len(prog.Modules) == 0 {
		t.Fatal("expected at least one module")
	}
	if len(prog.Packages) == 0 {
		t.Fatal("expected the go/packages metadata to be carried alongside the modules")
	}

	var foundMain, foundHelper bool
	for _, mod := range prog.Modules {
		for _, fn := range mod.Functions() {
			switch fn.QualifiedName() {
			case "main.main":
				foundMain = true
				if !fn.HasBody() {
					t.Error("main.main should have a body")
				}
			case "main.helper":
				foundHelper = true
			}
		}
	}
	if !foundMain {
		t.Error("expected to find main.main among the wrapped functions")
	}
	if !foundHelper {
		t.Error("expected to find main.helper among the wrapped functions")
	}
}

func TestCompile_DirectCallHasStaticCallee(t *testing.T) {
	dir := writeTestModule(t, simpleSrc)

	prog, err := Compile(dir, []string{"./..."})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	var mainFn irmodel.Function
	for _, mod := range prog.Modules {
		for _, fn := range mod.Functions() {
			if fn.QualifiedName() == "main.main" {
				mainFn = fn
			}
		}
	}
	if mainFn == nil {
		t.Fatal("expected to find main.main")
	}

	var sawCall bool
	for _, instr := range mainFn.Instructions() {
		ci, ok := instr.(irmodel.CallInst)
		if !ok {
			continue
		}
		sawCall = true
		if ci.StaticCallee() == nil {
			t.Error("the direct call to helper() should have a non-nil StaticCallee")
		}
	}
	if !sawCall {
		t.Error("expected to find at least one call instruction in main.main")
	}
}

const fieldFuncSrc = `package main

type Ops struct {
	F func(int) int
}

func inc(x int) int { return x + 1 }

func Call(o Ops, x int) int {
	return o.F(x)
}

func main() {
	Call(Ops{F: inc}, 1)
}
`

func TestCompile_IndirectCallHasNilStaticCallee(t *testing.T) {
	dir := writeTestModule(t, fieldFuncSrc)

	prog, err := Compile(dir, []string{"./..."})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	var callFn irmodel.Function
	for _, mod := range prog.Modules {
		for _, fn := range mod.Functions() {
			if fn.QualifiedName() == "main.Call" {
				callFn = fn
			}
		}
	}
	if callFn == nil {
		t.Fatal("expected to find main.Call")
	}

	var sawIndirect bool
	for _, instr := range callFn.Instructions() {
		ci, ok := instr.(irmodel.CallInst)
		if !ok {
			continue
		}
		if ci.StaticCallee() == nil {
			sawIndirect = true
		}
	}
	if !sawIndirect {
		t.Error("expected o.F(x) to lower to a call instruction with a nil StaticCallee")
	}
}
