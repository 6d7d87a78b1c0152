package ssair

import (
	"fmt"
	"go/types"

	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"

	"github.com/goguard/mlta/internal/irmodel"
)

// loadMode mirrors the teacher's packages.Config.Mode: every bit the
// type-checker and SSA builder need, nothing extra (no NeedExportFile,
// no NeedModule).
const loadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedCompiledGoFiles |
	packages.NeedImports |
	packages.NeedDeps |
	packages.NeedTypes |
	packages.NeedSyntax |
	packages.NeedTypesInfo |
	packages.NeedTypesSizes

// Program bundles the live go/ssa program with the irmodel.Module views
// MLTA's core packages consume and the go/packages metadata (package
// scopes, in particular) that the interface-satisfaction side-table and CLI
// reporting need but the irmodel contract deliberately omits.
type Program struct {
	Modules  []irmodel.Module
	Packages []*packages.Package
	Layout   irmodel.DataLayout
}

// Compile loads the Go packages matching patterns under dir, builds
// their SSA form, and wraps every loaded package as an irmodel.Module.
// Grounded directly on the teacher's Compile (goguard-go-bridge/
// analyzer.go): packages.Load -> ssautil.AllPackages -> prog.Build().
// Where the teacher flattens the result into one serialized
// CompileResult tree, this returns live irmodel.Module views so
// internal/seed can run the layered analysis directly over go/ssa.
func Compile(dir string, patterns []string) (*Program, error) {
	cfg := &packages.Config{
		Mode: loadMode,
		Dir:  dir,
	}

	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("loading packages: %w", err)
	}
	for _, pkg := range pkgs {
		if len(pkg.Errors) > 0 {
			return nil, fmt.Errorf("package %s has errors: %v", pkg.PkgPath, pkg.Errors)
		}
	}

	prog, ssaPkgs := ssautil.AllPackages(pkgs, ssa.InstantiateGenerics)
	prog.Build()

	var sizes types.Sizes
	if len(pkgs) > 0 && pkgs[0].TypesSizes != nil {
		sizes = pkgs[0].TypesSizes
	}
	layout := newLayout(sizes)

	var mods []irmodel.Module
	for _, ssaPkg := range ssaPkgs {
		if ssaPkg == nil {
			continue
		}
		mods = append(mods, wrapModule(prog, ssaPkg, layout))
	}
	return &Program{Modules: mods, Packages: pkgs, Layout: layout}, nil
}
