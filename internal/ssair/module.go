package ssair

import (
	"sort"

	"go/types"

	"golang.org/x/tools/go/ssa"

	"github.com/goguard/mlta/internal/irmodel"
)

// module wraps one *ssa.Package's worth of functions and globals, the
// unit the teacher's serializePackage walks member-by-member. Unlike the
// teacher, which flattens every loaded package into one CompileResult up
// front, a module here stays scoped to a single *ssa.Package — seed.Run
// iterates one irmodel.Module per loaded package, matching the spec's
// per-module partial/merge phasing.
type module struct {
	pkg    *ssa.Package
	prog   *ssa.Program
	layout irmodel.DataLayout
}

func wrapModule(prog *ssa.Program, pkg *ssa.Package, layout irmodel.DataLayout) irmodel.Module {
	return module{pkg: pkg, prog: prog, layout: layout}
}

func (m module) Layout() irmodel.DataLayout { return m.layout }

// Functions enumerates every function, method, and closure declared in
// the package: top-level members, their AnonFuncs (closures), and the
// pointer-receiver method set for every named type the package declares
// — mirroring the teacher's serializePackage/collectCallEdges member
// walk, which visits the same three buckets.
func (m module) Functions() []irmodel.Function {
	var out []irmodel.Function
	seen := make(map[*ssa.Function]bool)

	add := func(fn *ssa.Function) {
		if fn == nil || seen[fn] {
			return
		}
		seen[fn] = true
		out = append(out, wrapFunction(fn))
		for _, anon := range fn.AnonFuncs {
			if !seen[anon] {
				seen[anon] = true
				out = append(out, wrapFunction(anon))
			}
		}
	}

	for _, name := range sortedMemberNames(m.pkg) {
		member := m.pkg.Members[name]
		if fn, ok := member.(*ssa.Function); ok {
			add(fn)
		}
	}

	for _, name := range sortedMemberNames(m.pkg) {
		typMember, ok := m.pkg.Members[name].(*ssa.Type)
		if !ok {
			continue
		}
		mset := m.prog.MethodSets.MethodSet(types.NewPointer(typMember.Type()))
		for i := 0; i < mset.Len(); i++ {
			fn := m.prog.MethodValue(mset.At(i))
			if fn != nil && fn.Package() == m.pkg {
				add(fn)
			}
		}
	}

	return out
}

// Globals enumerates the package's package-level variables, the roots
// internal/confine's ConfineInInitializer walk starts from.
func (m module) Globals() []irmodel.Global {
	var out []irmodel.Global
	for _, name := range sortedMemberNames(m.pkg) {
		if g, ok := m.pkg.Members[name].(*ssa.Global); ok {
			out = append(out, globalWrap{value{g}, g})
		}
	}
	return out
}

func sortedMemberNames(pkg *ssa.Package) []string {
	names := make([]string, 0, len(pkg.Members))
	for name := range pkg.Members {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
