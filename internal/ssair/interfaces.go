package ssair

import (
	"go/types"
	"sort"
)

// InterfaceSatisfaction records that ConcreteType implements Interface, with
// the method-name mapping between them. Supplemented from the teacher's
// InterfaceSatIR (goguard-go-bridge/analyzer.go collectInterfaceSatisfactions):
// the teacher computes this table to describe interface dispatch for its
// downstream call-graph consumer; this module exposes the same table as
// auxiliary context for an MLTA caller reasoning about an interface method
// call, without using it to narrow the MLTA callee set itself (spec §6
// VTableFuncs side-table; SPEC_FULL.md's "Supplemented from teacher").
type InterfaceSatisfaction struct {
	ConcreteType string
	Interface    string
	Methods      []MethodMapping
}

type MethodMapping struct {
	InterfaceMethod string
	ConcreteMethod  string
}

// CollectInterfaceSatisfactions scans scope for every named interface and
// named concrete type, and records which concrete types (by value or by
// pointer) satisfy which interfaces — the same types.Implements sweep the
// teacher's collectInterfaceSatisfactions performs, adapted to return a
// plain slice instead of analyzer.go's InterfaceSatIR/TypeRegistry-keyed
// form (this module has no equivalent numeric type registry; types are
// identified by their String() form instead).
func CollectInterfaceSatisfactions(scope *types.Scope) []InterfaceSatisfaction {
	var ifaces, concretes []*types.Named

	for _, name := range scope.Names() {
		obj := scope.Lookup(name)
		tn, ok := obj.(*types.TypeName)
		if !ok {
			continue
		}
		named, ok := tn.Type().(*types.Named)
		if !ok {
			continue
		}
		if _, isIface := named.Underlying().(*types.Interface); isIface {
			ifaces = append(ifaces, named)
		} else {
			concretes = append(concretes, named)
		}
	}

	var out []InterfaceSatisfaction
	for _, iface := range ifaces {
		ifaceType := iface.Underlying().(*types.Interface)
		if ifaceType.NumMethods() == 0 {
			continue
		}
		for _, concrete := range concretes {
			var concreteType types.Type = concrete
			satisfies := types.Implements(concrete, ifaceType)
			if !satisfies {
				ptr := types.NewPointer(concrete)
				if types.Implements(ptr, ifaceType) {
					satisfies = true
					concreteType = ptr
				}
			}
			if !satisfies {
				continue
			}

			sat := InterfaceSatisfaction{
				ConcreteType: concreteType.String(),
				Interface:    iface.String(),
			}
			mset := types.NewMethodSet(concreteType)
			for i := 0; i < ifaceType.NumMethods(); i++ {
				ifaceMethod := ifaceType.Method(i)
				for j := 0; j < mset.Len(); j++ {
					sel := mset.At(j)
					if sel.Obj().Name() == ifaceMethod.Name() {
						sat.Methods = append(sat.Methods, MethodMapping{
							InterfaceMethod: ifaceMethod.Name(),
							ConcreteMethod:  sel.Obj().(*types.Func).FullName(),
						})
						break
					}
				}
			}
			out = append(out, sat)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Interface != out[j].Interface {
			return out[i].Interface < out[j].Interface
		}
		return out[i].ConcreteType < out[j].ConcreteType
	})
	return out
}
