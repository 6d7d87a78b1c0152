package mlta

import (
	"sort"

	"github.com/goguard/mlta/internal/irmodel"
	"github.com/goguard/mlta/internal/store"
)

// CallSiteReport describes one indirect call instruction's resolved
// callee set, with source-position reporting grounded on the teacher's
// pervasive SpanIR/fset.Position plumbing (SPEC_FULL.md "Supplemented from
// teacher"): every diagnostic this module emits carries a file:line.
type CallSiteReport struct {
	Function string
	Pos      irmodel.Position
	Callees  []string
	// ViaFallback is true when FindCalleesWithMLTA returned no result (an
	// unrecognized callee signature, typically) and the fallback signature
	// matcher supplied the reported callees instead.
	ViaFallback bool
}

// ReportIndirectCalls walks every function in every compiled module,
// resolves each indirect call instruction's candidate callees, and returns
// one CallSiteReport per call site. Direct calls (ci.StaticCallee() != nil)
// are skipped entirely — this module only resolves the edges the teacher's
// CallEdgeIR marks IsDynamic and leaves unresolved.
func (e *Engine) ReportIndirectCalls() []CallSiteReport {
	var reports []CallSiteReport

	for _, mod := range e.Program.Modules {
		for _, fn := range mod.Functions() {
			if !fn.HasBody() {
				continue
			}
			fctx := e.NewFunctionContext(fn)

			for _, instr := range fn.Instructions() {
				ci, ok := instr.(irmodel.CallInst)
				if !ok || ci.IsIntrinsic() || ci.StaticCallee() != nil {
					continue
				}

				fs, resolved := e.FindCalleesWithMLTA(ci, fctx)
				viaFallback := false
				if !resolved || len(fs) == 0 {
					fs = e.FindCalleesWithType(ci, store.NewCalleeSet())
					viaFallback = true
				}

				reports = append(reports, CallSiteReport{
					Function:    fn.QualifiedName(),
					Pos:         ci.Pos(),
					Callees:     sortedFuncIDs(fs),
					ViaFallback: viaFallback,
				})
			}
		}
	}

	sort.Slice(reports, func(i, j int) bool {
		if reports[i].Function != reports[j].Function {
			return reports[i].Function < reports[j].Function
		}
		if reports[i].Pos.Line != reports[j].Pos.Line {
			return reports[i].Pos.Line < reports[j].Pos.Line
		}
		return reports[i].Pos.Col < reports[j].Pos.Col
	})
	return reports
}

func sortedFuncIDs(fs store.CalleeSet) []string {
	out := make([]string, 0, len(fs))
	for id := range fs {
		out = append(out, string(id))
	}
	sort.Strings(out)
	return out
}
