package ssair

import (
	"go/types"

	"github.com/goguard/mlta/internal/irmodel"
)

// layout adapts go/types.Sizes (the *types.StdSizes the type-checker and
// go/ssa already compute) to irmodel.DataLayout — the same role the
// original spec's data-layout context plays for GEP-index <-> byte-offset
// reconstruction.
type layout struct {
	sizes types.Sizes
}

func newLayout(sizes types.Sizes) irmodel.DataLayout {
	if sizes == nil {
		sizes = types.SizesFor("gc", "amd64")
	}
	return layout{sizes: sizes}
}

func (l layout) WordBits() int {
	return int(l.sizes.Sizeof(types.Typ[types.Uintptr])) * 8
}

func (l layout) Sizeof(t irmodel.Type) int64 {
	w, ok := t.(typ)
	if !ok {
		return 0
	}
	return l.sizes.Sizeof(w.t)
}

func (l layout) Alignof(t irmodel.Type) int64 {
	w, ok := t.(typ)
	if !ok {
		return 0
	}
	return l.sizes.Alignof(w.t)
}

// FieldIndexFromOffset recovers a struct field index from a byte offset
// into st, implementing irmodel.DataLayout. The chain walks in
// internal/basetype do not call it.
func (l layout) FieldIndexFromOffset(st irmodel.StructType, offset int64) (int, bool) {
	w, ok := st.(typ)
	if !ok {
		return 0, false
	}
	gst, ok := w.t.Underlying().(*types.Struct)
	if !ok {
		return 0, false
	}
	n := gst.NumFields()
	if n == 0 {
		return 0, false
	}
	fields := make([]*types.Var, n)
	for i := 0; i < n; i++ {
		fields[i] = gst.Field(i)
	}
	offsets := l.sizes.Offsetsof(fields)
	for i, off := range offsets {
		if off == offset {
			return i, true
		}
	}
	return 0, false
}
