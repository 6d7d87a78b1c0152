package store

import "testing"

func TestConfineWithWildcard_UnionsExactAndWildcard(t *testing.T) {
	s := New()
	slot := SlotKey{Type: 1, Field: 2}
	wc := SlotKey{Type: 1, Field: FieldWildcard}

	s.Confine(slot, "pkg.A")
	s.Confine(wc, "pkg.B")

	got := s.ConfineWithWildcard(slot)
	if _, ok := got["pkg.A"]; !ok {
		t.Error("expected exact-slot function present")
	}
	if _, ok := got["pkg.B"]; !ok {
		t.Error("expected wildcard-slot function present")
	}
}

func TestConfineWithWildcard_DoesNotDoubleCountWildcardItself(t *testing.T) {
	s := New()
	wc := SlotKey{Type: 1, Field: FieldWildcard}
	s.Confine(wc, "pkg.A")

	got := s.ConfineWithWildcard(wc)
	if len(got) != 1 {
		t.Fatalf("expected exactly one function, got %d", len(got))
	}
}

func TestIsEscaped_WildcardSiblingEscapes(t *testing.T) {
	s := New()
	s.Escape(SlotKey{Type: 5, Field: FieldWildcard})

	if !s.IsEscaped(SlotKey{Type: 5, Field: 3}) {
		t.Error("a slot whose wildcard sibling escaped should itself report escaped")
	}
	if s.IsEscaped(SlotKey{Type: 6, Field: 3}) {
		t.Error("an unrelated type's slot should not report escaped")
	}
}

func TestCap_RoundTrip(t *testing.T) {
	s := New()
	if s.IsCapped(7) {
		t.Fatal("nothing capped yet")
	}
	s.Cap(7)
	if !s.IsCapped(7) {
		t.Fatal("expected 7 to be capped after Cap(7)")
	}
}

func TestCalleeSet_IntersectUnion(t *testing.T) {
	a := NewCalleeSet("f1", "f2", "f3")
	b := NewCalleeSet("f2", "f3", "f4")

	inter := a.Intersect(b)
	if len(inter) != 2 {
		t.Fatalf("expected 2-element intersection, got %d", len(inter))
	}
	if _, ok := inter["f2"]; !ok {
		t.Error("expected f2 in intersection")
	}

	union := a.Clone()
	union.UnionInto(b)
	if len(union) != 4 {
		t.Fatalf("expected 4-element union, got %d", len(union))
	}
}

func TestCalleeSet_CloneIsIndependent(t *testing.T) {
	a := NewCalleeSet("f1")
	b := a.Clone()
	b["f2"] = struct{}{}

	if _, ok := a["f2"]; ok {
		t.Fatal("mutating a clone must not affect the original")
	}
}

func TestPartial_MergeIsAdditive(t *testing.T) {
	s := New()

	p1 := NewPartial()
	p1.AddConfine(SlotKey{Type: 1, Field: 0}, "pkg.A")
	p1.AddSig(10, "pkg.A")

	p2 := NewPartial()
	p2.AddConfine(SlotKey{Type: 1, Field: 0}, "pkg.B")
	p2.AddSig(10, "pkg.B")

	s.Merge(p1)
	s.Merge(p2)

	confined := s.ConfineSet(SlotKey{Type: 1, Field: 0})
	if len(confined) != 2 {
		t.Fatalf("expected both partials' confinements merged, got %d entries", len(confined))
	}

	sig := s.SigLookup(10)
	if len(sig) != 2 {
		t.Fatalf("expected both partials' signature entries merged, got %d entries", len(sig))
	}
}

func TestPartial_PropagationMergeAndLookup(t *testing.T) {
	s := New()
	to := SlotKey{Type: 1, Field: 0}
	from := SlotKey{Type: 2, Field: 0}

	p := NewPartial()
	p.AddProp(to, from)
	s.Merge(p)

	got := s.PropagationsFrom(to)
	if len(got) != 1 || got[0] != from {
		t.Fatalf("expected propagation edge to -> from to survive merge, got %v", got)
	}
}

func TestPartial_AddPropSelfEdgeIgnored(t *testing.T) {
	p := NewPartial()
	slot := SlotKey{Type: 1, Field: 0}
	p.AddProp(slot, slot)
	if len(p.Prop) != 0 {
		t.Fatal("a self-propagation edge should never be recorded")
	}
}

func TestAllFuncs_UnionsEverySigBucket(t *testing.T) {
	s := New()
	s.SigInsert(1, "pkg.A")
	s.SigInsert(2, "pkg.B")

	all := s.AllFuncs()
	if len(all) != 2 {
		t.Fatalf("expected 2 functions across both digests, got %d", len(all))
	}
}

func TestAllSlots_EnumeratesConfineEscapeAndPropEndpoints(t *testing.T) {
	s := New()
	confined := SlotKey{Type: 1, Field: 0}
	escaped := SlotKey{Type: 2, Field: 0}
	propTo := SlotKey{Type: 3, Field: 0}
	propFrom := SlotKey{Type: 4, Field: 0}

	s.Confine(confined, "pkg.A")
	s.Escape(escaped)
	s.Propagate(propTo, propFrom)

	got := map[SlotKey]bool{}
	for _, slot := range s.AllSlots() {
		got[slot] = true
	}
	for _, want := range []SlotKey{confined, escaped, propTo, propFrom} {
		if !got[want] {
			t.Errorf("expected AllSlots to include %v", want)
		}
	}
}
