package cache

import (
	flatbuffers "github.com/google/flatbuffers/go"

	"github.com/goguard/mlta/internal/store"
)

// Payload is the decoded form of a cached analysis result: everything
// internal/store.Store accumulates during the seed phase, flattened into
// plain slices for serialization.
type Payload struct {
	Confine []ConfineEntry
	Prop    []PropEntry
	Escape  []store.SlotKey
	Cap     []store.TypeDigest
	Sig     []SigEntry
	VTable  []VTableEntry
}

type ConfineEntry struct {
	Slot store.SlotKey
	Func store.FuncID
}

type PropEntry struct {
	To, From store.SlotKey
}

type SigEntry struct {
	Digest store.CallSigDigest
	Func   store.FuncID
}

type VTableEntry struct {
	Global string
	Func   store.FuncID
}

// Snapshot flattens the current contents of a store.Store into a Payload
// suitable for encoding, enumerating every slot, signature digest, and
// capped type the store has ever recorded via Store.AllSlots/
// AllSigDigests/AllCapped.
func Snapshot(s *store.Store) Payload {
	var p Payload
	for _, slot := range s.AllSlots() {
		for fn := range s.ConfineSet(slot) {
			p.Confine = append(p.Confine, ConfineEntry{Slot: slot, Func: fn})
		}
		if s.IsEscaped(slot) {
			p.Escape = append(p.Escape, slot)
		}
		for _, from := range s.PropagationsFrom(slot) {
			p.Prop = append(p.Prop, PropEntry{To: slot, From: from})
		}
	}
	p.Cap = s.AllCapped()
	for global, fns := range s.VTableFuncs() {
		for fn := range fns {
			p.VTable = append(p.VTable, VTableEntry{Global: global, Func: fn})
		}
	}
	for _, d := range s.AllSigDigests() {
		for fn := range s.SigLookup(d) {
			p.Sig = append(p.Sig, SigEntry{Digest: d, Func: fn})
		}
	}
	return p
}

// Restore replays a Payload's entries into a freshly-constructed Store,
// skipping the seed phase entirely.
func Restore(p Payload) *store.Store {
	s := store.New()
	for _, e := range p.Confine {
		s.Confine(e.Slot, e.Func)
	}
	for _, e := range p.Prop {
		s.Propagate(e.To, e.From)
	}
	for _, slot := range p.Escape {
		s.Escape(slot)
	}
	for _, td := range p.Cap {
		s.Cap(td)
	}
	for _, e := range p.Sig {
		s.SigInsert(e.Digest, e.Func)
	}
	for _, e := range p.VTable {
		s.VTable(e.Global, e.Func)
	}
	return s
}

// Field slot numbers (as passed to Builder.StartObject/PrependXSlot) for
// the single top-level table this package writes and reads. There is no
// .fbs schema shipped in the retrieval pack to run flatc against, so the
// layout is fixed here and consumed by both Encode and Decode directly
// against flatbuffers.Table/Builder — the same low-level primitives the
// generated code in goguard-go-bridge/ir_builder.go sits on top of.
const (
	slotConfine = 0
	slotProp    = 1
	slotEscape  = 2
	slotCap     = 3
	slotSig     = 4
	slotVTable  = 5
)

// vtableOffset converts a field slot number to the vtable byte offset
// Table.Offset expects (slot 0 -> 4, slot 1 -> 6, ...), matching the
// encoding flatbuffers.Builder.Slot uses internally.
func vtableOffset(slot int) flatbuffers.VOffsetT {
	return flatbuffers.VOffsetT(4 + 2*slot)
}

// Encode serializes p as a single FlatBuffers-encoded, size-prefixed
// buffer (the same WriteSizePrefixed convention the teacher's main.go uses
// for its stdout IR stream).
func Encode(p Payload) []byte {
	b := flatbuffers.NewBuilder(4096)

	confine := writeConfineVector(b, p.Confine)
	prop := writePropVector(b, p.Prop)
	escape := writeSlotVector(b, p.Escape)
	capVec := writeU64Vector(b, p.Cap)
	sig := writeSigVector(b, p.Sig)
	vtable := writeVTableVector(b, p.VTable)

	b.StartObject(6)
	b.PrependUOffsetTSlot(slotConfine, confine, 0)
	b.PrependUOffsetTSlot(slotProp, prop, 0)
	b.PrependUOffsetTSlot(slotEscape, escape, 0)
	b.PrependUOffsetTSlot(slotCap, capVec, 0)
	b.PrependUOffsetTSlot(slotSig, sig, 0)
	b.PrependUOffsetTSlot(slotVTable, vtable, 0)
	root := b.EndObject()

	b.FinishSizePrefixed(root)
	return b.FinishedBytes()
}

func writeConfineVector(b *flatbuffers.Builder, entries []ConfineEntry) flatbuffers.UOffsetT {
	offs := make([]flatbuffers.UOffsetT, len(entries))
	for i, e := range entries {
		fn := b.CreateString(string(e.Func))
		b.StartObject(3)
		b.PrependUint64Slot(0, uint64(e.Slot.Type), 0)
		b.PrependInt32Slot(1, int32(e.Slot.Field), 0)
		b.PrependUOffsetTSlot(2, fn, 0)
		offs[i] = b.EndObject()
	}
	return writeOffsetVector(b, offs)
}

func writePropVector(b *flatbuffers.Builder, entries []PropEntry) flatbuffers.UOffsetT {
	offs := make([]flatbuffers.UOffsetT, len(entries))
	for i, e := range entries {
		b.StartObject(4)
		b.PrependUint64Slot(0, uint64(e.To.Type), 0)
		b.PrependInt32Slot(1, int32(e.To.Field), 0)
		b.PrependUint64Slot(2, uint64(e.From.Type), 0)
		b.PrependInt32Slot(3, int32(e.From.Field), 0)
		offs[i] = b.EndObject()
	}
	return writeOffsetVector(b, offs)
}

func writeSlotVector(b *flatbuffers.Builder, slots []store.SlotKey) flatbuffers.UOffsetT {
	offs := make([]flatbuffers.UOffsetT, len(slots))
	for i, s := range slots {
		b.StartObject(2)
		b.PrependUint64Slot(0, uint64(s.Type), 0)
		b.PrependInt32Slot(1, int32(s.Field), 0)
		offs[i] = b.EndObject()
	}
	return writeOffsetVector(b, offs)
}

func writeU64Vector(b *flatbuffers.Builder, vals []store.TypeDigest) flatbuffers.UOffsetT {
	b.StartVector(8, len(vals), 8)
	for i := len(vals) - 1; i >= 0; i-- {
		b.PrependUint64(uint64(vals[i]))
	}
	return b.EndVector(len(vals))
}

func writeSigVector(b *flatbuffers.Builder, entries []SigEntry) flatbuffers.UOffsetT {
	offs := make([]flatbuffers.UOffsetT, len(entries))
	for i, e := range entries {
		fn := b.CreateString(string(e.Func))
		b.StartObject(2)
		b.PrependUint64Slot(0, uint64(e.Digest), 0)
		b.PrependUOffsetTSlot(1, fn, 0)
		offs[i] = b.EndObject()
	}
	return writeOffsetVector(b, offs)
}

func writeVTableVector(b *flatbuffers.Builder, entries []VTableEntry) flatbuffers.UOffsetT {
	offs := make([]flatbuffers.UOffsetT, len(entries))
	for i, e := range entries {
		global := b.CreateString(e.Global)
		fn := b.CreateString(string(e.Func))
		b.StartObject(2)
		b.PrependUOffsetTSlot(0, global, 0)
		b.PrependUOffsetTSlot(1, fn, 0)
		offs[i] = b.EndObject()
	}
	return writeOffsetVector(b, offs)
}

func writeOffsetVector(b *flatbuffers.Builder, offs []flatbuffers.UOffsetT) flatbuffers.UOffsetT {
	b.StartVector(4, len(offs), 4)
	for i := len(offs) - 1; i >= 0; i-- {
		b.PrependUOffsetT(offs[i])
	}
	return b.EndVector(len(offs))
}

// elemTable points a reusable flatbuffers.Table at an element within a
// vector-of-tables field, and exposes the same Offset/Get* pattern
// generated accessors use.
type elemTable struct {
	flatbuffers.Table
}

func (t *elemTable) u64(slot int) uint64 {
	o := flatbuffers.UOffsetT(t.Offset(vtableOffset(slot)))
	if o == 0 {
		return 0
	}
	return t.GetUint64(o + t.Pos)
}

func (t *elemTable) i32(slot int) int32 {
	o := flatbuffers.UOffsetT(t.Offset(vtableOffset(slot)))
	if o == 0 {
		return 0
	}
	return t.GetInt32(o + t.Pos)
}

func (t *elemTable) str(slot int) string {
	o := flatbuffers.UOffsetT(t.Offset(vtableOffset(slot)))
	if o == 0 {
		return ""
	}
	return string(t.ByteVector(o + t.Pos))
}

func tableAt(buf []byte, pos flatbuffers.UOffsetT) elemTable {
	return elemTable{flatbuffers.Table{Bytes: buf, Pos: pos}}
}

// Decode reverses Encode. It reads a size-prefixed buffer produced by
// Encode in this package; it is not a general-purpose FlatBuffers reader.
func Decode(buf []byte) Payload {
	body := buf[flatbuffers.SizeUOffsetT:]
	root := flatbuffers.GetUOffsetT(body)
	tab := elemTable{flatbuffers.Table{Bytes: body, Pos: root}}

	var p Payload
	if off := flatbuffers.UOffsetT(tab.Offset(vtableOffset(slotConfine))); off != 0 {
		vecPos := tab.Vector(off)
		vecLen := tab.VectorLen(off)
		for i := 0; i < vecLen; i++ {
			elemPos := tab.Indirect(vecPos + flatbuffers.UOffsetT(i)*4)
			e := tableAt(body, elemPos)
			p.Confine = append(p.Confine, ConfineEntry{
				Slot: store.SlotKey{Type: store.TypeDigest(e.u64(0)), Field: int(e.i32(1))},
				Func: store.FuncID(e.str(2)),
			})
		}
	}
	if off := flatbuffers.UOffsetT(tab.Offset(vtableOffset(slotProp))); off != 0 {
		vecPos := tab.Vector(off)
		vecLen := tab.VectorLen(off)
		for i := 0; i < vecLen; i++ {
			elemPos := tab.Indirect(vecPos + flatbuffers.UOffsetT(i)*4)
			e := tableAt(body, elemPos)
			p.Prop = append(p.Prop, PropEntry{
				To:   store.SlotKey{Type: store.TypeDigest(e.u64(0)), Field: int(e.i32(1))},
				From: store.SlotKey{Type: store.TypeDigest(e.u64(2)), Field: int(e.i32(3))},
			})
		}
	}
	if off := flatbuffers.UOffsetT(tab.Offset(vtableOffset(slotEscape))); off != 0 {
		vecPos := tab.Vector(off)
		vecLen := tab.VectorLen(off)
		for i := 0; i < vecLen; i++ {
			elemPos := tab.Indirect(vecPos + flatbuffers.UOffsetT(i)*4)
			e := tableAt(body, elemPos)
			p.Escape = append(p.Escape, store.SlotKey{Type: store.TypeDigest(e.u64(0)), Field: int(e.i32(1))})
		}
	}
	if off := flatbuffers.UOffsetT(tab.Offset(vtableOffset(slotCap))); off != 0 {
		vecPos := tab.Vector(off)
		vecLen := tab.VectorLen(off)
		for i := 0; i < vecLen; i++ {
			v := flatbuffers.GetUint64(body[vecPos+flatbuffers.UOffsetT(i)*8:])
			p.Cap = append(p.Cap, store.TypeDigest(v))
		}
	}
	if off := flatbuffers.UOffsetT(tab.Offset(vtableOffset(slotSig))); off != 0 {
		vecPos := tab.Vector(off)
		vecLen := tab.VectorLen(off)
		for i := 0; i < vecLen; i++ {
			elemPos := tab.Indirect(vecPos + flatbuffers.UOffsetT(i)*4)
			e := tableAt(body, elemPos)
			p.Sig = append(p.Sig, SigEntry{Digest: store.CallSigDigest(e.u64(0)), Func: store.FuncID(e.str(1))})
		}
	}
	if off := flatbuffers.UOffsetT(tab.Offset(vtableOffset(slotVTable))); off != 0 {
		vecPos := tab.Vector(off)
		vecLen := tab.VectorLen(off)
		for i := 0; i < vecLen; i++ {
			elemPos := tab.Indirect(vecPos + flatbuffers.UOffsetT(i)*4)
			e := tableAt(body, elemPos)
			p.VTable = append(p.VTable, VTableEntry{Global: e.str(0), Func: store.FuncID(e.str(1))})
		}
	}
	return p
}
