package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goguard/mlta/internal/store"
)

func TestResultCache_PutGetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	c := &ResultCache{Dir: dir, MaxEntries: 20}

	p := Payload{
		Confine: []ConfineEntry{{Slot: store.SlotKey{Type: 1, Field: 0}, Func: "pkg.F"}},
	}

	if err := c.Put("fp1", p); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, ok := c.Get("fp1")
	if !ok {
		t.Fatal("expected a hit for the fingerprint just written")
	}
	if len(got.Confine) != 1 || got.Confine[0].Func != "pkg.F" {
		t.Errorf("unexpected payload after round trip: %+v", got)
	}
}

func TestResultCache_GetMissOnUnknownFingerprint(t *testing.T) {
	dir := t.TempDir()
	c := &ResultCache{Dir: dir, MaxEntries: 20}

	if _, ok := c.Get("never-written"); ok {
		t.Fatal("expected a miss for a fingerprint that was never written")
	}
}

func TestResultCache_GetMissOnStaleEngineVersion(t *testing.T) {
	dir := t.TempDir()
	c := &ResultCache{Dir: dir, MaxEntries: 20}

	if err := c.Put("fp1", Payload{}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// Corrupt the meta sidecar to simulate a cache entry written by an
	// older, incompatible engine version.
	metaPath := filepath.Join(dir, "fp1.meta.json")
	stale := `{"fingerprint":"fp1","engine_version":"mlta-cache-v0"}`
	if err := os.WriteFile(metaPath, []byte(stale), 0o644); err != nil {
		t.Fatalf("writing stale meta: %v", err)
	}

	if _, ok := c.Get("fp1"); ok {
		t.Fatal("expected a miss when the cached entry's engine version doesn't match")
	}
}

func TestResultCache_EvictsOldestBeyondMaxEntries(t *testing.T) {
	dir := t.TempDir()
	c := &ResultCache{Dir: dir, MaxEntries: 2}

	for _, fp := range []string{"fp1", "fp2", "fp3"} {
		if err := c.Put(fp, Payload{}); err != nil {
			t.Fatalf("Put(%s) failed: %v", fp, err)
		}
		// Sleep so each entry's CreatedAt is distinct regardless of clock
		// resolution, keeping eviction order deterministic.
		time.Sleep(2 * time.Millisecond)
	}

	if _, ok := c.Get("fp1"); ok {
		t.Error("expected the oldest entry to have been evicted once MaxEntries was exceeded")
	}
	if _, ok := c.Get("fp3"); !ok {
		t.Error("expected the newest entry to survive eviction")
	}
}
