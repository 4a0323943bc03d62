package registry

import (
	"fmt"
	"testing"
	"time"

	"github.com/peternagy/mongoscope/internal/types"
)

func newTestRegistry() (*Registry, *MemoryRepository) {
	repo := NewMemoryRepository()
	reg := New(repo, nil)
	return reg, repo
}

func profile(id, name string) types.ConnectionProfile {
	return types.ConnectionProfile{
		ID:   id,
		Name: name,
		URI:  "mongodb://localhost:27017/" + id,
	}
}

// =============================================================================
// Add / eviction
// =============================================================================

func TestAddActivatesNewProfile(t *testing.T) {
	reg, _ := newTestRegistry()

	reg.Add(profile("a", "first"))
	added := reg.Add(profile("b", "second"))

	if !added.IsActive {
		t.Error("Add() should return the new profile marked active")
	}

	active, ok := reg.Active()
	if !ok || active.ID != "b" {
		t.Errorf("Active() = %q, want %q", active.ID, "b")
	}

	for _, p := range reg.List() {
		if p.ID != "b" && p.IsActive {
			t.Errorf("profile %q should not be active", p.ID)
		}
	}
}

func TestAddGeneratesMissingID(t *testing.T) {
	reg, _ := newTestRegistry()

	added := reg.Add(types.ConnectionProfile{Name: "no id", URI: "mongodb://localhost:27017"})
	if added.ID == "" {
		t.Error("Add() should generate an ID when none is given")
	}
}

func TestAddEvictsOldestPastLimit(t *testing.T) {
	reg, _ := newTestRegistry()

	for i := 0; i < MaxProfiles+2; i++ {
		reg.Add(profile(fmt.Sprintf("p%d", i), fmt.Sprintf("profile %d", i)))
	}

	profiles := reg.List()
	if len(profiles) != MaxProfiles {
		t.Fatalf("List() returned %d profiles, want %d", len(profiles), MaxProfiles)
	}

	// p0 and p1 were the oldest; they should be gone.
	for _, p := range profiles {
		if p.ID == "p0" || p.ID == "p1" {
			t.Errorf("profile %q should have been evicted", p.ID)
		}
	}

	active, ok := reg.Active()
	if !ok || active.ID != fmt.Sprintf("p%d", MaxProfiles+1) {
		t.Errorf("newest profile should be active, got %q", active.ID)
	}
}

func TestEvictionSkipsActiveProfile(t *testing.T) {
	reg, _ := newTestRegistry()

	for i := 0; i < MaxProfiles; i++ {
		reg.Add(profile(fmt.Sprintf("p%d", i), fmt.Sprintf("profile %d", i)))
	}

	// Re-activate the oldest, then add past the bound: the oldest survives
	// because it is active; the oldest non-active (p1) is evicted instead.
	reg.SetActive("p0")
	reg.Add(profile("p5", "profile 5"))

	if _, ok := reg.Get("p0"); !ok {
		t.Error("active profile p0 should never be evicted while selected")
	}
	if _, ok := reg.Get("p1"); ok {
		t.Error("oldest non-active profile p1 should have been evicted")
	}
	active, _ := reg.Active()
	if active.ID != "p5" {
		t.Errorf("Add() should have activated p5, got %q", active.ID)
	}
}

func TestAddExemptsOutgoingSelectionFromTrim(t *testing.T) {
	reg, _ := newTestRegistry()

	// Fill to the bound; p0 holds the selection when the next add lands.
	for i := 0; i < MaxProfiles; i++ {
		reg.Add(profile(fmt.Sprintf("p%d", i), fmt.Sprintf("profile %d", i)))
	}
	reg.SetActive("p0")

	reg.Add(profile("p5", "profile 5"))

	// The add hands the selection to p5, but the trim must still spare
	// the profile that was selected when the insert happened.
	if _, ok := reg.Get("p0"); !ok {
		t.Error("the outgoing selection must survive the trim")
	}
	if _, ok := reg.Get("p5"); !ok {
		t.Error("the new profile must survive the trim")
	}
	if _, ok := reg.Get("p1"); ok {
		t.Error("p1 was the oldest evictable profile and should be gone")
	}
	if len(reg.List()) != MaxProfiles {
		t.Errorf("List() returned %d profiles, want %d", len(reg.List()), MaxProfiles)
	}
}

// =============================================================================
// Remove
// =============================================================================

func TestRemoveActiveClearsSelectionAndCache(t *testing.T) {
	reg, _ := newTestRegistry()

	p := reg.Add(profile("a", "only"))
	reg.SetDatabases(p.URI, []types.DatabaseInfo{{Name: "admin"}})

	reg.Remove("a")

	if _, ok := reg.Active(); ok {
		t.Error("removing the active profile should clear the selection")
	}
	if dbs := reg.Databases(); len(dbs) != 0 {
		t.Errorf("removing the active profile should clear cached databases, got %d", len(dbs))
	}
}

func TestRemoveInactiveKeepsSelection(t *testing.T) {
	reg, _ := newTestRegistry()

	reg.Add(profile("a", "first"))
	b := reg.Add(profile("b", "second"))
	reg.SetDatabases(b.URI, []types.DatabaseInfo{{Name: "admin"}})

	reg.Remove("a")

	active, ok := reg.Active()
	if !ok || active.ID != "b" {
		t.Errorf("removing an inactive profile should keep the selection, got %q", active.ID)
	}
	if dbs := reg.Databases(); len(dbs) != 1 {
		t.Errorf("removing an inactive profile should keep the cache, got %d databases", len(dbs))
	}
}

func TestRemoveUnknownIsNoOp(t *testing.T) {
	reg, repo := newTestRegistry()
	reg.Add(profile("a", "first"))
	saves := repo.SaveCount

	reg.Remove("missing")

	if len(reg.List()) != 1 {
		t.Error("removing an unknown id should not change the profile list")
	}
	if repo.SaveCount != saves {
		t.Error("removing an unknown id should not persist")
	}
}

// =============================================================================
// Activation and status
// =============================================================================

func TestSetActiveForcesConnectedAndClearsCache(t *testing.T) {
	reg, _ := newTestRegistry()

	reg.Add(profile("a", "first"))
	reg.Add(profile("b", "second"))
	reg.UpdateStatus("a", types.StatusError, "boom")
	reg.SetDatabases("mongodb://localhost:27017/b", []types.DatabaseInfo{{Name: "admin"}})

	reg.SetActive("a")

	got, _ := reg.Get("a")
	if got.Status != types.StatusConnected {
		t.Errorf("SetActive() status = %q, want %q", got.Status, types.StatusConnected)
	}
	if got.Error != "" {
		t.Errorf("SetActive() should clear the error, got %q", got.Error)
	}
	if got.LastConnected == nil {
		t.Error("SetActive() should stamp lastConnected")
	}
	if dbs := reg.Databases(); len(dbs) != 0 {
		t.Errorf("SetActive() should invalidate cached databases, got %d", len(dbs))
	}
}

func TestSetActiveUnknownClearsSelection(t *testing.T) {
	reg, _ := newTestRegistry()
	reg.Add(profile("a", "first"))

	reg.SetActive("missing")

	if _, ok := reg.Active(); ok {
		t.Error("activating an unknown id should clear the selection")
	}
	for _, p := range reg.List() {
		if p.IsActive {
			t.Errorf("profile %q should not be active", p.ID)
		}
	}
}

func TestSetActiveEmptyClearsSelection(t *testing.T) {
	reg, _ := newTestRegistry()
	p := reg.Add(profile("a", "first"))
	reg.SetDatabases(p.URI, []types.DatabaseInfo{{Name: "admin"}})

	reg.SetActive("")

	if _, ok := reg.Active(); ok {
		t.Error("SetActive(\"\") should clear the selection")
	}
	if dbs := reg.Databases(); len(dbs) != 0 {
		t.Error("clearing the selection should invalidate the cache")
	}
}

func TestUpdateStatusTransitions(t *testing.T) {
	reg, _ := newTestRegistry()
	reg.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	reg.Add(profile("a", "first"))

	reg.UpdateStatus("a", types.StatusError, "connection refused")
	got, _ := reg.Get("a")
	if got.Status != types.StatusError || got.Error != "connection refused" {
		t.Errorf("error transition: status=%q error=%q", got.Status, got.Error)
	}

	reg.UpdateStatus("a", types.StatusConnected, "")
	got, _ = reg.Get("a")
	if got.Status != types.StatusConnected {
		t.Errorf("connected transition: status = %q", got.Status)
	}
	if got.Error != "" {
		t.Errorf("connected transition should clear the error, got %q", got.Error)
	}
	if got.LastConnected == nil || !got.LastConnected.Equal(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("connected transition should stamp lastConnected, got %v", got.LastConnected)
	}

	reg.UpdateStatus("a", types.StatusDisconnected, "ignored")
	got, _ = reg.Get("a")
	if got.Error != "" {
		t.Errorf("error message should only be kept for the error status, got %q", got.Error)
	}
	if got.LastConnected == nil {
		t.Error("lastConnected should survive a disconnect")
	}
}

func TestUpdateStatusUnknownIsNoOp(t *testing.T) {
	reg, repo := newTestRegistry()
	reg.Add(profile("a", "first"))
	saves := repo.SaveCount

	reg.UpdateStatus("missing", types.StatusConnected, "")

	if repo.SaveCount != saves {
		t.Error("updating an unknown id should not persist")
	}
}

// =============================================================================
// Edit
// =============================================================================

func TestEditMergesNonNilFields(t *testing.T) {
	reg, _ := newTestRegistry()
	reg.Add(types.ConnectionProfile{
		ID:   "a",
		Name: "old name",
		URI:  "mongodb://old:27017",
		Params: &types.ConnectionParams{Host: "old", Port: "27017"},
	})

	newName := "new name"
	reg.Edit("a", types.ProfileUpdate{Name: &newName})

	got, _ := reg.Get("a")
	if got.Name != "new name" {
		t.Errorf("Edit() name = %q, want %q", got.Name, "new name")
	}
	if got.URI != "mongodb://old:27017" {
		t.Errorf("Edit() should not touch fields left nil, URI = %q", got.URI)
	}
	if got.Params == nil || got.Params.Host != "old" {
		t.Error("Edit() should not touch params left nil")
	}

	newURI := "mongodb://new:27017"
	reg.Edit("a", types.ProfileUpdate{URI: &newURI, Params: &types.ConnectionParams{Host: "new", Port: "27017"}})

	got, _ = reg.Get("a")
	if got.URI != newURI {
		t.Errorf("Edit() URI = %q, want %q", got.URI, newURI)
	}
	if got.Name != "new name" {
		t.Errorf("Edit() should keep the previously set name, got %q", got.Name)
	}
	if got.Params.Host != "new" {
		t.Errorf("Edit() params host = %q, want %q", got.Params.Host, "new")
	}
}

// =============================================================================
// Summary cache staleness
// =============================================================================

func TestSetDatabasesDiscardsStaleFetch(t *testing.T) {
	reg, _ := newTestRegistry()
	a := reg.Add(profile("a", "first"))
	b := reg.Add(profile("b", "second"))

	// A fetch started while "a" was active lands after "b" took over.
	if reg.SetDatabases(a.URI, []types.DatabaseInfo{{Name: "stale"}}) {
		t.Error("SetDatabases() should discard results for a non-active URI")
	}
	if dbs := reg.Databases(); len(dbs) != 0 {
		t.Errorf("stale databases should not be cached, got %d", len(dbs))
	}

	if !reg.SetDatabases(b.URI, []types.DatabaseInfo{{Name: "fresh"}}) {
		t.Error("SetDatabases() should accept results for the active URI")
	}
	dbs := reg.Databases()
	if len(dbs) != 1 || dbs[0].Name != "fresh" {
		t.Errorf("Databases() = %v, want [fresh]", dbs)
	}
}

func TestSetCollectionsDiscardsStaleFetch(t *testing.T) {
	reg, _ := newTestRegistry()
	a := reg.Add(profile("a", "first"))
	b := reg.Add(profile("b", "second"))

	if reg.SetCollections(a.URI, "db1", []types.CollectionInfo{{Name: "stale"}}) {
		t.Error("SetCollections() should discard results for a non-active URI")
	}
	if _, ok := reg.Collections("db1"); ok {
		t.Error("stale collections should not be cached")
	}

	if !reg.SetCollections(b.URI, "db1", []types.CollectionInfo{{Name: "users"}}) {
		t.Error("SetCollections() should accept results for the active URI")
	}
	colls, ok := reg.Collections("db1")
	if !ok || len(colls) != 1 || colls[0].Name != "users" {
		t.Errorf("Collections(db1) = %v, want [users]", colls)
	}
}

// =============================================================================
// Persistence
// =============================================================================

func TestMutationsPersist(t *testing.T) {
	reg, repo := newTestRegistry()

	reg.Add(profile("a", "first"))
	reg.UpdateStatus("a", types.StatusConnected, "")
	name := "renamed"
	reg.Edit("a", types.ProfileUpdate{Name: &name})
	reg.Remove("a")

	if repo.SaveCount != 4 {
		t.Errorf("SaveCount = %d, want 4 (one per mutation)", repo.SaveCount)
	}
}

func TestLoadRehydratesProfilesAndSelection(t *testing.T) {
	repo := NewMemoryRepository()
	a := profile("a", "first")
	b := profile("b", "second")
	b.IsActive = true
	repo.Seed(&types.PersistedState{
		Version:          types.StateVersion,
		Connections:      []types.ConnectionProfile{a, b},
		ActiveConnection: &b,
	})

	reg := New(repo, nil)
	reg.Load()

	if len(reg.List()) != 2 {
		t.Fatalf("List() returned %d profiles, want 2", len(reg.List()))
	}
	active, ok := reg.Active()
	if !ok || active.ID != "b" {
		t.Errorf("Active() = %q, want %q", active.ID, "b")
	}
}

func TestLoadIgnoresDanglingActiveReference(t *testing.T) {
	repo := NewMemoryRepository()
	a := profile("a", "first")
	ghost := profile("ghost", "deleted elsewhere")
	repo.Seed(&types.PersistedState{
		Version:          types.StateVersion,
		Connections:      []types.ConnectionProfile{a},
		ActiveConnection: &ghost,
	})

	reg := New(repo, nil)
	reg.Load()

	if _, ok := reg.Active(); ok {
		t.Error("an active reference to a missing profile should be dropped")
	}
}

// =============================================================================
// End to end
// =============================================================================

func TestAddAddRemoveScenario(t *testing.T) {
	reg, _ := newTestRegistry()

	a := reg.Add(profile("a", "first"))
	reg.SetDatabases(a.URI, []types.DatabaseInfo{{Name: "adb"}})

	b := reg.Add(profile("b", "second"))
	if dbs := reg.Databases(); len(dbs) != 0 {
		t.Fatal("adding b should have invalidated a's cached databases")
	}
	reg.SetDatabases(b.URI, []types.DatabaseInfo{{Name: "bdb"}})

	// Removing the inactive "a" leaves b's world untouched.
	reg.Remove("a")
	active, ok := reg.Active()
	if !ok || active.ID != "b" {
		t.Fatalf("Active() = %q, want %q", active.ID, "b")
	}
	dbs := reg.Databases()
	if len(dbs) != 1 || dbs[0].Name != "bdb" {
		t.Errorf("Databases() = %v, want [bdb]", dbs)
	}
}
