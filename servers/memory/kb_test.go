package memory

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func newTestStore(t *testing.T) graphStore {
	t.Helper()
	dir := t.TempDir()
	return newGraphStore(filepath.Join(dir, "graph.json"))
}

func TestNewGraphStore(t *testing.T) {
	store := newGraphStore("test.json")
	if store.path != "test.json" {
		t.Errorf("path = %q, want %q", store.path, "test.json")
	}
}

func TestGraphStoreLoadOfMissingFileIsEmpty(t *testing.T) {
	store := newTestStore(t)

	snap, err := store.load()
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}
	if len(snap.Entities) != 0 || len(snap.Relations) != 0 {
		t.Errorf("load() = %+v, want empty snapshot", snap)
	}
}

func TestGraphStoreCreateEntitiesSkipsDuplicates(t *testing.T) {
	store := newTestStore(t)

	created, err := store.createEntities([]entity{
		{Name: "Alice", EntityType: "Person", Observations: []string{"likes coffee"}},
		{Name: "Bob", EntityType: "Person", Observations: []string{"likes tea"}},
	})
	if err != nil {
		t.Fatalf("createEntities() error = %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("createEntities() = %+v, want 2 new entities", created)
	}

	// Alice already exists after the call above; only Eve is new here.
	created, err = store.createEntities([]entity{
		{Name: "Alice", EntityType: "Person", Observations: []string{"sings well"}},
		{Name: "Eve", EntityType: "Person", Observations: []string{"plays piano"}},
	})
	if err != nil {
		t.Fatalf("createEntities() error = %v", err)
	}
	if len(created) != 1 || created[0].Name != "Eve" {
		t.Errorf("createEntities() = %+v, want only Eve", created)
	}

	snap, err := store.readGraph()
	if err != nil {
		t.Fatalf("readGraph() error = %v", err)
	}
	if len(snap.Entities) != 3 {
		t.Errorf("Entities = %+v, want 3 total", snap.Entities)
	}
}

func TestGraphStoreCreateRelationsSkipsDuplicates(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.createEntities([]entity{{Name: "Alice"}, {Name: "Bob"}}); err != nil {
		t.Fatalf("createEntities() error = %v", err)
	}

	if _, err := store.createRelations([]relation{{From: "Alice", To: "Bob", RelationType: "friend"}}); err != nil {
		t.Fatalf("createRelations() error = %v", err)
	}

	created, err := store.createRelations([]relation{
		{From: "Alice", To: "Bob", RelationType: "friend"},
		{From: "Bob", To: "Alice", RelationType: "friend"},
	})
	if err != nil {
		t.Fatalf("createRelations() error = %v", err)
	}
	if len(created) != 1 || created[0].From != "Bob" || created[0].To != "Alice" {
		t.Errorf("createRelations() = %+v, want only Bob->Alice", created)
	}
}

func TestGraphStoreAddObservationsSkipsDuplicateContent(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.createEntities([]entity{{Name: "Alice", Observations: []string{"likes coffee"}}}); err != nil {
		t.Fatalf("createEntities() error = %v", err)
	}

	added, err := store.addObservations([]observation{
		{EntityName: "Alice", Contents: []string{"likes coffee", "works as developer"}},
	})
	if err != nil {
		t.Fatalf("addObservations() error = %v", err)
	}
	if len(added) != 1 || len(added[0].Contents) != 1 || added[0].Contents[0] != "works as developer" {
		t.Errorf("addObservations() = %+v, want only the new observation", added)
	}
}

func TestGraphStoreAddObservationsUnknownEntity(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.addObservations([]observation{{EntityName: "Ghost", Contents: []string{"boo"}}}); err == nil {
		t.Error("addObservations() to a nonexistent entity: want error, got nil")
	}
}

func TestGraphStoreDeleteEntitiesCascadesRelations(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.createEntities([]entity{{Name: "Alice"}, {Name: "Bob"}, {Name: "Carol"}}); err != nil {
		t.Fatalf("createEntities() error = %v", err)
	}
	if _, err := store.createRelations([]relation{
		{From: "Alice", To: "Bob", RelationType: "friend"},
		{From: "Bob", To: "Carol", RelationType: "friend"},
	}); err != nil {
		t.Fatalf("createRelations() error = %v", err)
	}

	if err := store.deleteEntities([]string{"Bob"}); err != nil {
		t.Fatalf("deleteEntities() error = %v", err)
	}

	snap, err := store.readGraph()
	if err != nil {
		t.Fatalf("readGraph() error = %v", err)
	}
	if len(snap.Entities) != 2 {
		t.Errorf("Entities = %+v, want Alice and Carol only", snap.Entities)
	}
	if len(snap.Relations) != 0 {
		t.Errorf("Relations = %+v, want both relations gone with Bob", snap.Relations)
	}
}

func TestGraphStoreDeleteObservations(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.createEntities([]entity{{Name: "Alice", Observations: []string{"works as developer", "lives in NYC"}}}); err != nil {
		t.Fatalf("createEntities() error = %v", err)
	}

	if err := store.deleteObservations([]observation{{EntityName: "Alice", Observations: []string{"works as developer"}}}); err != nil {
		t.Fatalf("deleteObservations() error = %v", err)
	}

	snap, err := store.readGraph()
	if err != nil {
		t.Fatalf("readGraph() error = %v", err)
	}
	if len(snap.Entities) != 1 || len(snap.Entities[0].Observations) != 1 || snap.Entities[0].Observations[0] != "lives in NYC" {
		t.Errorf("Entities = %+v, want only 'lives in NYC' left", snap.Entities)
	}
}

func TestGraphStoreDeleteRelations(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.createEntities([]entity{{Name: "Alice"}, {Name: "Bob"}}); err != nil {
		t.Fatalf("createEntities() error = %v", err)
	}
	rel := relation{From: "Alice", To: "Bob", RelationType: "friend"}
	if _, err := store.createRelations([]relation{rel}); err != nil {
		t.Fatalf("createRelations() error = %v", err)
	}

	if err := store.deleteRelations([]relation{rel}); err != nil {
		t.Fatalf("deleteRelations() error = %v", err)
	}

	snap, err := store.readGraph()
	if err != nil {
		t.Fatalf("readGraph() error = %v", err)
	}
	if len(snap.Relations) != 0 {
		t.Errorf("Relations = %+v, want empty after deletion", snap.Relations)
	}
}

func TestGraphStoreSearchNodesMatchesNameTypeAndObservations(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.createEntities([]entity{
		{Name: "Alice", EntityType: "Person", Observations: []string{"works as developer"}},
		{Name: "Acme", EntityType: "Company"},
	}); err != nil {
		t.Fatalf("createEntities() error = %v", err)
	}
	if _, err := store.createRelations([]relation{{From: "Alice", To: "Acme", RelationType: "works_at"}}); err != nil {
		t.Fatalf("createRelations() error = %v", err)
	}

	byObservation, err := store.searchNodes("developer")
	if err != nil {
		t.Fatalf("searchNodes() error = %v", err)
	}
	if len(byObservation.Entities) != 1 || byObservation.Entities[0].Name != "Alice" {
		t.Errorf("searchNodes(developer) = %+v, want only Alice", byObservation.Entities)
	}

	byName, err := store.searchNodes("acme")
	if err != nil {
		t.Fatalf("searchNodes() error = %v", err)
	}
	if len(byName.Entities) != 1 || byName.Entities[0].Name != "Acme" {
		t.Errorf("searchNodes(acme) = %+v, want only Acme", byName.Entities)
	}
	if len(byName.Relations) != 0 {
		t.Errorf("searchNodes(acme) Relations = %+v, want none since Alice isn't matched", byName.Relations)
	}
}

func TestGraphStoreOpenNodesIncludesRelationsBetweenOpened(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.createEntities([]entity{{Name: "Alice"}, {Name: "Bob"}, {Name: "Carol"}}); err != nil {
		t.Fatalf("createEntities() error = %v", err)
	}
	if _, err := store.createRelations([]relation{
		{From: "Alice", To: "Bob", RelationType: "friend"},
		{From: "Bob", To: "Carol", RelationType: "friend"},
	}); err != nil {
		t.Fatalf("createRelations() error = %v", err)
	}

	opened, err := store.openNodes([]string{"Alice", "Bob"})
	if err != nil {
		t.Fatalf("openNodes() error = %v", err)
	}
	if len(opened.Entities) != 2 {
		t.Errorf("openNodes() Entities = %+v, want Alice and Bob", opened.Entities)
	}
	if len(opened.Relations) != 1 {
		t.Errorf("openNodes() Relations = %+v, want the Alice->Bob relation only", opened.Relations)
	}
}

func TestGraphStorePersistThenLoadRoundTrips(t *testing.T) {
	store := newTestStore(t)

	want := snapshot{
		Entities: []entity{
			{Name: "Charlie", EntityType: "Person", Observations: []string{"likes hiking"}},
		},
		Relations: []relation{
			{From: "Charlie", To: "Mountains", RelationType: "enjoys"},
		},
	}
	if err := store.persist(want); err != nil {
		t.Fatalf("persist() error = %v", err)
	}

	got, err := store.load()
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}
	if !reflect.DeepEqual(want, got) {
		t.Errorf("load() = %+v, want %+v", got, want)
	}
}

func TestGraphStoreLoadRejectsInvalidJSON(t *testing.T) {
	store := newTestStore(t)
	if err := os.WriteFile(store.path, []byte("not json"), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := store.load(); err == nil {
		t.Error("load() of malformed JSON: want error, got nil")
	}
}

func TestGraphStoreCreateEntitiesFailsUnderMissingDirectory(t *testing.T) {
	store := newGraphStore(filepath.Join(t.TempDir(), "missing-subdir", "graph.json"))
	if _, err := store.createEntities([]entity{{Name: "TestEntity"}}); err == nil {
		t.Error("createEntities() into a directory that doesn't exist: want error, got nil")
	}
}

func TestGraphStorePersistedFileFormat(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.createEntities([]entity{
		{Name: "FileTest", EntityType: "TestEntity", Observations: []string{"test observation"}},
	}); err != nil {
		t.Fatalf("createEntities() error = %v", err)
	}

	raw, err := os.ReadFile(store.path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	var records []record
	if err := json.Unmarshal(raw, &records); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %+v, want 1", records)
	}

	got := records[0]
	if got.Type != "entity" || got.Name != "FileTest" || got.EntityType != "TestEntity" ||
		len(got.Observations) != 1 || got.Observations[0] != "test observation" {
		t.Errorf("persisted record = %+v, unexpected shape", got)
	}
}
