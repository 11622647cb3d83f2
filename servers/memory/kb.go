package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// graphStore is a knowledge graph persisted as a flat JSON array of tagged records, one per
// entity or relation, at a single file path. There is no in-memory cache: every operation
// reloads from disk, mutates, and writes back, so concurrent Server instances pointed at the
// same file observe each other's writes at the cost of a full rewrite per call.
type graphStore struct {
	path string
}

// record is the on-disk representation of one graph node or edge. Type discriminates which of
// the two field groups below is populated; the flat shape (rather than a JSON-tagged union)
// matches what the file already contains when a store is pointed at data written by the
// original memory server this one is compatible with.
type record struct {
	Type string `json:"type"`

	Name         string   `json:"name,omitempty"`
	EntityType   string   `json:"entityType,omitempty"`
	Observations []string `json:"observations,omitempty"`

	From         string `json:"from,omitempty"`
	To           string `json:"to,omitempty"`
	RelationType string `json:"relationType,omitempty"`
}

// snapshot is the in-memory view of a graphStore's contents for the duration of one operation.
type snapshot struct {
	Entities  []entity   `json:"entities"`
	Relations []relation `json:"relations"`
}

func newGraphStore(path string) graphStore {
	return graphStore{path: path}
}

func (g graphStore) load() (snapshot, error) {
	data, err := os.ReadFile(g.path)
	if err != nil {
		if os.IsNotExist(err) {
			return snapshot{}, nil
		}
		return snapshot{}, fmt.Errorf("memory: read %s: %w", g.path, err)
	}

	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return snapshot{}, fmt.Errorf("memory: decode %s: %w", g.path, err)
	}

	snap := snapshot{Entities: []entity{}, Relations: []relation{}}
	for _, r := range records {
		switch r.Type {
		case "entity":
			snap.Entities = append(snap.Entities, entity{
				Name:         r.Name,
				EntityType:   r.EntityType,
				Observations: r.Observations,
			})
		case "relation":
			snap.Relations = append(snap.Relations, relation{
				From:         r.From,
				To:           r.To,
				RelationType: r.RelationType,
			})
		}
	}
	return snap, nil
}

func (g graphStore) persist(snap snapshot) error {
	records := make([]record, 0, len(snap.Entities)+len(snap.Relations))
	for _, e := range snap.Entities {
		records = append(records, record{
			Type:         "entity",
			Name:         e.Name,
			EntityType:   e.EntityType,
			Observations: e.Observations,
		})
	}
	for _, r := range snap.Relations {
		records = append(records, record{
			Type:         "relation",
			From:         r.From,
			To:           r.To,
			RelationType: r.RelationType,
		})
	}

	encoded, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("memory: encode graph: %w", err)
	}
	return os.WriteFile(g.path, encoded, 0600)
}

// containsMatch reports whether any element of items satisfies match, generic over the record
// kind so the identity checks below (by entity name, by relation triple, by observation text)
// share one implementation instead of three copy-pasted loops.
func containsMatch[T any](items []T, match func(T) bool) bool {
	for _, item := range items {
		if match(item) {
			return true
		}
	}
	return false
}

func sameRelation(a, b relation) bool {
	return a.From == b.From && a.To == b.To && a.RelationType == b.RelationType
}

func (g graphStore) createEntities(candidates []entity) ([]entity, error) {
	snap, err := g.load()
	if err != nil {
		return nil, err
	}

	added := make([]entity, 0, len(candidates))
	for _, c := range candidates {
		if containsMatch(snap.Entities, func(e entity) bool { return e.Name == c.Name }) {
			continue
		}
		added = append(added, c)
		snap.Entities = append(snap.Entities, c)
	}

	if err := g.persist(snap); err != nil {
		return nil, err
	}
	return added, nil
}

func (g graphStore) createRelations(candidates []relation) ([]relation, error) {
	snap, err := g.load()
	if err != nil {
		return nil, err
	}

	added := make([]relation, 0, len(candidates))
	for _, c := range candidates {
		if containsMatch(snap.Relations, func(r relation) bool { return sameRelation(r, c) }) {
			continue
		}
		added = append(added, c)
		snap.Relations = append(snap.Relations, c)
	}

	if err := g.persist(snap); err != nil {
		return nil, err
	}
	return added, nil
}

func (g graphStore) addObservations(additions []observation) ([]observation, error) {
	snap, err := g.load()
	if err != nil {
		return nil, err
	}

	results := make([]observation, 0, len(additions))
	for _, add := range additions {
		idx := -1
		for i, e := range snap.Entities {
			if e.Name == add.EntityName {
				idx = i
				break
			}
		}
		if idx == -1 {
			return nil, fmt.Errorf("memory: entity %q not found", add.EntityName)
		}

		added := make([]string, 0, len(add.Contents))
		for _, content := range add.Contents {
			if containsMatch(snap.Entities[idx].Observations, func(o string) bool { return o == content }) {
				continue
			}
			added = append(added, content)
			snap.Entities[idx].Observations = append(snap.Entities[idx].Observations, content)
		}
		results = append(results, observation{EntityName: add.EntityName, Contents: added})
	}

	if err := g.persist(snap); err != nil {
		return nil, err
	}
	return results, nil
}

func (g graphStore) deleteEntities(names []string) error {
	snap, err := g.load()
	if err != nil {
		return err
	}

	doomed := make(map[string]struct{}, len(names))
	for _, n := range names {
		doomed[n] = struct{}{}
	}

	keptEntities := snap.Entities[:0:0]
	for _, e := range snap.Entities {
		if _, gone := doomed[e.Name]; !gone {
			keptEntities = append(keptEntities, e)
		}
	}
	snap.Entities = keptEntities

	keptRelations := snap.Relations[:0:0]
	for _, r := range snap.Relations {
		_, fromGone := doomed[r.From]
		_, toGone := doomed[r.To]
		if !fromGone && !toGone {
			keptRelations = append(keptRelations, r)
		}
	}
	snap.Relations = keptRelations

	return g.persist(snap)
}

func (g graphStore) deleteObservations(deletions []observation) error {
	snap, err := g.load()
	if err != nil {
		return err
	}

	for _, del := range deletions {
		for i, e := range snap.Entities {
			if e.Name != del.EntityName {
				continue
			}
			doomed := make(map[string]struct{}, len(del.Observations))
			for _, o := range del.Observations {
				doomed[o] = struct{}{}
			}
			kept := e.Observations[:0:0]
			for _, o := range e.Observations {
				if _, gone := doomed[o]; !gone {
					kept = append(kept, o)
				}
			}
			snap.Entities[i].Observations = kept
			break
		}
	}

	return g.persist(snap)
}

func (g graphStore) deleteRelations(doomed []relation) error {
	snap, err := g.load()
	if err != nil {
		return err
	}

	kept := snap.Relations[:0:0]
	for _, existing := range snap.Relations {
		if !containsMatch(doomed, func(d relation) bool { return sameRelation(existing, d) }) {
			kept = append(kept, existing)
		}
	}
	snap.Relations = kept

	return g.persist(snap)
}

func (g graphStore) readGraph() (snapshot, error) {
	return g.load()
}

func (g graphStore) searchNodes(query string) (snapshot, error) {
	snap, err := g.load()
	if err != nil {
		return snapshot{}, err
	}
	return filterByEntityNames(snap, matchingEntityNames(snap, query)), nil
}

func (g graphStore) openNodes(names []string) (snapshot, error) {
	snap, err := g.load()
	if err != nil {
		return snapshot{}, err
	}
	wanted := make(map[string]struct{}, len(names))
	for _, n := range names {
		wanted[n] = struct{}{}
	}
	return filterByEntityNames(snap, wanted), nil
}

// matchingEntityNames returns the set of entity names in snap whose name, type, or any
// observation contains query, case-insensitively.
func matchingEntityNames(snap snapshot, query string) map[string]struct{} {
	q := strings.ToLower(query)
	matched := make(map[string]struct{})
	for _, e := range snap.Entities {
		if strings.Contains(strings.ToLower(e.Name), q) || strings.Contains(strings.ToLower(e.EntityType), q) {
			matched[e.Name] = struct{}{}
			continue
		}
		for _, o := range e.Observations {
			if strings.Contains(strings.ToLower(o), q) {
				matched[e.Name] = struct{}{}
				break
			}
		}
	}
	return matched
}

// filterByEntityNames reduces snap to the entities named in wanted plus any relation whose
// endpoints are both in that set.
func filterByEntityNames(snap snapshot, wanted map[string]struct{}) snapshot {
	entities := make([]entity, 0, len(wanted))
	for _, e := range snap.Entities {
		if _, ok := wanted[e.Name]; ok {
			entities = append(entities, e)
		}
	}

	relations := make([]relation, 0)
	for _, r := range snap.Relations {
		_, fromOK := wanted[r.From]
		_, toOK := wanted[r.To]
		if fromOK && toOK {
			relations = append(relations, r)
		}
	}

	return snapshot{Entities: entities, Relations: relations}
}
