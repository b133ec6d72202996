package graphstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemStore is an in-memory GraphStore used by package tests across
// graphstore, knowledge, worker, and orchestrator (SPEC_FULL.md §8: "no
// live Postgres available at authoring time"). It enforces the same
// invariants I1-I6 as the Postgres-backed Store, but its StructuralQuery
// only understands the predicate shapes this repo's own code and tests use
// (an empty clause, "id = $1", or "kind = $1 AND name = $2") matched by
// inspecting params directly rather than parsing where as SQL; it is a test
// double, not a general query engine.
type MemStore struct {
	mu       sync.Mutex
	nextID   int64
	dim      int
	nodes    map[int64]*Node
	edges    []Edge
	nextEdge int64
}

// NewMemStore returns an empty in-memory GraphStore sized to dim.
func NewMemStore(dim int) *MemStore {
	return &MemStore{dim: dim, nodes: make(map[int64]*Node)}
}

func (m *MemStore) CreateNode(_ context.Context, kind NodeKind, name, description, summary string, belongsTo []NodeRef, extra map[string]any) (int64, error) {
	if !kind.Valid() {
		return 0, ErrInvalidArguments(fmt.Sprintf("graphstore: unknown node kind %q", kind))
	}
	if kind == Knowledge && summary == "" {
		return 0, ErrInvalidArguments("graphstore: Knowledge node requires a summary")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, n := range m.nodes {
		if n.Kind == kind && n.Name == name {
			return 0, ErrDuplicateName(kind, name)
		}
	}

	m.nextID++
	id := m.nextID
	m.nodes[id] = &Node{ID: id, Kind: kind, Name: name, Description: description, Summary: summary, Extra: extra}

	for _, ref := range belongsTo {
		parentID, err := m.resolveRefLocked(ref)
		if err != nil {
			delete(m.nodes, id)
			m.nextID--
			return 0, err
		}
		m.nextEdge++
		m.edges = append(m.edges, Edge{ID: m.nextEdge, Source: id, Target: parentID, Relationship: BelongsTo})
	}
	return id, nil
}

func (m *MemStore) SetEmbedding(_ context.Context, id int64, vec []float32) error {
	if len(vec) != m.dim {
		return ErrDimensionMismatch(len(vec), m.dim)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[id]
	if !ok {
		return ErrNotFound(fmt.Sprintf("graphstore: node %d not found", id))
	}
	n.Embedding = append([]float32(nil), vec...)
	return nil
}

func (m *MemStore) CreateEdge(_ context.Context, srcRefs, dstRefs []NodeRef, relType, description string) (int64, error) {
	if relType == BelongsTo {
		return 0, ErrInvalidArguments("graphstore: BELONGS_TO is reserved and created implicitly by CreateNode")
	}
	if len(srcRefs) == 0 || len(dstRefs) == 0 {
		return 0, ErrInvalidArguments("graphstore: CreateEdge requires at least one source and one target ref")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var lastID int64
	for _, src := range srcRefs {
		srcID, err := m.resolveRefLocked(src)
		if err != nil {
			return 0, err
		}
		for _, dst := range dstRefs {
			dstID, err := m.resolveRefLocked(dst)
			if err != nil {
				return 0, err
			}
			m.nextEdge++
			lastID = m.nextEdge
			m.edges = append(m.edges, Edge{ID: lastID, Source: srcID, Target: dstID, Relationship: relType, Description: description})
		}
	}
	return lastID, nil
}

func (m *MemStore) Alter(_ context.Context, kind NodeKind, id int64, opts AlterOpts) error {
	if opts.Delete == (opts.Fields != nil) {
		return ErrInvalidArguments("graphstore: Alter requires exactly one of Delete or Fields")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.nodes[id]
	if !ok || n.Kind != kind {
		return ErrNotFound(fmt.Sprintf("graphstore: node %d (%s) not found", id, kind))
	}

	if opts.Delete {
		delete(m.nodes, id)
		kept := m.edges[:0]
		for _, e := range m.edges {
			if e.Source != id && e.Target != id {
				kept = append(kept, e)
			}
		}
		m.edges = kept
		return nil
	}

	f := opts.Fields
	if f.Name != nil {
		n.Name = *f.Name
	}
	if f.Description != nil {
		n.Description = *f.Description
	}
	if f.Summary != nil {
		n.Summary = *f.Summary
	}
	if f.Extra != nil {
		n.Extra = f.Extra
	}
	if f.Embedding != nil {
		if len(f.Embedding) != m.dim {
			return ErrDimensionMismatch(len(f.Embedding), m.dim)
		}
		n.Embedding = append([]float32(nil), f.Embedding...)
	}
	return nil
}

func (m *MemStore) StructuralQuery(_ context.Context, _, where, ret string, params map[string]any) ([]Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var filterID *int64
	var filterKind *NodeKind
	var filterName *string
	if where != "" {
		if id, ok := params["id"].(int64); ok {
			filterID = &id
		}
		if k, ok := params["kind"].(string); ok {
			kind := NodeKind(k)
			filterKind = &kind
		}
		if name, ok := params["name"].(string); ok {
			filterName = &name
		}
	}

	ids := make([]int64, 0, len(m.nodes))
	for id := range m.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []Row
	for _, id := range ids {
		if filterID != nil && id != *filterID {
			continue
		}
		n := m.nodes[id]
		if filterKind != nil && n.Kind != *filterKind {
			continue
		}
		if filterName != nil && n.Name != *filterName {
			continue
		}
		out = append(out, Row{"id": n.ID, "kind": string(n.Kind), "name": n.Name, "description": n.Description, "summary": n.Summary})
		if len(out) == 20 {
			break
		}
	}
	_ = ret
	if out == nil {
		out = []Row{}
	}
	return out, nil
}

func (m *MemStore) VectorQuery(_ context.Context, kind NodeKind, queryVec []float32, k int, minScore float64) ([]VectorHit, error) {
	if k <= 0 {
		return []VectorHit{}, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var hits []VectorHit
	for _, n := range m.nodes {
		if n.Kind != kind || n.Embedding == nil {
			continue
		}
		score := cosineSimilarity(queryVec, n.Embedding)
		if score >= minScore {
			hits = append(hits, VectorHit{ID: n.ID, Name: n.Name, Description: n.Description, Score: score})
		}
	}
	sortHits(hits)
	if len(hits) > k {
		hits = hits[:k]
	}
	if hits == nil {
		hits = []VectorHit{}
	}
	return hits, nil
}

func (m *MemStore) HybridQuery(_ context.Context, srcKind NodeKind, queryVec []float32, relType string, dstKind NodeKind, k int, minScore float64) ([]HybridHit, error) {
	if k <= 0 {
		return []HybridHit{}, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var hits []HybridHit
	for _, e := range m.edges {
		if e.Relationship != relType {
			continue
		}
		src, ok := m.nodes[e.Source]
		if !ok || src.Kind != srcKind || src.Embedding == nil {
			continue
		}
		dst, ok := m.nodes[e.Target]
		if !ok || dst.Kind != dstKind {
			continue
		}
		score := cosineSimilarity(queryVec, src.Embedding)
		if score >= minScore {
			hits = append(hits, HybridHit{Source: *src, Target: *dst, Score: score})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Source.ID < hits[j].Source.ID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	if hits == nil {
		hits = []HybridHit{}
	}
	return hits, nil
}

// SchemaInit is a no-op for MemStore: there is no runtime DDL to apply.
func (m *MemStore) SchemaInit(_ context.Context) error { return nil }

func (m *MemStore) resolveRefLocked(ref NodeRef) (int64, error) {
	if ref.ID != 0 {
		if _, ok := m.nodes[ref.ID]; !ok {
			return 0, ErrNotFound(fmt.Sprintf("graphstore: node %s not found", ref))
		}
		return ref.ID, nil
	}
	for id, n := range m.nodes {
		if n.Kind == ref.Kind && n.Name == ref.Name {
			return id, nil
		}
	}
	return 0, ErrNotFound(fmt.Sprintf("graphstore: node %s not found", ref))
}
