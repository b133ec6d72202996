// Package graphstore is the Postgres/pgvector-backed knowledge graph store.
// It exposes typed nodes, typed edges, and vector/hybrid search over a
// single relational schema, grounded on the pack's pgx/v5+pgvector store
// shape (one pool, one nodes table, one edges table).
package graphstore

import "fmt"

// NodeKind is the closed set of node labels the graph accepts.
type NodeKind string

const (
	TagCategory NodeKind = "TagCategory"
	Tag         NodeKind = "Tag"
	Topic       NodeKind = "Topic"
	Knowledge   NodeKind = "Knowledge"
)

// Valid reports whether k is one of the closed set of node kinds.
func (k NodeKind) Valid() bool {
	switch k {
	case TagCategory, Tag, Topic, Knowledge:
		return true
	default:
		return false
	}
}

// BelongsTo is the one reserved relationship name: edges with this
// relationship are emitted automatically alongside node creation (I2/I6)
// and must never be created directly through CreateEdge.
const BelongsTo = "BELONGS_TO"

// Node is a single entity in the knowledge graph.
type Node struct {
	ID          int64
	Kind        NodeKind
	Name        string
	Description string
	Summary     string
	// Embedding is nil when generation failed or was never attempted; such
	// nodes are excluded from vector queries (I5).
	Embedding []float32
	Extra     map[string]any
}

// Edge is a typed, directed relationship between two nodes.
type Edge struct {
	ID           int64
	Source       int64
	Target       int64
	Relationship string
	Description  string
}

// NodeRef identifies a node to attach an edge to, either by id (preferred,
// when the caller already resolved it) or by (kind, name) lookup.
type NodeRef struct {
	ID   int64
	Kind NodeKind
	Name string
}

func (r NodeRef) String() string {
	if r.ID != 0 {
		return fmt.Sprintf("#%d", r.ID)
	}
	return fmt.Sprintf("%s:%s", r.Kind, r.Name)
}

// Row is one result row of a StructuralQuery, keyed by the caller's return
// clause aliases.
type Row map[string]any

// VectorHit is one result of a VectorQuery.
type VectorHit struct {
	ID          int64
	Name        string
	Description string
	Score       float64
}

// HybridHit is one result of a HybridQuery: a source node matched by vector
// similarity, joined through a relationship to a target node.
type HybridHit struct {
	Source Node
	Target Node
	Score  float64
}

// AlterOpts describes a mutation to a node. Delete and Fields are mutually
// exclusive; exactly one must be set.
type AlterOpts struct {
	Delete bool
	Fields *NodeFields
}

// NodeFields holds the optionally-updated scalar fields of a node. A nil
// field is left unchanged.
//
// Embedding regeneration on rename (§9 "mid-stream LLM reconfiguration on
// rename") is a knowledge-layer concern: the caller resolves the new vector
// before calling Alter and passes it as Embedding so the rename and the
// embedding write commit in the same transaction.
type NodeFields struct {
	Name        *string
	Description *string
	Summary     *string
	Extra       map[string]any
	Embedding   []float32
}
