package graphstore

import "context"

// GraphStore is the Graph Store contract (C2) from spec.md §4.2. *Store is
// the Postgres/pgvector-backed implementation; *MemStore is an in-memory
// fake satisfying the same contract for tests that don't have a live
// Postgres instance available (per SPEC_FULL.md §8's test strategy).
type GraphStore interface {
	CreateNode(ctx context.Context, kind NodeKind, name, description, summary string, belongsTo []NodeRef, extra map[string]any) (int64, error)
	SetEmbedding(ctx context.Context, id int64, vec []float32) error
	CreateEdge(ctx context.Context, srcRefs, dstRefs []NodeRef, relType, description string) (int64, error)
	Alter(ctx context.Context, kind NodeKind, id int64, opts AlterOpts) error
	StructuralQuery(ctx context.Context, match, where, ret string, params map[string]any) ([]Row, error)
	VectorQuery(ctx context.Context, kind NodeKind, queryVec []float32, k int, minScore float64) ([]VectorHit, error)
	HybridQuery(ctx context.Context, srcKind NodeKind, queryVec []float32, relType string, dstKind NodeKind, k int, minScore float64) ([]HybridHit, error)
	SchemaInit(ctx context.Context) error
}

var (
	_ GraphStore = (*Store)(nil)
	_ GraphStore = (*MemStore)(nil)
)
