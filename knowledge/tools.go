// Package knowledge is the thin contract layer (C3) over the Graph Store
// and Embedding Provider: a closed set of operations consumable by the
// workers and the external API, dispatched through a single tagged-variant
// entry point instead of dynamic method lookup (§9 design note).
package knowledge

import (
	"context"

	"github.com/loglattice/orchestrator/embedding"
	"github.com/loglattice/orchestrator/graphstore"
	"go.uber.org/zap"
)

// Tools wraps a Graph Store and an Embedding Provider and exposes the
// closed set of operations listed in spec.md §4.3.
type Tools struct {
	Store    graphstore.GraphStore
	Embedder embedding.Provider
	Logger   *zap.Logger
}

// New creates a Tools instance. logger may be nil (defaults to a no-op).
func New(store graphstore.GraphStore, embedder embedding.Provider, logger *zap.Logger) *Tools {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tools{Store: store, Embedder: embedder, Logger: logger}
}

// ToolCall is the closed set of operations Dispatch accepts. isToolCall is
// unexported so no type outside this package can implement ToolCall,
// turning what the source system dispatches dynamically into a Go-checked
// closed tagged variant.
type ToolCall interface{ isToolCall() }

// CreateNodeCall creates a node, generating its embedding from Name and
// attaching BELONGS_TO edges to BelongsTo (I1-I4).
type CreateNodeCall struct {
	Kind        graphstore.NodeKind
	Name        string
	Description string
	Summary     string
	BelongsTo   []graphstore.NodeRef
	Extra       map[string]any
}

// CreateEdgeCall creates the cross-product of edges between Src and Dst.
type CreateEdgeCall struct {
	Src, Dst     []graphstore.NodeRef
	Relationship string
	Description  string
}

// AlterCall mutates or deletes a node. Delete and Fields are mutually
// exclusive; a non-nil Fields.Name regenerates the embedding.
type AlterCall struct {
	Kind   graphstore.NodeKind
	ID     int64
	Delete bool
	Fields *graphstore.NodeFields
}

// StructuralSearchCall runs a capped structural query.
type StructuralSearchCall struct {
	Match, Where, Return string
	Params               map[string]any
}

// VectorSearchCall embeds Text and finds the K most similar nodes of Kind.
// K defaults to 10 when zero or negative, MinScore to 0.7 when zero or
// negative.
type VectorSearchCall struct {
	Kind     graphstore.NodeKind
	Text     string
	K        int
	MinScore float64
}

// HybridSearchCall embeds Text, finds similar SrcKind nodes, and joins them
// through Relationship to DstKind targets.
type HybridSearchCall struct {
	SrcKind, DstKind graphstore.NodeKind
	Text             string
	Relationship     string
	K                int
	MinScore         float64
}

// RawQueryCall is the escape hatch: Query is interpreted as a structural
// where-clause against nodes, capped at 20 rows like StructuralSearchCall.
type RawQueryCall struct{ Query string }

func (CreateNodeCall) isToolCall()       {}
func (CreateEdgeCall) isToolCall()       {}
func (AlterCall) isToolCall()            {}
func (StructuralSearchCall) isToolCall() {}
func (VectorSearchCall) isToolCall()     {}
func (HybridSearchCall) isToolCall()     {}
func (RawQueryCall) isToolCall()         {}

const (
	defaultVectorK        = 10
	defaultVectorMinScore = 0.7
)

// Dispatch routes call to its handler and returns the handler's typed
// result as `any` (the caller knows which concrete result type to expect
// from the ToolCall variant it passed in).
func Dispatch(ctx context.Context, tools *Tools, call ToolCall) (any, error) {
	switch c := call.(type) {
	case CreateNodeCall:
		return tools.createNode(ctx, c)
	case CreateEdgeCall:
		return tools.Store.CreateEdge(ctx, c.Src, c.Dst, c.Relationship, c.Description)
	case AlterCall:
		return nil, tools.alter(ctx, c)
	case StructuralSearchCall:
		return tools.Store.StructuralQuery(ctx, c.Match, c.Where, c.Return, c.Params)
	case VectorSearchCall:
		return tools.vectorSearch(ctx, c)
	case HybridSearchCall:
		return tools.hybridSearch(ctx, c)
	case RawQueryCall:
		return tools.Store.StructuralQuery(ctx, "", c.Query, "", nil)
	default:
		return nil, graphstore.ErrInvalidArguments("knowledge: unknown tool call")
	}
}
