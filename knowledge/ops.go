package knowledge

import (
	"context"

	"github.com/loglattice/orchestrator/graphstore"
	"go.uber.org/zap"
)

// createNode embeds Name (best-effort: embedding failure never fails node
// creation, per C1's contract that embedding is optional and I5 simply
// excludes the node from vector queries) and creates the node.
func (t *Tools) createNode(ctx context.Context, c CreateNodeCall) (int64, error) {
	id, err := t.Store.CreateNode(ctx, c.Kind, c.Name, c.Description, c.Summary, c.BelongsTo, c.Extra)
	if err != nil {
		return 0, err
	}

	vec, err := t.Embedder.Embed(ctx, c.Name)
	if err != nil {
		t.Logger.Warn("knowledge: embedding generation failed, node created without embedding",
			zap.String("name", c.Name), zap.Error(err))
		return id, nil
	}
	if err := t.Store.SetEmbedding(ctx, id, vec); err != nil {
		t.Logger.Warn("knowledge: set embedding failed", zap.Int64("id", id), zap.Error(err))
	}
	return id, nil
}

// alter mutates or deletes a node. On a rename (Fields.Name set), it
// resolves the new embedding before calling Store.Alter so the rename and
// the embedding update commit in the same transaction.
func (t *Tools) alter(ctx context.Context, c AlterCall) error {
	if c.Delete == (c.Fields != nil) {
		return graphstore.ErrInvalidArguments("knowledge: alter requires exactly one of delete or fields")
	}
	if c.Delete {
		return t.Store.Alter(ctx, c.Kind, c.ID, graphstore.AlterOpts{Delete: true})
	}

	fields := *c.Fields
	if fields.Name != nil {
		vec, err := t.Embedder.Embed(ctx, *fields.Name)
		if err != nil {
			t.Logger.Warn("knowledge: embedding regeneration on rename failed, keeping prior embedding",
				zap.String("name", *fields.Name), zap.Error(err))
		} else {
			fields.Embedding = vec
		}
	}
	return t.Store.Alter(ctx, c.Kind, c.ID, graphstore.AlterOpts{Fields: &fields})
}

// vectorSearch embeds Text and delegates to the Graph Store's VectorQuery,
// applying the tool's default K/MinScore.
func (t *Tools) vectorSearch(ctx context.Context, c VectorSearchCall) ([]graphstore.VectorHit, error) {
	k, minScore := c.K, c.MinScore
	if k <= 0 {
		k = defaultVectorK
	}
	if minScore <= 0 {
		minScore = defaultVectorMinScore
	}
	vec, err := t.Embedder.Embed(ctx, c.Text)
	if err != nil {
		return nil, graphstore.ErrBackendError("knowledge: vector search embedding failed", err)
	}
	return t.Store.VectorQuery(ctx, c.Kind, vec, k, minScore)
}

// hybridSearch embeds Text and delegates to the Graph Store's HybridQuery.
func (t *Tools) hybridSearch(ctx context.Context, c HybridSearchCall) ([]graphstore.HybridHit, error) {
	k, minScore := c.K, c.MinScore
	if k <= 0 {
		k = defaultVectorK
	}
	if minScore <= 0 {
		minScore = defaultVectorMinScore
	}
	vec, err := t.Embedder.Embed(ctx, c.Text)
	if err != nil {
		return nil, graphstore.ErrBackendError("knowledge: hybrid search embedding failed", err)
	}
	return t.Store.HybridQuery(ctx, c.SrcKind, vec, c.Relationship, c.DstKind, k, minScore)
}
