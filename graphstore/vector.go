package graphstore

import (
	"context"
	"errors"
	"math"
	"sort"

	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
)

// isIndexUnavailable reports whether err means "the pgvector extension or
// its index isn't usable" rather than a generic failure, so VectorQuery
// knows to fall back instead of surfacing a BackendError. Postgres reports
// a missing extension/operator as undefined_function (42883) and a missing
// relation as undefined_table (42P01).
func isIndexUnavailable(err error) bool {
	var pgErr interface{ SQLState() string }
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.SQLState() {
	case "42883", "42P01":
		return true
	default:
		return false
	}
}

// VectorQuery finds the k nodes of kind whose embedding is most similar
// (cosine) to queryVec, filtering out scores below minScore. Results are
// ordered by descending score, ties broken by lower id (I5: nodes without
// an embedding are never returned).
//
// Three-tier fallback (§4.2): native pgvector index -> scan with in-process
// cosine scoring -> unscored scan with placeholder score 1.0. Each
// degradation step is logged at Warn.
func (s *Store) VectorQuery(ctx context.Context, kind NodeKind, queryVec []float32, k int, minScore float64) ([]VectorHit, error) {
	if k <= 0 {
		return []VectorHit{}, nil
	}

	hits, err := s.vectorQueryNative(ctx, kind, queryVec, k, minScore)
	if err == nil {
		return hits, nil
	}
	if !isIndexUnavailable(err) {
		return nil, ErrBackendError("graphstore: vector query", err)
	}
	s.logger.Warn("graphstore: native vector index unavailable, falling back to scan-and-score",
		zap.String("kind", string(kind)), zap.Error(err))

	hits, err = s.vectorQueryScanAndScore(ctx, kind, queryVec, k, minScore)
	if err == nil {
		return hits, nil
	}
	s.logger.Warn("graphstore: scan-and-score fallback failed, falling back to unscored scan",
		zap.String("kind", string(kind)), zap.Error(err))

	return s.vectorQueryUnscored(ctx, kind, k)
}

func (s *Store) vectorQueryNative(ctx context.Context, kind NodeKind, queryVec []float32, k int, minScore float64) ([]VectorHit, error) {
	vec := pgvector.NewVector(queryVec)
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, description, 1 - (embedding <=> $1) AS score
		FROM knowledge_nodes
		WHERE kind = $2 AND embedding IS NOT NULL
		ORDER BY score DESC, id ASC
		LIMIT $3`, vec, string(kind), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []VectorHit
	for rows.Next() {
		var h VectorHit
		if err := rows.Scan(&h.ID, &h.Name, &h.Description, &h.Score); err != nil {
			return nil, err
		}
		if h.Score >= minScore {
			hits = append(hits, h)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if hits == nil {
		hits = []VectorHit{}
	}
	return hits, nil
}

// vectorQueryScanAndScore loads every embedded node of kind and scores it
// in-process with cosine similarity, used when the pgvector operator/index
// is unavailable.
func (s *Store) vectorQueryScanAndScore(ctx context.Context, kind NodeKind, queryVec []float32, k int, minScore float64) ([]VectorHit, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, description, embedding
		FROM knowledge_nodes
		WHERE kind = $1 AND embedding IS NOT NULL`, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []VectorHit
	for rows.Next() {
		var (
			h   VectorHit
			vec pgvector.Vector
		)
		if err := rows.Scan(&h.ID, &h.Name, &h.Description, &vec); err != nil {
			return nil, err
		}
		h.Score = cosineSimilarity(queryVec, vec.Slice())
		if h.Score >= minScore {
			hits = append(hits, h)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
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

// vectorQueryUnscored is the last-resort fallback: return up to k embedded
// nodes of kind with placeholder score 1.0, with no ranking guarantee
// beyond id order.
func (s *Store) vectorQueryUnscored(ctx context.Context, kind NodeKind, k int) ([]VectorHit, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, description
		FROM knowledge_nodes
		WHERE kind = $1 AND embedding IS NOT NULL
		ORDER BY id ASC
		LIMIT $2`, string(kind), k)
	if err != nil {
		return nil, ErrBackendError("graphstore: unscored vector scan", err)
	}
	defer rows.Close()

	hits, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (VectorHit, error) {
		var h VectorHit
		if err := row.Scan(&h.ID, &h.Name, &h.Description); err != nil {
			return VectorHit{}, err
		}
		h.Score = 1.0
		return h, nil
	})
	if err != nil {
		return nil, ErrBackendError("graphstore: unscored vector scan", err)
	}
	if hits == nil {
		hits = []VectorHit{}
	}
	return hits, nil
}

// HybridQuery ranks srcKind nodes by vector similarity to queryVec, then
// joins each through relType to dstKind targets. Uses the native pgvector
// path directly (no fallback chain: the spec's fallback requirement is
// scoped to VectorQuery itself) since HybridQuery always composes on top of
// a vector-ranked source set.
func (s *Store) HybridQuery(ctx context.Context, srcKind NodeKind, queryVec []float32, relType string, dstKind NodeKind, k int, minScore float64) ([]HybridHit, error) {
	if k <= 0 {
		return []HybridHit{}, nil
	}
	vec := pgvector.NewVector(queryVec)
	rows, err := s.pool.Query(ctx, `
		SELECT
			src.id, src.kind, src.name, src.description, src.summary,
			dst.id, dst.kind, dst.name, dst.description, dst.summary,
			1 - (src.embedding <=> $1) AS score
		FROM knowledge_nodes src
		JOIN knowledge_edges e ON e.source_id = src.id AND e.relationship = $2
		JOIN knowledge_nodes dst ON dst.id = e.target_id
		WHERE src.kind = $3 AND dst.kind = $4 AND src.embedding IS NOT NULL
		ORDER BY score DESC, src.id ASC
		LIMIT $5`, vec, relType, string(srcKind), string(dstKind), k)
	if err != nil {
		return nil, ErrBackendError("graphstore: hybrid query", err)
	}
	defer rows.Close()

	var hits []HybridHit
	for rows.Next() {
		var h HybridHit
		var srcKindStr, dstKindStr string
		if err := rows.Scan(
			&h.Source.ID, &srcKindStr, &h.Source.Name, &h.Source.Description, &h.Source.Summary,
			&h.Target.ID, &dstKindStr, &h.Target.Name, &h.Target.Description, &h.Target.Summary,
			&h.Score,
		); err != nil {
			return nil, ErrBackendError("graphstore: hybrid query scan", err)
		}
		h.Source.Kind, h.Target.Kind = NodeKind(srcKindStr), NodeKind(dstKindStr)
		if h.Score >= minScore {
			hits = append(hits, h)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, ErrBackendError("graphstore: hybrid query rows", err)
	}
	if hits == nil {
		hits = []HybridHit{}
	}
	return hits, nil
}

func sortHits(hits []VectorHit) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
}

// cosineSimilarity is the in-process scoring fallback used when the native
// pgvector operator is unavailable.
func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
