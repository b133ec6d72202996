package graphstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
	"go.uber.org/zap"
)

// Store is the Postgres-backed knowledge graph. It holds a single
// [pgxpool.Pool] shared across CRUD and search operations; every method is
// safe for concurrent use.
type Store struct {
	pool   *pgxpool.Pool
	dim    int
	logger *zap.Logger
}

// Config configures a new Store.
type Config struct {
	// DSN is the Postgres connection string (postgres://...).
	DSN string
	// Dimension is the configured embedding dimension D (EMBEDDING_DIMENSION).
	// VectorQuery/HybridQuery and SchemaInit's HNSW index are sized to it.
	Dimension int
	Logger    *zap.Logger
}

// NewStore opens a connection pool to dsn, registers pgvector types on every
// connection, and returns a Store ready for SchemaInit.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Dimension <= 0 {
		return nil, ErrInvalidArguments("graphstore: Dimension must be positive")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("graphstore: parse dsn: %w", err)
	}
	pcfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("graphstore: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("graphstore: ping: %w", err)
	}

	return &Store{pool: pool, dim: cfg.Dimension, logger: logger}, nil
}

// Close releases all connections held by the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping verifies connectivity to the backing Postgres instance, for use by
// the HTTP health check surface.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Dimension returns the configured embedding dimension D.
func (s *Store) Dimension() int { return s.dim }

// SchemaInit creates the pgvector extension, the knowledge_nodes embedding
// column and its HNSW index, sized to the configured dimension. It is idempotent
// (CREATE ... IF NOT EXISTS) and safe to call on every process start; the
// base tables themselves come from the versioned schema migration (C2's
// static schema) since they don't depend on D, but the vector column and
// its index do, so they're created here at runtime instead, following the
// pack's `ddlL2(embeddingDimensions int)` pattern.
func (s *Store) SchemaInit(ctx context.Context) error {
	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`ALTER TABLE knowledge_nodes ADD COLUMN IF NOT EXISTS embedding vector(%d)`, s.dim),
		`CREATE INDEX IF NOT EXISTS knowledge_nodes_embedding_hnsw_idx
			ON knowledge_nodes USING hnsw (embedding vector_cosine_ops)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return ErrBackendError("graphstore: schema init", err)
		}
	}
	return nil
}
