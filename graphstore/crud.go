package graphstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"
)

const pgUniqueViolation = "23505"

// CreateNode inserts a node and, for each ref in belongsTo, a BELONGS_TO
// edge to that parent, all in one transaction (I1, I2, I6). kind=Knowledge
// requires a non-empty summary (I4).
func (s *Store) CreateNode(ctx context.Context, kind NodeKind, name, description, summary string, belongsTo []NodeRef, extra map[string]any) (int64, error) {
	if !kind.Valid() {
		return 0, ErrInvalidArguments(fmt.Sprintf("graphstore: unknown node kind %q", kind))
	}
	if kind == Knowledge && summary == "" {
		return 0, ErrInvalidArguments("graphstore: Knowledge node requires a summary")
	}

	extraJSON, err := json.Marshal(nonNilMap(extra))
	if err != nil {
		return 0, ErrInvalidArguments("graphstore: invalid extra: " + err.Error())
	}

	var id int64
	err = s.withTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO knowledge_nodes (kind, name, description, summary, extra)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`, string(kind), name, description, summary, extraJSON)
		if err := row.Scan(&id); err != nil {
			return err
		}
		for _, ref := range belongsTo {
			parentID, err := resolveRef(ctx, tx, ref)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO knowledge_edges (source_id, target_id, relationship, description)
				VALUES ($1, $2, $3, '')`, id, parentID, BelongsTo); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, classifyWriteErr(err, kind, name)
	}
	return id, nil
}

// SetEmbedding writes the embedding column for an existing node. Length
// must equal the store's configured dimension (I3).
func (s *Store) SetEmbedding(ctx context.Context, id int64, vec []float32) error {
	if len(vec) != s.dim {
		return ErrDimensionMismatch(len(vec), s.dim)
	}
	tag, err := s.pool.Exec(ctx, `UPDATE knowledge_nodes SET embedding = $1, updated_at = now() WHERE id = $2`,
		pgvector.NewVector(vec), id)
	if err != nil {
		return ErrBackendError("graphstore: set embedding", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound(fmt.Sprintf("graphstore: node %d not found", id))
	}
	return nil
}

// CreateEdge creates one edge per (src, dst) pair in the cross-product of
// srcRefs x dstRefs; the returned id is that of the last edge created.
// relType must not be BELONGS_TO (reserved, created implicitly by CreateNode).
func (s *Store) CreateEdge(ctx context.Context, srcRefs, dstRefs []NodeRef, relType, description string) (int64, error) {
	if relType == BelongsTo {
		return 0, ErrInvalidArguments("graphstore: BELONGS_TO is reserved and created implicitly by CreateNode")
	}
	if len(srcRefs) == 0 || len(dstRefs) == 0 {
		return 0, ErrInvalidArguments("graphstore: CreateEdge requires at least one source and one target ref")
	}

	var lastID int64
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		for _, src := range srcRefs {
			srcID, err := resolveRef(ctx, tx, src)
			if err != nil {
				return err
			}
			for _, dst := range dstRefs {
				dstID, err := resolveRef(ctx, tx, dst)
				if err != nil {
					return err
				}
				row := tx.QueryRow(ctx, `
					INSERT INTO knowledge_edges (source_id, target_id, relationship, description)
					VALUES ($1, $2, $3, $4)
					ON CONFLICT (source_id, target_id, relationship)
					DO UPDATE SET description = EXCLUDED.description
					RETURNING id`, srcID, dstID, relType, description)
				if err := row.Scan(&lastID); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, ErrBackendError("graphstore: create edge", err)
	}
	return lastID, nil
}

// Alter mutates or deletes a node. opts.Delete and opts.Fields are mutually
// exclusive. Deletion cascades to incident edges via the schema's ON DELETE
// CASCADE (I6). A non-nil Fields.Embedding commits alongside a rename in the
// same transaction.
func (s *Store) Alter(ctx context.Context, kind NodeKind, id int64, opts AlterOpts) error {
	if opts.Delete == (opts.Fields != nil) {
		return ErrInvalidArguments("graphstore: Alter requires exactly one of Delete or Fields")
	}

	if opts.Delete {
		tag, err := s.pool.Exec(ctx, `DELETE FROM knowledge_nodes WHERE id = $1 AND kind = $2`, id, string(kind))
		if err != nil {
			return ErrBackendError("graphstore: delete node", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound(fmt.Sprintf("graphstore: node %d (%s) not found", id, kind))
		}
		return nil
	}

	f := opts.Fields
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if f.Name != nil {
			if _, err := tx.Exec(ctx, `UPDATE knowledge_nodes SET name = $1, updated_at = now() WHERE id = $2`, *f.Name, id); err != nil {
				return err
			}
		}
		if f.Description != nil {
			if _, err := tx.Exec(ctx, `UPDATE knowledge_nodes SET description = $1, updated_at = now() WHERE id = $2`, *f.Description, id); err != nil {
				return err
			}
		}
		if f.Summary != nil {
			if _, err := tx.Exec(ctx, `UPDATE knowledge_nodes SET summary = $1, updated_at = now() WHERE id = $2`, *f.Summary, id); err != nil {
				return err
			}
		}
		if f.Extra != nil {
			extraJSON, err := json.Marshal(f.Extra)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `UPDATE knowledge_nodes SET extra = $1, updated_at = now() WHERE id = $2`, extraJSON, id); err != nil {
				return err
			}
		}
		if f.Embedding != nil {
			if len(f.Embedding) != s.dim {
				return ErrDimensionMismatch(len(f.Embedding), s.dim)
			}
			if _, err := tx.Exec(ctx, `UPDATE knowledge_nodes SET embedding = $1, updated_at = now() WHERE id = $2`,
				pgvector.NewVector(f.Embedding), id); err != nil {
				return err
			}
		}
		return nil
	})
}

// StructuralQuery runs a caller-supplied predicate over knowledge_nodes,
// capped at 20 rows. match/ret are accepted for API-shape parity with the
// spec's Cypher-style signature but this relational store only uses where
// (a SQL boolean expression referencing node columns) and ret (a
// comma-separated list of columns to return); match is reserved for a
// future graph-traversal backend and is ignored.
func (s *Store) StructuralQuery(ctx context.Context, match, where, ret string, params map[string]any) ([]Row, error) {
	if ret == "" {
		ret = "id, kind, name, description, summary"
	}
	cols, err := parseReturnClause(ret)
	if err != nil {
		return nil, ErrInvalidArguments(err.Error())
	}

	query := fmt.Sprintf("SELECT %s FROM knowledge_nodes", ret)
	var args []any
	if where != "" {
		args = namedArgs(params)
		query += " WHERE " + where
	}
	query += " LIMIT 20"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, ErrBackendError("graphstore: structural query", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, ErrBackendError("graphstore: structural query scan", err)
		}
		row := make(Row, len(cols))
		for i, c := range cols {
			if i < len(vals) {
				row[c] = vals[i]
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, ErrBackendError("graphstore: structural query rows", err)
	}
	if out == nil {
		out = []Row{}
	}
	return out, nil
}

func (s *Store) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// resolveRef resolves a NodeRef to a node id, preferring an explicit ID and
// falling back to a (kind, name) lookup (I2: must exist at commit time).
func resolveRef(ctx context.Context, tx pgx.Tx, ref NodeRef) (int64, error) {
	if ref.ID != 0 {
		return ref.ID, nil
	}
	var id int64
	err := tx.QueryRow(ctx, `SELECT id FROM knowledge_nodes WHERE kind = $1 AND name = $2`, string(ref.Kind), ref.Name).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound(fmt.Sprintf("graphstore: node %s not found", ref))
	}
	return id, err
}

func classifyWriteErr(err error, kind NodeKind, name string) error {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) && pgErr.SQLState() == pgUniqueViolation {
		return ErrDuplicateName(kind, name)
	}
	return ErrBackendError("graphstore: create node", err)
}

func nonNilMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

// namedArgs flattens params into positional arguments in sorted-key order,
// so a caller's where clause referencing $1, $2, ... must list its bind
// parameters in alphabetical order by name. Deterministic ordering matters
// here because Postgres placeholders are positional, not named.
func namedArgs(params map[string]any) []any {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]any, 0, len(params))
	for _, k := range keys {
		args = append(args, params[k])
	}
	return args
}

func parseReturnClause(ret string) ([]string, error) {
	parts := strings.Split(ret, ",")
	cols := make([]string, 0, len(parts))
	for _, p := range parts {
		col := strings.TrimSpace(p)
		if col == "" {
			return nil, fmt.Errorf("graphstore: empty column in return clause %q", ret)
		}
		cols = append(cols, col)
	}
	return cols, nil
}
