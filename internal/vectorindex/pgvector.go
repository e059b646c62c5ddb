package vectorindex

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

type PgVectorIndex struct {
	db        *pgxpool.Pool
	dimension int
}

func NewPgVectorIndex(db *pgxpool.Pool, dimension int) *PgVectorIndex {
	return &PgVectorIndex{db: db, dimension: dimension}
}

func (s *PgVectorIndex) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, r := range records {
		embedding := pgvector.NewVector(r.Embedding)

		_, err := tx.Exec(ctx,
			`INSERT INTO vector_records (id, user_id, doc_id, filename, kind, field_type, embedding, metadata)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (id) DO UPDATE SET
			   user_id = $2, doc_id = $3, filename = $4, kind = $5,
			   field_type = $6, embedding = $7, metadata = $8`,
			r.ID,
			metaString(r.Metadata, "user_id"),
			metaString(r.Metadata, "doc_id"),
			metaString(r.Metadata, "filename"),
			recordKind(r.Metadata),
			metaString(r.Metadata, "field_type"),
			embedding,
			r.Metadata,
		)
		if err != nil {
			return fmt.Errorf("upsert record %s: %w", r.ID, err)
		}
	}

	return tx.Commit(ctx)
}

func recordKind(m map[string]interface{}) string {
	if kind := metaString(m, "kind"); kind != "" {
		return kind
	}
	return KindChunk
}

func (s *PgVectorIndex) Search(ctx context.Context, q Query) ([]Match, error) {
	if q.TopK <= 0 {
		q.TopK = 10
	}

	where, args := filterClauses(q.Filter)

	// Listing query: no vector to rank by, return by insertion id.
	if len(q.Vector) == 0 || isZeroVector(q.Vector) {
		return s.list(ctx, where, args, q.TopK)
	}

	args = append(args, pgvector.NewVector(q.Vector))
	vecArg := len(args)

	sql := fmt.Sprintf(
		`SELECT id, metadata, 1 - (embedding <=> $%d) AS score
		 FROM vector_records
		 %s
		 ORDER BY embedding <=> $%d
		 LIMIT %d`,
		vecArg, where, vecArg, q.TopK,
	)

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.ID, &m.Metadata, &m.Score); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		if q.MinScore > 0 && m.Score < q.MinScore {
			continue
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (s *PgVectorIndex) list(ctx context.Context, where string, args []interface{}, limit int) ([]Match, error) {
	sql := fmt.Sprintf(
		`SELECT id, metadata FROM vector_records %s ORDER BY id LIMIT %d`,
		where, limit,
	)

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.ID, &m.Metadata); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (s *PgVectorIndex) DeleteIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.Exec(ctx, "DELETE FROM vector_records WHERE id = ANY($1)", ids)
	if err != nil {
		return fmt.Errorf("delete ids: %w", err)
	}
	return nil
}

func (s *PgVectorIndex) DeleteByFilter(ctx context.Context, f Filter) (int, error) {
	where, args := filterClauses(f)
	if where == "" {
		return 0, fmt.Errorf("refusing to delete with empty filter")
	}

	tag, err := s.db.Exec(ctx, "DELETE FROM vector_records "+where, args...)
	if err != nil {
		return 0, fmt.Errorf("delete by filter: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PgVectorIndex) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{Dimension: s.dimension, ByKind: make(map[string]int)}

	rows, err := s.db.Query(ctx, "SELECT kind, COUNT(*) FROM vector_records GROUP BY kind")
	if err != nil {
		return nil, fmt.Errorf("index stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats.ByKind[kind] = count
		stats.TotalVectors += count
	}
	return stats, rows.Err()
}

func filterClauses(f Filter) (string, []interface{}) {
	var conds []string
	var args []interface{}

	add := func(col, val string) {
		if val == "" {
			return
		}
		args = append(args, val)
		conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	add("user_id", f.UserID)
	add("doc_id", f.DocID)
	add("filename", f.Filename)
	add("kind", f.Kind)
	add("field_type", f.FieldType)

	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}
