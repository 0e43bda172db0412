package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"

	"github.com/xxxsen/docqa/internal/model"
	appErr "github.com/xxxsen/docqa/internal/pkg/errors"
)

const insertBatchSize = 500

type PgStore struct {
	db        *sqlx.DB
	dimension int
}

type documentRow struct {
	Content   string          `db:"content"`
	Metadata  string          `db:"metadata"`
	Embedding pgvector.Vector `db:"embedding"`
}

type scoredRow struct {
	ID       int64   `db:"id"`
	Content  string  `db:"content"`
	Metadata []byte  `db:"metadata"`
	Distance float64 `db:"distance"`
}

func NewPgStore(db *sqlx.DB, dimension int) *PgStore {
	return &PgStore{db: db, dimension: dimension}
}

// VerifySchema checks that the documents.embedding column was created with
// the configured dimension.
func (s *PgStore) VerifySchema(ctx context.Context) error {
	const query = `
		SELECT a.atttypmod
		FROM pg_attribute a
		WHERE a.attrelid = 'documents'::regclass AND a.attname = 'embedding' AND NOT a.attisdropped
	`
	var typmod int
	if err := s.db.GetContext(ctx, &typmod, query); err != nil {
		return storeErr("verify schema", err)
	}
	if typmod != s.dimension {
		return fmt.Errorf("%w: documents.embedding is vector(%d), configured dimension is %d",
			appErr.ErrConfiguration, typmod, s.dimension)
	}
	return nil
}

func (s *PgStore) Dimension() int {
	return s.dimension
}

func (s *PgStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents`); err != nil {
		return storeErr("clear", err)
	}
	return nil
}

func (s *PgStore) Insert(ctx context.Context, chunk model.Chunk) error {
	return s.InsertBatch(ctx, []model.Chunk{chunk})
}

func (s *PgStore) InsertBatch(ctx context.Context, chunks []model.Chunk) error {
	return s.write(ctx, chunks, false)
}

func (s *PgStore) Replace(ctx context.Context, chunks []model.Chunk) error {
	return s.write(ctx, chunks, true)
}

func (s *PgStore) write(ctx context.Context, chunks []model.Chunk, clear bool) error {
	if err := validateChunks(s.dimension, chunks); err != nil {
		return err
	}
	rows, err := toRows(chunks)
	if err != nil {
		return err
	}
	if len(rows) == 0 && !clear {
		return nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return storeErr("begin", err)
	}
	defer func() { _ = tx.Rollback() }()
	if clear {
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents`); err != nil {
			return storeErr("clear", err)
		}
	}
	for start := 0; start < len(rows); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		if _, err := tx.NamedExecContext(ctx,
			`INSERT INTO documents (content, metadata, embedding) VALUES (:content, :metadata, :embedding)`,
			rows[start:end]); err != nil {
			return storeErr("insert", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return storeErr("commit", err)
	}
	return nil
}

func toRows(chunks []model.Chunk) ([]documentRow, error) {
	rows := make([]documentRow, 0, len(chunks))
	for _, ch := range chunks {
		meta, err := json.Marshal(ch.Metadata)
		if err != nil {
			return nil, err
		}
		rows = append(rows, documentRow{
			Content:   ch.Content,
			Metadata:  string(meta),
			Embedding: pgvector.NewVector(ch.Embedding),
		})
	}
	return rows, nil
}

func (s *PgStore) Query(ctx context.Context, vec []float32, k int) ([]model.ScoredChunk, error) {
	if err := validateQuery(s.dimension, vec); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}
	const query = `
		SELECT id, content, metadata, embedding <=> $1::vector AS distance
		FROM documents
		ORDER BY distance ASC, id ASC
		LIMIT $2
	`
	var rows []scoredRow
	if err := s.db.SelectContext(ctx, &rows, query, pgvector.NewVector(vec), k); err != nil {
		return nil, storeErr("query", err)
	}
	out := make([]model.ScoredChunk, 0, len(rows))
	for _, row := range rows {
		ch := model.Chunk{ID: row.ID, Content: row.Content}
		if len(row.Metadata) > 0 {
			if err := json.Unmarshal(row.Metadata, &ch.Metadata); err != nil {
				return nil, storeErr("decode metadata", err)
			}
		}
		out = append(out, model.ScoredChunk{Chunk: ch, Score: float32(1 - row.Distance)})
	}
	return out, nil
}

func (s *PgStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM documents`); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, storeErr("count", err)
	}
	return n, nil
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", appErr.ErrStoreUnavailable, op, err)
}
