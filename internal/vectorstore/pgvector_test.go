package vectorstore

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/docqa/internal/model"
	appErr "github.com/xxxsen/docqa/internal/pkg/errors"
)

func newMockStore(t *testing.T, dimension int) (*PgStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPgStore(sqlx.NewDb(db, "postgres"), dimension), mock
}

func TestPgReplaceRunsInOneTransaction(t *testing.T) {
	s, mock := newMockStore(t, 2)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM documents")).WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO documents (content, metadata, embedding) VALUES")).
		WithArgs(
			"a-content", `{"source":"a","type":"text","ordinal":0}`, "[1,0]",
			"b-content", `{"source":"b","type":"text","ordinal":1}`, "[0,1]",
		).
		WillReturnResult(sqlmock.NewResult(2, 2))
	mock.ExpectCommit()

	err := s.Replace(context.Background(), []model.Chunk{chunk("a", 0, 1, 0), chunk("b", 1, 0, 1)})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgReplaceRollsBackOnInsertFailure(t *testing.T) {
	s, mock := newMockStore(t, 2)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM documents")).WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO documents")).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := s.Replace(context.Background(), []model.Chunk{chunk("a", 0, 1, 0)})
	require.ErrorIs(t, err, appErr.ErrStoreUnavailable)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgInsertRejectsDimensionBeforeSQL(t *testing.T) {
	s, mock := newMockStore(t, 3)
	err := s.Insert(context.Background(), chunk("a", 0, 1, 0))
	require.ErrorIs(t, err, appErr.ErrDimensionMismatch)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgQueryOrdersByDistanceThenID(t *testing.T) {
	s, mock := newMockStore(t, 2)
	rows := sqlmock.NewRows([]string{"id", "content", "metadata", "distance"}).
		AddRow(int64(3), "hello", []byte(`{"source":"menu.pdf","type":"pdf","ordinal":2,"page":1}`), 0.0).
		AddRow(int64(7), "world", []byte(`{"source":"faq.txt","type":"text","ordinal":0}`), 0.25)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY distance ASC, id ASC")).
		WithArgs("[1,0]", 2).
		WillReturnRows(rows)

	res, err := s.Query(context.Background(), []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, res, 2)
	require.Equal(t, int64(3), res[0].Chunk.ID)
	require.Equal(t, model.ChunkMetadata{Source: "menu.pdf", Type: model.DocumentTypePDF, Ordinal: 2, Page: 1}, res[0].Chunk.Metadata)
	require.InDelta(t, 1.0, res[0].Score, 1e-6)
	require.InDelta(t, 0.75, res[1].Score, 1e-6)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgVerifySchema(t *testing.T) {
	s, mock := newMockStore(t, 1536)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT a.atttypmod")).
		WillReturnRows(sqlmock.NewRows([]string{"atttypmod"}).AddRow(768))
	err := s.VerifySchema(context.Background())
	require.ErrorIs(t, err, appErr.ErrConfiguration)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT a.atttypmod")).
		WillReturnRows(sqlmock.NewRows([]string{"atttypmod"}).AddRow(1536))
	require.NoError(t, s.VerifySchema(context.Background()))
}

func TestPgCount(t *testing.T) {
	s, mock := newMockStore(t, 2)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM documents")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	n, err := s.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, 12, n)
}
