package storage

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLStore_MySQLPutWritesBothKeysInOneTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewSQLStore(db, DialectMySQL)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(upsertEntry[DialectMySQL])).
		WithArgs("user", []byte(`{"id":1}`)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(upsertEntry[DialectMySQL])).
		WithArgs("token", []byte("t1")).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	err = s.Put(context.Background(),
		Entry{Key: "user", Value: []byte(`{"id":1}`)},
		Entry{Key: "token", Value: []byte("t1")},
	)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_MySQLPutRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewSQLStore(db, DialectMySQL)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(upsertEntry[DialectMySQL])).
		WithArgs("user", []byte("u")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(upsertEntry[DialectMySQL])).
		WithArgs("token", []byte("t")).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err = s.Put(context.Background(), Entry{Key: "user", Value: []byte("u")}, Entry{Key: "token", Value: []byte("t")})
	assert.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_MySQLGetAndDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewSQLStore(db, DialectMySQL)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta(selectEntry)).
		WithArgs("token").
		WillReturnRows(sqlmock.NewRows([]string{"v"}).AddRow([]byte("t1")))
	v, err := s.Get(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, "t1", string(v))

	mock.ExpectQuery(regexp.QuoteMeta(selectEntry)).
		WithArgs("user").
		WillReturnRows(sqlmock.NewRows([]string{"v"}))
	_, err = s.Get(ctx, "user")
	assert.ErrorIs(t, err, ErrNotFound)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(deleteEntry)).WithArgs("user").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(deleteEntry)).WithArgs("token").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	require.NoError(t, s.Delete(ctx, "user", "token"))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_MySQLMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS storefront_kv")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, NewSQLStore(db, DialectMySQL).Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Error(t, NewSQLStore(db, Dialect("oracle")).Migrate(context.Background()))
}
