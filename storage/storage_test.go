package storage

import (
	"context"
	"path/filepath"
	"testing"

	"bakery-storefront/config"
	"bakery-storefront/database"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore runs the behaviour every backend must share.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "token")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx,
		Entry{Key: "user", Value: []byte(`{"id":1}`)},
		Entry{Key: "token", Value: []byte("t1")},
	))
	v, err := s.Get(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, "t1", string(v))

	require.NoError(t, s.Put(ctx, Entry{Key: "token", Value: []byte("t2")}))
	v, err = s.Get(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, "t2", string(v), "put overwrites")

	require.NoError(t, s.Delete(ctx, "user", "token"))
	_, err = s.Get(ctx, "user")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get(ctx, "token")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Delete(ctx, "user", "token"), "delete is idempotent")
	require.NoError(t, s.Put(ctx))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	val := []byte("abc")
	require.NoError(t, s.Put(ctx, Entry{Key: "k", Value: val}))
	val[0] = 'z'
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestSQLStore_SQLite(t *testing.T) {
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "storefront.db"))
	require.NoError(t, err)
	s := NewSQLStore(db, DialectSQLite)
	defer s.Close()
	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, s.Migrate(context.Background()), "migrate is repeatable")
	exerciseStore(t, s)
}

func TestRedisStore(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStore(client, "storefront:")
	defer s.Close()
	exerciseStore(t, s)

	require.NoError(t, s.Put(context.Background(), Entry{Key: "token", Value: []byte("t3")}))
	got, err := mr.Get("storefront:token")
	require.NoError(t, err)
	assert.Equal(t, "t3", got, "keys are prefixed")
}

func TestOpenRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	s, err := OpenRedis(context.Background(), "redis://"+mr.Addr()+"/0", "sf:")
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)

	_, err = OpenRedis(context.Background(), "not a url", "sf:")
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, &config.Config{StorageBackend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(ctx, &config.Config{StorageBackend: "sqlite", StoragePath: filepath.Join(t.TempDir(), "kv.db")})
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)

	_, err = Open(ctx, &config.Config{StorageBackend: "floppy"})
	assert.Error(t, err)
}
