package services

import (
	"context"
	"reflect"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/nimasrn/payment-gateway/pkg/pg"
	"github.com/nimasrn/payment-gateway/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupHealthDB(t *testing.T) (*pg.DB, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	pgDB := &pg.DB{}
	pgDBValue := reflect.ValueOf(pgDB).Elem()

	readField := pgDBValue.FieldByName("read")
	writeField := pgDBValue.FieldByName("write")

	readField = reflect.NewAt(readField.Type(), readField.Addr().UnsafePointer()).Elem()
	writeField = reflect.NewAt(writeField.Type(), writeField.Addr().UnsafePointer()).Elem()

	readField.Set(reflect.ValueOf(db))
	writeField.Set(reflect.ValueOf(db))

	return pgDB, db
}

func setupHealthRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	connName := t.Name() + "-" + mr.Addr()
	adapter, err := redis.NewRedisAdapter(connName, "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	return mr, adapter
}

func TestHealthService_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("healthy when both stores answer", func(t *testing.T) {
		db, _ := setupHealthDB(t)
		mr, adapter := setupHealthRedis(t)
		defer mr.Close()

		svc := NewHealthService(db, adapter)
		assert.NoError(t, svc.Get(ctx))
	})

	t.Run("unhealthy when redis is down", func(t *testing.T) {
		db, _ := setupHealthDB(t)
		mr, adapter := setupHealthRedis(t)
		mr.Close()

		svc := NewHealthService(db, adapter)
		assert.Error(t, svc.Get(ctx))
	})

	t.Run("unhealthy when the database is down", func(t *testing.T) {
		db, gormDB := setupHealthDB(t)
		mr, adapter := setupHealthRedis(t)
		defer mr.Close()

		sqlDB, err := gormDB.DB()
		require.NoError(t, err)
		require.NoError(t, sqlDB.Close())

		svc := NewHealthService(db, adapter)
		assert.Error(t, svc.Get(ctx))
	})
}
