package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newSQLiteSlot(t *testing.T) *GormSlot {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Every connection to :memory: is a separate database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	slot, err := NewGormSlot(db, "profiles")
	require.NoError(t, err)
	return slot
}

func newRedisSlot(t *testing.T) (*RedisSlot, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisSlot(client, "profiles"), mr
}

func TestSlotBackends(t *testing.T) {
	backends := map[string]func(t *testing.T) Slot{
		"memory": func(t *testing.T) Slot { return NewMemorySlot() },
		"file": func(t *testing.T) Slot {
			return NewFileSlot(filepath.Join(t.TempDir(), "nested", "profiles.json"))
		},
		"sqlite": func(t *testing.T) Slot { return newSQLiteSlot(t) },
		"redis": func(t *testing.T) Slot {
			slot, _ := newRedisSlot(t)
			return slot
		},
	}

	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			slot := open(t)

			_, err := slot.Load(ctx)
			assert.ErrorIs(t, err, ErrSlotEmpty)

			require.NoError(t, slot.Save(ctx, []byte(`[{"id":1}]`)))
			data, err := slot.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, `[{"id":1}]`, string(data))

			// Second save replaces the whole blob.
			require.NoError(t, slot.Save(ctx, []byte(`[]`)))
			data, err = slot.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, `[]`, string(data))

			s := NewProfileStore(slot, nil)
			stored, err := s.Add(ctx, annDraft())
			require.NoError(t, err)
			profiles := s.List(ctx)
			require.Len(t, profiles, 1)
			assert.Equal(t, stored, profiles[0])
		})
	}
}

func TestFileSlotLeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	slot := NewFileSlot(filepath.Join(dir, "profiles.json"))

	for i := 0; i < 3; i++ {
		require.NoError(t, slot.Save(ctx, []byte(`[]`)))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "profiles.json", entries[0].Name())
}

func TestCorruptBlobInEachBackendListsEmpty(t *testing.T) {
	ctx := context.Background()

	t.Run("redis", func(t *testing.T) {
		slot, mr := newRedisSlot(t)
		require.NoError(t, mr.Set("profiles", "][ definitely not json"))
		assert.Empty(t, NewProfileStore(slot, nil).List(ctx))
	})

	t.Run("sqlite", func(t *testing.T) {
		slot := newSQLiteSlot(t)
		require.NoError(t, slot.Save(ctx, []byte("{{{")))
		assert.Empty(t, NewProfileStore(slot, nil).List(ctx))
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "profiles.json")
		require.NoError(t, os.WriteFile(path, []byte("\x00\x01"), 0o644))
		assert.Empty(t, NewProfileStore(NewFileSlot(path), nil).List(ctx))
	})
}
