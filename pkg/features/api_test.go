package featuresApi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Gamequic/ProfileDirectory/pkg/database"
	notificationservice "github.com/Gamequic/ProfileDirectory/pkg/features/notifications/service"
	"github.com/Gamequic/ProfileDirectory/pkg/features/profiles/store"
	"github.com/Gamequic/ProfileDirectory/utils"
	"github.com/Gamequic/ProfileDirectory/utils/middlewares"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) utils.Config {
	dir := t.TempDir()
	return utils.Config{
		StorageBackend:    "memory",
		StoragePath:       filepath.Join(dir, "data", "profiles.json"),
		StorageKey:        "profiles",
		GeocoderURL:       "http://127.0.0.1:0/search",
		GeocoderUserAgent: "test",
		TileURL:           "https://tiles.example/{z}/{x}/{y}.png",
		UploadsPath:       filepath.Join(dir, "uploads"),
		LogDir:            filepath.Join(dir, "logs"),
	}
}

func TestOpenSlot(t *testing.T) {
	cfg := testConfig(t)

	cfg.StorageBackend = "file"
	slot, err := OpenSlot(cfg)
	require.NoError(t, err)
	assert.IsType(t, &store.FileSlot{}, slot)

	cfg.StorageBackend = "MEMORY"
	slot, err = OpenSlot(cfg)
	require.NoError(t, err)
	assert.IsType(t, &store.MemorySlot{}, slot)

	cfg.StorageBackend = "tape"
	_, err = OpenSlot(cfg)
	assert.Error(t, err)

	cfg.StorageBackend = "redis"
	_, err = OpenSlot(cfg)
	assert.Error(t, err)

	cfg.StorageBackend = "postgres"
	_, err = OpenSlot(cfg)
	assert.Error(t, err)
}

func TestOpenSlotSQLite(t *testing.T) {
	cfg := testConfig(t)
	cfg.StorageBackend = "sqlite"
	require.NoError(t, database.InitDB("sqlite", filepath.Join(t.TempDir(), "profiles.db")))
	t.Cleanup(func() {
		database.CloseDB()
		database.DB = nil
	})

	slot, err := OpenSlot(cfg)
	require.NoError(t, err)
	assert.IsType(t, &store.GormSlot{}, slot)
}

func TestRedisBackendAndPublisher(t *testing.T) {
	mr := miniredis.RunT(t)
	require.NoError(t, database.InitRedis(mr.Addr(), 0))
	t.Cleanup(func() {
		database.CloseRedis()
		database.RedisClient = nil
	})

	cfg := testConfig(t)
	cfg.StorageBackend = "redis"
	slot, err := OpenSlot(cfg)
	require.NoError(t, err)
	assert.IsType(t, &store.RedisSlot{}, slot)

	services, err := NewServices(cfg, slot, nil)
	require.NoError(t, err)
	assert.IsType(t, &notificationservice.RedisPublisher{}, services.Publisher)
}

func TestRoutesAreWired(t *testing.T) {
	cfg := testConfig(t)
	slot, err := OpenSlot(cfg)
	require.NoError(t, err)
	services, err := NewServices(cfg, slot, nil)
	require.NoError(t, err)
	assert.IsType(t, &notificationservice.Hub{}, services.Publisher)

	router := mux.NewRouter()
	router.Use(middlewares.ErrorHandler)
	RegisterSubRoutes(router, cfg, services, nil)

	body := `{"name":"Ann Lee","email":"ann@x.com","phone":"1","address":"Paris","description":"d","interests":"i"}`
	req := httptest.NewRequest(http.MethodPost, "/api/profiles/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Ann Lee")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/system/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"profiles":1`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files/missing.png", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Len(t, services.Profiles.List(context.Background()), 1)
}
