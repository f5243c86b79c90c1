package featuresApi

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Gamequic/ProfileDirectory/pkg/database"
	"github.com/Gamequic/ProfileDirectory/pkg/features/files"
	fileservice "github.com/Gamequic/ProfileDirectory/pkg/features/files/service"
	"github.com/Gamequic/ProfileDirectory/pkg/features/geocode"
	logs "github.com/Gamequic/ProfileDirectory/pkg/features/logsViewer"
	logsservice "github.com/Gamequic/ProfileDirectory/pkg/features/logsViewer/service"
	"github.com/Gamequic/ProfileDirectory/pkg/features/maps"
	"github.com/Gamequic/ProfileDirectory/pkg/features/notifications"
	notificationservice "github.com/Gamequic/ProfileDirectory/pkg/features/notifications/service"
	"github.com/Gamequic/ProfileDirectory/pkg/features/pages"
	"github.com/Gamequic/ProfileDirectory/pkg/features/profiles"
	profileservice "github.com/Gamequic/ProfileDirectory/pkg/features/profiles/service"
	"github.com/Gamequic/ProfileDirectory/pkg/features/profiles/store"
	"github.com/Gamequic/ProfileDirectory/pkg/features/system"
	systemservice "github.com/Gamequic/ProfileDirectory/pkg/features/system/service"
	"github.com/Gamequic/ProfileDirectory/utils"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Services is everything the routes are built from.
type Services struct {
	Profiles  *profileservice.Service
	Files     *fileservice.Storage
	Publisher notificationservice.Publisher
	Locator   *geocode.Client
}

// OpenSlot picks the profile blob backend named by cfg.StorageBackend.
// The sqlite, postgres and redis backends expect database.InitDB or
// database.InitRedis to have been called.
func OpenSlot(cfg utils.Config) (store.Slot, error) {
	switch strings.ToLower(cfg.StorageBackend) {
	case "", "file":
		return store.NewFileSlot(cfg.StoragePath), nil
	case "memory":
		return store.NewMemorySlot(), nil
	case "sqlite", "postgres":
		if database.DB == nil {
			return nil, fmt.Errorf("%s backend: database is not connected", cfg.StorageBackend)
		}
		return store.NewGormSlot(database.DB, cfg.StorageKey)
	case "redis":
		if database.RedisClient == nil {
			return nil, fmt.Errorf("redis backend: REDIS_HOST is not set")
		}
		return store.NewRedisSlot(database.RedisClient, cfg.StorageKey), nil
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.StorageBackend)
	}
}

// NewServices builds the services over slot. Changes go through Redis when a
// client is connected so every instance sees them.
func NewServices(cfg utils.Config, slot store.Slot, logger *zap.Logger) (*Services, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	storage, err := fileservice.NewStorage(cfg.UploadsPath, logger)
	if err != nil {
		return nil, err
	}

	var publisher notificationservice.Publisher = notificationservice.NewHub()
	if database.RedisClient != nil {
		publisher = notificationservice.NewRedisPublisher(database.RedisClient, notificationservice.DefaultChannel, logger)
	}

	return &Services{
		Profiles:  profileservice.NewService(store.NewProfileStore(slot, logger), storage, publisher, logger),
		Files:     storage,
		Publisher: publisher,
		Locator:   geocode.NewClient(cfg.GeocoderURL, cfg.GeocoderUserAgent, nil),
	}, nil
}

// RegisterSubRoutes mounts the JSON API under /api, the image files under
// /files and the HTML pages on everything else.
func RegisterSubRoutes(router *mux.Router, cfg utils.Config, services *Services, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	apiRouter := router.PathPrefix("/api").Subrouter()

	profiles.RegisterSubRoutes(apiRouter, services.Profiles)
	files.RegisterSubRoutes(apiRouter, services.Files)
	maps.RegisterSubRoutes(apiRouter, services.Locator, services.Profiles, cfg.TileURL, logger)
	notifications.RegisterSubRoutes(apiRouter, services.Publisher, logger)
	logs.RegisterSubRoutes(apiRouter, logsservice.NewViewer(cfg.LogDir), logger)
	system.RegisterSubRoutes(apiRouter, func() *systemservice.Collector {
		return systemservice.NewCollector(map[string]string{
			"uploads": cfg.UploadsPath,
			"storage": filepath.Dir(cfg.StoragePath),
			"logs":    cfg.LogDir,
		}, func() int {
			return len(services.Profiles.List(context.Background()))
		}, logger)
	}, logger)

	files.RegisterFileRoutes(router, services.Files)
	pages.RegisterRoutes(router, services.Profiles, services.Files, logger)
}
