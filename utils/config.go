package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is read from the environment after .env has been loaded.
type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"file"`
	StoragePath    string `env:"STORAGE_PATH" envDefault:"data/profiles.json"`
	StorageKey     string `env:"STORAGE_KEY" envDefault:"profiles"`
	DatabaseDSN    string `env:"DATABASE_DSN"`

	RedisHost string `env:"REDIS_HOST"`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	GeocoderURL       string `env:"GEOCODER_URL" envDefault:"https://nominatim.openstreetmap.org/search"`
	GeocoderUserAgent string `env:"GEOCODER_USER_AGENT" envDefault:"profile-directory/1.0"`
	TileURL           string `env:"TILE_URL" envDefault:"https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"`

	UploadsPath string   `env:"UPLOADS_PATH" envDefault:"./uploads"`
	LogDir      string   `env:"LOG_DIR" envDefault:"logs"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
}

// Dotconfig loads .env when present. A missing file is not an error.
func Dotconfig() {
	if _, err := os.Stat(".env"); err != nil {
		return
	}
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "Error loading .env file:", err)
	}
}

// LoadConfig loads .env and parses the environment into a Config.
func LoadConfig() (Config, error) {
	Dotconfig()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func CheckHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
