package utils

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "STORAGE_BACKEND", "STORAGE_KEY", "CORS_ORIGINS"} {
		// Setenv restores the original value when the test ends.
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "file", cfg.StorageBackend)
	assert.Equal(t, "profiles", cfg.StorageKey)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORAGE_BACKEND", "redis")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("CORS_ORIGINS", "http://a.test,http://b.test")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "redis", cfg.StorageBackend)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
}

func TestLoadConfigRejectsBadNumbers(t *testing.T) {
	t.Setenv("REDIS_DB", "two")
	_, err := LoadConfig()
	assert.Error(t, err)
}

type sample struct {
	Name  string `json:"name" validate:"required,max=3"`
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"omitempty,numeric"`
}

func TestValidationMessages(t *testing.T) {
	err := Validate.Struct(sample{Name: "toolong", Email: "nope", Code: "x"})
	require.Error(t, err)

	assert.Equal(t, map[string]string{
		"name":  "Must be at most 3 characters",
		"email": "Enter a valid email address",
		"code":  "Invalid value",
	}, ValidationMessages(err))

	err = Validate.Struct(sample{})
	assert.Equal(t, "This field is required", ValidationMessages(err)["name"])

	assert.Nil(t, ValidationMessages(assert.AnError))
}

func TestExcelRoundTrip(t *testing.T) {
	rows := [][]string{{"ID", "Name"}, {"1", "Ann"}, {"2", "0612"}}

	var buf bytes.Buffer
	require.NoError(t, WriteExcelSheet(&buf, "Profiles", rows))

	got, err := ReadExcelSheet(bytes.NewReader(buf.Bytes()), "Profiles")
	require.NoError(t, err)
	assert.Equal(t, rows, got)

	_, err = ReadExcelSheet(bytes.NewReader(buf.Bytes()), "Other")
	assert.Error(t, err)
}
