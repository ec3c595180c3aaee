package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"thegrid/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := config.Load("")

	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, config.BackendSQLite, cfg.StoreBackend)
	assert.Equal(t, "tasks", cfg.TasksCollection)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, "primary", cfg.CalendarID)
	assert.Equal(t, "America/New_York", cfg.CalendarTimeZone)
	assert.Equal(t, 15, cfg.DurationGranularity)
	assert.True(t, cfg.CalendarEnabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdirTemp(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("CALENDAR_ID", "team@example.com")
	t.Setenv("POLL_INTERVAL", "500ms")

	cfg, err := config.Load("")

	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, "team@example.com", cfg.CalendarID)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "grid.yaml")
	require.NoError(t, os.WriteFile(path, []byte("SERVER_PORT: \"7070\"\nLOG_FORMAT: json\n"), 0600))

	cfg, err := config.Load(path)

	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.ServerPort)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	chdirTemp(t)

	_, err := config.Load("does-not-exist.yaml")

	assert.Error(t, err)
}

func TestLoad_FirestoreNeedsProject(t *testing.T) {
	chdirTemp(t)
	t.Setenv("STORE_BACKEND", "firestore")
	t.Setenv("GCP_PROJECT_ID", "")

	_, err := config.Load("")

	assert.ErrorContains(t, err, "GCP_PROJECT_ID")
}

func TestLoad_UnknownBackend(t *testing.T) {
	chdirTemp(t)
	t.Setenv("STORE_BACKEND", "mongo")

	_, err := config.Load("")

	assert.ErrorContains(t, err, "unknown STORE_BACKEND")
}

func TestLoad_GranularityMustDivideDefaultDuration(t *testing.T) {
	tests := []struct {
		value string
		ok    bool
	}{
		{"15", true},
		{"30", true},
		{"60", true},
		{"45", false},
		{"7", false},
		{"0", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			chdirTemp(t)
			t.Setenv("DURATION_GRANULARITY", tt.value)

			cfg, err := config.Load("")

			if tt.ok {
				require.NoError(t, err)
				assert.Zero(t, 60%cfg.DurationGranularity)
			} else {
				assert.ErrorContains(t, err, "DURATION_GRANULARITY")
			}
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	cfg := &config.Config{DBHost: "db", DBPort: "5432", DBUser: "u", DBPassword: "p", DBName: "grid"}

	assert.Equal(t, "host=db port=5432 user=u password=p dbname=grid sslmode=disable", cfg.PostgresDSN())
}
