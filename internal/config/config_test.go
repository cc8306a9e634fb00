package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LINE_CHANNEL_ACCESS_TOKEN", "")
	t.Setenv("SERVER_ADDR", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "localhost:8000", cfg.Server.Addr)
	require.Equal(t, []string{"http://localhost", "http://127.0.0.1", "https://annko.jp"}, cfg.Server.AllowedOrigins)
	require.False(t, cfg.Line.Enabled)
	require.Equal(t, "0 6 * * *", cfg.Archive.Schedule)
	require.Equal(t, 15*time.Second, cfg.Scraper.Timeout)
	require.False(t, cfg.HasNetkeibaLogin())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LINE_CHANNEL_ACCESS_TOKEN", "token")
	t.Setenv("SCRAPER_TIMEOUT", "3s")
	t.Setenv("SCRAPER_RPS", "0.5")
	t.Setenv("NETKEIBA_USER_ID", "user")
	t.Setenv("NETKEIBA_PASSWORD", "pass")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("IRIS_ROOMS", "18398338829933, 競馬部")

	cfg, err := Load()
	require.NoError(t, err)
	require.True(t, cfg.Line.Enabled)
	require.Equal(t, 3*time.Second, cfg.Scraper.Timeout)
	require.InDelta(t, 0.5, cfg.Scraper.RequestsPerSecond, 1e-9)
	require.True(t, cfg.HasNetkeibaLogin())
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	require.Equal(t, []string{"18398338829933", "競馬部"}, cfg.Iris.Rooms)
}

func TestValidateRejectsArchiveWithoutPostgres(t *testing.T) {
	cfg := &Config{
		Server:  ServerConfig{Addr: ":8000"},
		Scraper: ScraperConfig{RequestsPerSecond: 1},
		Archive: ArchiveConfig{Enabled: true},
	}
	require.Error(t, cfg.Validate())

	cfg.Postgres.Enabled = true
	require.NoError(t, cfg.Validate())
}
