package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Saymandev/advanced-poss-gateway/pkg/config"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 1})
	return slog.New(handler)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o600))
	return dir
}

func TestLoadDefaults(t *testing.T) {
	req := require.New(t)

	cfg, err := config.Load(newTestLogger(), "config", t.TempDir())
	req.NoError(err)
	req.Equal(":8080", cfg.Server.Address)
	req.Equal("reject", cfg.Server.ConnectionLimit.Mode)
	req.Equal(60*time.Second, cfg.Transport.ReadTimeout)
	req.Equal(10*time.Second, cfg.Transport.WriteTimeout)
}

func TestLoadFromFile(t *testing.T) {
	req := require.New(t)
	dir := writeConfig(t, `
server:
  address: ":9090"
  auth:
    jwtSecret: "s3cret"
  connectionLimit:
    maxPerUser: 3
    mode: cycle
transport:
  readTimeout: 30s
`)

	cfg, err := config.Load(newTestLogger(), "config", dir)
	req.NoError(err)
	req.Equal(":9090", cfg.Server.Address)
	req.Equal("s3cret", cfg.Server.Auth.JWTSecret)
	req.Equal(3, cfg.Server.ConnectionLimit.MaxPerUser)
	req.Equal("cycle", cfg.Server.ConnectionLimit.Mode)
	req.Equal(30*time.Second, cfg.Transport.ReadTimeout)
}

func TestLoadRejectsUnknownLimitMode(t *testing.T) {
	dir := writeConfig(t, `
server:
  connectionLimit:
    maxPerUser: 3
    mode: banhammer
`)

	_, err := config.Load(newTestLogger(), "config", dir)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid configuration")
}
