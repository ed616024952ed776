package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func Test_LoadConfig_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{"endpoint": "/tmp/vsak.sock"}`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "/tmp/vsak.sock", cfg.Endpoint)
	require.Equal(t, DefaultListenAddr, cfg.ListenAddr)
	require.Equal(t, DefaultMaxSlots, cfg.MaxSlots)
	require.Equal(t, DefaultFrameCap, cfg.FrameCap)
}

func Test_LoadConfig_HonoursExplicitFields(t *testing.T) {
	path := writeConfig(t, `{
		"endpoint": "/tmp/vsak.sock",
		"listen_addr": "127.0.0.1:9050",
		"max_slots": 16,
		"frame_cap": 2048
	}`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9050", cfg.ListenAddr)
	require.Equal(t, 16, cfg.MaxSlots)
	require.Equal(t, 2048, cfg.FrameCap)
}

func Test_LoadConfig_AcceptsLegacyDeviceAlias(t *testing.T) {
	path := writeConfig(t, `{"device": "/dev/vport1p1"}`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "/dev/vport1p1", cfg.Endpoint)
}

func Test_LoadConfig_AcceptsLegacyProxyPortAlias(t *testing.T) {
	path := writeConfig(t, `{"endpoint": "/tmp/vsak.sock", "proxy_port": 1081}`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:1081", cfg.ListenAddr)
}

func Test_LoadConfig_ExplicitFieldWinsOverLegacyAlias(t *testing.T) {
	path := writeConfig(t, `{
		"endpoint": "/tmp/vsak.sock",
		"device": "/dev/ignored",
		"listen_addr": "127.0.0.1:1090",
		"proxy_port": 9999
	}`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "/tmp/vsak.sock", cfg.Endpoint)
	require.Equal(t, "127.0.0.1:1090", cfg.ListenAddr)
}

func Test_LoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}
