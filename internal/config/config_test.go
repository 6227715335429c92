package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileIsZeroConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Nil(t, cfg.Defaults.Buffer)
	assert.Nil(t, cfg.Defaults.Verify)
}

func TestLoad_ReadsDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "vclone"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vclone", "config.toml"), []byte(`
[defaults]
buffer = "128K"
verify = true
snapshot = false
`), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	require.NotNil(t, cfg.Defaults.Buffer)
	assert.Equal(t, "128K", *cfg.Defaults.Buffer)
	require.NotNil(t, cfg.Defaults.Verify)
	assert.True(t, *cfg.Defaults.Verify)
	require.NotNil(t, cfg.Defaults.Snapshot)
	assert.False(t, *cfg.Defaults.Snapshot)
	assert.Nil(t, cfg.Defaults.Quiet)
}

func TestLoad_BadTOML(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "vclone"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vclone", "config.toml"), []byte("not toml ["), 0o644))

	_, err := Load()
	assert.Error(t, err)
}

func TestParseSize(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"4096", 4096},
		{"64K", 64 * 1024},
		{"64k", 64 * 1024},
		{"1M", 1024 * 1024},
		{"2g", 2 * 1024 * 1024 * 1024},
		{" 512K ", 512 * 1024},
	}
	for _, tc := range cases {
		got, err := ParseSize(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	for _, bad := range []string{"", "K", "12X", "-4096", "0"} {
		_, err := ParseSize(bad)
		assert.Error(t, err, bad)
	}
}
