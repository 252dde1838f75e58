package bsconfig_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/debstrap/debstrap/internal/bsconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadValid(t *testing.T) {
	path := writeConfig(t, `
maintainer_keyring = "/etc/debstrap/keyring.gpg"
components = ["main", "contrib"]

[branches.stable]
base_components = ["main"]
extra = ["non-free"]
`)
	cfg, err := bsconfig.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/etc/debstrap/keyring.gpg", cfg.MaintainerKeyring)
	assert.Equal(t, []string{"main", "contrib"}, cfg.Components)
	assert.Equal(t, []string{"main", "non-free"}, cfg.ComponentsFor("stable"))
	assert.Equal(t, []string{"main", "contrib"}, cfg.ComponentsFor("unstable"))
	assert.False(t, cfg.InstallRecommends)
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	path := writeConfig(t, `
maintainer_keyring = "/etc/debstrap/keyring.gpg"
bogus_key = true
`)
	_, err := bsconfig.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus_key")
}

func TestLoadRequiresKeyring(t *testing.T) {
	path := writeConfig(t, `components = ["main"]`)
	_, err := bsconfig.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maintainer_keyring")
}
