package install

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsWhitelisted(t *testing.T) {
	assert.True(t, isWhitelisted("etc/hostname"))
	assert.True(t, isWhitelisted("var/lib/dpkg/status"))
	assert.True(t, isWhitelisted("usr/lib/locale/locale-archive"))
	assert.True(t, isWhitelisted("home/user/.updated"))
	assert.True(t, isWhitelisted("var/cache/foo/.updated"))
	assert.False(t, isWhitelisted("tmp/test"))
	assert.False(t, isWhitelisted("opt/stray-file"))
}

func TestDpkgOwnedFiles(t *testing.T) {
	target := t.TempDir()
	infoDir := filepath.Join(target, "var", "lib", "dpkg", "info")
	require.NoError(t, os.MkdirAll(infoDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(infoDir, "bash.list"), []byte("/bin/bash\n/usr/bin/bash\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(infoDir, "bash.md5sums"), []byte("ignored, not a .list file\n"), 0644))

	owned, err := dpkgOwnedFiles(target)
	require.NoError(t, err)
	assert.True(t, owned["bin/bash"])
	assert.True(t, owned["usr/bin/bash"])
	assert.Len(t, owned, 2)
}

func TestRunStage5CleanupRemovesStrayFilesButKeepsWhitelist(t *testing.T) {
	target := t.TempDir()
	infoDir := filepath.Join(target, "var", "lib", "dpkg", "info")
	require.NoError(t, os.MkdirAll(infoDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(infoDir, "bash.list"), []byte("/bin/bash\n"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(target, "bin"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(target, "bin", "bash"), []byte("owned"), 0644))

	require.NoError(t, os.MkdirAll(filepath.Join(target, "tmp"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(target, "tmp", "test"), []byte("stray"), 0644))

	require.NoError(t, os.MkdirAll(filepath.Join(target, "root"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(target, "root", ".bashrc"), []byte("keep me"), 0644))

	require.NoError(t, os.MkdirAll(filepath.Join(target, "etc"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(target, "etc", "machine-id"), []byte("abc123"), 0644))

	require.NoError(t, RunStage5Cleanup(context.Background(), target))

	_, err := os.Stat(filepath.Join(target, "tmp", "test"))
	assert.True(t, os.IsNotExist(err), "stray file should be removed")

	_, err = os.Stat(filepath.Join(target, "bin", "bash"))
	assert.NoError(t, err, "dpkg-owned file should survive")

	_, err = os.Stat(filepath.Join(target, "root", ".bashrc"))
	assert.NoError(t, err, "whitelisted directory should survive")

	_, err = os.Stat(filepath.Join(target, "etc", "machine-id"))
	assert.True(t, os.IsNotExist(err), "machine-id must always be removed")
}
