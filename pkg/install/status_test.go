package install

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/debstrap/debstrap/pkg/apt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendStatusEntry(t *testing.T) {
	target := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(target, "var", "lib", "dpkg"), 0755))

	rec := apt.PackageRecord{
		Package: "bash", Version: "5.2-1", Architecture: "amd64",
		PreDepends: []string{"libc6 (>= 2.34)"},
	}
	require.NoError(t, AppendStatusEntry(target, rec, "install ok unpacked"))

	data, err := os.ReadFile(filepath.Join(target, "var", "lib", "dpkg", "status"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Package: bash")
	assert.Contains(t, string(data), "Status: install ok unpacked")
	assert.Contains(t, string(data), "Pre-Depends: libc6 (>= 2.34)")
}

func TestWriteFileListAndMD5Sums(t *testing.T) {
	target := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(target, "var", "lib", "dpkg", "info"), 0755))

	require.NoError(t, WriteFileList(target, "bash", []string{"/bin/bash", "/usr/share/doc/bash"}))
	data, err := os.ReadFile(filepath.Join(target, "var", "lib", "dpkg", "info", "bash.list"))
	require.NoError(t, err)
	assert.Equal(t, "/bin/bash\n/usr/share/doc/bash\n", string(data))

	require.NoError(t, WriteMD5Sums(target, "bash", []byte("d41d8cd98f00b204e9800998ecf8427e  bin/bash\n")))
	sums, err := os.ReadFile(filepath.Join(target, "var", "lib", "dpkg", "info", "bash.md5sums"))
	require.NoError(t, err)
	assert.Contains(t, string(sums), "bin/bash")
}

func TestAppendExtendedState(t *testing.T) {
	target := t.TempDir()
	require.NoError(t, AppendExtendedState(target, "libc6"))

	data, err := os.ReadFile(filepath.Join(target, "var", "lib", "apt", "extended_states"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Package: libc6")
	assert.Contains(t, string(data), "Auto-Installed: 1")
}
