package archiveutil

import (
	"archive/tar"
	"bytes"
	"context"
	"testing"
	"time"

	"chainguard.dev/apko/pkg/apk/fs"
	"github.com/go-logr/logr"
	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestTar(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name: "dir/", Typeflag: tar.TypeDir, Mode: 0755, ModTime: time.Now(),
	}))
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name: "dir/test.txt", Typeflag: tar.TypeReg, Mode: 0644, Size: 5, ModTime: time.Now(),
	}))
	_, err := tw.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name: "test-symbolic.txt", Typeflag: tar.TypeSymlink, Linkname: "dir/test.txt", Mode: 0777, ModTime: time.Now(),
	}))
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

func TestUntar(t *testing.T) {
	ctx := logr.NewContext(context.TODO(), testr.NewWithOptions(t, testr.Options{Verbosity: 10}))

	rootfs := fs.NewMemFS()
	require.NoError(t, Untar(ctx, bytes.NewReader(buildTestTar(t)), rootfs))

	_, err := rootfs.Stat("/dir/test.txt")
	assert.NoError(t, err)

	_, err = rootfs.Lstat("/test-symbolic.txt")
	assert.NoError(t, err)
}

func TestUntarRejectsPathEscape(t *testing.T) {
	ctx := logr.NewContext(context.TODO(), testr.NewWithOptions(t, testr.Options{Verbosity: 10}))

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name: "../outside.txt", Typeflag: tar.TypeReg, Mode: 0644, Size: 0, ModTime: time.Now(),
	}))
	require.NoError(t, tw.Close())

	rootfs := fs.NewMemFS()
	err := Untar(ctx, bytes.NewReader(buf.Bytes()), rootfs)
	require.Error(t, err)
}
