package archiveutil

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"testing"
	"time"

	"chainguard.dev/apko/pkg/apk/fs"
	"github.com/blakesmith/ar"
	"github.com/go-logr/logr"
	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gzippedTar(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)
	for name, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name: name, Typeflag: tar.TypeReg, Mode: 0644, Size: int64(len(content)), ModTime: time.Now(),
		}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gw.Close())
	return buf.Bytes()
}

func buildFakeDeb(t *testing.T) []byte {
	t.Helper()
	control := gzippedTar(t, map[string]string{
		"control":  "Package: hello\nVersion: 1.0\nArchitecture: amd64\n",
		"md5sums":  "d41d8cd98f00b204e9800998ecf8427e  usr/bin/hello\n",
	})
	data := gzippedTar(t, map[string]string{"usr/bin/hello": "binary contents"})

	var buf bytes.Buffer
	w := ar.NewWriter(&buf)
	require.NoError(t, w.WriteGlobalHeader())

	writeMember := func(name string, content []byte) {
		require.NoError(t, w.WriteHeader(&ar.Header{Name: name, Size: int64(len(content)), Mode: 0644, ModTime: time.Now()}))
		_, err := w.Write(content)
		require.NoError(t, err)
	}
	writeMember("debian-binary", []byte("2.0\n"))
	writeMember("control.tar.gz", control)
	writeMember("data.tar.gz", data)

	return buf.Bytes()
}

func TestOpenDebExtractsData(t *testing.T) {
	ctx := logr.NewContext(context.TODO(), testr.NewWithOptions(t, testr.Options{Verbosity: 10}))

	deb, err := OpenDeb(ctx, bytes.NewReader(buildFakeDeb(t)))
	require.NoError(t, err)

	dest := fs.NewMemFS()
	require.NoError(t, deb.ExtractData(ctx, dest))

	_, err = dest.Stat("/usr/bin/hello")
	assert.NoError(t, err)
}

func TestOpenDebReadsControlFile(t *testing.T) {
	ctx := logr.NewContext(context.TODO(), testr.NewWithOptions(t, testr.Options{Verbosity: 10}))

	deb, err := OpenDeb(ctx, bytes.NewReader(buildFakeDeb(t)))
	require.NoError(t, err)

	control, err := deb.ReadControlFile(ctx, "control")
	require.NoError(t, err)
	assert.Contains(t, string(control), "Package: hello")
}
