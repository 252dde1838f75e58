package apt_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/debstrap/debstrap/pkg/apt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVerifier struct {
	clearPlaintext []byte
	clearErr       error
	detachedErr    error
}

func (f fakeVerifier) VerifyClearsigned(signed []byte, keyringPath string) ([]byte, error) {
	return f.clearPlaintext, f.clearErr
}

func (f fakeVerifier) VerifyDetached(payload, signature []byte, keyringPath string) error {
	return f.detachedErr
}

const sampleRelease = `Origin: Test
Label: Test
Suite: stable
SHA256:
 aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa 1234 main/binary-amd64/Packages.gz
 bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb 5678 main/binary-amd64/Packages
`

func TestFetchReleaseInRelease(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/dists/stable/InRelease" {
			_, _ = w.Write([]byte("-----BEGIN PGP SIGNED MESSAGE-----\nfake\n"))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	v := fakeVerifier{clearPlaintext: []byte(sampleRelease)}
	rf, err := apt.FetchRelease(context.Background(), apt.Repository{Mirror: srv.URL, Branch: "stable"}, v, "/dev/null")
	require.NoError(t, err)
	entry, ok := rf.Lookup("main/binary-amd64/Packages.gz")
	require.True(t, ok)
	assert.Equal(t, int64(1234), entry.Size)
}

func TestFetchReleaseFallsBackToDetached(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/dists/stable/InRelease":
			w.WriteHeader(http.StatusNotFound)
		case "/dists/stable/Release":
			_, _ = w.Write([]byte(sampleRelease))
		case "/dists/stable/Release.gpg":
			_, _ = w.Write([]byte("signature-bytes"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	v := fakeVerifier{}
	rf, err := apt.FetchRelease(context.Background(), apt.Repository{Mirror: srv.URL, Branch: "stable"}, v, "/dev/null")
	require.NoError(t, err)
	_, ok := rf.Lookup("main/binary-amd64/Packages")
	assert.True(t, ok)
}

func TestFetchReleaseBothMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := apt.FetchRelease(context.Background(), apt.Repository{Mirror: srv.URL, Branch: "stable"}, fakeVerifier{}, "/dev/null")
	require.Error(t, err)
}
