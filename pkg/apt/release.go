package apt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/debstrap/debstrap/internal/bserror"
	"github.com/debstrap/debstrap/pkg/verify"
	"github.com/go-logr/logr"
)

const (
	inReleaseName  = "InRelease"
	releaseName    = "Release"
	releaseGPGName = "Release.gpg"
)

// FetchRelease issues a plain GET (no conditional headers) for
// dists/<branch>/InRelease; on 404 it falls back to Release +
// Release.gpg. Signature verification is delegated to the injected
// Verifier (an external collaborator) so the backend can be swapped
// without touching this pipeline. Fails with Verification, Transport, a
// not-found Transport error, or MalformedIndex for an unparsable
// release file.
func FetchRelease(ctx context.Context, repo Repository, v verify.Verifier, keyringPath string) (*ReleaseFile, error) {
	log := logr.FromContextOrDiscard(ctx).WithValues("mirror", repo.Mirror, "branch", repo.Branch)
	base := fmt.Sprintf("%s/dists/%s", strings.TrimSuffix(repo.Mirror, "/"), repo.Branch)

	inReleaseURL := base + "/" + inReleaseName
	body, status, err := getBytes(ctx, inReleaseURL)
	if err == nil && status == http.StatusOK {
		log.V(1).Info("found InRelease, verifying clearsigned signature")
		plaintext, verr := v.VerifyClearsigned(body, keyringPath)
		if verr != nil {
			return nil, verr
		}
		rf, perr := parseReleaseFile(plaintext)
		if perr != nil {
			return nil, perr
		}
		rf.Origin = inReleaseURL
		return rf, nil
	}
	if err != nil {
		return nil, bserror.New(bserror.Transport, inReleaseURL, err)
	}
	if status != http.StatusNotFound {
		return nil, bserror.Wrapf(bserror.Transport, inReleaseURL, "unexpected http status %d", status)
	}

	log.V(1).Info("InRelease not found, falling back to detached Release/Release.gpg")
	releaseURL := base + "/" + releaseName
	releaseGPGURL := base + "/" + releaseGPGName

	payload, status, err := getBytes(ctx, releaseURL)
	if err != nil || status != http.StatusOK {
		return nil, bserror.Wrapf(bserror.Transport, "", "neither %s nor %s could be fetched", inReleaseURL, releaseURL)
	}
	sig, status, err := getBytes(ctx, releaseGPGURL)
	if err != nil || status != http.StatusOK {
		return nil, bserror.Wrapf(bserror.Transport, releaseGPGURL, "detached signature file not found")
	}

	if err := v.VerifyDetached(payload, sig, keyringPath); err != nil {
		return nil, err
	}
	rf, err := parseReleaseFile(payload)
	if err != nil {
		return nil, err
	}
	rf.Origin = releaseURL
	return rf, nil
}

func getBytes(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

// parseReleaseFile parses a Release document's deb822 header fields plus
// its trailing "SHA256:" checksum block (lines of the form
// "  <hex-digest> <size> <relative-path>").
func parseReleaseFile(data []byte) (*ReleaseFile, error) {
	rf := &ReleaseFile{Entries: map[string]ReleaseEntry{}}

	sc := bufio.NewScanner(strings.NewReader(string(data)))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	inSHA256Block := false
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, " ") && !strings.HasPrefix(line, "\t") {
			inSHA256Block = strings.HasPrefix(line, "SHA256:")
			continue
		}
		if !inSHA256Block {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			continue
		}
		digest, sizeStr, path := fields[0], fields[1], fields[2]
		size, serr := strconv.ParseInt(sizeStr, 10, 64)
		if serr != nil {
			return nil, bserror.Wrapf(bserror.MalformedIndex, path, "malformed checksum entry size: %v", serr)
		}
		rf.Entries[path] = ReleaseEntry{Path: path, Size: size, SHA256: digest}
	}
	if err := sc.Err(); err != nil {
		return nil, bserror.Wrapf(bserror.MalformedIndex, "", "scanning release file: %v", err)
	}
	if len(rf.Entries) == 0 {
		return nil, bserror.Wrapf(bserror.MalformedIndex, "", "release file has no SHA256 checksum entries")
	}
	return rf, nil
}
