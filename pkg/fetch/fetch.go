// Package fetch implements the parallel content-addressed package
// fetcher (spec §4.4): disk-space preflight, a bounded worker pool,
// per-archive digest verification, and retry with exponential backoff.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"

	"github.com/cenkalti/backoff/v4"
	"github.com/debstrap/debstrap/internal/bserror"
	"github.com/debstrap/debstrap/pkg/apt"
	"github.com/dustin/go-humanize"
	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
)

// spaceSlack is the preflight margin required above the plan's summed
// expected size, per spec §4.4 ("available(cache_dir) >= sum * 1.1").
const spaceSlack = 1.1

const maxRetries = 3

// ProgressFunc is invoked as each entry completes or as bytes stream in;
// progress rendering itself is an external collaborator (spec §4.4).
type ProgressFunc func(entry apt.PlanEntry, bytesDownloaded int64, done bool)

// Options configures one FetchPlan call.
type Options struct {
	CacheDir    string
	Parallelism int
	Progress    ProgressFunc
}

// FetchPlan downloads every PlanEntry into CacheDir, skipping entries
// whose cached file already matches the expected digest, and fails the
// whole plan with InsufficientSpace or a DigestMismatch-flavoured
// Verification/Transport error, per spec §4.4.
func FetchPlan(ctx context.Context, plan []apt.PlanEntry, opts Options) error {
	log := logr.FromContextOrDiscard(ctx)

	if err := os.MkdirAll(opts.CacheDir, 0755); err != nil {
		return bserror.New(bserror.Config, opts.CacheDir, err)
	}

	var total int64
	for _, e := range plan {
		total += e.ExpectedSize
	}
	avail, err := availableBytes(opts.CacheDir)
	if err != nil {
		return bserror.New(bserror.Transport, opts.CacheDir, err)
	}
	required := uint64(float64(total) * spaceSlack)
	log.V(1).Info("disk preflight", "required", humanize.Bytes(required), "available", humanize.Bytes(avail))
	if avail < required {
		return bserror.Wrapf(bserror.InsufficientSpace, opts.CacheDir, "need %s, have %s available", humanize.Bytes(required), humanize.Bytes(avail))
	}

	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}

	p := pool.New().WithContext(ctx).WithMaxGoroutines(parallelism).WithCancelOnError()
	for _, entry := range plan {
		entry := entry
		p.Go(func(ctx context.Context) error {
			return fetchOne(ctx, entry, opts)
		})
	}
	return p.Wait()
}

func fetchOne(ctx context.Context, entry apt.PlanEntry, opts Options) error {
	log := logr.FromContextOrDiscard(ctx).WithValues("package", entry.Name, "url", entry.URL)
	dst := filepath.Join(opts.CacheDir, filepath.Base(entry.URL))

	if matchesDigest(dst, entry.ExpectedDigest) {
		log.V(1).Info("cached archive already matches digest, skipping download")
		if opts.Progress != nil {
			opts.Progress(entry, entry.ExpectedSize, true)
		}
		return nil
	}

	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries)
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		if attempt > 1 {
			log.V(1).Info("retrying download", "attempt", attempt)
		}
		return downloadOnce(ctx, entry, dst, opts.Progress)
	}, backoff.WithContext(b, ctx))

	if err != nil {
		if be, ok := err.(*bserror.Error); ok {
			return be
		}
		return bserror.New(bserror.Transport, entry.URL, fmt.Errorf("download failed after %d attempts: %w", attempt, err))
	}
	return nil
}

func downloadOnce(ctx context.Context, entry apt.PlanEntry, dst string, progress ProgressFunc) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, entry.URL, nil)
	if err != nil {
		return backoff.Permanent(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err // transient, retry
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return backoff.Permanent(fmt.Errorf("http status %d", resp.StatusCode))
		}
		return fmt.Errorf("http status %d", resp.StatusCode)
	}

	tmp := dst + ".tmp-" + uuid.NewString()
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0664)
	if err != nil {
		return backoff.Permanent(err)
	}
	defer os.Remove(tmp)

	h := sha256.New()
	var written int64
	buf := make([]byte, 256*1024)
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				_ = f.Close()
				return werr
			}
			h.Write(buf[:n])
			written += int64(n)
			if progress != nil {
				progress(entry, written, false)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			_ = f.Close()
			return rerr
		}
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	got := hex.EncodeToString(h.Sum(nil))
	if entry.ExpectedDigest != "" && got != entry.ExpectedDigest {
		// digest mismatch is retried (up to maxRetries) per spec §4.4,
		// unlike a 4xx response which is permanent.
		return bserror.Wrapf(bserror.Verification, entry.Name, "digest mismatch: expected %s, got %s", entry.ExpectedDigest, got)
	}

	if err := os.Rename(tmp, dst); err != nil {
		return backoff.Permanent(err)
	}
	if progress != nil {
		progress(entry, written, true)
	}
	return nil
}

func matchesDigest(path, expected string) bool {
	if expected == "" {
		return false
	}
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return false
	}
	return hex.EncodeToString(h.Sum(nil)) == expected
}
