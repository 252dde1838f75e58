package install

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"chainguard.dev/apko/pkg/apk/fs"
	"github.com/debstrap/debstrap/internal/bserror"
	"github.com/debstrap/debstrap/pkg/apt"
	"github.com/debstrap/debstrap/pkg/archiveutil"
	"github.com/go-logr/logr"
)

// RunStage1 extracts the bootstrap subset of .deb archives directly
// into target, and copies every other archive into
// target/var/cache/apt/archives, per spec §4.5. Not resumable past this
// point (spec §9 "only the boundary between stage 0 and stage 1 is
// resumable").
func RunStage1(ctx context.Context, req Request, records map[string]apt.PackageRecord, seeds map[string]bool) error {
	log := logr.FromContextOrDiscard(ctx).WithValues("target", req.Target)
	log.Info("stage 1: extracting bootstrap subset, caching the rest")

	subset := BootstrapSubset(req.Plan, records)
	inSubset := map[string]bool{}
	for _, e := range subset {
		inSubset[e.Name] = true
	}

	archiveDir := filepath.Join(req.Target, "var", "cache", "apt", "archives")
	targetFS := fs.DirFS(req.Target)

	for _, entry := range req.Plan {
		archivePath := filepath.Join(req.CacheDir, filepath.Base(entry.URL))

		if inSubset[entry.Name] {
			if err := extractDirect(ctx, targetFS, req.Target, entry, archivePath); err != nil {
				return err
			}
		} else {
			// the cache dir may already be archiveDir; copying a file onto
			// itself would truncate it
			dst := filepath.Join(archiveDir, filepath.Base(archivePath))
			if dst != archivePath {
				if err := copyFile(archivePath, dst); err != nil {
					return bserror.New(bserror.ExtractionError, archivePath, err)
				}
			}
		}

		if !seeds[entry.Name] {
			if err := AppendExtendedState(req.Target, entry.Name); err != nil {
				return err
			}
		}
	}

	return WriteSentinel(req.Target, Stage1)
}

func extractDirect(ctx context.Context, targetFS fs.FullFS, target string, entry apt.PlanEntry, archivePath string) error {
	log := logr.FromContextOrDiscard(ctx).WithValues("package", entry.Name)
	log.V(1).Info("extracting bootstrap-subset package directly", "archive", archivePath)

	f, err := os.Open(archivePath)
	if err != nil {
		return bserror.New(bserror.ExtractionError, archivePath, err)
	}
	defer f.Close()

	deb, err := archiveutil.OpenDeb(ctx, f)
	if err != nil {
		return err
	}

	manifest, err := deb.ExtractDataWithManifest(ctx, targetFS)
	if err != nil {
		return err
	}

	control, err := deb.ReadControlFile(ctx, "control")
	if err != nil {
		return bserror.New(bserror.ExtractionError, entry.Name, fmt.Errorf("reading control member: %w", err))
	}
	recs, err := apt.DecodeControl(bytes.NewReader(control))
	if err != nil || len(recs) == 0 {
		return bserror.Wrapf(bserror.ExtractionError, entry.Name, "unable to decode embedded control file")
	}
	rec := recs[0]

	if err := AppendStatusEntry(target, rec, "install ok unpacked"); err != nil {
		return err
	}
	if err := WriteFileList(target, entry.Name, manifest); err != nil {
		return err
	}

	if md5sums, err := deb.ReadControlFile(ctx, "md5sums"); err == nil {
		if err := WriteMD5Sums(target, entry.Name, md5sums); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}
