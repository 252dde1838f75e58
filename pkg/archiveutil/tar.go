package archiveutil

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path"
	"time"

	"chainguard.dev/apko/pkg/apk/fs"
	"github.com/debstrap/debstrap/internal/bserror"
	"github.com/go-logr/logr"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Guntar decodes a gzip-compressed tar stream before extracting it.
func Guntar(ctx context.Context, r io.Reader, dest fs.FullFS) error {
	gzr, err := gzip.NewReader(r)
	if err != nil {
		return bserror.New(bserror.ExtractionError, "", err)
	}
	defer gzr.Close()
	return Untar(ctx, gzr, dest)
}

// XZuntar decodes an xz-compressed tar stream before extracting it.
func XZuntar(ctx context.Context, r io.Reader, dest fs.FullFS) error {
	xzr, err := xz.NewReader(r)
	if err != nil {
		return bserror.New(bserror.ExtractionError, "", err)
	}
	return Untar(ctx, xzr, dest)
}

// Zuntar decodes a zstd-compressed tar stream before extracting it.
func Zuntar(ctx context.Context, r io.Reader, dest fs.FullFS) error {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return bserror.New(bserror.ExtractionError, "", err)
	}
	defer zr.Close()
	return Untar(ctx, zr, dest)
}

// Untar expands a tar archive into dest, preserving ownership, mode,
// mtime, and symlinks; directory entries are created before their
// children because they're iterated in tar member order and the parent
// directory is created on demand for any entry; hard links resolve
// against paths already seen in this archive (spec §4.5 "Direct .deb
// extraction"). Any entry with an absolute path or a ".." component is
// rejected (spec §7 ExtractionError).
func Untar(ctx context.Context, r io.Reader, dest fs.FullFS) error {
	log := logr.FromContextOrDiscard(ctx)
	tr := tar.NewReader(r)

	seen := map[string]string{} // archive name -> extracted target, for hardlinks

	for {
		header, err := tr.Next()
		switch {
		case err == io.EOF:
			return nil
		case err != nil:
			log.Error(err, "failed to read file from tar archive")
			return bserror.New(bserror.ExtractionError, "", err)
		case header == nil:
			continue
		}

		target, err := SafePath(header.Name)
		if err != nil {
			return err
		}
		mode := os.FileMode(header.Mode)
		mtime := header.ModTime

		if dir := path.Dir(target); header.Typeflag != tar.TypeDir && dir != "/" {
			if err := dest.MkdirAll(dir, 0755); err != nil {
				return bserror.New(bserror.ExtractionError, target, err)
			}
		}

		switch header.Typeflag {
		case tar.TypeDir:
			log.V(5).Info("creating directory", "target", target)
			if err := dest.MkdirAll(target, mode); err != nil {
				return bserror.New(bserror.ExtractionError, target, err)
			}
			applyMeta(dest, target, header.Uid, header.Gid, mtime)

		case tar.TypeReg, tar.TypeRegA:
			log.V(5).Info("creating file", "target", target, "mode", header.Mode)
			f, err := dest.OpenFile(target, os.O_CREATE|os.O_RDWR|os.O_TRUNC, mode)
			if err != nil {
				return bserror.New(bserror.ExtractionError, target, err)
			}
			if _, err := io.Copy(f, tr); err != nil {
				_ = f.Close()
				return bserror.New(bserror.ExtractionError, target, err)
			}
			_ = f.Close()
			seen[header.Name] = target
			applyMeta(dest, target, header.Uid, header.Gid, mtime)

		case tar.TypeSymlink:
			log.V(5).Info("creating symlink", "target", target, "linkname", header.Linkname)
			if err := dest.Symlink(header.Linkname, target); err != nil {
				return bserror.New(bserror.ExtractionError, target, err)
			}
			seen[header.Name] = target

		case tar.TypeLink:
			linkTarget, ok := seen[header.Linkname]
			if !ok {
				// the link source wasn't extracted earlier in this
				// stream; resolve it relative to the archive root.
				linkTarget, err = SafePath(header.Linkname)
				if err != nil {
					return err
				}
			}
			log.V(5).Info("creating hard link", "target", target, "linkTarget", linkTarget)
			if err := dest.Link(linkTarget, target); err != nil {
				return bserror.New(bserror.ExtractionError, target, err)
			}
			seen[header.Name] = target

		default:
			log.V(5).Info("skipping unsupported tar entry type", "target", target, "typeflag", header.Typeflag)
		}
	}
}

// applyMeta best-efforts ownership and mtime preservation; failures are
// swallowed because an unprivileged extraction (e.g. tests running as a
// non-root user against MemFS) legitimately can't chown.
func applyMeta(dest fs.FullFS, target string, uid, gid int, mtime time.Time) {
	_ = dest.Chown(target, uid, gid)
	if !mtime.IsZero() {
		_ = dest.Chtimes(target, mtime, mtime)
	}
}
