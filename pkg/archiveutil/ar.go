package archiveutil

import (
	"context"
	"io"
	"os"

	"chainguard.dev/apko/pkg/apk/fs"
	"github.com/blakesmith/ar"
	"github.com/debstrap/debstrap/internal/bserror"
	"github.com/go-logr/logr"
)

// Unar expands a .deb's outer ar archive (debian-binary, control.tar.*,
// data.tar.*) into the given filesystem, rejecting any entry whose name
// is absolute or contains a ".." component (spec §7 ExtractionError:
// "entries containing '..' or absolute paths are rejected").
func Unar(ctx context.Context, r io.Reader, dest fs.FullFS) error {
	log := logr.FromContextOrDiscard(ctx)
	tr := ar.NewReader(r)

	for {
		header, err := tr.Next()
		switch {
		case err == io.EOF:
			return nil
		case err != nil:
			log.Error(err, "failed to read file from ar archive")
			return bserror.New(bserror.ExtractionError, "", err)
		case header == nil:
			continue
		}

		target, err := SafePath(header.Name)
		if err != nil {
			return err
		}

		log.V(5).Info("creating file", "target", target, "mode", header.Mode)
		f, err := dest.OpenFile(target, os.O_CREATE|os.O_RDWR|os.O_TRUNC, os.FileMode(header.Mode))
		if err != nil {
			log.Error(err, "failed to open file", "target", target)
			return bserror.New(bserror.ExtractionError, target, err)
		}

		if _, err := io.Copy(f, tr); err != nil {
			log.Error(err, "failed to extract file", "target", target)
			_ = f.Close()
			return bserror.New(bserror.ExtractionError, target, err)
		}
		_ = f.Close()
	}
}
