package archiveutil

import (
	"context"
	"os"
	"time"

	"chainguard.dev/apko/pkg/apk/fs"
)

// recordingFS decorates a fs.FullFS, recording every path written to,
// so the installer can build dpkg's info/<package>.list (spec §4.5)
// without a second archive pass.
type recordingFS struct {
	fs.FullFS
	paths []string
}

func (r *recordingFS) OpenFile(name string, flag int, perm os.FileMode) (fs.File, error) {
	r.paths = append(r.paths, name)
	return r.FullFS.OpenFile(name, flag, perm)
}

func (r *recordingFS) MkdirAll(name string, perm os.FileMode) error {
	r.paths = append(r.paths, name)
	return r.FullFS.MkdirAll(name, perm)
}

func (r *recordingFS) Symlink(oldname, newname string) error {
	r.paths = append(r.paths, newname)
	return r.FullFS.Symlink(oldname, newname)
}

func (r *recordingFS) Link(oldname, newname string) error {
	r.paths = append(r.paths, newname)
	return r.FullFS.Link(oldname, newname)
}

func (r *recordingFS) Chtimes(name string, atime, mtime time.Time) error {
	return r.FullFS.Chtimes(name, atime, mtime)
}

// ExtractDataWithManifest applies a Deb's data.tar member to dest and
// returns every path written, in archive order.
func (d *Deb) ExtractDataWithManifest(ctx context.Context, dest fs.FullFS) ([]string, error) {
	rec := &recordingFS{FullFS: dest}
	if err := d.extractMember(ctx, "data.tar", rec); err != nil {
		return nil, err
	}
	return rec.paths, nil
}
