package archiveutil

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"chainguard.dev/apko/pkg/apk/fs"
	"github.com/debstrap/debstrap/internal/bserror"
)

var memberCompressions = []struct {
	suffix string
	untar  func(ctx context.Context, r io.Reader, dest fs.FullFS) error
}{
	{".gz", Guntar},
	{".xz", XZuntar},
	{".zst", Zuntar},
}

// Deb is an opened .deb archive: the ar container's three well-known
// members (debian-binary, control.tar.*, data.tar.*), per spec §4.5
// ("A .deb is an ar archive containing debian-binary, control.tar.{gz,xz,zst},
// data.tar.{gz,xz,zst}. The extractor must accept any of those
// compressions.").
type Deb struct {
	outer fs.FullFS
}

// OpenDeb reads the outer ar container of a .deb file from r into an
// in-memory filesystem, ready for ExtractControl/ExtractData.
func OpenDeb(ctx context.Context, r io.Reader) (*Deb, error) {
	outer := fs.NewMemFS()
	if err := Unar(ctx, r, outer); err != nil {
		return nil, err
	}
	return &Deb{outer: outer}, nil
}

// ExtractData applies the data.tar member to dest, preserving
// ownership, mode, mtime, and symlinks; hard links resolve within the
// archive (spec §4.5).
func (d *Deb) ExtractData(ctx context.Context, dest fs.FullFS) error {
	return d.extractMember(ctx, "data.tar", dest)
}

// ExtractControl applies the control.tar member to dest. Used only to
// read package metadata (control, md5sums, conffiles) — control files
// are never installed to the target's real filesystem, per spec §4.5
// ("Control files are NOT installed to disk").
func (d *Deb) ExtractControl(ctx context.Context, dest fs.FullFS) error {
	return d.extractMember(ctx, "control.tar", dest)
}

func (d *Deb) extractMember(ctx context.Context, stem string, dest fs.FullFS) error {
	for _, mc := range memberCompressions {
		name := "/" + stem + mc.suffix
		if _, err := d.outer.Stat(name); err != nil {
			continue
		}
		f, err := d.outer.Open(name)
		if err != nil {
			return bserror.New(bserror.ExtractionError, name, err)
		}
		defer f.Close()
		return mc.untar(ctx, f, dest)
	}
	return bserror.Wrapf(bserror.ExtractionError, stem, "no supported compression found for archive member")
}

// ReadControlFile reads a single named file (e.g. "control", "md5sums",
// "conffiles") out of the control.tar member without writing the whole
// member to disk.
func (d *Deb) ReadControlFile(ctx context.Context, name string) ([]byte, error) {
	mem := fs.NewMemFS()
	if err := d.ExtractControl(ctx, mem); err != nil {
		return nil, err
	}
	path, err := SafePath(name)
	if err != nil {
		return nil, err
	}
	f, err := mem.Open(path)
	if err != nil {
		return nil, fmt.Errorf("control member %q not present: %w", name, err)
	}
	defer f.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
