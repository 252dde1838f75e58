package archiveutil

import (
	"path"
	"strings"

	"github.com/debstrap/debstrap/internal/bserror"
)

// SafePath validates an archive entry name and returns the rooted,
// slash-cleaned target path it extracts to. Absolute paths and any
// path containing a ".." component are rejected outright rather than
// silently clamped, per spec §7 ("entries containing '..' or absolute
// paths are rejected").
func SafePath(name string) (string, error) {
	if strings.HasPrefix(name, "/") {
		return "", bserror.Wrapf(bserror.ExtractionError, name, "absolute archive entry path rejected")
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return "", bserror.Wrapf(bserror.ExtractionError, name, "archive entry path contains '..'")
		}
	}
	return path.Clean("/" + name), nil
}
