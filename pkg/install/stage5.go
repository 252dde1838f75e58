package install

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/debstrap/debstrap/internal/bserror"
	"github.com/go-logr/logr"
)

// cleanupWhitelist is the fixed set of paths (relative to target) that,
// with everything beneath them, survive the cleanup pass, per spec §4.6. A separate
// regex handles the "any .updated file" rule, since that one isn't a
// fixed path.
var cleanupWhitelist = map[string]bool{
	"dev":                            true,
	"etc":                            true,
	"run":                            true,
	"usr":                            true,
	"var/lib/apt/gen":                true,
	"var/lib/apt/extended_states":    true,
	"var/lib/dkms":                   true,
	"var/lib/dpkg":                   true,
	"var/log/journal":                true,
	"usr/lib/locale/locale-archive":  true,
	"root":                           true,
	"home":                           true,
	"proc":                           true,
	"sys":                            true,
}

// updatedFileRE matches any path ending in "/.updated", per spec's
// Open Question resolution: treated as "any path ending in /.updated"
// rather than only a fixed depth.
var updatedFileRE = regexp.MustCompile(`/\.updated$`)

// RunStage5Cleanup removes every file under target that is neither
// owned by dpkg nor covered by the whitelist, per spec §4.6. machineID
// is always removed last, after the rest of the sweep, matching the
// explicit ordering in the spec ("/etc/machine-id is always removed
// last").
func RunStage5Cleanup(ctx context.Context, target string) error {
	log := logr.FromContextOrDiscard(ctx)
	log.Info("stage 5: running cleanup pass")

	owned, err := dpkgOwnedFiles(target)
	if err != nil {
		return bserror.New(bserror.ExtractionError, target, fmt.Errorf("listing dpkg-owned files: %w", err))
	}

	var toRemove []string
	err = filepathWalkFiles(target, func(rel string) {
		if owned[rel] {
			return
		}
		if isWhitelisted(rel) {
			return
		}
		if rel == "etc/machine-id" {
			return // removed last, below
		}
		toRemove = append(toRemove, rel)
	})
	if err != nil {
		return bserror.New(bserror.ExtractionError, target, err)
	}

	// removed in reverse lexical order; only non-directory entries are
	// collected, so directories themselves stay in place, including ones
	// this sweep leaves empty.
	sort.Sort(sort.Reverse(sort.StringSlice(toRemove)))
	for _, rel := range toRemove {
		if err := os.RemoveAll(filepath.Join(target, rel)); err != nil {
			log.V(1).Info("failed to remove during cleanup, continuing", "path", rel, "error", err.Error())
		}
	}

	machineID := filepath.Join(target, "etc", "machine-id")
	if err := os.Remove(machineID); err != nil && !os.IsNotExist(err) {
		log.V(1).Info("failed to remove machine-id", "error", err.Error())
	}

	return WriteSentinel(target, Stage5)
}

func isWhitelisted(rel string) bool {
	if updatedFileRE.MatchString("/" + rel) {
		return true
	}
	for prefix := range cleanupWhitelist {
		if rel == prefix || strings.HasPrefix(rel, prefix+"/") {
			return true
		}
	}
	return false
}

// filepathWalkFiles walks target and invokes fn with the path, relative
// to target, of every entry that is not a directory (regular files,
// symlinks, device nodes and the like).
func filepathWalkFiles(target string, fn func(rel string)) error {
	return filepath.Walk(target, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(target, path)
		if err != nil || rel == "." {
			return nil
		}
		if !info.IsDir() {
			fn(filepath.ToSlash(rel))
		}
		return nil
	})
}

// dpkgOwnedFiles reads every target/var/lib/dpkg/info/*.list file and
// returns the union of paths they record, relative to target.
func dpkgOwnedFiles(target string) (map[string]bool, error) {
	owned := map[string]bool{}
	infoDir := filepath.Join(target, "var", "lib", "dpkg", "info")
	entries, err := os.ReadDir(infoDir)
	if err != nil {
		if os.IsNotExist(err) {
			return owned, nil
		}
		return nil, err
	}
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".list") {
			continue
		}
		f, err := os.Open(filepath.Join(infoDir, e.Name()))
		if err != nil {
			return nil, err
		}
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			p := strings.TrimPrefix(strings.TrimSpace(scanner.Text()), "/")
			if p != "" {
				owned[p] = true
			}
		}
		f.Close()
	}
	return owned, nil
}

// RunStage5ExportTar streams target into an xz-compressed tarball at
// path, preserving ownership and extended attributes, per spec §4.6.
func RunStage5ExportTar(ctx context.Context, target, path string) error {
	logr.FromContextOrDiscard(ctx).Info("stage 5: exporting tarball", "path", path)
	cmd := exec.CommandContext(ctx, "tar",
		"--xattrs", "--acls", "--numeric-owner",
		"-C", target, "-cf", path, "--use-compress-program=xz", ".")
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return bserror.New(bserror.ExtractionError, path, fmt.Errorf("tar export: %w", err))
	}
	return nil
}

// RunStage5ExportSquashfs delegates squashfs export to the external
// mksquashfs binary, per spec §4.6.
func RunStage5ExportSquashfs(ctx context.Context, target, path string) error {
	logr.FromContextOrDiscard(ctx).Info("stage 5: exporting squashfs", "path", path)
	cmd := exec.CommandContext(ctx, "mksquashfs", target, path, "-noappend")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return bserror.New(bserror.ExtractionError, path, fmt.Errorf("mksquashfs: %w", err))
	}
	return nil
}
