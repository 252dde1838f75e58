package install

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"
)

// skeletonDirs is created under the target root by stage 0, per spec
// §4.5's stage table.
var skeletonDirs = []string{
	filepath.Join("var", "cache", "apt", "archives"),
	filepath.Join("var", "lib", "dpkg", "info"),
	filepath.Join("var", "lib", "dpkg", "updates"),
	filepath.Join("var", "lib", "dpkg", "triggers"),
	"etc",
}

// emptySeedFiles are created empty by stage 0, per spec §4.5.
var emptySeedFiles = []string{
	filepath.Join("var", "lib", "dpkg", "status"),
	filepath.Join("var", "lib", "dpkg", "available"),
}

// RunStage0 creates the target directory skeleton and seeds the empty
// dpkg database files, plus the minimal /etc/shadow and
// /etc/locale.conf stubs recovered from the original implementation
// (original_source/src/fs.rs::bootstrap_apt) so a fresh target's
// base-files postinst doesn't choke on missing files. Resumable: safe
// to re-run.
func RunStage0(ctx context.Context, target string) error {
	log := logr.FromContextOrDiscard(ctx).WithValues("target", target)
	log.Info("stage 0: creating target skeleton")

	if err := os.MkdirAll(target, 0755); err != nil {
		return fmt.Errorf("creating target root: %w", err)
	}
	for _, dir := range skeletonDirs {
		if err := os.MkdirAll(filepath.Join(target, dir), 0755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	for _, f := range emptySeedFiles {
		path := filepath.Join(target, f)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := os.WriteFile(path, nil, 0644); err != nil {
			return fmt.Errorf("seeding %s: %w", f, err)
		}
	}

	if err := seedIfAbsent(filepath.Join(target, "etc", "shadow"), "root:*:::::::\n", 0600); err != nil {
		return err
	}
	if err := seedIfAbsent(filepath.Join(target, "etc", "locale.conf"), "LANG=C.UTF-8\n", 0644); err != nil {
		return err
	}

	return WriteSentinel(target, Stage0)
}

func seedIfAbsent(path, content string, mode os.FileMode) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return os.WriteFile(path, []byte(content), mode)
}
