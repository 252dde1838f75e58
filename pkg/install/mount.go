package install

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"
	"github.com/moby/sys/mount"
	"github.com/moby/sys/mountinfo"
	"golang.org/x/sys/unix"
)

// bindMounts are the pseudo-filesystems bind-mounted into the target
// before running dpkg inside the chroot, per spec §4.5 stage 2.
var bindMounts = []string{"dev", "proc", "sys", "run"}

// mountSet tracks every bind mount acquired for a target, so it can be
// released on every exit path (spec §9 "scoped acquisition that
// releases on all exit paths") regardless of how stage 2/3 returns.
type mountSet struct {
	target string
	done   []string // mounted relative paths, in acquisition order
}

// AcquireMounts bind-mounts /dev, /proc, /sys and /run from the host
// into target, skipping any that are already mounted (so stage 2 is
// safe to retry). The returned mountSet must be released with Release,
// typically via defer, even on error paths.
func AcquireMounts(ctx context.Context, target string) (*mountSet, error) {
	log := logr.FromContextOrDiscard(ctx).WithValues("target", target)
	ms := &mountSet{target: target}

	for _, rel := range bindMounts {
		dst := filepath.Join(target, rel)
		if err := os.MkdirAll(dst, 0755); err != nil {
			return ms, fmt.Errorf("creating mountpoint %s: %w", dst, err)
		}

		mounted, err := mountinfo.Mounted(dst)
		if err != nil {
			return ms, fmt.Errorf("checking mount state of %s: %w", dst, err)
		}
		if mounted {
			log.V(1).Info("already mounted, skipping", "path", rel)
			continue
		}

		src := filepath.Join("/", rel)
		log.V(1).Info("bind-mounting", "src", src, "dst", dst)
		if err := mount.Mount(src, dst, "none", "rbind"); err != nil {
			return ms, fmt.Errorf("bind-mounting %s onto %s: %w", src, dst, err)
		}
		ms.done = append(ms.done, rel)
	}

	return ms, nil
}

// Release unmounts every bind mount this mountSet acquired, in reverse
// order, continuing past individual failures so a single stuck mount
// doesn't leave the rest attached. It logs but does not return
// unmount errors, matching the teacher's best-effort cleanup pattern
// (cmd/build.go's deferred cleanup).
func (ms *mountSet) Release(ctx context.Context) {
	log := logr.FromContextOrDiscard(ctx).WithValues("target", ms.target)
	for i := len(ms.done) - 1; i >= 0; i-- {
		rel := ms.done[i]
		dst := filepath.Join(ms.target, rel)
		if err := mount.Unmount(dst, unix.MNT_DETACH); err != nil {
			log.Error(err, "failed to unmount, continuing", "path", rel)
		}
	}
	ms.done = nil
}
