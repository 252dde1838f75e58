package install

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/go-logr/logr"
)

// RunInChroot runs the external chroot(1) binary against target with
// args, piping stdout/stderr to this process's own. Grounded on
// original_source/src/guest.rs's plain-chroot path (chroot_do); the
// systemd-nspawn path in the same file is intentionally not carried
// forward, per spec's exclusion of namespace isolation.
func RunInChroot(ctx context.Context, target string, env []string, args ...string) error {
	log := logr.FromContextOrDiscard(ctx).WithValues("target", target)
	log.V(1).Info("running in chroot", "args", args)

	cmd := exec.CommandContext(ctx, "chroot", append([]string{target}, args...)...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(), env...)

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("chroot %s %v: %w", target, args, err)
	}
	return nil
}
