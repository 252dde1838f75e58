package install

import (
	"context"
	"os/exec"

	"github.com/debstrap/debstrap/internal/bserror"
	"github.com/go-logr/logr"
)

// RunStage4 executes every user-supplied post-install script inside the
// chroot, in the order given on the command line, each with a fresh
// shell and environment {BRANCH, ARCH}, per spec §4.6. A non-zero exit
// from any script aborts the run.
func RunStage4(ctx context.Context, target, branch, arch string, scripts []string) error {
	log := logr.FromContextOrDiscard(ctx)
	for _, script := range scripts {
		log.Info("running post-install script", "script", script)
		env := []string{"BRANCH=" + branch, "ARCH=" + arch}
		if err := RunInChroot(ctx, target, env, "sh", "-c", script); err != nil {
			code := exitCodeOf(err)
			return bserror.NewScriptFailure(script, code)
		}
	}
	return WriteSentinel(target, Stage4)
}

func exitCodeOf(err error) int {
	var ee *exec.ExitError
	if asExitError(err, &ee) {
		return ee.ExitCode()
	}
	return 1
}

func asExitError(err error, target **exec.ExitError) bool {
	for err != nil {
		if ee, ok := err.(*exec.ExitError); ok {
			*target = ee
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
