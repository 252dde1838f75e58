package install

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/debstrap/debstrap/internal/bserror"
	"github.com/debstrap/debstrap/pkg/apt"
	"github.com/go-logr/logr"
)

// RunStage3 runs dpkg --unpack for every cached package archive (in
// solver-assigned plan order) followed by a single dpkg --configure
// pass, all inside a chroot of target, per spec §4.5 stage 3.
func RunStage3(ctx context.Context, target string, plan []apt.PlanEntry, subset map[string]bool) error {
	log := logr.FromContextOrDiscard(ctx)
	log.Info("stage 3: unpacking and configuring packages")

	for _, entry := range plan {
		if subset[entry.Name] {
			// already extracted directly onto the target in stage 1
			continue
		}
		archive := filepath.Join("/var", "cache", "apt", "archives", filepath.Base(entry.URL))
		if err := RunInChroot(ctx, target, nil, "dpkg", "--unpack", archive); err != nil {
			return bserror.New(bserror.ChrootError, entry.Name, fmt.Errorf("dpkg --unpack: %w", err))
		}
	}

	if err := RunInChroot(ctx, target, nil,
		"dpkg", "--configure", "--pending",
		"--force-configure-any", "--force-depends"); err != nil {
		return bserror.New(bserror.ChrootError, "dpkg --configure", err)
	}

	return WriteSentinel(target, Stage3)
}
