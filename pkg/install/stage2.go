package install

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"
	"golang.org/x/sys/unix"
)

// deviceNode describes one /dev entry stage 2 creates directly, rather
// than relying on a mounted devtmpfs, so dpkg's postinst scripts have a
// minimally usable /dev even when the host's /dev bind mount is
// unavailable. Grounded on original_source/src/fs.rs::make_device_nodes.
type deviceNode struct {
	path  string
	mode  uint32
	major uint32
	minor uint32
}

var staticDeviceNodes = []deviceNode{
	{"dev/null", unix.S_IFCHR | 0666, 1, 3},
	{"dev/zero", unix.S_IFCHR | 0666, 1, 5},
	{"dev/console", unix.S_IFCHR | 0600, 5, 1},
}

// RunStage2 bind-mounts the host's pseudo-filesystems into target,
// creates the static device nodes and copies /etc/resolv.conf so name
// resolution works for postinst scripts, per spec §4.5 stage 2. The
// returned mountSet must be released by the caller once stage 3
// completes (or fails), matching the "scoped acquisition, released on
// every exit path" shape from spec §9.
func RunStage2(ctx context.Context, target string) (*mountSet, error) {
	log := logr.FromContextOrDiscard(ctx).WithValues("target", target)
	log.Info("stage 2: mounting pseudo-filesystems and seeding /dev")

	ms, err := AcquireMounts(ctx, target)
	if err != nil {
		ms.Release(ctx)
		return nil, err
	}

	if err := os.MkdirAll(filepath.Join(target, "dev", "shm"), 01777); err != nil {
		ms.Release(ctx)
		return nil, fmt.Errorf("creating dev/shm: %w", err)
	}

	for _, dn := range staticDeviceNodes {
		path := filepath.Join(target, dn.path)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		dev := unix.Mkdev(dn.major, dn.minor)
		if err := unix.Mknod(path, dn.mode, int(dev)); err != nil {
			log.V(1).Info("mknod failed, continuing without it", "path", dn.path, "error", err.Error())
		}
	}

	if err := copyResolvConf(target); err != nil {
		log.V(1).Info("unable to copy resolv.conf, continuing", "error", err.Error())
	}

	return ms, nil
}

func copyResolvConf(target string) error {
	src, err := os.Open("/etc/resolv.conf")
	if err != nil {
		return err
	}
	defer src.Close()

	dstPath := filepath.Join(target, "etc", "resolv.conf")
	dst, err := os.OpenFile(dstPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}
