package fetch

import (
	"golang.org/x/sys/unix"
)

// availableBytes returns the free space available to an unprivileged
// user on the filesystem containing dir, via statfs(2). No third-party
// disk-usage library exists anywhere in the reference pack (see
// DESIGN.md); golang.org/x/sys/unix is the maintained extended-syscall
// package, used here instead of the frozen stdlib "syscall" package.
func availableBytes(dir string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return 0, err
	}
	return uint64(st.Bavail) * uint64(st.Bsize), nil
}
