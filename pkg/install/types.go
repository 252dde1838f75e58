// Package install implements the installation driver (spec §4.5): the
// six-stage pipeline that turns a downloaded InstallPlan into a
// configured target root, plus the post-install orchestration of
// spec §4.6.
package install

import (
	"github.com/debstrap/debstrap/pkg/apt"
)

// Stage identifies one of the six installation-driver stages (spec §4.5
// table). Only the boundary between Stage0 and Stage1 is resumable via
// the sentinel file (spec §9 "Stage resumability").
type Stage int

const (
	Stage0 Stage = iota
	Stage1
	Stage2
	Stage3
	Stage4
	Stage5
)

// Request bundles everything the installer needs to run stages 0-5.
type Request struct {
	Target             string // target root directory
	CacheDir           string // var/cache/apt/archives equivalent, package cache
	Plan               []apt.PlanEntry
	Branch             string
	Architecture       string
	Scripts            []string // user post-install scripts, run in order (spec §4.6)
	Cleanup            bool     // -x: run the built-in cleanup pass
	Stage1Only         bool     // -1: stop after stage 1
	ExportTarPath      string
	ExportSquashfsPath string
}

// PackageArchive pairs a resolved PlanEntry with its downloaded archive
// path in CacheDir.
type PackageArchive struct {
	Entry       apt.PlanEntry
	ArchivePath string
}
