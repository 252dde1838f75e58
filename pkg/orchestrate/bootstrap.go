// Package orchestrate implements the single coordinator that drives
// stages sequentially (spec §5 "a single coordinator thread drives
// stages sequentially"): metadata fetch, dependency solving, parallel
// download, and the six-stage installation driver.
package orchestrate

import (
	"context"
	"path/filepath"

	"github.com/debstrap/debstrap/internal/bsconfig"
	"github.com/debstrap/debstrap/pkg/apt"
	"github.com/debstrap/debstrap/pkg/fetch"
	"github.com/debstrap/debstrap/pkg/install"
	"github.com/debstrap/debstrap/pkg/solver"
	"github.com/debstrap/debstrap/pkg/verify"
	"github.com/go-logr/logr"
)

// Request is every input the coordinator needs to run a full bootstrap,
// gathered from the CLI flags and the TOML config.
type Request struct {
	Branch       string
	Target       string
	Mirror       string
	Architecture string
	Config       *bsconfig.Config
	Seeds        []string // --include and --include-files, merged
	Scripts      []string // -s, in order
	Cleanup      bool     // -x
	Stage1Only   bool     // -1
	ExportTar    string
	ExportSquashfs string
	CacheDir     string
}

// Run drives the full pipeline described in spec §3's data flow: HTTP
// client → verifier → index parser → solver pool → solver driver →
// fetch planner → parallel downloader → extractor → chroot preparer →
// dpkg driver → post-install runner.
func Run(ctx context.Context, req Request) error {
	log := logr.FromContextOrDiscard(ctx).WithValues("branch", req.Branch, "target", req.Target)

	repo := apt.Repository{
		Mirror:        req.Mirror,
		Branch:        req.Branch,
		Components:    req.Config.ComponentsFor(req.Branch),
		Architectures: []string{req.Architecture, "all"},
	}

	if existing, err := install.ReadSentinel(req.Target); err == nil && existing >= install.Stage1 {
		log.Info("target already past stage 1, resuming is only supported across the stage0/stage1 boundary; continuing from scratch metadata fetch regardless")
	}

	log.Info("fetching and verifying release metadata")
	verifier := &verify.OpenPGPVerifier{}
	rf, err := apt.FetchRelease(ctx, repo, verifier, req.Config.MaintainerKeyring)
	if err != nil {
		return err
	}

	var indices []*apt.PackagesIndex
	records := map[string]apt.PackageRecord{}
	for _, component := range repo.Components {
		for _, arch := range repo.Architectures {
			idx, err := apt.FetchIndex(ctx, repo, rf, component, arch)
			if err != nil {
				return err
			}
			indices = append(indices, idx)
			for _, rec := range idx.Records {
				records[rec.Package] = rec
			}
		}
	}
	log.Info("fetched package indices", "count", len(indices))

	log.Info("solving dependencies", "seeds", req.Seeds)
	plan, err := solver.Resolve(ctx, indices, req.Seeds, solver.Options{
		Architecture:      req.Architecture,
		InstallRecommends: req.Config.InstallRecommends,
	})
	if err != nil {
		return err
	}
	log.Info("solved install plan", "packages", len(plan))

	log.Info("downloading package archives")
	if err := fetch.FetchPlan(ctx, plan, fetch.Options{CacheDir: req.CacheDir}); err != nil {
		return err
	}

	if err := install.RunStage0(ctx, req.Target); err != nil {
		return err
	}

	subset := install.BootstrapSubset(plan, records)
	inSubset := map[string]bool{}
	for _, e := range subset {
		inSubset[e.Name] = true
	}
	seedSet := map[string]bool{}
	for _, s := range req.Seeds {
		seedSet[s] = true
	}

	installReq := install.Request{
		Target:             req.Target,
		CacheDir:           req.CacheDir,
		Plan:               plan,
		Branch:             req.Branch,
		Architecture:       req.Architecture,
		Scripts:            req.Scripts,
		Cleanup:            req.Cleanup,
		Stage1Only:         req.Stage1Only,
		ExportTarPath:      req.ExportTar,
		ExportSquashfsPath: req.ExportSquashfs,
	}

	if err := install.RunStage1(ctx, installReq, records, seedSet); err != nil {
		return err
	}
	if req.Stage1Only {
		log.Info("stopping after stage 1, as requested")
		return nil
	}

	mounts, err := install.RunStage2(ctx, req.Target)
	if err != nil {
		return err
	}
	defer mounts.Release(ctx)

	if err := install.RunStage3(ctx, req.Target, plan, inSubset); err != nil {
		return err
	}

	if err := install.RunStage4(ctx, req.Target, req.Branch, req.Architecture, req.Scripts); err != nil {
		return err
	}

	if req.Cleanup {
		if err := install.RunStage5Cleanup(ctx, req.Target); err != nil {
			return err
		}
	}
	if req.ExportTar != "" {
		if err := install.RunStage5ExportTar(ctx, req.Target, req.ExportTar); err != nil {
			return err
		}
	}
	if req.ExportSquashfs != "" {
		if err := install.RunStage5ExportSquashfs(ctx, req.Target, req.ExportSquashfs); err != nil {
			return err
		}
	}

	if err := install.RemoveSentinel(req.Target); err != nil {
		log.V(1).Info("failed to remove stage sentinel after a successful run", "error", err.Error())
	}

	log.Info("bootstrap complete")
	return nil
}

// DefaultCacheDir returns the package-archive cache directory beneath
// target, used when the caller doesn't override it.
func DefaultCacheDir(target string) string {
	return filepath.Join(target, "var", "cache", "apt", "archives")
}
