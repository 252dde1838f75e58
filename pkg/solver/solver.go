// Package solver implements the dependency-solver driver (spec §4.3):
// it loads parsed PackagesIndex values into the native solver, issues a
// job for the seed package set, and turns the resulting transaction
// into an ordered InstallPlan.
package solver

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/debstrap/debstrap/internal/bserror"
	"github.com/debstrap/debstrap/internal/solv"
	"github.com/debstrap/debstrap/pkg/apt"
	"github.com/go-logr/logr"
)

// Options configures one solve, including the install_recommends policy
// read from config (spec §9 Open Question).
type Options struct {
	Architecture      string
	InstallRecommends bool
}

// Resolve loads every index into a fresh pool, issues a job for seeds,
// and returns the ordered InstallPlan. It implements spec §4.3's six-step
// protocol exactly, and enforces the plan invariants: every entry
// corresponds to a loaded record, the seed set is a subset of the plan,
// and the plan has no duplicate entries.
func Resolve(ctx context.Context, indices []*apt.PackagesIndex, seeds []string, opts Options) ([]apt.PlanEntry, error) {
	log := logr.FromContextOrDiscard(ctx).WithValues("arch", opts.Architecture, "seeds", len(seeds))

	pool := solv.NewPool(opts.Architecture)
	defer pool.Close()

	byNameVersion := map[string]apt.PackageRecord{}
	tmpDir, err := os.MkdirTemp("", "debstrap-solv-*")
	if err != nil {
		return nil, fmt.Errorf("creating solver scratch dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	for i, idx := range indices {
		raw, err := encodeIndex(idx)
		if err != nil {
			return nil, err
		}
		path, err := solv.WritePackagesFile(tmpDir, raw)
		if err != nil {
			return nil, err
		}
		if _, err := pool.AddRepo(fmt.Sprintf("repo-%d", i), path); err != nil {
			return nil, err
		}
		for _, rec := range idx.Records {
			byNameVersion[recordKey(rec.Package, rec.Version)] = rec
		}
	}
	log.V(1).Info("loaded repos into solver pool", "repos", len(indices))

	pool.Freeze()

	job, err := pool.NewJob(seeds, opts.InstallRecommends)
	if err != nil {
		return nil, err
	}

	s := pool.NewSolver()
	s.SetBestObeyPolicy(true)
	s.SetIgnoreRecommended(!opts.InstallRecommends)

	trans, err := s.Solve(job)
	if err != nil {
		return nil, err
	}
	defer trans.Free()

	steps := trans.Steps()
	log.V(1).Info("solver produced transaction", "steps", len(steps))

	plan := make([]apt.PlanEntry, 0, len(steps))
	seen := map[string]bool{}
	for _, step := range steps {
		rec, ok := byNameVersion[recordKey(step.Name, step.Version)]
		if !ok {
			return nil, bserror.Wrapf(bserror.Unsolvable, step.Name, "solver selected a package not present in any loaded index")
		}
		key := rec.Package + "=" + rec.Version
		if seen[key] {
			continue
		}
		seen[key] = true

		url := strings.TrimSuffix(rec.Extra["__source__"], "/") + "/" + strings.TrimPrefix(rec.Filename, "/")
		_, digest := rec.Digest()
		plan = append(plan, apt.PlanEntry{
			Name:           rec.Package,
			Version:        rec.Version,
			Architecture:   rec.Architecture,
			URL:            url,
			ExpectedSize:   rec.Size,
			ExpectedDigest: digest,
		})
	}

	if err := checkInvariants(plan, seeds); err != nil {
		return nil, err
	}
	return plan, nil
}

func recordKey(name, version string) string { return name + "\x00" + version }

// encodeIndex re-serializes a PackagesIndex's records back into raw
// control-file bytes for libsolv's repo_add_debpackages, stamping each
// record with its originating mirror so Resolve can build a PlanEntry
// URL afterward.
func encodeIndex(idx *apt.PackagesIndex) ([]byte, error) {
	var sb strings.Builder
	for _, rec := range idx.Records {
		rec.Extra["__source__"] = idx.Source
		if err := apt.EncodeControl(&sb, rec); err != nil {
			return nil, err
		}
		sb.WriteString("\n")
	}
	return []byte(sb.String()), nil
}

func checkInvariants(plan []apt.PlanEntry, seeds []string) error {
	names := map[string]bool{}
	for _, e := range plan {
		if names[e.Name] {
			return bserror.Wrapf(bserror.Unsolvable, e.Name, "install plan contains a duplicate entry")
		}
		names[e.Name] = true
	}
	for _, seed := range seeds {
		seedName := seed
		if vc, err := apt.ParseRelation(seed); err == nil && len(vc.Names) > 0 {
			seedName = vc.Names[0]
		}
		if !names[seedName] {
			return bserror.Wrapf(bserror.Unsolvable, seedName, "seed package missing from resulting install plan")
		}
	}
	return nil
}
