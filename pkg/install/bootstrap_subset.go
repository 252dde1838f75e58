package install

import (
	"github.com/debstrap/debstrap/pkg/apt"
)

// coreSeeds are the packages the bootstrap subset always starts from,
// per spec §4.5 ("at least base-files, dpkg, libc, the dynamic loader's
// package, bash, tar").
var coreSeeds = []string{"base-files", "dpkg", "libc6", "libc6-dyn", "bash", "tar"}

// BootstrapSubset computes the minimal set of plan entries required to
// run dpkg inside the chroot: the closure over Pre-Depends from dpkg
// (and the other core seeds) within the plan, per spec §4.5
// ("Selection is computed by taking the closure over Pre-Depends from
// dpkg within the plan").
func BootstrapSubset(plan []apt.PlanEntry, records map[string]apt.PackageRecord) []apt.PlanEntry {
	byName := map[string]apt.PlanEntry{}
	for _, e := range plan {
		byName[e.Name] = e
	}

	include := map[string]bool{}
	var visit func(name string)
	visit = func(name string) {
		if include[name] {
			return
		}
		if _, ok := byName[name]; !ok {
			return
		}
		include[name] = true
		rec, ok := records[name]
		if !ok {
			return
		}
		for _, dep := range rec.PreDepends {
			if vc, err := apt.ParseRelation(dep); err == nil {
				for _, n := range vc.Names {
					visit(n)
				}
			}
		}
	}

	for _, seed := range coreSeeds {
		visit(seed)
	}

	var out []apt.PlanEntry
	for _, e := range plan {
		if include[e.Name] {
			out = append(out, e)
		}
	}
	return out
}
