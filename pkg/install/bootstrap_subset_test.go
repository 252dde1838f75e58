package install

import (
	"testing"

	"github.com/debstrap/debstrap/pkg/apt"
	"github.com/stretchr/testify/assert"
)

func TestBootstrapSubsetFollowsPreDependsClosure(t *testing.T) {
	plan := []apt.PlanEntry{
		{Name: "base-files"},
		{Name: "dpkg"},
		{Name: "libc6"},
		{Name: "bash"},
		{Name: "tar"},
		{Name: "vim"}, // not reachable from any core seed's Pre-Depends
	}
	records := map[string]apt.PackageRecord{
		"dpkg":       {PreDepends: []string{"libc6 (>= 2.34)"}},
		"base-files": {},
		"libc6":      {},
		"bash":       {PreDepends: []string{"libc6 (>= 2.34)"}},
		"tar":        {},
		"vim":        {PreDepends: []string{"libc6 (>= 2.34)"}},
	}

	subset := BootstrapSubset(plan, records)

	names := map[string]bool{}
	for _, e := range subset {
		names[e.Name] = true
	}
	assert.True(t, names["base-files"])
	assert.True(t, names["dpkg"])
	assert.True(t, names["libc6"])
	assert.True(t, names["bash"])
	assert.True(t, names["tar"])
	assert.False(t, names["vim"])
}

func TestBootstrapSubsetIgnoresEntriesMissingFromPlan(t *testing.T) {
	plan := []apt.PlanEntry{{Name: "base-files"}}
	records := map[string]apt.PackageRecord{
		"base-files": {},
		"dpkg":       {}, // referenced as a core seed but absent from plan
	}

	subset := BootstrapSubset(plan, records)
	assert.Len(t, subset, 1)
	assert.Equal(t, "base-files", subset[0].Name)
}
