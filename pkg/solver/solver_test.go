// Solving requires the real libsolv shared library to be linked and
// present at runtime, the same native dependency the production binary
// needs — there is no pure-Go fake for it, mirroring the original
// implementation's own reliance on libsolv for its test binaries.
package solver_test

import (
	"context"
	"testing"

	"github.com/debstrap/debstrap/pkg/apt"
	"github.com/debstrap/debstrap/pkg/solver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleIndex() *apt.PackagesIndex {
	return &apt.PackagesIndex{
		Source: "https://mirror.test/debian",
		Records: []apt.PackageRecord{
			{
				Package: "bash", Version: "5.2-1", Architecture: "amd64",
				Filename: "pool/main/b/bash/bash_5.2-1_amd64.deb", Size: 100, SHA256: "a",
				Depends: []string{"libc6 (>= 2.34)"},
				Extra:   map[string]string{"Package": "bash", "Version": "5.2-1", "Architecture": "amd64", "Filename": "pool/main/b/bash/bash_5.2-1_amd64.deb", "Size": "100", "SHA256": "a", "Depends": "libc6 (>= 2.34)"},
			},
			{
				Package: "libc6", Version: "2.35-1", Architecture: "amd64",
				Filename: "pool/main/g/glibc/libc6_2.35-1_amd64.deb", Size: 200, SHA256: "b",
				Extra: map[string]string{"Package": "libc6", "Version": "2.35-1", "Architecture": "amd64", "Filename": "pool/main/g/glibc/libc6_2.35-1_amd64.deb", "Size": "200", "SHA256": "b"},
			},
		},
	}
}

func TestResolveProducesClosure(t *testing.T) {
	plan, err := solver.Resolve(context.Background(), []*apt.PackagesIndex{sampleIndex()}, []string{"bash"}, solver.Options{
		Architecture: "amd64",
	})
	require.NoError(t, err)

	names := make([]string, len(plan))
	for i, e := range plan {
		names[i] = e.Name
	}
	assert.Contains(t, names, "bash")
	assert.Contains(t, names, "libc6")
}

func TestResolveUnsolvableSeed(t *testing.T) {
	_, err := solver.Resolve(context.Background(), []*apt.PackagesIndex{sampleIndex()}, []string{"nonexistent-package"}, solver.Options{
		Architecture: "amd64",
	})
	require.Error(t, err)
}
