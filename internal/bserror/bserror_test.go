package bserror_test

import (
	"errors"
	"testing"

	"github.com/debstrap/debstrap/internal/bserror"
	"github.com/stretchr/testify/assert"
)

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"config", bserror.New(bserror.Config, "", errors.New("bad flag")), 2},
		{"unsolvable", bserror.NewUnsolvable([]string{"a conflicts with b"}), 3},
		{"verification", bserror.New(bserror.Verification, "Packages.xz", errors.New("digest mismatch")), 4},
		{"transport", bserror.New(bserror.Transport, "https://example.invalid", errors.New("dns")), 1},
		{"untyped defaults to transport", errors.New("boom"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, bserror.ExitCodeFor(tt.err))
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	root := errors.New("root cause")
	wrapped := bserror.New(bserror.Transport, "https://mirror.test/Packages.xz", root)
	assert.ErrorIs(t, wrapped, root)
	assert.Contains(t, wrapped.Error(), "Transport")
	assert.Contains(t, wrapped.Error(), "Packages.xz")
}

func TestNewScriptFailure(t *testing.T) {
	err := bserror.NewScriptFailure("cleanup.sh", 17)
	assert.Equal(t, 1, bserror.ExitCodeFor(err))
	assert.Contains(t, err.Error(), "cleanup.sh")
	assert.Contains(t, err.Error(), "17")
}
