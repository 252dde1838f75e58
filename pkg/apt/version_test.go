package apt_test

import (
	"testing"

	"github.com/debstrap/debstrap/pkg/apt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRelation(t *testing.T) {
	vc, err := apt.ParseRelation("libc6 (>= 2.34)")
	require.NoError(t, err)
	assert.Equal(t, []string{"libc6"}, vc.Names)
	assert.Equal(t, "2.34", vc.Version)
	assert.Equal(t, ">=", vc.Constraint)
}

func TestParseRelationAlternatives(t *testing.T) {
	vc, err := apt.ParseRelation("libc6-compat | libc6")
	require.NoError(t, err)
	assert.Equal(t, []string{"libc6-compat", "libc6"}, vc.Names)
	assert.Empty(t, vc.Version)
}

func TestMatches(t *testing.T) {
	vc, err := apt.ParseRelation("libc6 (>= 2.34)")
	require.NoError(t, err)
	assert.True(t, vc.Matches("2.35"))
	assert.True(t, vc.Matches("2.34"))
	assert.False(t, vc.Matches("2.33"))
}

func TestCompareVersions(t *testing.T) {
	c, err := apt.CompareVersions("2.34", "2.33")
	require.NoError(t, err)
	assert.Equal(t, 1, c)
}
