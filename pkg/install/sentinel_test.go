package install

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelRoundTrip(t *testing.T) {
	target := t.TempDir()

	stage, err := ReadSentinel(target)
	require.NoError(t, err)
	assert.Equal(t, Stage(-1), stage, "no sentinel written yet")

	require.NoError(t, WriteSentinel(target, Stage1))

	stage, err = ReadSentinel(target)
	require.NoError(t, err)
	assert.Equal(t, Stage1, stage)

	require.NoError(t, RemoveSentinel(target))
	stage, err = ReadSentinel(target)
	require.NoError(t, err)
	assert.Equal(t, Stage(-1), stage)
}

func TestRemoveSentinelIsIdempotent(t *testing.T) {
	target := t.TempDir()
	require.NoError(t, RemoveSentinel(target))
	require.NoError(t, RemoveSentinel(target))
}
