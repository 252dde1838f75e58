package apt_test

import (
	"strings"
	"testing"

	"github.com/debstrap/debstrap/pkg/apt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoStanzas = `Package: base-files
Version: 12.4
Architecture: amd64
Depends: libc6 (>= 2.34)
Filename: pool/main/b/base-files/base-files_12.4_amd64.deb
Size: 68728
SHA256: a1b2c3

Package: dpkg
Version: 1.21.22
Architecture: amd64
Pre-Depends: libc6 (>= 2.34), zlib1g (>= 1:1.1.4)
Filename: pool/main/d/dpkg/dpkg_1.21.22_amd64.deb
Size: 4208498
SHA256: d4e5f6
`

func TestDecodeControlTwoStanzas(t *testing.T) {
	recs, err := apt.DecodeControl(strings.NewReader(twoStanzas))
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "base-files", recs[0].Package)
	assert.Equal(t, "12.4", recs[0].Version)
	assert.Equal(t, int64(68728), recs[0].Size)
	assert.Equal(t, []string{"libc6 (>= 2.34)"}, recs[0].Depends)

	assert.Equal(t, "dpkg", recs[1].Package)
	assert.Equal(t, []string{"libc6 (>= 2.34)", "zlib1g (>= 1:1.1.4)"}, recs[1].PreDepends)
}

func TestDecodeControlCaseInsensitiveFieldNames(t *testing.T) {
	recs, err := apt.DecodeControl(strings.NewReader("package: foo\nVERSION: 1.0\n"))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "foo", recs[0].Package)
	assert.Equal(t, "1.0", recs[0].Version)
}

func TestDecodeControlRejectsOrphanContinuation(t *testing.T) {
	_, err := apt.DecodeControl(strings.NewReader(" leading continuation\n"))
	require.Error(t, err)
}

func TestControlRoundTrip(t *testing.T) {
	recs, err := apt.DecodeControl(strings.NewReader(twoStanzas))
	require.NoError(t, err)

	var sb strings.Builder
	require.NoError(t, apt.EncodeControl(&sb, recs[0]))

	reparsed, err := apt.DecodeControl(strings.NewReader(sb.String()))
	require.NoError(t, err)
	require.Len(t, reparsed, 1)
	assert.Equal(t, recs[0].Extra, reparsed[0].Extra)
}
