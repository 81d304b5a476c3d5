package label

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMockTrackingReferenceShape(t *testing.T) {
	ref := MockTrackingReference()

	require.True(t, IsMockReference(ref))
	require.True(t, strings.HasPrefix(ref, "MOCK-3SBOL"))

	parts := strings.Split(ref, "-")
	require.Len(t, parts, 3)
	require.Contains(t, []string{"POSTNL", "DHL", "DPD", "TNT"}, parts[2])
}

func TestIsMockReference(t *testing.T) {
	require.True(t, IsMockReference("MOCK-3SBOL1234567890-DHL"))
	require.False(t, IsMockReference("3SBOL1234567890"))
	require.False(t, IsMockReference(""))
}

func TestMockArtifactRoundTrip(t *testing.T) {
	ref := MockTrackingReference()
	artifact := MockArtifact("1043946570", "6042823871", ref)

	require.True(t, bytes.HasPrefix(artifact, []byte("%PDF")))
	require.Contains(t, string(artifact), "1043946570")
	require.Contains(t, string(artifact), "6042823871")

	parsed, ok := ParseTrackingReference(artifact)
	require.True(t, ok)
	require.Equal(t, ref, parsed)
}

func TestParseTrackingReferenceMissing(t *testing.T) {
	_, ok := ParseTrackingReference([]byte("%PDF-1.4 no tracking here"))
	require.False(t, ok)
}
