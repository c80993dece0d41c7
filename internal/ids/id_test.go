package ids

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ProducesDistinctNonNilIds(t *testing.T) {
	a, b := New(), New()

	assert.False(t, a.IsNil())
	assert.NotEqual(t, a.String(), b.String())
}

func TestParse_RoundTripsString(t *testing.T) {
	id := New()

	parsed, err := Parse(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestParse_RejectsMalformedInput(t *testing.T) {
	_, err := Parse("not-a-uuid")
	assert.Error(t, err)
}

func TestFromBytes_RoundTripsBytes(t *testing.T) {
	id := New()

	parsed, err := FromBytes(id.Bytes())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestNil_IsNil(t *testing.T) {
	assert.True(t, Nil.IsNil())
}

func TestDeterministic_SameNameProducesSameId(t *testing.T) {
	a := Deterministic("/home/user/project")
	b := Deterministic("/home/user/project")

	assert.Equal(t, a, b)
	assert.False(t, a.IsNil())
}

func TestDeterministic_DifferentNamesProduceDifferentIds(t *testing.T) {
	a := Deterministic("/home/user/project-a")
	b := Deterministic("/home/user/project-b")

	assert.NotEqual(t, a, b)
}

func TestMarshalUnmarshalText_RoundTrips(t *testing.T) {
	id := New()

	text, err := id.MarshalText()
	require.NoError(t, err)

	var out Id
	require.NoError(t, out.UnmarshalText(text))
	assert.Equal(t, id, out)
}

func TestScan_AcceptsStringBytesAndNil(t *testing.T) {
	id := New()

	var fromString Id
	require.NoError(t, fromString.Scan(id.String()))
	assert.Equal(t, id, fromString)

	var fromBytes Id
	require.NoError(t, fromBytes.Scan([]byte(id.String())))
	assert.Equal(t, id, fromBytes)

	var fromNil Id
	require.NoError(t, fromNil.Scan(nil))
	assert.True(t, fromNil.IsNil())
}
