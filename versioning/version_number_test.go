package versioning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionNumber(t *testing.T) {
	_, err := NewVersionNumber(-1)
	require.ErrorIs(t, err, ErrInvalidVersion)

	_, err = ParseVersionNumber("1.0")
	require.ErrorIs(t, err, ErrInvalidVersion)

	v, err := ParseVersionNumber(" 7 ")
	require.NoError(t, err)
	assert.Equal(t, VersionNumber(7), v)

	next, err := v.Add(3)
	require.NoError(t, err)
	assert.Equal(t, VersionNumber(10), next)
	assert.True(t, v < next)

	_, err = v.Sub(8)
	require.ErrorIs(t, err, ErrInvalidVersion)

	var scanned VersionNumber
	require.NoError(t, scanned.Scan([]byte("12")))
	assert.Equal(t, VersionNumber(12), scanned)
	require.NoError(t, scanned.Scan(int64(3)))
	assert.Equal(t, "3", scanned.String())
	require.ErrorIs(t, scanned.Scan(int64(-3)), ErrInvalidVersion)
	require.ErrorIs(t, scanned.Scan(nil), ErrInvalidVersion)
}

func TestDirection(t *testing.T) {
	op, err := Upgrade.Operation()
	require.NoError(t, err)
	assert.Equal(t, OpUpgrade, op)

	op, err = Downgrade.Operation()
	require.NoError(t, err)
	assert.Equal(t, OpDowngrade, op)

	_, err = DirectionOf(0)
	require.ErrorIs(t, err, ErrInvalidStep)
	_, err = DirectionOf(2)
	require.ErrorIs(t, err, ErrInvalidStep)

	d, err := DirectionOf(-1)
	require.NoError(t, err)
	assert.Equal(t, Downgrade, d)
}
