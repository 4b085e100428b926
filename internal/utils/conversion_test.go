package utils

import (
	"math"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"
)

func TestFixedToFloat64(t *testing.T) {
	v, err := FixedToFloat64(sdkmath.NewIntWithDecimal(15, 17), 18)
	require.NoError(t, err)
	require.InDelta(t, 1.5, v, 1e-12)

	v, err = FixedToFloat64(sdkmath.NewInt(12345), 0)
	require.NoError(t, err)
	require.InDelta(t, 12345.0, v, 1e-9)

	_, err = FixedToFloat64(sdkmath.NewInt(1), 19)
	require.ErrorIs(t, err, ErrInvalidPrecision)

	_, err = FixedToFloat64(sdkmath.Int{}, 18)
	require.ErrorIs(t, err, ErrAmountNil)

	_, err = FixedToFloat64(sdkmath.NewInt(-1), 18)
	require.ErrorIs(t, err, ErrAmountNegative)
}

func TestFloat64ToFixed(t *testing.T) {
	v, err := Float64ToFixed(1.5, 18)
	require.NoError(t, err)
	require.True(t, v.Equal(sdkmath.NewIntWithDecimal(15, 17)))

	v, err = Float64ToFixed(0, 18)
	require.NoError(t, err)
	require.True(t, v.IsZero())

	_, err = Float64ToFixed(math.NaN(), 18)
	require.ErrorIs(t, err, ErrNotFinite)

	_, err = Float64ToFixed(-0.5, 18)
	require.ErrorIs(t, err, ErrAmountNegative)
}

func TestE18RoundTrip(t *testing.T) {
	orig := sdkmath.NewIntWithDecimal(1, 18)
	f, err := E18ToFloat64(orig)
	require.NoError(t, err)
	back, err := Float64ToFixed(f, 18)
	require.NoError(t, err)
	require.True(t, back.Equal(orig))
}
