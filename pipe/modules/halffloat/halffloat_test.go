package halffloat

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToFloat32KnownValues(t *testing.T) {
	cases := []struct {
		h    uint16
		want float32
	}{
		{0x0000, 0},
		{0x8000, 0}, // -0, compares equal to 0
		{0x3C00, 1},
		{0xBC00, -1},
		{0x3800, 0.5},
		{0x7C00, float32(math.Inf(1))},
		{0xFC00, float32(math.Inf(-1))},
	}
	for _, c := range cases {
		require.Equal(t, c.want, ToFloat32(c.h))
	}
}

func TestFromFloat32KnownValues(t *testing.T) {
	cases := []struct {
		f    float32
		want uint16
	}{
		{0, 0x0000},
		{1, 0x3C00},
		{-1, 0xBC00},
		{0.5, 0x3800},
	}
	for _, c := range cases {
		require.Equal(t, c.want, FromFloat32(c.f))
	}
}

func TestRoundTripCommonValues(t *testing.T) {
	values := []float32{0, 1, -1, 0.5, 0.25, 2, 100, -100, 0.1, 65504}
	for _, v := range values {
		got := ToFloat32(FromFloat32(v))
		diff := got - v
		if diff < 0 {
			diff = -diff
		}
		require.Less(t, float64(diff), 0.05, "round trip of %v gave %v", v, got)
	}
}

func TestFromFloat32Subnormal(t *testing.T) {
	// smallest positive subnormal half is 2^-24; verify it doesn't
	// flush to zero or overflow into the normal range incorrectly.
	v := float32(5.960464e-8)
	got := FromFloat32(v)
	require.NotEqual(t, uint16(0), got)
	require.Less(t, got, uint16(0x0400))
}
