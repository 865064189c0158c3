package token

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewAndString(t *testing.T) {
	cases := []string{"", "a", "rgb", "rggb", "demosaic"}
	for _, s := range cases {
		tok, err := New(s)
		require.NoError(t, err)
		require.Equal(t, s, tok.String())
	}
}

func TestNewTooLong(t *testing.T) {
	_, err := New("toolongtoken")
	require.ErrorIs(t, err, ErrTooLong)
}

func TestEquality(t *testing.T) {
	a := MustNew("demosaic")
	b := MustNew("demosaic")
	c := MustNew("exposure")
	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
}

func TestZero(t *testing.T) {
	z, err := New("")
	require.NoError(t, err)
	require.True(t, z.IsZero())
	require.Equal(t, Zero, z)
	require.False(t, MustNew("x").IsZero())
}

func TestChannels(t *testing.T) {
	require.Equal(t, 1, MustNew("y").Channels())
	require.Equal(t, 2, MustNew("yu").Channels())
	require.Equal(t, 4, MustNew("rgb").Channels())
	require.Equal(t, 1, MustNew("rggb").Channels(), "bayer mosaic is one sample per pixel")
	require.Equal(t, 1, MustNew("rgbx").Channels(), "x-trans mosaic is one sample per pixel")
}

func TestBytesPerPixel(t *testing.T) {
	require.Equal(t, 1, MustNew("ui8").BytesPerPixel())
	require.Equal(t, 2, MustNew("ui16").BytesPerPixel())
	require.Equal(t, 2, MustNew("f16").BytesPerPixel())
	require.Equal(t, 4, MustNew("f32").BytesPerPixel())
	require.Equal(t, 4, MustNew("ui32").BytesPerPixel())
	require.Equal(t, 0, MustNew("bogus").BytesPerPixel())
}
