package sink

import (
	"image/png"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gogpu/rawpipe/backend/mock"
	"github.com/gogpu/rawpipe/pipe"
	"github.com/gogpu/rawpipe/pipe/modules/halffloat"
)

func newTestModule(t *testing.T, wd, ht uint32) *pipe.Module {
	t.Helper()
	g := pipe.NewGraph(nil, mock.New(), nil)
	idx, err := g.AddModule("sink", "main")
	require.NoError(t, err)
	m := g.Module(idx)
	c := m.Connector(m.ConnectorByName(connIn))
	c.ROI.Wd, c.ROI.Ht = wd, ht
	return m
}

func halfPixel(r, g, b float32) []byte {
	buf := make([]byte, 8)
	buf[0], buf[1] = byte(halffloat.FromFloat32(r)), byte(halffloat.FromFloat32(r)>>8)
	buf[2], buf[3] = byte(halffloat.FromFloat32(g)), byte(halffloat.FromFloat32(g)>>8)
	buf[4], buf[5] = byte(halffloat.FromFloat32(b)), byte(halffloat.FromFloat32(b)>>8)
	return buf
}

func TestWriteSinkNoPathJustDecodes(t *testing.T) {
	m := newTestModule(t, 1, 1)
	staging := halfPixel(1, 0.5, 0)
	require.NoError(t, writeSink(m, staging))
}

func TestWriteSinkStagingTooShort(t *testing.T) {
	m := newTestModule(t, 2, 2)
	require.Error(t, writeSink(m, make([]byte, 4)))
}

func TestWriteSinkEncodesPNG(t *testing.T) {
	m := newTestModule(t, 1, 1)

	dir := t.TempDir()
	path := dir + "/out.png"
	pOff, _, _, ok := m.Class.ParamOffset(paramPath)
	require.True(t, ok)
	copy(m.Params[pOff:], path)

	staging := halfPixel(1, 1, 1)
	require.NoError(t, writeSink(m, staging))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err)
	require.Equal(t, 1, img.Bounds().Dx())
	require.Equal(t, 1, img.Bounds().Dy())
	r, g, b, a := img.At(0, 0).RGBA()
	require.Equal(t, uint32(0xffff), r)
	require.Equal(t, uint32(0xffff), g)
	require.Equal(t, uint32(0xffff), b)
	require.Equal(t, uint32(0xffff), a)
}

func TestToByteClamps(t *testing.T) {
	require.Equal(t, uint8(0), toByte(-1))
	require.Equal(t, uint8(255), toByte(2))
	require.Equal(t, uint8(128), toByte(0.5))
}
