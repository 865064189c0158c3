package source

import (
	"encoding/binary"
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gogpu/rawpipe/backend/mock"
	"github.com/gogpu/rawpipe/pipe"
	"github.com/gogpu/rawpipe/token"
)

func newTestModule(t *testing.T) (*pipe.Graph, *pipe.Module) {
	t.Helper()
	g := pipe.NewGraph(nil, mock.New(), nil)
	idx, err := g.AddModule("source", "main")
	require.NoError(t, err)
	return g, g.Module(idx)
}

func setFloatParam(t *testing.T, m *pipe.Module, name token.Token, v float32) {
	t.Helper()
	off, _, _, ok := m.Class.ParamOffset(name)
	require.True(t, ok)
	binary.LittleEndian.PutUint32(m.Params[off:], math.Float32bits(v))
}

func TestModifyROIOutSetsFullDimensions(t *testing.T) {
	g, m := newTestModule(t)
	setFloatParam(t, m, paramWidth, 4096)
	setFloatParam(t, m, paramHeight, 2160)

	require.NoError(t, modifyROIOut(g, m))

	c := m.Connector(m.ConnectorByName(connOut))
	require.Equal(t, uint32(4096), c.ROI.FullWd)
	require.Equal(t, uint32(2160), c.ROI.FullHt)
	require.Equal(t, float32(1), c.ROI.Scale)
}

func TestReadSourceSyntheticRamp(t *testing.T) {
	_, m := newTestModule(t)
	staging := make([]byte, 8)
	require.NoError(t, readSource(m, staging))
	require.Equal(t, []byte{0, 0, 1, 0, 2, 0, 3, 0}, staging)
}

func TestReadSourceFromFile(t *testing.T) {
	_, m := newTestModule(t)
	dir := t.TempDir()
	path := dir + "/raw.bin"
	want := []byte{1, 2, 3, 4, 5, 6}
	require.NoError(t, os.WriteFile(path, want, 0o644))

	pOff, _, _, ok := m.Class.ParamOffset(paramPath)
	require.True(t, ok)
	copy(m.Params[pOff:], path)

	staging := make([]byte, len(want))
	require.NoError(t, readSource(m, staging))
	require.Equal(t, want, staging)
}

func TestReadSourceFileSizeMismatch(t *testing.T) {
	_, m := newTestModule(t)
	dir := t.TempDir()
	path := dir + "/raw.bin"
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0o644))

	pOff, _, _, ok := m.Class.ParamOffset(paramPath)
	require.True(t, ok)
	copy(m.Params[pOff:], path)

	staging := make([]byte, 8)
	require.Error(t, readSource(m, staging))
}
