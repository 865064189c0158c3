package exposure

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gogpu/rawpipe/backend/mock"
	"github.com/gogpu/rawpipe/pipe"
)

func newTestModule(t *testing.T, ev float32) (*pipe.Graph, *pipe.Module) {
	t.Helper()
	g := pipe.NewGraph(nil, mock.New(), nil)
	idx, err := g.AddModule("exposure", "main")
	require.NoError(t, err)
	m := g.Module(idx)
	off, _, _, ok := m.Class.ParamOffset(paramEV)
	require.True(t, ok)
	binary.LittleEndian.PutUint32(m.Params[off:], math.Float32bits(ev))
	return g, m
}

func committedFloat(t *testing.T, m *pipe.Module, i int) float32 {
	t.Helper()
	require.GreaterOrEqual(t, len(m.Committed), 4*(i+1))
	return math.Float32frombits(binary.LittleEndian.Uint32(m.Committed[4*i:]))
}

func TestCommitParamsZeroEVIsUnityGain(t *testing.T) {
	g, m := newTestModule(t, 0)
	m.Img.WhitePoint = 1
	m.Img.BlackPoint = [4]float32{0, 0, 0, 0}
	m.Img.WhiteBalance = [4]float32{1, 1, 1, 1}

	require.NoError(t, commitParams(g, m))
	require.Len(t, m.Committed, 32)

	for k := 0; k < 4; k++ {
		require.Equal(t, float32(0), committedFloat(t, m, k))
	}
	for k := 0; k < 4; k++ {
		require.InDelta(t, 1, committedFloat(t, m, 4+k), 1e-6)
	}
}

func TestCommitParamsAppliesStopsAndWhiteBalance(t *testing.T) {
	g, m := newTestModule(t, 1) // +1 EV doubles gain
	m.Img.WhitePoint = 16384
	m.Img.BlackPoint = [4]float32{512, 512, 512, 512}
	m.Img.WhiteBalance = [4]float32{2, 1, 1, 1.5}

	require.NoError(t, commitParams(g, m))

	wantDenom := float32(16384 - 512)
	wantGainR := float32(2) * 2 / wantDenom
	require.InDelta(t, wantGainR, committedFloat(t, m, 4), 1e-4)
	require.InDelta(t, float32(512), committedFloat(t, m, 0), 1e-6)
}

func TestCommitParamsZeroDenominatorYieldsZeroGain(t *testing.T) {
	g, m := newTestModule(t, 0)
	m.Img.WhitePoint = 100
	m.Img.BlackPoint = [4]float32{100, 100, 100, 100}
	m.Img.WhiteBalance = [4]float32{1, 1, 1, 1}

	require.NoError(t, commitParams(g, m))

	for k := 0; k < 4; k++ {
		require.Equal(t, float32(0), committedFloat(t, m, 4+k))
	}
}
