package pipe_test

import (
	"encoding/binary"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gogpu/rawpipe/backend/mock"
	"github.com/gogpu/rawpipe/pipe"
	"github.com/gogpu/rawpipe/token"

	_ "github.com/gogpu/rawpipe/pipe/modules/demosaic"
	_ "github.com/gogpu/rawpipe/pipe/modules/exposure"
	_ "github.com/gogpu/rawpipe/pipe/modules/sink"
	_ "github.com/gogpu/rawpipe/pipe/modules/source"
)

const minimalConfig = `
module source in
module demosaic demo
module exposure expo
module sink out

connect source in output demosaic demo input
connect demosaic demo output exposure expo input
connect exposure expo output sink out input

param source in width 4
param source in height 4
param exposure expo ev 0
`

func newLoadedGraph(t *testing.T, cfg string) *pipe.Graph {
	t.Helper()
	g := pipe.NewGraph(nil, mock.New(), nil)
	require.NoError(t, pipe.LoadConfig(g, strings.NewReader(cfg)))
	return g
}

// TestRunMinimalPipelineCompletes exercises scenario S1: the smallest
// four-module chain runs to completion and writes one timestamp delta
// per node.
func TestRunMinimalPipelineCompletes(t *testing.T) {
	g := newLoadedGraph(t, minimalConfig)
	defer g.Teardown()

	result, err := g.Run(pipe.FlagAll)
	require.NoError(t, err)
	require.Equal(t, 0, result.FirstDirty)
	require.Len(t, result.TimestampDeltas, len(g.Nodes))
}

// TestRunDemosaicHalvesOutputDimensions exercises scenario S3: the
// half-size demosaic path negotiates a 2x2 output ROI from a 4x4 input.
func TestRunDemosaicHalvesOutputDimensions(t *testing.T) {
	g := newLoadedGraph(t, minimalConfig)
	defer g.Teardown()

	_, err := g.Run(pipe.FlagROIOut | pipe.FlagCreateNodes)
	require.NoError(t, err)

	demo := g.Module(1)
	out := demo.Connector(demo.ConnectorByName(token.MustNew("output")))
	require.Equal(t, uint32(2), out.ROI.FullWd)
	require.Equal(t, uint32(2), out.ROI.FullHt)
}

// TestRunSecondPassOnlyRerecordsDirtyModules exercises the dirty-prefix
// mechanism (open question (a)): changing only the exposure module's
// parameter between two runs reports that module, not 0, as the first
// dirty index on the second run.
func TestRunSecondPassOnlyRerecordsDirtyModules(t *testing.T) {
	g := newLoadedGraph(t, minimalConfig)
	defer g.Teardown()

	_, err := g.Run(pipe.FlagAll)
	require.NoError(t, err)

	expo := g.Module(2)
	off, _, _, ok := expo.Class.ParamOffset(token.MustNew("ev"))
	require.True(t, ok)
	binary.LittleEndian.PutUint32(expo.Params[off:], math.Float32bits(1))

	result, err := g.Run(pipe.FlagAll)
	require.NoError(t, err)
	require.Equal(t, 2, result.FirstDirty)
}

// TestRunRepeatedAllocateReusesQueryPool exercises scenario S4: running
// the same graph twice with no shape change allocates its query pool
// exactly once (CreateQueryPool called a single time regardless of the
// number of Run invocations).
func TestRunRepeatedAllocateReusesQueryPool(t *testing.T) {
	g := newLoadedGraph(t, minimalConfig)
	defer g.Teardown()

	_, err := g.Run(pipe.FlagAll)
	require.NoError(t, err)
	pool := g.QueryPool

	_, err = g.Run(pipe.FlagAll)
	require.NoError(t, err)
	require.Equal(t, pool, g.QueryPool)
}
