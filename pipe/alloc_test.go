package pipe_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gogpu/rawpipe/backend/mock"
	"github.com/gogpu/rawpipe/pipe"

	_ "github.com/gogpu/rawpipe/pipe/modules/demosaic"
	_ "github.com/gogpu/rawpipe/pipe/modules/exposure"
	_ "github.com/gogpu/rawpipe/pipe/modules/sink"
	_ "github.com/gogpu/rawpipe/pipe/modules/source"
)

// TestAllocateReusesArenaAcrossRepeatedRuns exercises scenario S4: two
// consecutive Allocate passes over an unchanged graph shape reserve
// exactly the same high-water mark, because Allocate nukes and rebuilds
// the arena from scratch every call rather than growing it.
func TestAllocateReusesArenaAcrossRepeatedRuns(t *testing.T) {
	g := pipe.NewGraph(nil, mock.New(), nil)
	require.NoError(t, pipe.LoadConfig(g, strings.NewReader(minimalConfig)))
	defer g.Teardown()

	_, err := g.Run(pipe.FlagROIOut | pipe.FlagCreateNodes | pipe.FlagAllocFree | pipe.FlagAllocDSet)
	require.NoError(t, err)
	firstVMSize := g.DeviceArena.VMSize()
	require.Greater(t, firstVMSize, uint64(0))

	_, err = g.Run(pipe.FlagROIOut | pipe.FlagCreateNodes | pipe.FlagAllocFree | pipe.FlagAllocDSet)
	require.NoError(t, err)
	require.Equal(t, firstVMSize, g.DeviceArena.VMSize())
}
