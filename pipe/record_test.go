package pipe

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDispatchGroupsCeilsToWorkgroupSize(t *testing.T) {
	cases := []struct {
		wd, ht, dp uint32
		x, y, z    uint32
	}{
		{64, 64, 0, 2, 2, 1},
		{2, 2, 0, 1, 1, 1},
		{33, 1, 4, 2, 1, 4},
		{0, 0, 0, 0, 0, 1},
	}
	for _, c := range cases {
		n := &Node{Wd: c.wd, Ht: c.ht, Dp: c.dp}
		x, y, z := n.DispatchGroups()
		require.Equal(t, c.x, x)
		require.Equal(t, c.y, y)
		require.Equal(t, c.z, z)
	}
}

func TestPairDeltasReducesStartStopPairs(t *testing.T) {
	raw := []uint64{10, 15, 100, 130, 5, 5}
	deltas := pairDeltas(raw)
	require.Equal(t, []uint64{5, 30, 0}, deltas)
}

func TestPairDeltasOddLengthIgnoresTrailingValue(t *testing.T) {
	raw := []uint64{10, 20, 99}
	deltas := pairDeltas(raw)
	require.Equal(t, []uint64{10}, deltas)
}
