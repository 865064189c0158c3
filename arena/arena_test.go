package arena

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocDeterministicOffsets(t *testing.T) {
	run := func() []uint64 {
		a := New()
		var offsets []uint64
		r1, err := a.Alloc(64, 16)
		require.NoError(t, err)
		offsets = append(offsets, r1.Offset)
		r2, err := a.Alloc(128, 16)
		require.NoError(t, err)
		offsets = append(offsets, r2.Offset)
		a.Free(r1)
		r3, err := a.Alloc(32, 16)
		require.NoError(t, err)
		offsets = append(offsets, r3.Offset)
		return offsets
	}

	require.Equal(t, run(), run())
}

func TestAlignmentMustBePowerOfTwo(t *testing.T) {
	a := New()
	_, err := a.Alloc(16, 3)
	require.Error(t, err)
}

func TestFreeCoalescesAdjacentBlocks(t *testing.T) {
	a := New()
	r1, err := a.Alloc(64, 8)
	require.NoError(t, err)
	r2, err := a.Alloc(64, 8)
	require.NoError(t, err)
	r3, err := a.Alloc(64, 8)
	require.NoError(t, err)

	a.Free(r1)
	a.Free(r3)
	a.Free(r2)

	// Everything is free and contiguous again: a fresh allocation at the
	// same total size should now fit in a single coalesced block located
	// at offset 0.
	r4, err := a.Alloc(192, 8)
	require.NoError(t, err)
	require.Equal(t, uint64(0), r4.Offset)
}

func TestRefCountedFree(t *testing.T) {
	a := New()
	r, err := a.Alloc(64, 8)
	require.NoError(t, err)
	a.AddRef(r, 2) // ref now 3, simulating three downstream readers

	a.Free(r)
	a.Free(r)
	require.Equal(t, uint64(64), a.VMSize())

	// Third free drops ref to zero and returns the block to the free
	// list; the next alloc of the same size reuses its offset.
	a.Free(r)
	r2, err := a.Alloc(64, 8)
	require.NoError(t, err)
	require.Equal(t, r.Offset, r2.Offset)
}

func TestVMSizeNeverDecreases(t *testing.T) {
	a := New()
	r1, _ := a.Alloc(100, 4)
	vm1 := a.VMSize()
	a.Free(r1)
	vm2 := a.VMSize()
	require.GreaterOrEqual(t, vm2, vm1)
}

func TestPeakRSSTracksHighWaterOfLiveBytes(t *testing.T) {
	a := New()
	r1, _ := a.Alloc(100, 4)
	r2, _ := a.Alloc(100, 4)
	require.Equal(t, uint64(200), a.PeakRSS())
	a.Free(r1)
	a.Free(r2)
	require.Equal(t, uint64(200), a.PeakRSS(), "peak must not decrease on free")

	r3, _ := a.Alloc(50, 4)
	require.Equal(t, uint64(200), a.PeakRSS())
	_ = r3
}

func TestNukeResetsButKeepsStats(t *testing.T) {
	a := New()
	r1, _ := a.Alloc(100, 4)
	a.Free(r1)
	a.Alloc(300, 4)

	vm := a.VMSize()
	peak := a.PeakRSS()

	a.Nuke()
	require.Equal(t, vm, a.VMSize())
	require.Equal(t, peak, a.PeakRSS())

	r, err := a.Alloc(vm, 4)
	require.NoError(t, err)
	require.Equal(t, uint64(0), r.Offset)
}
