package wgpu

import (
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/rawpipe/internal/gpu"
)

func TestEncoderCopyBufferToImageAndBack(t *testing.T) {
	d := newTestDevice()
	buf, err := d.CreateBuffer("buf", 4, true)
	require.NoError(t, err)
	require.NoError(t, d.WriteBuffer(buf, 0, []byte{1, 2, 3, 4}))

	img, err := d.CreateImage(gpu.ImageDesc{Label: "img", Width: 2, Height: 2, Format: gputypes.TextureFormatR8Unorm})
	require.NoError(t, err)

	enc := d.BeginCommandBuffer().(*encoder)
	enc.CopyBufferToImage(buf, img)

	dst, err := d.CreateBuffer("dst", 4, true)
	require.NoError(t, err)
	enc.CopyImageToBuffer(img, dst)

	out := make([]byte, 4)
	require.NoError(t, d.ReadBuffer(dst, 0, out))
	require.Equal(t, []byte{1, 2, 3, 4}, out)
}

func TestEncoderCopyTruncatesToSmallerSide(t *testing.T) {
	d := newTestDevice()
	buf, err := d.CreateBuffer("buf", 8, true)
	require.NoError(t, err)
	require.NoError(t, d.WriteBuffer(buf, 0, []byte{1, 2, 3, 4, 5, 6, 7, 8}))

	img, err := d.CreateImage(gpu.ImageDesc{Label: "small", Width: 1, Height: 1, Format: gputypes.TextureFormatR8Unorm})
	require.NoError(t, err)

	enc := d.BeginCommandBuffer().(*encoder)
	enc.CopyBufferToImage(buf, img)

	dst, err := d.CreateBuffer("dst", 8, true)
	require.NoError(t, err)
	enc.CopyImageToBuffer(img, dst)

	out := make([]byte, 8)
	require.NoError(t, d.ReadBuffer(dst, 0, out))
	require.Equal(t, byte(1), out[0])
	require.Equal(t, byte(0), out[1])
}

func TestEncoderWriteTimestampRecordsIntoPool(t *testing.T) {
	d := newTestDevice()
	pool, err := d.CreateQueryPool(3)
	require.NoError(t, err)

	enc := d.BeginCommandBuffer().(*encoder)
	enc.WriteTimestamp(pool, 0)
	enc.WriteTimestamp(pool, 1)

	results, err := d.QueryResults(pool, 3)
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2, 0}, results)
}

func TestEncoderBindGroupTracksBySet(t *testing.T) {
	enc := &encoder{}
	enc.BindGroup(0, gpu.BindGroupID(7))
	enc.BindGroup(1, gpu.BindGroupID(9))
	require.Equal(t, gpu.BindGroupID(7), enc.groups[0])
	require.Equal(t, gpu.BindGroupID(9), enc.groups[1])
}

func TestEncoderPushConstantsCopiesData(t *testing.T) {
	enc := &encoder{}
	data := []byte{1, 2, 3}
	enc.PushConstants(data)
	data[0] = 99
	require.Equal(t, byte(1), enc.pushData[0])
}
