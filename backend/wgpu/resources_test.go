package wgpu

import (
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/rawpipe/internal/gpu"
)

// newTestDevice builds a Device with its resource maps ready to use,
// skipping Init's real adapter/instance acquisition — every method
// exercised here only touches the in-memory shadow store.
func newTestDevice() *Device {
	return &Device{res: newResources(), initialized: true}
}

func TestCreateBufferRejectsZeroSize(t *testing.T) {
	d := newTestDevice()
	_, err := d.CreateBuffer("empty", 0, true)
	require.Error(t, err)
}

func TestBufferWriteReadRoundTrip(t *testing.T) {
	d := newTestDevice()
	id, err := d.CreateBuffer("buf", 8, true)
	require.NoError(t, err)

	require.NoError(t, d.WriteBuffer(id, 2, []byte{1, 2, 3}))

	out := make([]byte, 3)
	require.NoError(t, d.ReadBuffer(id, 2, out))
	require.Equal(t, []byte{1, 2, 3}, out)
}

func TestBufferWriteOutOfBoundsFails(t *testing.T) {
	d := newTestDevice()
	id, err := d.CreateBuffer("buf", 4, true)
	require.NoError(t, err)
	require.Error(t, d.WriteBuffer(id, 2, []byte{1, 2, 3}))
}

func TestCreateImageRejectsZeroDimension(t *testing.T) {
	d := newTestDevice()
	_, err := d.CreateImage(gpu.ImageDesc{Label: "z", Width: 0, Height: 4, Format: gputypes.TextureFormatRGBA8Unorm})
	require.Error(t, err)
}

func TestImageMemoryRequirementsSizesFromFormat(t *testing.T) {
	d := newTestDevice()
	id, err := d.CreateImage(gpu.ImageDesc{Label: "i", Width: 4, Height: 2, Format: gputypes.TextureFormatRGBA32Float})
	require.NoError(t, err)

	size, alignment := d.ImageMemoryRequirements(id)
	require.Equal(t, uint64(4*2*16), size)
	require.Equal(t, uint64(256), alignment)
}

func TestCreateImageViewRequiresKnownImage(t *testing.T) {
	d := newTestDevice()
	_, err := d.CreateImageView(gpu.ImageID(999))
	require.Error(t, err)
}

func TestCreateComputePipelineRequiresKnownShaderModule(t *testing.T) {
	d := newTestDevice()
	_, err := d.CreateComputePipeline(gpu.ComputePipelineDesc{Module: gpu.ShaderModuleID(42)})
	require.Error(t, err)

	shader, err := d.CreateShaderModule(gpu.ShaderModuleDesc{})
	require.NoError(t, err)
	_, err = d.CreateComputePipeline(gpu.ComputePipelineDesc{Module: shader})
	require.NoError(t, err)
}

func TestQueryResultsClampsToPoolSize(t *testing.T) {
	d := newTestDevice()
	pool, err := d.CreateQueryPool(2)
	require.NoError(t, err)

	results, err := d.QueryResults(pool, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
}

func TestMethodsOnUninitializedDeviceFail(t *testing.T) {
	d := New()
	_, err := d.CreateBuffer("x", 4, true)
	require.ErrorIs(t, err, ErrNotInitialized)

	_, err = d.CreateImage(gpu.ImageDesc{Width: 1, Height: 1, Format: gputypes.TextureFormatRGBA8Unorm})
	require.ErrorIs(t, err, ErrNotInitialized)

	require.ErrorIs(t, d.Submit(nil), ErrNotInitialized)
	require.ErrorIs(t, d.WaitIdle(0), ErrNotInitialized)
}

func TestBytesPerPixel(t *testing.T) {
	cases := []struct {
		format gputypes.TextureFormat
		want   int
	}{
		{gputypes.TextureFormatR8Unorm, 1},
		{gputypes.TextureFormatRGBA8Unorm, 4},
		{gputypes.TextureFormatRGBA8UnormSrgb, 4},
		{gputypes.TextureFormatBGRA8Unorm, 4},
		{gputypes.TextureFormatRGBA16Float, 8},
		{gputypes.TextureFormatRGBA32Float, 16},
	}
	for _, c := range cases {
		require.Equal(t, c.want, bytesPerPixel(c.format))
	}
}
