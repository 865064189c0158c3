package mock

import (
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/rawpipe/internal/gpu"
)

func TestCreateAndWriteBuffer(t *testing.T) {
	d := New()
	id, err := d.CreateBuffer("staging", 64, true)
	require.NoError(t, err)

	require.NoError(t, d.WriteBuffer(id, 0, []byte("hello")))
	out := make([]byte, 5)
	require.NoError(t, d.ReadBuffer(id, 0, out))
	require.Equal(t, "hello", string(out))
}

func TestCreateImageAndView(t *testing.T) {
	d := New()
	img, err := d.CreateImage(gpu.ImageDesc{
		Label: "test", Width: 4, Height: 4, Format: gputypes.TextureFormatRGBA8Unorm,
	})
	require.NoError(t, err)

	view, err := d.CreateImageView(img)
	require.NoError(t, err)

	data, desc, err := d.ImageData(view)
	require.NoError(t, err)
	require.Equal(t, 4*4*4, len(data))
	require.Equal(t, uint32(4), desc.Width)
}

func TestComputePipelineRequiresShaderModule(t *testing.T) {
	d := New()
	_, err := d.CreateComputePipeline(gpu.ComputePipelineDesc{Module: 999})
	require.Error(t, err)

	mod, err := d.CreateShaderModule(gpu.ShaderModuleDesc{Label: "k", SPIRV: []uint32{1, 2, 3}})
	require.NoError(t, err)
	_, err = d.CreateComputePipeline(gpu.ComputePipelineDesc{Module: mod})
	require.NoError(t, err)
}
