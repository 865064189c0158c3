// Package gpu defines the GPU capability surface rawpipe's command
// recorder and allocation pass require: a WebGPU-flavoured adapter
// shape extended with the Vulkan-flavoured image-layout and copy
// operations a raw-pipeline command buffer needs, embedding
// gogpu/gpucontext's device/queue/adapter handles as the concrete
// base types.
package gpu

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// BufferID, ImageID and the other opaque handles below follow the
// same backend-assigned uint64 idiom as gpucore.BufferID: the concrete
// value is meaningless outside the Device that issued it.
type (
	BufferID             uint64
	ImageID              uint64
	ImageViewID          uint64
	ShaderModuleID       uint64
	ComputePipelineID    uint64
	PipelineLayoutID     uint64
	BindGroupLayoutID    uint64
	BindGroupID          uint64
	QueryPoolID          uint64
)

// InvalidID is returned by failed resource-creation calls.
const InvalidID = 0

// ImageLayout mirrors the small set of Vulkan image layouts the command
// recorder transitions between (§6.1).
type ImageLayout uint8

const (
	LayoutUndefined ImageLayout = iota
	LayoutGeneral
	LayoutShaderReadOnlyOptimal
	LayoutTransferSrcOptimal
	LayoutTransferDstOptimal
)

// ImageUsage is a bitmask of the usages the allocation pass requests
// when creating a write connector's backing image (§4.6 step 3).
type ImageUsage uint32

const (
	ImageUsageStorage ImageUsage = 1 << iota
	ImageUsageTransferSrc
	ImageUsageTransferDst
	ImageUsageSampled
)

// BindingType distinguishes the two descriptor kinds a connector maps
// to (§6.3): combined-image-sampler for reads, storage-image for
// writes, plus the single uniform-buffer binding in set 0.
type BindingType uint8

const (
	BindingCombinedImageSampler BindingType = iota
	BindingStorageImage
	BindingUniformBuffer
)

// ImageDesc describes a 2D image to be created for a write connector.
type ImageDesc struct {
	Label  string
	Width  uint32
	Height uint32
	Format gputypes.TextureFormat
	Usage  ImageUsage
}

// ShaderModuleDesc carries SPIR-V words produced by gogpu/naga from a
// module's WGSL kernel source.
type ShaderModuleDesc struct {
	Label string
	SPIRV []uint32
}

// BindGroupLayoutEntry is one binding slot in a descriptor-set layout.
type BindGroupLayoutEntry struct {
	Binding uint32
	Type    BindingType
}

type BindGroupLayoutDesc struct {
	Label   string
	Entries []BindGroupLayoutEntry
}

type ComputePipelineDesc struct {
	Label          string
	Layout         PipelineLayoutID
	Module         ShaderModuleID
	EntryPoint     string
	PushConstants  uint32 // push-constant block size in bytes, 0 if none
}

// BindGroupEntry binds a concrete resource to a layout slot.
type BindGroupEntry struct {
	Binding    uint32
	Buffer     BufferID
	ImageView  ImageViewID
}

type BindGroupDesc struct {
	Label   string
	Layout  BindGroupLayoutID
	Entries []BindGroupEntry
}

// CommandEncoder records the per-node sequence §4.7 describes: layout
// barriers, copies, pipeline binds, push constants, dispatch and
// timestamp queries, all against one primary command buffer.
type CommandEncoder interface {
	TransitionImageLayout(img ImageID, from, to ImageLayout)
	CopyImageToBuffer(src ImageID, dst BufferID)
	CopyBufferToImage(src BufferID, dst ImageID)

	WriteTimestamp(pool QueryPoolID, index uint32)

	BindPipeline(pipeline ComputePipelineID)
	BindGroup(set uint32, group BindGroupID)
	PushConstants(data []byte)

	// WriteBuffer performs an in-place buffer update, used to refresh
	// the shared uniform buffer with each node's ROI/parameter payload
	// before dispatch (§4.7 step 8).
	WriteBuffer(buf BufferID, offset uint64, data []byte)

	Dispatch(groupsX, groupsY, groupsZ uint32)
}

// Device is the capability set the graph engine requires of its GPU
// backend (§6.1). A backend package (backend/mock for tests,
// backend/wgpu for a real adapter) implements this interface; the pipe
// package never imports a backend directly.
type Device interface {
	// Capabilities.
	MaxWorkgroupSize() (x, y, z uint32)

	// Shader compilation.
	CreateShaderModule(desc ShaderModuleDesc) (ShaderModuleID, error)
	DestroyShaderModule(id ShaderModuleID)

	// Buffers (staging and uniform).
	CreateBuffer(label string, size uint64, hostVisible bool) (BufferID, error)
	DestroyBuffer(id BufferID)
	WriteBuffer(id BufferID, offset uint64, data []byte) error
	ReadBuffer(id BufferID, offset uint64, dst []byte) error

	// Images.
	CreateImage(desc ImageDesc) (ImageID, error)
	DestroyImage(id ImageID)
	CreateImageView(img ImageID) (ImageViewID, error)
	DestroyImageView(id ImageViewID)
	ImageMemoryRequirements(id ImageID) (size, alignment uint64)
	BindImageMemory(id ImageID, offset uint64)

	// Pipeline objects.
	CreateBindGroupLayout(desc BindGroupLayoutDesc) (BindGroupLayoutID, error)
	DestroyBindGroupLayout(id BindGroupLayoutID)
	CreatePipelineLayout(uniform BindGroupLayoutID, node BindGroupLayoutID) (PipelineLayoutID, error)
	DestroyPipelineLayout(id PipelineLayoutID)
	CreateComputePipeline(desc ComputePipelineDesc) (ComputePipelineID, error)
	DestroyComputePipeline(id ComputePipelineID)
	CreateBindGroup(desc BindGroupDesc) (BindGroupID, error)
	DestroyBindGroup(id BindGroupID)

	// Timestamp queries.
	CreateQueryPool(count uint32) (QueryPoolID, error)
	DestroyQueryPool(id QueryPoolID)
	QueryResults(pool QueryPoolID, count uint32) ([]uint64, error)

	// Command recording and submission.
	BeginCommandBuffer() CommandEncoder
	Submit(enc CommandEncoder) error
	WaitIdle(timeoutNanos int64) error
}

// Provider adapts a gpucontext.DeviceProvider into the handles a
// backend package embeds; mirrors render/device.go's DeviceHandle
// alias and integration/ggcanvas's mock-provider shape.
type Provider = gpucontext.DeviceProvider
