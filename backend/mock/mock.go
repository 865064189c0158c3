// Package mock is a CPU-backed implementation of internal/gpu.Device.
// It exists so the pipe package's graph-build, ROI, allocation and
// command-recording logic can be exercised and tested without a real
// GPU adapter, the same role gg's integration/ggcanvas mocks play for
// gpucontext.Device/Queue/Adapter.
package mock

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/rawpipe/internal/gpu"
)

type imageResource struct {
	desc gpu.ImageDesc
	data []byte
	size uint64
}

type bufferResource struct {
	data []byte
}

// Device is a single-threaded-use, mutex-guarded CPU device. Dispatches
// execute synchronously and write through to each image/buffer's
// in-memory backing store, so running a graph against it and inspecting
// resource contents afterwards is a faithful stand-in for a real GPU
// run for everything except actual kernel execution (see Dispatch).
type Device struct {
	mu sync.Mutex

	nextID atomic.Uint64

	shaders     map[gpu.ShaderModuleID]gpu.ShaderModuleDesc
	images      map[gpu.ImageID]*imageResource
	imageViews  map[gpu.ImageViewID]gpu.ImageID
	buffers     map[gpu.BufferID]*bufferResource
	bgLayouts   map[gpu.BindGroupLayoutID]gpu.BindGroupLayoutDesc
	pipeLayouts map[gpu.PipelineLayoutID]struct{ uniform, node gpu.BindGroupLayoutID }
	pipelines   map[gpu.ComputePipelineID]gpu.ComputePipelineDesc
	bindGroups  map[gpu.BindGroupID]gpu.BindGroupDesc
	queryPools  map[gpu.QueryPoolID][]uint64

	// DispatchHook, if set, is invoked by Dispatch with the pipeline
	// bound at dispatch time and the dispatched workgroup counts
	// (x, y, z). Reference modules' tests use this to
	// simulate a kernel's effect (e.g. halving resolution, copying
	// bytes) without shipping a real SPIR-V interpreter.
	DispatchHook func(pipeline gpu.ComputePipelineID, groups [3]uint32)
}

// New returns an empty mock Device.
func New() *Device {
	return &Device{
		shaders:     make(map[gpu.ShaderModuleID]gpu.ShaderModuleDesc),
		images:      make(map[gpu.ImageID]*imageResource),
		imageViews:  make(map[gpu.ImageViewID]gpu.ImageID),
		buffers:     make(map[gpu.BufferID]*bufferResource),
		bgLayouts:   make(map[gpu.BindGroupLayoutID]gpu.BindGroupLayoutDesc),
		pipeLayouts: make(map[gpu.PipelineLayoutID]struct{ uniform, node gpu.BindGroupLayoutID }),
		pipelines:   make(map[gpu.ComputePipelineID]gpu.ComputePipelineDesc),
		bindGroups:  make(map[gpu.BindGroupID]gpu.BindGroupDesc),
		queryPools:  make(map[gpu.QueryPoolID][]uint64),
	}
}

func (d *Device) allocID() uint64 {
	return d.nextID.Add(1)
}

func (d *Device) MaxWorkgroupSize() (x, y, z uint32) { return 1024, 1024, 64 }

func (d *Device) CreateShaderModule(desc gpu.ShaderModuleDesc) (gpu.ShaderModuleID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := gpu.ShaderModuleID(d.allocID())
	d.shaders[id] = desc
	return id, nil
}

func (d *Device) DestroyShaderModule(id gpu.ShaderModuleID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.shaders, id)
}

func (d *Device) CreateBuffer(label string, size uint64, hostVisible bool) (gpu.BufferID, error) {
	if size == 0 {
		return 0, fmt.Errorf("mock: zero-size buffer %q", label)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	id := gpu.BufferID(d.allocID())
	d.buffers[id] = &bufferResource{data: make([]byte, size)}
	return id, nil
}

func (d *Device) DestroyBuffer(id gpu.BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.buffers, id)
}

func (d *Device) WriteBuffer(id gpu.BufferID, offset uint64, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buffers[id]
	if !ok {
		return fmt.Errorf("mock: unknown buffer %d", id)
	}
	if offset+uint64(len(data)) > uint64(len(b.data)) {
		return fmt.Errorf("mock: write out of bounds on buffer %d", id)
	}
	copy(b.data[offset:], data)
	return nil
}

func (d *Device) ReadBuffer(id gpu.BufferID, offset uint64, dst []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buffers[id]
	if !ok {
		return fmt.Errorf("mock: unknown buffer %d", id)
	}
	if offset+uint64(len(dst)) > uint64(len(b.data)) {
		return fmt.Errorf("mock: read out of bounds on buffer %d", id)
	}
	copy(dst, b.data[offset:])
	return nil
}

func (d *Device) CreateImage(desc gpu.ImageDesc) (gpu.ImageID, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return 0, fmt.Errorf("mock: zero-dimension image %q", desc.Label)
	}
	bpp := bytesPerPixel(desc.Format)
	d.mu.Lock()
	defer d.mu.Unlock()
	id := gpu.ImageID(d.allocID())
	size := uint64(desc.Width) * uint64(desc.Height) * uint64(bpp)
	d.images[id] = &imageResource{desc: desc, data: make([]byte, size), size: size}
	return id, nil
}

func (d *Device) DestroyImage(id gpu.ImageID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.images, id)
}

func (d *Device) CreateImageView(img gpu.ImageID) (gpu.ImageViewID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.images[img]; !ok {
		return 0, fmt.Errorf("mock: unknown image %d", img)
	}
	id := gpu.ImageViewID(d.allocID())
	d.imageViews[id] = img
	return id, nil
}

func (d *Device) DestroyImageView(id gpu.ImageViewID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.imageViews, id)
}

func (d *Device) ImageMemoryRequirements(id gpu.ImageID) (size, alignment uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	img, ok := d.images[id]
	if !ok {
		return 0, 1
	}
	return img.size, 256
}

func (d *Device) BindImageMemory(id gpu.ImageID, offset uint64) {
	// The mock device owns its own backing store per image and has no
	// single shared memory object to bind against, so this is a no-op:
	// the arena offset is only meaningful for a real allocator.
}

func (d *Device) CreateBindGroupLayout(desc gpu.BindGroupLayoutDesc) (gpu.BindGroupLayoutID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := gpu.BindGroupLayoutID(d.allocID())
	d.bgLayouts[id] = desc
	return id, nil
}

func (d *Device) DestroyBindGroupLayout(id gpu.BindGroupLayoutID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.bgLayouts, id)
}

func (d *Device) CreatePipelineLayout(uniform, node gpu.BindGroupLayoutID) (gpu.PipelineLayoutID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := gpu.PipelineLayoutID(d.allocID())
	d.pipeLayouts[id] = struct{ uniform, node gpu.BindGroupLayoutID }{uniform, node}
	return id, nil
}

func (d *Device) DestroyPipelineLayout(id gpu.PipelineLayoutID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.pipeLayouts, id)
}

func (d *Device) CreateComputePipeline(desc gpu.ComputePipelineDesc) (gpu.ComputePipelineID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.shaders[desc.Module]; !ok {
		return 0, fmt.Errorf("mock: unknown shader module %d", desc.Module)
	}
	id := gpu.ComputePipelineID(d.allocID())
	d.pipelines[id] = desc
	return id, nil
}

func (d *Device) DestroyComputePipeline(id gpu.ComputePipelineID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.pipelines, id)
}

func (d *Device) CreateBindGroup(desc gpu.BindGroupDesc) (gpu.BindGroupID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := gpu.BindGroupID(d.allocID())
	d.bindGroups[id] = desc
	return id, nil
}

func (d *Device) DestroyBindGroup(id gpu.BindGroupID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.bindGroups, id)
}

func (d *Device) CreateQueryPool(count uint32) (gpu.QueryPoolID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := gpu.QueryPoolID(d.allocID())
	d.queryPools[id] = make([]uint64, count)
	return id, nil
}

func (d *Device) DestroyQueryPool(id gpu.QueryPoolID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.queryPools, id)
}

func (d *Device) QueryResults(pool gpu.QueryPoolID, count uint32) ([]uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	results, ok := d.queryPools[pool]
	if !ok {
		return nil, fmt.Errorf("mock: unknown query pool %d", pool)
	}
	if int(count) > len(results) {
		count = uint32(len(results))
	}
	out := make([]uint64, count)
	copy(out, results[:count])
	return out, nil
}

// BeginCommandBuffer returns a new encoder. The mock device executes
// every recorded command immediately rather than deferring to Submit,
// which is sufficient for exercising the recorder's call sequence and
// observing its side effects in tests.
func (d *Device) BeginCommandBuffer() gpu.CommandEncoder {
	return &encoder{d: d}
}

func (d *Device) Submit(enc gpu.CommandEncoder) error {
	return nil
}

func (d *Device) WaitIdle(timeoutNanos int64) error {
	return nil
}

// ImageData resolves a view to its backing image data, used by
// reference-module dispatch hooks that want to read/write pixels.
func (d *Device) ImageData(view gpu.ImageViewID) ([]byte, gpu.ImageDesc, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	imgID, ok := d.imageViews[view]
	if !ok {
		return nil, gpu.ImageDesc{}, fmt.Errorf("mock: unknown image view %d", view)
	}
	img := d.images[imgID]
	return img.data, img.desc, nil
}

// BufferData exposes a buffer's backing store directly, used by source/
// sink reference modules operating outside the command-encoder path.
func (d *Device) BufferData(id gpu.BufferID) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buffers[id]
	if !ok {
		return nil, fmt.Errorf("mock: unknown buffer %d", id)
	}
	return b.data, nil
}

func bytesPerPixel(f gputypes.TextureFormat) int {
	switch f {
	case gputypes.TextureFormatR8Unorm:
		return 1
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatRGBA8UnormSrgb, gputypes.TextureFormatBGRA8Unorm:
		return 4
	case gputypes.TextureFormatRGBA16Float:
		return 8
	case gputypes.TextureFormatRGBA32Float:
		return 16
	default:
		return 4
	}
}
