package wgpu

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/rawpipe/internal/gpu"
)

// resources tracks every handle this backend has vended. Buffers and
// images keep an in-memory shadow of their contents: gogpu/wgpu does
// not yet expose mapped-buffer or texture-readback calls (doc.go,
// "Current Status"), so WriteBuffer/ReadBuffer/the copy commands
// operate against the shadow directly instead of a real staging copy.
// Dispatch does not execute a kernel against the shadow — shader
// compilation and pipeline creation are stubbed pending a real
// ComputePipeline call surface; their handles are plain IDs from
// allocID, recorded in the shadow maps below.
type resources struct {
	mu     sync.Mutex
	nextID atomic.Uint64

	shaders    map[gpu.ShaderModuleID]gpu.ShaderModuleDesc
	images     map[gpu.ImageID]*imageShadow
	imageViews map[gpu.ImageViewID]gpu.ImageID
	buffers    map[gpu.BufferID]*bufferShadow

	bgLayouts   map[gpu.BindGroupLayoutID]gpu.BindGroupLayoutDesc
	pipeLayouts map[gpu.PipelineLayoutID]struct{ uniform, node gpu.BindGroupLayoutID }
	pipelines   map[gpu.ComputePipelineID]gpu.ComputePipelineDesc
	bindGroups  map[gpu.BindGroupID]gpu.BindGroupDesc
	queryPools  map[gpu.QueryPoolID][]uint64
}

type imageShadow struct {
	desc   gpu.ImageDesc
	data   []byte
	offset uint64
}

type bufferShadow struct {
	data []byte
}

func newResources() resources {
	return resources{
		shaders:     make(map[gpu.ShaderModuleID]gpu.ShaderModuleDesc),
		images:      make(map[gpu.ImageID]*imageShadow),
		imageViews:  make(map[gpu.ImageViewID]gpu.ImageID),
		buffers:     make(map[gpu.BufferID]*bufferShadow),
		bgLayouts:   make(map[gpu.BindGroupLayoutID]gpu.BindGroupLayoutDesc),
		pipeLayouts: make(map[gpu.PipelineLayoutID]struct{ uniform, node gpu.BindGroupLayoutID }),
		pipelines:   make(map[gpu.ComputePipelineID]gpu.ComputePipelineDesc),
		bindGroups:  make(map[gpu.BindGroupID]gpu.BindGroupDesc),
		queryPools:  make(map[gpu.QueryPoolID][]uint64),
	}
}

func (r *resources) allocID() uint64 {
	return r.nextID.Add(1)
}

func (d *Device) CreateShaderModule(desc gpu.ShaderModuleDesc) (gpu.ShaderModuleID, error) {
	if !d.IsInitialized() {
		return 0, ErrNotInitialized
	}
	// TODO: When wgpu exposes CreateShaderModule from SPIR-V words,
	// call it here and store the real core.ShaderModuleID instead.
	d.res.mu.Lock()
	defer d.res.mu.Unlock()
	id := gpu.ShaderModuleID(d.res.allocID())
	d.res.shaders[id] = desc
	return id, nil
}

func (d *Device) DestroyShaderModule(id gpu.ShaderModuleID) {
	d.res.mu.Lock()
	defer d.res.mu.Unlock()
	delete(d.res.shaders, id)
}

func (d *Device) CreateBuffer(label string, size uint64, hostVisible bool) (gpu.BufferID, error) {
	if !d.IsInitialized() {
		return 0, ErrNotInitialized
	}
	if size == 0 {
		return 0, fmt.Errorf("wgpu: zero-size buffer %q", label)
	}
	// TODO: When wgpu exposes a mapped-buffer creation call, allocate
	// the real core.BufferID here; until then the shadow below is the
	// buffer's only backing store.
	d.res.mu.Lock()
	defer d.res.mu.Unlock()
	id := gpu.BufferID(d.res.allocID())
	d.res.buffers[id] = &bufferShadow{data: make([]byte, size)}
	return id, nil
}

func (d *Device) DestroyBuffer(id gpu.BufferID) {
	d.res.mu.Lock()
	defer d.res.mu.Unlock()
	delete(d.res.buffers, id)
}

func (d *Device) WriteBuffer(id gpu.BufferID, offset uint64, data []byte) error {
	d.res.mu.Lock()
	defer d.res.mu.Unlock()
	b, ok := d.res.buffers[id]
	if !ok {
		return fmt.Errorf("wgpu: unknown buffer %d", id)
	}
	if offset+uint64(len(data)) > uint64(len(b.data)) {
		return fmt.Errorf("wgpu: write out of bounds on buffer %d", id)
	}
	copy(b.data[offset:], data)
	return nil
}

func (d *Device) ReadBuffer(id gpu.BufferID, offset uint64, dst []byte) error {
	d.res.mu.Lock()
	defer d.res.mu.Unlock()
	b, ok := d.res.buffers[id]
	if !ok {
		return fmt.Errorf("wgpu: unknown buffer %d", id)
	}
	if offset+uint64(len(dst)) > uint64(len(b.data)) {
		return fmt.Errorf("wgpu: read out of bounds on buffer %d", id)
	}
	copy(dst, b.data[offset:])
	return nil
}

func (d *Device) CreateImage(desc gpu.ImageDesc) (gpu.ImageID, error) {
	if !d.IsInitialized() {
		return 0, ErrNotInitialized
	}
	if desc.Width == 0 || desc.Height == 0 {
		return 0, fmt.Errorf("wgpu: zero-dimension image %q", desc.Label)
	}
	// TODO: When wgpu's texture-creation call is wired in, create the
	// real core.TextureID here and drop the shadow buffer.
	size := uint64(desc.Width) * uint64(desc.Height) * uint64(bytesPerPixel(desc.Format))
	d.res.mu.Lock()
	defer d.res.mu.Unlock()
	id := gpu.ImageID(d.res.allocID())
	d.res.images[id] = &imageShadow{desc: desc, data: make([]byte, size)}
	return id, nil
}

func (d *Device) DestroyImage(id gpu.ImageID) {
	d.res.mu.Lock()
	defer d.res.mu.Unlock()
	delete(d.res.images, id)
}

func (d *Device) CreateImageView(img gpu.ImageID) (gpu.ImageViewID, error) {
	d.res.mu.Lock()
	defer d.res.mu.Unlock()
	if _, ok := d.res.images[img]; !ok {
		return 0, fmt.Errorf("wgpu: unknown image %d", img)
	}
	id := gpu.ImageViewID(d.res.allocID())
	d.res.imageViews[id] = img
	return id, nil
}

func (d *Device) DestroyImageView(id gpu.ImageViewID) {
	d.res.mu.Lock()
	defer d.res.mu.Unlock()
	delete(d.res.imageViews, id)
}

// ImageMemoryRequirements reports the shadow buffer's size and a fixed
// 256-byte alignment — the alignment Vulkan implementations commonly
// report for optimal-tiling images and the same value backend/mock
// uses, pending a real core.GetTextureMemoryRequirements call.
func (d *Device) ImageMemoryRequirements(id gpu.ImageID) (size, alignment uint64) {
	d.res.mu.Lock()
	defer d.res.mu.Unlock()
	img, ok := d.res.images[id]
	if !ok {
		return 0, 1
	}
	return uint64(len(img.data)), 256
}

func (d *Device) BindImageMemory(id gpu.ImageID, offset uint64) {
	d.res.mu.Lock()
	defer d.res.mu.Unlock()
	if img, ok := d.res.images[id]; ok {
		img.offset = offset
	}
}

func (d *Device) CreateBindGroupLayout(desc gpu.BindGroupLayoutDesc) (gpu.BindGroupLayoutID, error) {
	// TODO: When wgpu is ready, create the real core.BindGroupLayoutID
	// from desc.Entries.
	d.res.mu.Lock()
	defer d.res.mu.Unlock()
	id := gpu.BindGroupLayoutID(d.res.allocID())
	d.res.bgLayouts[id] = desc
	return id, nil
}

func (d *Device) DestroyBindGroupLayout(id gpu.BindGroupLayoutID) {
	d.res.mu.Lock()
	defer d.res.mu.Unlock()
	delete(d.res.bgLayouts, id)
}

func (d *Device) CreatePipelineLayout(uniform, node gpu.BindGroupLayoutID) (gpu.PipelineLayoutID, error) {
	d.res.mu.Lock()
	defer d.res.mu.Unlock()
	id := gpu.PipelineLayoutID(d.res.allocID())
	d.res.pipeLayouts[id] = struct{ uniform, node gpu.BindGroupLayoutID }{uniform, node}
	return id, nil
}

func (d *Device) DestroyPipelineLayout(id gpu.PipelineLayoutID) {
	d.res.mu.Lock()
	defer d.res.mu.Unlock()
	delete(d.res.pipeLayouts, id)
}

func (d *Device) CreateComputePipeline(desc gpu.ComputePipelineDesc) (gpu.ComputePipelineID, error) {
	// TODO: When wgpu exposes core.CreateComputePipeline, call it here
	// with desc.Module's real shader handle and desc.Layout.
	d.res.mu.Lock()
	defer d.res.mu.Unlock()
	if _, ok := d.res.shaders[desc.Module]; !ok {
		return 0, fmt.Errorf("wgpu: unknown shader module %d", desc.Module)
	}
	id := gpu.ComputePipelineID(d.res.allocID())
	d.res.pipelines[id] = desc
	return id, nil
}

func (d *Device) DestroyComputePipeline(id gpu.ComputePipelineID) {
	d.res.mu.Lock()
	defer d.res.mu.Unlock()
	delete(d.res.pipelines, id)
}

func (d *Device) CreateBindGroup(desc gpu.BindGroupDesc) (gpu.BindGroupID, error) {
	// TODO: When wgpu is ready, bind desc.Entries' buffers/image views
	// to the layout via core.CreateBindGroup.
	d.res.mu.Lock()
	defer d.res.mu.Unlock()
	id := gpu.BindGroupID(d.res.allocID())
	d.res.bindGroups[id] = desc
	return id, nil
}

func (d *Device) DestroyBindGroup(id gpu.BindGroupID) {
	d.res.mu.Lock()
	defer d.res.mu.Unlock()
	delete(d.res.bindGroups, id)
}

func (d *Device) CreateQueryPool(count uint32) (gpu.QueryPoolID, error) {
	d.res.mu.Lock()
	defer d.res.mu.Unlock()
	id := gpu.QueryPoolID(d.res.allocID())
	d.res.queryPools[id] = make([]uint64, count)
	return id, nil
}

func (d *Device) DestroyQueryPool(id gpu.QueryPoolID) {
	d.res.mu.Lock()
	defer d.res.mu.Unlock()
	delete(d.res.queryPools, id)
}

func (d *Device) QueryResults(pool gpu.QueryPoolID, count uint32) ([]uint64, error) {
	d.res.mu.Lock()
	defer d.res.mu.Unlock()
	results, ok := d.res.queryPools[pool]
	if !ok {
		return nil, fmt.Errorf("wgpu: unknown query pool %d", pool)
	}
	if int(count) > len(results) {
		count = uint32(len(results))
	}
	out := make([]uint64, count)
	copy(out, results[:count])
	return out, nil
}

// BeginCommandBuffer returns a new encoder. There is no real command
// buffer to submit yet (doc.go), so every recorded command applies
// immediately to the shadow buffers/images, as backend/mock's encoder
// does.
func (d *Device) BeginCommandBuffer() gpu.CommandEncoder {
	return &encoder{d: d}
}

func (d *Device) Submit(enc gpu.CommandEncoder) error {
	if !d.IsInitialized() {
		return ErrNotInitialized
	}
	// TODO: When wgpu exposes command-buffer submission, finish
	// recording here and call core.QueueSubmit(d.queue, ...).
	return nil
}

func (d *Device) WaitIdle(timeoutNanos int64) error {
	if !d.IsInitialized() {
		return ErrNotInitialized
	}
	// TODO: When wgpu exposes fence/idle waiting, block on it here.
	return nil
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
