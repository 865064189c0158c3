package wgpu

import "github.com/gogpu/rawpipe/internal/gpu"

// encoder is the real backend's gpu.CommandEncoder. Every call applies
// immediately against the device's shadow resources (resources.go);
// there is no deferred command buffer to submit until wgpu exposes one.
type encoder struct {
	d *Device

	pipeline gpu.ComputePipelineID
	groups   map[uint32]gpu.BindGroupID
	pushData []byte
}

func (e *encoder) TransitionImageLayout(img gpu.ImageID, from, to gpu.ImageLayout) {
	// TODO: When wgpu exposes pipeline barriers, emit the real layout
	// transition here. The shadow store has no layout state to track.
}

func (e *encoder) CopyImageToBuffer(src gpu.ImageID, dst gpu.BufferID) {
	e.d.res.mu.Lock()
	img, ok := e.d.res.images[src]
	if !ok {
		e.d.res.mu.Unlock()
		return
	}
	buf, ok := e.d.res.buffers[dst]
	e.d.res.mu.Unlock()
	if !ok {
		return
	}
	n := len(img.data)
	if n > len(buf.data) {
		n = len(buf.data)
	}
	copy(buf.data, img.data[:n])
}

func (e *encoder) CopyBufferToImage(src gpu.BufferID, dst gpu.ImageID) {
	e.d.res.mu.Lock()
	buf, ok := e.d.res.buffers[src]
	if !ok {
		e.d.res.mu.Unlock()
		return
	}
	img, ok := e.d.res.images[dst]
	e.d.res.mu.Unlock()
	if !ok {
		return
	}
	n := len(buf.data)
	if n > len(img.data) {
		n = len(img.data)
	}
	copy(img.data, buf.data[:n])
}

func (e *encoder) WriteTimestamp(pool gpu.QueryPoolID, index uint32) {
	// TODO: When wgpu exposes timestamp queries, write the real GPU
	// clock value here instead of a logical counter.
	e.d.res.mu.Lock()
	defer e.d.res.mu.Unlock()
	results, ok := e.d.res.queryPools[pool]
	if !ok || int(index) >= len(results) {
		return
	}
	results[index] = uint64(index) + 1
}

func (e *encoder) BindPipeline(pipeline gpu.ComputePipelineID) {
	e.pipeline = pipeline
}

func (e *encoder) BindGroup(set uint32, group gpu.BindGroupID) {
	if e.groups == nil {
		e.groups = make(map[uint32]gpu.BindGroupID)
	}
	e.groups[set] = group
}

func (e *encoder) PushConstants(data []byte) {
	e.pushData = append([]byte(nil), data...)
}

func (e *encoder) WriteBuffer(buf gpu.BufferID, offset uint64, data []byte) {
	e.d.res.mu.Lock()
	defer e.d.res.mu.Unlock()
	b, ok := e.d.res.buffers[buf]
	if !ok || offset+uint64(len(data)) > uint64(len(b.data)) {
		return
	}
	copy(b.data[offset:], data)
}

// Dispatch records the workgroup counts but does not execute the bound
// kernel: compute-pipeline execution requires the real wgpu dispatch
// call this module's vendored bindings don't yet expose (doc.go).
func (e *encoder) Dispatch(groupsX, groupsY, groupsZ uint32) {
	// TODO: When wgpu exposes core.CmdDispatch, issue it against
	// e.pipeline and e.groups here.
}
