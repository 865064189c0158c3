package mock

import "github.com/gogpu/rawpipe/internal/gpu"

// encoder is the mock device's gpu.CommandEncoder. Every method runs
// immediately against the device's in-memory resources rather than
// deferring work to Submit, since there is no real queue to batch work
// for.
type encoder struct {
	d *Device

	pipeline gpu.ComputePipelineID
	groups   map[uint32]gpu.BindGroupID
	pushData []byte
}

func (e *encoder) TransitionImageLayout(img gpu.ImageID, from, to gpu.ImageLayout) {
	// The mock device has no layout state to track; real backends must
	// emit an actual barrier here.
}

func (e *encoder) CopyImageToBuffer(src gpu.ImageID, dst gpu.BufferID) {
	e.d.mu.Lock()
	img, ok := e.d.images[src]
	if !ok {
		e.d.mu.Unlock()
		return
	}
	buf, ok := e.d.buffers[dst]
	e.d.mu.Unlock()
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
	e.d.mu.Lock()
	buf, ok := e.d.buffers[src]
	if !ok {
		e.d.mu.Unlock()
		return
	}
	img, ok := e.d.images[dst]
	e.d.mu.Unlock()
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
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	results, ok := e.d.queryPools[pool]
	if !ok || int(index) >= len(results) {
		return
	}
	// The mock device has no wall clock of its own (and rawpipe's host
	// code is forbidden from calling time.Now for reproducibility in
	// tests); each call stores its own query index plus one, so a
	// start/stop pair at indices i and i+1 always produces a delta of 1.
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
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	b, ok := e.d.buffers[buf]
	if !ok || offset+uint64(len(data)) > uint64(len(b.data)) {
		return
	}
	copy(b.data[offset:], data)
}

func (e *encoder) Dispatch(groupsX, groupsY, groupsZ uint32) {
	if e.d.DispatchHook != nil {
		e.d.DispatchHook(e.pipeline, [3]uint32{groupsX, groupsY, groupsZ})
	}
}
