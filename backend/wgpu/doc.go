// Package wgpu implements internal/gpu.Device against a real GPU
// adapter using gogpu/wgpu, the Pure Go WebGPU implementation that
// runs over Vulkan, Metal or DX12 depending on platform.
//
// # Architecture
//
// Device acquisition follows the standard WebGPU bring-up sequence:
// an Instance is created, a high-performance adapter is requested from
// it, a logical Device and its Queue are derived from the adapter.
// Init performs all four steps; Close releases them in reverse order.
//
//	d := wgpu.New()
//	if err := d.Init(); err != nil {
//	    log.Fatal(err)
//	}
//	defer d.Close()
//
//	g := pipe.NewGraph(nil, d, nil)
//	...
//
// # Current Status
//
// Instance/adapter/device/queue acquisition (device.go) issues real
// gogpu/wgpu calls. Resource creation — shader modules, images,
// buffers, pipelines, bind groups, and command dispatch (resources.go,
// encoder.go) — runs against an in-memory shadow store rather than
// real GPU handles: this module's vendored gogpu/wgpu version does not
// yet expose mapped-buffer creation, texture readback, compute
// pipeline creation, or command-buffer submission. Each stub carries a
// TODO naming the call it will issue once that surface lands upstream.
// Until then, a graph run against this backend exercises every byte of
// data flow (ROI negotiation, allocation, uniform payloads, copies)
// faithfully except the kernel body itself, which the shadow does not
// execute.
//
// backend/mock plays the same role purely in-process for tests that
// don't need a real adapter at all.
package wgpu
