// Package gpu declares the device abstraction the pipe graph and its
// backends program against: buffer, image, shader module, and pipeline
// handles, plus the Device and CommandEncoder interfaces a concrete
// backend (backend/wgpu, backend/mock) implements.
//
// Nothing in this package touches a specific API; it exists so pipe can
// record and allocate against an interface instead of a transport.
package gpu
