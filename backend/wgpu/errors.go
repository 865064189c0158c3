package wgpu

import "errors"

var (
	// ErrNoGPU is returned when instance creation finds no adapter that
	// satisfies the requested power preference.
	ErrNoGPU = errors.New("wgpu: no compatible GPU adapter found")

	// ErrNotInitialized is returned by CreateShaderModule, CreateBuffer,
	// CreateImage, Submit and WaitIdle when called before Init or after
	// Close; the other Device methods do not check.
	ErrNotInitialized = errors.New("wgpu: device not initialized")

	// ErrNotImplemented marks a capability this backend does not yet
	// implement against a real wgpu handle (§Current Status in doc.go).
	ErrNotImplemented = errors.New("wgpu: not implemented")
)
