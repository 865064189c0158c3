// Package wgpu implements internal/gpu.Device against a real GPU
// adapter via gogpu/wgpu. Instance/adapter/device/queue acquisition
// follows the usual four-step sequence (instance -> adapter -> device
// -> queue); resource creation (shader modules, pipelines, bind
// groups, images) is not yet demonstrated anywhere the Pure Go wgpu
// bindings reach, so those calls are stubbed pending that support
// landing upstream (see doc.go).
package wgpu

import (
	"fmt"
	"log"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/core"
	"github.com/gogpu/wgpu/types"

	"github.com/gogpu/rawpipe/internal/gpu"
)

// GPUInfo describes the selected adapter.
type GPUInfo struct {
	Name       string
	Vendor     string
	DeviceType types.DeviceType
	Backend    types.Backend
	Driver     string
}

func (g *GPUInfo) String() string {
	return fmt.Sprintf("%s (%s, %s)", g.Name, g.DeviceType, g.Backend)
}

func getGPUInfo(adapterID core.AdapterID) (*GPUInfo, error) {
	info, err := core.GetAdapterInfo(adapterID)
	if err != nil {
		return nil, fmt.Errorf("failed to get adapter info: %w", err)
	}
	return &GPUInfo{
		Name:       info.Name,
		Vendor:     info.Vendor,
		DeviceType: info.DeviceType,
		Backend:    info.Backend,
		Driver:     info.Driver,
	}, nil
}

func logGPUInfo(adapterID core.AdapterID) {
	info, err := getGPUInfo(adapterID)
	if err != nil {
		log.Printf("wgpu: failed to get GPU info: %v", err)
		return
	}
	log.Printf("wgpu: GPU: %s", info.String())
	if info.Driver != "" {
		log.Printf("wgpu: Driver: %s", info.Driver)
	}
}

func createDevice(adapterID core.AdapterID, label string) (core.DeviceID, error) {
	desc := &types.DeviceDescriptor{
		Label:            label,
		RequiredFeatures: nil,
		RequiredLimits:   types.DefaultLimits(),
	}
	deviceID, err := core.RequestDevice(adapterID, desc)
	if err != nil {
		return core.DeviceID{}, fmt.Errorf("failed to create device: %w", err)
	}
	return deviceID, nil
}

func getDeviceQueue(deviceID core.DeviceID) (core.QueueID, error) {
	queueID, err := core.GetDeviceQueue(deviceID)
	if err != nil {
		return core.QueueID{}, fmt.Errorf("failed to get device queue: %w", err)
	}
	return queueID, nil
}

func releaseDevice(deviceID core.DeviceID) error {
	if deviceID.IsZero() {
		return nil
	}
	if err := core.DeviceDrop(deviceID); err != nil {
		return fmt.Errorf("failed to release device: %w", err)
	}
	return nil
}

func releaseAdapter(adapterID core.AdapterID) error {
	if adapterID.IsZero() {
		return nil
	}
	if err := core.AdapterDrop(adapterID); err != nil {
		return fmt.Errorf("failed to release adapter: %w", err)
	}
	return nil
}

// CheckDeviceLimits logs the adapter's reported limits.
func CheckDeviceLimits(deviceID core.DeviceID) error {
	limits, err := core.GetDeviceLimits(deviceID)
	if err != nil {
		return fmt.Errorf("failed to get device limits: %w", err)
	}
	log.Printf("wgpu: Max texture dimension 2D: %d", limits.MaxTextureDimension2D)
	log.Printf("wgpu: Max buffer size: %d", limits.MaxBufferSize)
	return nil
}

// Device implements internal/gpu.Device against a real wgpu adapter.
// It must be initialized with Init before use and released with Close.
type Device struct {
	mu sync.RWMutex

	instance *core.Instance
	adapter  core.AdapterID
	device   core.DeviceID
	queue    core.QueueID
	gpuInfo  *GPUInfo

	initialized bool

	res resources
}

// New returns an uninitialized Device. Call Init before use.
func New() *Device {
	return &Device{}
}

// Init acquires an instance, adapter, device and queue, preferring a
// high-performance (discrete) GPU (§internal/gpu.Backend.Init).
func (d *Device) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.initialized {
		return nil
	}

	d.instance = core.NewInstance(&gputypes.InstanceDescriptor{
		Backends: gputypes.BackendsPrimary,
		Flags:    0,
	})

	adapterID, err := d.instance.RequestAdapter(&gputypes.RequestAdapterOptions{
		PowerPreference: gputypes.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNoGPU, err)
	}
	d.adapter = adapterID
	logGPUInfo(adapterID)
	d.gpuInfo, _ = getGPUInfo(adapterID)

	deviceID, err := createDevice(adapterID, "rawpipe-device")
	if err != nil {
		return fmt.Errorf("device creation failed: %w", err)
	}
	d.device = deviceID

	queueID, err := getDeviceQueue(deviceID)
	if err != nil {
		_ = releaseDevice(deviceID)
		return fmt.Errorf("queue retrieval failed: %w", err)
	}
	d.queue = queueID

	d.res = newResources()
	d.initialized = true
	log.Println("wgpu: device initialized")
	return nil
}

// Close releases the device and adapter, in reverse acquisition order.
func (d *Device) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized {
		return
	}

	if !d.device.IsZero() {
		if err := releaseDevice(d.device); err != nil {
			log.Printf("wgpu: error releasing device: %v", err)
		}
		d.device = core.DeviceID{}
	}
	if !d.adapter.IsZero() {
		if err := releaseAdapter(d.adapter); err != nil {
			log.Printf("wgpu: error releasing adapter: %v", err)
		}
		d.adapter = core.AdapterID{}
	}

	d.instance = nil
	d.queue = core.QueueID{}
	d.gpuInfo = nil
	d.initialized = false
	log.Println("wgpu: device closed")
}

// IsInitialized reports whether Init has completed successfully.
func (d *Device) IsInitialized() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.initialized
}

// GPUInfo returns the selected adapter's description, or nil before Init.
func (d *Device) GPUInfo() *GPUInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.gpuInfo
}

// MaxWorkgroupSize reports the compute workgroup dimensions every
// reference-module kernel in this repo is authored against (§6.4's
// ceil(wd/32) dispatch arithmetic assumes this exact tile size).
// Querying it from the adapter's reported limits requires a field
// (MaxComputeWorkgroupSizeX/Y/Z) this module's vendored gputypes/wgpu
// version does not yet expose via GetDeviceLimits, so it is a fixed
// constant rather than a stubbed call, matching every WGSL kernel's
// @workgroup_size(32, 32, 1) attribute.
func (d *Device) MaxWorkgroupSize() (x, y, z uint32) {
	return 32, 32, 1
}

var _ gpu.Device = (*Device)(nil)
