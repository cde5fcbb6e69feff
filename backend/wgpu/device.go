// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package wgpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// ErrNilProvider is returned when a nil DeviceProvider is passed.
var ErrNilProvider = errors.New("wgpu: nil DeviceProvider")

// NewWithProvider creates a backend on a shared GPU device from a host
// application. The provider must also expose HAL types via HalDevice()
// and HalQueue(); see SetDeviceProvider.
func NewWithProvider(provider gpucontext.DeviceProvider) (*Backend, error) {
	if provider == nil {
		return nil, ErrNilProvider
	}
	b := New()
	if err := b.SetDeviceProvider(provider); err != nil {
		return nil, err
	}
	return b, nil
}

// SetDeviceProvider switches the backend to a shared GPU device from
// an external provider (e.g., gogpu). The provider must implement
// HalDevice() any and HalQueue() any returning hal.Device and
// hal.Queue.
//
// Switching devices tears down any prepared pipeline and field
// buffers; call Prepare again before the next Compute.
func (b *Backend) SetDeviceProvider(provider any) error {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return fmt.Errorf("wgpu: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return fmt.Errorf("wgpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return fmt.Errorf("wgpu: provider HalQueue is not hal.Queue")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// Resources created on the old device do not carry over.
	if b.device != nil {
		b.destroyFieldBuffers()
		b.destroyPipeline()
	}
	if !b.externalDevice && b.device != nil {
		b.device.Destroy()
	}
	if b.instance != nil {
		b.instance.Destroy()
		b.instance = nil
	}

	b.device = device
	b.queue = queue
	b.externalDevice = true

	slogger().Debug("wgpu: switched to shared GPU device")
	return nil
}

// initStandalone creates a standalone Vulkan device for compute-only
// use. This is the fallback path when no external device is provided
// via SetDeviceProvider. Caller holds mu.
func (b *Backend) initStandalone() error {
	halBackend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return fmt.Errorf("vulkan backend not available")
	}
	instance, err := halBackend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}
	b.instance = instance

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		b.instance = nil
		return fmt.Errorf("no GPU adapters found")
	}

	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		b.instance = nil
		return fmt.Errorf("open device: %w", err)
	}
	b.device = openDev.Device
	b.queue = openDev.Queue
	b.externalDevice = false

	slogger().Info("wgpu: GPU initialized (standalone)", "adapter", selected.Info.Name)
	return nil
}
