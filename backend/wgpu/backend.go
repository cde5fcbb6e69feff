// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package wgpu

import (
	_ "embed"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/relief"
	"github.com/gogpu/relief/backend"
	"github.com/gogpu/relief/tilecache"
)

//go:embed shaders/heightfield.wgsl
var heightfieldWGSL string

const (
	// wgEdge is the workgroup edge length: 16x16 threads cover a
	// 16x16 texel block, matching @workgroup_size in heightfield.wgsl.
	wgEdge = 16

	// fenceTimeout bounds the wait for one tile dispatch.
	fenceTimeout = 5 * time.Second
)

func init() {
	backend.Register(backend.BackendWGPU, func() backend.TileBackend {
		return New()
	})
}

// slogger returns the shared library logger (see relief.Logger).
func slogger() *slog.Logger { return relief.Logger() }

// Backend computes height tiles on the GPU. Prepare compiles the
// heightfield kernel, uploads the flattened field once, and sizes a
// float32 arena buffer with one slot per cache entry; each Compute is
// then a single dispatch writing tileSize*tileSize samples into its
// slot.
//
// The device comes from SetDeviceProvider when embedding into a host
// application, or from a standalone Vulkan instance created lazily at
// the first Prepare. Dispatches wait for completion, so work finishes
// in submission order; the per-frame compute budget lives in vtex,
// which bounds how many dispatches one frame absorbs.
type Backend struct {
	mu sync.Mutex

	instance       hal.Instance
	device         hal.Device
	queue          hal.Queue
	externalDevice bool

	module     hal.ShaderModule
	bgLayout   hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.ComputePipeline

	entriesBuf  hal.Buffer
	pointsBuf   hal.Buffer
	childrenBuf hal.Buffer
	paramsBuf   hal.Buffer
	arenaBuf    hal.Buffer

	tileSize      int
	slots         int
	entryCount    uint32
	defaultHeight float32
	prepared      bool
}

// Interface compliance check.
var _ backend.TileBackend = (*Backend)(nil)

// New creates a backend with no device attached. The first Prepare
// creates a standalone Vulkan device unless SetDeviceProvider supplied
// a shared one before.
func New() *Backend {
	return &Backend{}
}

// Name returns the backend identifier.
func (b *Backend) Name() string { return backend.BackendWGPU }

// Prepare compiles the kernel if needed, uploads the field's entries,
// points and child indices, and allocates the slot arena. Calling
// Prepare again re-uploads wholesale; previous slot contents are
// discarded.
func (b *Backend) Prepare(field *relief.Field, tileSize, slots int) error {
	if tileSize <= 0 || slots <= 0 {
		return fmt.Errorf("wgpu: %w: tileSize=%d slots=%d", backend.ErrInvalidConfig, tileSize, slots)
	}
	if field == nil {
		return fmt.Errorf("wgpu: %w: nil field", backend.ErrInvalidConfig)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.device == nil {
		if err := b.initStandalone(); err != nil {
			return fmt.Errorf("wgpu: %w: %v", backend.ErrBackendNotAvailable, err)
		}
	}
	if b.pipeline == nil {
		if err := b.initPipeline(); err != nil {
			return fmt.Errorf("wgpu: init pipeline: %w", err)
		}
	}

	b.destroyFieldBuffers()
	if err := b.uploadField(field, tileSize, slots); err != nil {
		b.destroyFieldBuffers()
		return err
	}

	b.tileSize = tileSize
	b.slots = slots
	b.entryCount = uint32(field.Len())
	b.defaultHeight = float32(field.DefaultHeight())
	b.prepared = true

	slogger().Debug("wgpu: field prepared",
		"tileSize", tileSize, "slots", slots, "entries", field.Len())
	return nil
}

// initPipeline compiles the WGSL kernel to SPIR-V and builds the
// compute pipeline. Runs once per device.
func (b *Backend) initPipeline() error {
	spirvBytes, err := naga.Compile(heightfieldWGSL)
	if err != nil {
		return fmt.Errorf("compile shader: %w", err)
	}
	spirv := make([]uint32, len(spirvBytes)/4)
	for i := range spirv {
		spirv[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}

	module, err := b.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "relief_heightfield",
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return fmt.Errorf("create shader module: %w", err)
	}
	b.module = module

	bgLayout, err := b.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   "relief_heightfield_bgl",
		Entries: kernelBindGroupLayoutEntries(),
	})
	if err != nil {
		b.destroyPipeline()
		return fmt.Errorf("create bind group layout: %w", err)
	}
	b.bgLayout = bgLayout

	pipeLayout, err := b.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "relief_heightfield_pl",
		BindGroupLayouts: []hal.BindGroupLayout{bgLayout},
	})
	if err != nil {
		b.destroyPipeline()
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	b.pipeLayout = pipeLayout

	pipeline, err := b.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  "relief_heightfield",
		Layout: pipeLayout,
		Compute: hal.ComputeState{
			Module:     module,
			EntryPoint: "main",
		},
	})
	if err != nil {
		b.destroyPipeline()
		return fmt.Errorf("create compute pipeline: %w", err)
	}
	b.pipeline = pipeline

	slogger().Debug("wgpu: pipeline created", "spirv_words", len(spirv))
	return nil
}

// kernelBindGroupLayoutEntries matches the @group(0) @binding(N)
// annotations in heightfield.wgsl exactly.
func kernelBindGroupLayoutEntries() []gputypes.BindGroupLayoutEntry {
	uniform := func(binding uint32) gputypes.BindGroupLayoutEntry {
		return gputypes.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
		}
	}
	storageRO := func(binding uint32) gputypes.BindGroupLayoutEntry {
		return gputypes.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage},
		}
	}
	storageRW := func(binding uint32) gputypes.BindGroupLayoutEntry {
		return gputypes.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage},
		}
	}

	// @binding(0) uniform params
	// @binding(1) storage(read) entries
	// @binding(2) storage(read) points
	// @binding(3) storage(read) children
	// @binding(4) storage(read_write) arena
	return []gputypes.BindGroupLayoutEntry{
		uniform(0), storageRO(1), storageRO(2), storageRO(3), storageRW(4),
	}
}

// uploadField creates the field and arena buffers and writes the
// packed field data.
func (b *Backend) uploadField(field *relief.Field, tileSize, slots int) error {
	entriesData := packEntries(field)
	pointsData := packPoints(field)
	childrenData := packChildren(field)

	storageCPU := gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst
	uniformCPU := gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst
	storageOut := gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc

	arenaSize := uint64(slots) * uint64(tileSize) * uint64(tileSize) * 4

	type bufSpec struct {
		target *hal.Buffer
		label  string
		size   uint64
		usage  gputypes.BufferUsage
		data   []byte
	}
	specs := []bufSpec{
		{&b.entriesBuf, "relief_entries", uint64(len(entriesData)), storageCPU, entriesData},
		{&b.pointsBuf, "relief_points", uint64(len(pointsData)), storageCPU, pointsData},
		{&b.childrenBuf, "relief_children", uint64(len(childrenData)), storageCPU, childrenData},
		{&b.paramsBuf, "relief_params", gpuParamsSize, uniformCPU, nil},
		{&b.arenaBuf, "relief_arena", arenaSize, storageOut, nil},
	}

	for _, s := range specs {
		size := s.size
		// Zero-sized bindings are invalid; a childless field still
		// needs a live children buffer.
		if size < 4 {
			size = 4
		}
		buf, err := b.device.CreateBuffer(&hal.BufferDescriptor{
			Label: s.label,
			Size:  size,
			Usage: s.usage,
		})
		if err != nil {
			return fmt.Errorf("wgpu: create %s buffer: %w", s.label, err)
		}
		*s.target = buf
		if len(s.data) > 0 {
			b.queue.WriteBuffer(buf, 0, s.data)
		}
	}
	return nil
}

// Compute dispatches the kernel for one tile and waits for it to
// finish, so a nil return means the slot holds the samples.
func (b *Backend) Compute(key relief.TileKey, footprint relief.Rect, slot tilecache.Slot) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.prepared {
		return fmt.Errorf("wgpu: %w", backend.ErrNotPrepared)
	}
	if slot < 0 || int(slot) >= b.slots {
		return fmt.Errorf("wgpu: %w: slot=%d slots=%d", backend.ErrSlotOutOfRange, slot, b.slots)
	}

	ts := b.tileSize
	params := gpuParams{
		FootprintMinX: float32(footprint.Min.X),
		FootprintMinY: float32(footprint.Min.Y),
		TexelStepX:    float32(footprint.Width() / float64(ts)),
		TexelStepY:    float32(footprint.Height() / float64(ts)),
		TileSize:      uint32(ts),
		Slot:          uint32(slot),
		EntryCount:    b.entryCount,
		DefaultHeight: b.defaultHeight,
	}
	b.queue.WriteBuffer(b.paramsBuf, 0, params.toBytes())

	res := &dispatchResources{device: b.device}
	defer res.cleanup()

	if err := b.encodeTileDispatch(res); err != nil {
		return err
	}
	if err := b.submitAndWait(res); err != nil {
		return err
	}

	slogger().Debug("wgpu: tile computed", "key", key, "slot", slot)
	return nil
}

// encodeTileDispatch records the single compute pass for one tile.
func (b *Backend) encodeTileDispatch(res *dispatchResources) error {
	entry := func(binding uint32, buf hal.Buffer) gputypes.BindGroupEntry {
		return gputypes.BindGroupEntry{
			Binding: binding,
			Resource: gputypes.BufferBinding{
				Buffer: buf.NativeHandle(),
				Offset: 0,
				Size:   0, // 0 = entire buffer
			},
		}
	}

	bg, err := b.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "relief_heightfield_bg",
		Layout: b.bgLayout,
		Entries: []gputypes.BindGroupEntry{
			entry(0, b.paramsBuf),
			entry(1, b.entriesBuf),
			entry(2, b.pointsBuf),
			entry(3, b.childrenBuf),
			entry(4, b.arenaBuf),
		},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create bind group: %w", err)
	}
	res.bindGroups = append(res.bindGroups, bg)

	encoder, err := b.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "relief_heightfield",
	})
	if err != nil {
		return fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("relief_heightfield"); err != nil {
		return fmt.Errorf("wgpu: begin encoding: %w", err)
	}

	wg := workgroupCount(b.tileSize)
	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{
		Label: "relief_heightfield",
	})
	pass.SetPipeline(b.pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.Dispatch(wg, wg, 1)
	pass.End()

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("wgpu: end encoding: %w", err)
	}
	res.cmdBuf = cmdBuf
	return nil
}

// dispatchResources tracks per-dispatch GPU resources for cleanup.
type dispatchResources struct {
	device     hal.Device
	bindGroups []hal.BindGroup
	cmdBuf     hal.CommandBuffer
	fence      hal.Fence
}

// cleanup destroys all tracked per-dispatch resources.
func (r *dispatchResources) cleanup() {
	if r.fence != nil {
		r.device.DestroyFence(r.fence)
	}
	if r.cmdBuf != nil {
		r.device.FreeCommandBuffer(r.cmdBuf)
	}
	for _, g := range r.bindGroups {
		r.device.DestroyBindGroup(g)
	}
}

// submitAndWait submits the command buffer and waits for completion.
func (b *Backend) submitAndWait(res *dispatchResources) error {
	fence, err := b.device.CreateFence()
	if err != nil {
		return fmt.Errorf("wgpu: create fence: %w", err)
	}
	res.fence = fence

	if err := b.queue.Submit([]hal.CommandBuffer{res.cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("wgpu: submit: %w", err)
	}

	ok, err := b.device.Wait(fence, 1, fenceTimeout)
	if err != nil {
		return fmt.Errorf("wgpu: wait for GPU: %w", err)
	}
	if !ok {
		return fmt.Errorf("wgpu: GPU timeout after %v", fenceTimeout)
	}
	return nil
}

// ArenaBuffer returns the arena storage buffer holding all slots, for
// hosts that bind the tile data into their own render pipelines. Valid
// until the next Prepare or Close.
func (b *Backend) ArenaBuffer() hal.Buffer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.arenaBuf
}

// TileSize returns the prepared tile edge in texels, 0 before Prepare.
func (b *Backend) TileSize() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tileSize
}

// destroyFieldBuffers releases the per-field buffers. Caller holds mu.
func (b *Backend) destroyFieldBuffers() {
	destroy := func(buf *hal.Buffer) {
		if *buf != nil {
			b.device.DestroyBuffer(*buf)
			*buf = nil
		}
	}
	destroy(&b.entriesBuf)
	destroy(&b.pointsBuf)
	destroy(&b.childrenBuf)
	destroy(&b.paramsBuf)
	destroy(&b.arenaBuf)
	b.prepared = false
}

// destroyPipeline releases the pipeline resources. Caller holds mu.
func (b *Backend) destroyPipeline() {
	if b.pipeline != nil {
		b.device.DestroyComputePipeline(b.pipeline)
		b.pipeline = nil
	}
	if b.pipeLayout != nil {
		b.device.DestroyPipelineLayout(b.pipeLayout)
		b.pipeLayout = nil
	}
	if b.bgLayout != nil {
		b.device.DestroyBindGroupLayout(b.bgLayout)
		b.bgLayout = nil
	}
	if b.module != nil {
		b.device.DestroyShaderModule(b.module)
		b.module = nil
	}
}

// Close releases all GPU resources. A device adopted from a provider
// is not destroyed; standalone devices are.
func (b *Backend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.device != nil {
		b.destroyFieldBuffers()
		b.destroyPipeline()
	}

	if !b.externalDevice {
		if b.device != nil {
			b.device.Destroy()
		}
		if b.instance != nil {
			b.instance.Destroy()
		}
	}
	b.device = nil
	b.instance = nil
	b.queue = nil
	b.externalDevice = false
	b.tileSize = 0
	b.slots = 0
	b.prepared = false
}
