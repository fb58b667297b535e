// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package rhi

import (
	"fmt"
	"log"
	"os"

	"github.com/kestrelgpu/rhi/driver"
	"github.com/kestrelgpu/rhi/internal/queue"
)

// defaultQueueCapacity bounds the render-thread dispatch queue when
// Options.QueueCapacity is left at zero.
const defaultQueueCapacity = 256

// Device owns an open driver.GPU and every piece of shared state the
// orchestration layer builds on top of it: the render-thread dispatch
// queue, the pipeline-layout cache and the shader cache. Everything
// that ultimately calls into the backend — command-buffer recording,
// resource creation, pipeline compilation — is expected to run on the
// single goroutine that calls Run, reached either directly or via
// Dispatch/DispatchSync; Device itself does not spawn that goroutine,
// matching the source engine's model of a single render thread that
// the application drives explicitly (spec.md §5).
type Device struct {
	drv  driver.Driver
	gpu  driver.GPU
	opts Options

	queue   *queue.Queue
	layouts *LayoutCache
	shaders *ShaderCache
	pcache  driver.PipelineCache
}

// Open initializes drv and wraps the resulting GPU in a Device. The
// caller retains ownership of drv and is responsible for calling
// Close.
//
// Options.PreferGPUType is accepted for forward compatibility with
// backends that can enumerate multiple physical devices, but the
// driver.Driver contract in this pack opens exactly one GPU per
// driver instance with no device-selection hook, so the hint is
// currently unused; device selection, if any, happens inside the
// driver implementation itself.
func Open(drv driver.Driver, opts Options) (*Device, error) {
	if opts.EnableValidation {
		// The driver contract has no parameter for this, so the
		// request travels through an environment variable that
		// driver/vk reads when it opens.
		os.Setenv("RHI_VK_VALIDATION", "1")
	}
	gpu, err := drv.Open()
	if err != nil {
		return nil, fmt.Errorf("rhi: Open: %w", err)
	}
	cap := opts.QueueCapacity
	if cap <= 0 {
		cap = defaultQueueCapacity
	}
	dev := &Device{
		drv:     drv,
		gpu:     gpu,
		opts:    opts,
		queue:   queue.New(cap),
		layouts: NewLayoutCache(gpu),
		shaders: NewShaderCache(),
	}
	// The backend pipeline cache speeds up repeated NewPipeline
	// calls; a backend without one is not an error.
	if pc, err := gpu.NewPipelineCache(nil); err == nil {
		dev.pcache = pc
	} else {
		log.Printf("rhi: backend pipeline cache unavailable: %v", err)
	}
	return dev, nil
}

// LoadPipelineCache primes the backend pipeline cache with a blob
// previously produced by PipelineCacheData, replacing the cache
// created at Open.
func (dev *Device) LoadPipelineCache(data []byte) error {
	pc, err := dev.gpu.NewPipelineCache(data)
	if err != nil {
		return fmt.Errorf("rhi: LoadPipelineCache: %w", err)
	}
	if dev.pcache != nil {
		dev.pcache.Destroy()
	}
	dev.pcache = pc
	return nil
}

// PipelineCacheData returns a blob holding the backend pipeline
// cache's current contents, or nil if the backend has none.
func (dev *Device) PipelineCacheData() ([]byte, error) {
	if dev.pcache == nil {
		return nil, nil
	}
	data, err := dev.pcache.Data()
	if err != nil {
		return nil, fmt.Errorf("rhi: PipelineCacheData: %w", err)
	}
	return data, nil
}

// GPU exposes the underlying driver.GPU, for callers that need to
// drop down to the backend-agnostic contract directly (e.g. to query
// Limits or Features).
func (dev *Device) GPU() driver.GPU { return dev.gpu }

// Options returns the Options the Device was opened with.
func (dev *Device) Options() Options { return dev.opts }

// Layouts returns the Device's shared pipeline-layout cache.
func (dev *Device) Layouts() *LayoutCache { return dev.layouts }

// Shaders returns the Device's shader-blob cache.
func (dev *Device) Shaders() *ShaderCache { return dev.shaders }

// Run drains the Device's dispatch queue until Close is called. It
// must be called from the goroutine that is to act as the render
// thread, and must only ever be running once.
func (dev *Device) Run() { dev.queue.Run() }

// Dispatch enqueues fn to run on the render thread, without waiting
// for it to complete. It is safe to call from any goroutine.
func (dev *Device) Dispatch(fn func()) error {
	if err := dev.queue.Send(fn); err != nil {
		return fmt.Errorf("rhi: Dispatch: %w", err)
	}
	return nil
}

// TryDispatch enqueues fn without blocking, returning an error if the
// queue is currently full.
func (dev *Device) TryDispatch(fn func()) error {
	if err := dev.queue.TrySend(fn); err != nil {
		return fmt.Errorf("rhi: TryDispatch: %w", err)
	}
	return nil
}

// DispatchSync enqueues fn on the render thread and blocks until it
// has run to completion. It must never be called from the render
// thread itself.
func (dev *Device) DispatchSync(fn func()) error {
	if err := dev.queue.SendSync(fn); err != nil {
		return fmt.Errorf("rhi: DispatchSync: %w", err)
	}
	return nil
}

// Close stops accepting new dispatched work and releases the shared
// caches. The render thread's Run call returns once every already
// enqueued closure has executed. The caller must have already
// destroyed every resource, pipeline and CommandHandle created
// against this Device, and must call drv.Close itself once Close
// returns.
func (dev *Device) Close() {
	if dev.pcache != nil {
		dev.pcache.Destroy()
		dev.pcache = nil
	}
	dev.queue.Close()
}
