// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package rhi implements the Render Hardware Interface orchestration
// layer on top of package driver: command-handle and fence tracking,
// uniform-buffer paging, pipeline-layout deduplication, descriptor-set
// allocation and caching, render-target tracking, a per-recording
// dirty-state manager and the public Context recording API.
//
// Package driver supplies the backend-agnostic contract (resources,
// pipelines, command buffers); this package supplies the policy that
// sits above it — what the original engine scattered across its
// render-thread singleton, here threaded explicitly through a Device
// value instead of held in package-level globals.
package rhi

import "errors"

// Fatal errors. A Fatal error means the Device is no longer usable
// and must be closed; non-fatal errors are local to the call that
// produced them.
var (
	// ErrDeviceLost means the backend reported an unrecoverable
	// device-lost condition. It is always Fatal.
	ErrDeviceLost = errors.New("rhi: device lost")

	// ErrBadState means a Context method was called while the
	// recording state machine was not in a state that allows it
	// (e.g., Draw outside a rendering scope, BeginRendering inside
	// one). Calling Context.End twice panics instead.
	// It indicates programmer error, not a runtime condition, and
	// callers should treat it like they would a failed assertion.
	ErrBadState = errors.New("rhi: invalid recording state")

	// ErrIncompatible means BeginRendering was called with a render
	// target invalidated by a destroyed texture, or a draw was
	// attempted while a bound texture is not in the layout its
	// binding requires. A pipeline drawn into a render target with a
	// different key compiles a new variant instead of failing, and
	// vertex-buffer strides are not checked.
	ErrIncompatible = errors.New("rhi: incompatible pipeline/target state")

	// ErrNoCompiler means a pipeline cache miss occurred and no
	// Compiler was configured to produce the missing shader blobs.
	ErrNoCompiler = errors.New("rhi: pipeline cache miss with no compiler configured")

	// ErrPoolExhausted means a descriptor set could not be
	// allocated even from a freshly grown pool chain. This
	// indicates a misconfigured pool budget, not a transient
	// condition, and is always Fatal.
	ErrPoolExhausted = errors.New("rhi: descriptor pool exhausted")
)

// A Fatal error is reported to the caller by wrapping it so that
// errors.Is(err, ErrDeviceLost) (or whichever sentinel applies)
// continues to match after an fmt.Errorf("...: %w", ...) wrap.
// IsFatal reports whether err represents a condition from which the
// Device cannot recover; the caller must destroy everything it
// created against the Device and call Device.Close.
func IsFatal(err error) bool {
	return errors.Is(err, ErrDeviceLost) || errors.Is(err, ErrPoolExhausted)
}

// GPUType is a hint used to select a physical device.
type GPUType int

// GPU type preferences.
const (
	GPUAny GPUType = iota
	GPUIntegrated
	GPUDiscrete
)

// Options configures a Device at open time. It is the only
// configuration surface the RHI exposes — no config file format is
// defined, matching the rest of the pack's preference for plain Go
// struct literals over a parsed configuration layer.
type Options struct {
	// EnableValidation requests the backend's debug/validation
	// layer, when available.
	EnableValidation bool

	// PreferGPUType hints which kind of physical device to select
	// when more than one is available. Open accepts it but does not
	// act on it; see Open.
	PreferGPUType GPUType

	// DesiredSwapchainImages requests a swapchain image count. It
	// is clamped to the backend's [min, max] supported range.
	DesiredSwapchainImages int

	// NoVSync requests a non-blocking present mode (Mailbox or
	// Immediate) for swapchains created through NewViewport.
	// The zero value keeps presentation synchronized to vertical
	// sync (FIFO). Viewport.SetVSync can flip this at runtime.
	NoVSync bool

	// QueueCapacity bounds the render-thread dispatch queue. Zero
	// selects a small default.
	QueueCapacity int
}

// Kind identifies the concrete representation behind a Resource,
// re-expressing the source engine's virtual resource hierarchy as a
// tagged variant rather than an inheritance chain (see DESIGN.md).
type Kind int

// Resource kinds.
const (
	KindBuffer Kind = iota
	KindTexture
	KindView
	KindSampler
	KindAccelStruct
	KindLayout
	KindPipeline
	KindCmdHandle
)

// Resource is implemented by every RHI object that a CommandHandle
// can retain in its stagging list and that is destroyed through the
// deferred-destroy mechanism.
type Resource interface {
	// Kind reports the concrete representation of the resource.
	Kind() Kind

	// destroy releases the backend object immediately. It is only
	// ever called once every CommandHandle that retained the
	// resource has had its fence signal (see Handle.requestDestroy
	// and Handle.release).
	destroy()
}
