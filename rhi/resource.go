// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package rhi

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/kestrelgpu/rhi/driver"
)

// Handle is an opaque, refcounted reference to a device resource.
// It is owned by the submitter and retained by every CommandHandle
// that records a reference to it, via Retain/Release, until the
// retaining command handle's fence signals. Destroying a Handle
// while its refcount is above zero defers the actual backend
// destruction until the last referencing CommandHandle recycles
// (see requestDestroy/Release).
type Handle struct {
	kind    Kind
	refs    int32
	pending atomic.Bool
	mu      sync.Mutex
	obj     interface{ destroy() }
}

func newHandle(kind Kind, obj interface{ destroy() }) *Handle {
	return &Handle{kind: kind, obj: obj}
}

// Kind reports the kind of resource this handle refers to.
func (h *Handle) Kind() Kind { return h.kind }

// retain increments the refcount. Called when a CommandHandle
// records a reference to the resource (e.g., binding it as a vertex
// buffer, an SRV, a render target).
func (h *Handle) retain() { atomic.AddInt32(&h.refs, 1) }

// release decrements the refcount and performs the deferred destroy
// if it reaches zero and destruction was requested. Called when the
// retaining CommandHandle recycles (its fence has signaled).
func (h *Handle) release() {
	if atomic.AddInt32(&h.refs, -1) == 0 && h.pending.Load() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.obj != nil {
			h.obj.destroy()
			h.obj = nil
		}
	}
}

// requestDestroy marks the handle for destruction. If no
// CommandHandle currently retains it, the backend object is
// destroyed immediately; otherwise destruction happens in release
// once the last reference drops.
func (h *Handle) requestDestroy() {
	h.pending.Store(true)
	if atomic.LoadInt32(&h.refs) == 0 {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.obj != nil {
			h.obj.destroy()
			h.obj = nil
		}
	}
}

// Buffer is a GPU buffer resource: a device allocation, its size and
// usage flags, and whether it is host-mappable.
type Buffer struct {
	*Handle
	buf   driver.Buffer
	size  int64
	usage driver.Usage
}

func (b *Buffer) destroy() { b.buf.Destroy() }

// NewBuffer creates a Buffer of the given size and usage.
// Mappable buffers are host-visible; Bytes returns their backing
// storage.
func (dev *Device) NewBuffer(size int64, mappable bool, usage driver.Usage) (*Buffer, error) {
	buf, err := dev.gpu.NewBuffer(size, mappable, usage)
	if err != nil {
		return nil, fmt.Errorf("rhi: NewBuffer: %w", err)
	}
	b := &Buffer{buf: buf, size: size, usage: usage}
	b.Handle = newHandle(KindBuffer, b)
	return b, nil
}

// Bytes returns the buffer's host-visible storage, or nil if it is
// not mappable.
func (b *Buffer) Bytes() []byte { return b.buf.Bytes() }

// Cap returns the buffer's backing capacity, which may exceed the
// size requested at creation.
func (b *Buffer) Cap() int64 { return b.buf.Cap() }

// Destroy requests destruction of the buffer. If the buffer is still
// referenced by an in-flight CommandHandle, the backend object is
// not freed until that handle's fence signals.
func (b *Buffer) Destroy() { b.requestDestroy() }

// TexelView is a typed view of a Buffer range, bound through
// uniform- or storage-texel descriptors. It references the buffer it
// was created from, so a Buffer whose destruction was requested
// survives until its last texel view goes away.
type TexelView struct {
	*Handle
	buf *Buffer
	bv  driver.BufferView
}

func (v *TexelView) destroy() {
	v.bv.Destroy()
	v.buf.Handle.release()
}

// NewTexelView creates a typed view of a range of b.
func (dev *Device) NewTexelView(b *Buffer, pf driver.PixelFmt, off, size int64) (*TexelView, error) {
	bv, err := dev.gpu.NewBufferView(b.buf, pf, off, size)
	if err != nil {
		return nil, fmt.Errorf("rhi: NewTexelView: %w", err)
	}
	v := &TexelView{buf: b, bv: bv}
	v.Handle = newHandle(KindView, v)
	b.Handle.retain()
	return v, nil
}

// Destroy requests destruction of the texel view, deferred per
// Handle semantics if still referenced.
func (v *TexelView) Destroy() { v.requestDestroy() }

// AccelStruct is a top-level acceleration structure, bound through
// DAccelStruct descriptors. The RHI only stores and binds it;
// building its contents is the ray-tracing layer's concern.
type AccelStruct struct {
	*Handle
	as driver.AccelStruct
}

func (a *AccelStruct) destroy() { a.as.Destroy() }

// NewAccelStruct creates a top-level acceleration structure with
// size bytes of backing storage.
func (dev *Device) NewAccelStruct(size int64) (*AccelStruct, error) {
	as, err := dev.gpu.NewAccelStruct(size)
	if err != nil {
		return nil, fmt.Errorf("rhi: NewAccelStruct: %w", err)
	}
	a := &AccelStruct{as: as}
	a.Handle = newHandle(KindAccelStruct, a)
	return a, nil
}

// Destroy requests destruction of the acceleration structure,
// deferred per Handle semantics if still referenced.
func (a *AccelStruct) Destroy() { a.requestDestroy() }

// Sampler is an immutable filter/address/LOD/compare configuration.
type Sampler struct {
	*Handle
	splr driver.Sampler
}

func (s *Sampler) destroy() { s.splr.Destroy() }

// NewSampler creates a Sampler from the given Sampling state.
func (dev *Device) NewSampler(spln *driver.Sampling) (*Sampler, error) {
	splr, err := dev.gpu.NewSampler(spln)
	if err != nil {
		return nil, fmt.Errorf("rhi: NewSampler: %w", err)
	}
	s := &Sampler{splr: splr}
	s.Handle = newHandle(KindSampler, s)
	return s, nil
}

// Destroy requests destruction of the sampler, deferred per Handle
// semantics if still referenced.
func (s *Sampler) Destroy() { s.requestDestroy() }

// View is a (texture, subresource range, interpretation) tuple. Its
// Format may differ from the owning Texture's format (e.g. a
// typeless depth format viewed as a depth-read SRV vs. a
// depth-stencil DSV).
type View struct {
	*Handle
	tex   *Texture
	iv    driver.ImageView
	typ   driver.ViewType
	layer int
	layers int
	level int
	levels int
}

// destroy releases the backend view and drops the reference the
// view holds on its texture, which may complete the texture's own
// deferred destruction.
func (v *View) destroy() {
	v.iv.Destroy()
	v.tex.Handle.release()
}

// Destroy requests destruction of the view. The owning Texture
// outlives it: views reference-count their texture, so a Texture
// whose destruction was requested is only released once its last
// view goes away.
func (v *View) Destroy() {
	v.tex.forgetView(v)
	v.requestDestroy()
}

// Texture is a GPU image: format, extent, mip count, array layers,
// sample count and usage, plus the current layout of each
// subresource and the set of RenderTargets that reference any of its
// views (a weak back-reference used to invalidate those RTs when the
// texture is destroyed; see rendertarget.go).
type Texture struct {
	*Handle
	img     driver.Image
	format  driver.PixelFmt
	extent  driver.Dim3D
	layers  int
	levels  int
	samples int
	usage   driver.Usage

	mu      sync.Mutex
	layout  map[subresource]driver.Layout
	views   map[*View]struct{}
	rts     map[*renderTarget]struct{}
}

type subresource struct{ layer, level int }

func (t *Texture) destroy() { t.img.Destroy() }

// NewTexture creates a Texture with the given format, extent, mip
// count, array layer count, sample count and usage.
func (dev *Device) NewTexture(pf driver.PixelFmt, extent driver.Dim3D, layers, levels, samples int, usage driver.Usage) (*Texture, error) {
	img, err := dev.gpu.NewImage(pf, extent, layers, levels, samples, usage)
	if err != nil {
		return nil, fmt.Errorf("rhi: NewTexture: %w", err)
	}
	t := &Texture{
		img:     img,
		format:  pf,
		extent:  extent,
		layers:  layers,
		levels:  levels,
		samples: samples,
		usage:   usage,
		layout:  make(map[subresource]driver.Layout),
		views:   make(map[*View]struct{}),
		rts:     make(map[*renderTarget]struct{}),
	}
	t.Handle = newHandle(KindTexture, t)
	return t, nil
}

// NewView creates a new View into t.
func (t *Texture) NewView(typ driver.ViewType, layer, layers, level, levels int) (*View, error) {
	iv, err := t.img.NewView(typ, layer, layers, level, levels)
	if err != nil {
		return nil, fmt.Errorf("rhi: NewView: %w", err)
	}
	v := &View{tex: t, iv: iv, typ: typ, layer: layer, layers: layers, level: level, levels: levels}
	v.Handle = newHandle(KindView, v)
	t.Handle.retain()
	t.mu.Lock()
	t.views[v] = struct{}{}
	t.mu.Unlock()
	return v, nil
}

func (t *Texture) forgetView(v *View) {
	t.mu.Lock()
	delete(t.views, v)
	t.mu.Unlock()
}

// layoutOf returns the texture's recorded layout for the given
// subresource, defaulting to LUndefined.
func (t *Texture) layoutOf(layer, level int) driver.Layout {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.layout[subresource{layer, level}]
}

// setLayout records the most-recently-recorded layout transition for
// the given subresource from the owning command stream's viewpoint.
// Only the render thread calls this, so no synchronization would
// strictly be required, but the mutex also guards views/rts which
// may be read by a concurrent Destroy.
func (t *Texture) setLayout(layer, level int, l driver.Layout) {
	t.mu.Lock()
	t.layout[subresource{layer, level}] = l
	t.mu.Unlock()
}

// registerRT adds a weak back-reference from t to rt, so that
// destroying t can invalidate rt.
func (t *Texture) registerRT(rt *renderTarget) {
	t.mu.Lock()
	t.rts[rt] = struct{}{}
	t.mu.Unlock()
}

func (t *Texture) unregisterRT(rt *renderTarget) {
	t.mu.Lock()
	delete(t.rts, rt)
	t.mu.Unlock()
}

// Destroy requests destruction of the texture. Any RenderTarget that
// references a view of this texture is invalidated first, as
// required by spec.md §4.5/§9.
func (t *Texture) Destroy() {
	t.mu.Lock()
	rts := make([]*renderTarget, 0, len(t.rts))
	for rt := range t.rts {
		rts = append(rts, rt)
	}
	t.mu.Unlock()
	for _, rt := range rts {
		rt.invalidate()
	}
	t.requestDestroy()
}
