// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package rhi

import (
	"fmt"
	"unsafe"

	"github.com/kestrelgpu/rhi/driver"
)

// bufID, viewID and samplerID return a stable identity for a
// resource, used to build the POD binding snapshot a descSlot is
// deduplicated by (see descriptor.go). The resource's own pointer
// value is a sufficient identity: it is stable for the resource's
// lifetime and never reused while retained by a stagging list.
func bufID(b *Buffer) uint64        { return uint64(uintptr(unsafe.Pointer(b))) }
func viewID(v *View) uint64         { return uint64(uintptr(unsafe.Pointer(v))) }
func texelID(v *TexelView) uint64   { return uint64(uintptr(unsafe.Pointer(v))) }
func accelID(a *AccelStruct) uint64 { return uint64(uintptr(unsafe.Pointer(a))) }
func samplerID(s *Sampler) uint64   { return uint64(uintptr(unsafe.Pointer(s))) }

// dirtyBit is one bit of a StateManager's dirty mask, per the set
// enumerated in spec.md §4.6.
type dirtyBit uint32

const (
	dirtyPipeline dirtyBit = 1 << iota
	dirtyRT
	dirtyTopology
	dirtyRaster
	dirtyViewport
	dirtyScissor
	dirtyVertexBufs
	dirtyIndexBuf
	dirtyDescriptors

	dirtyAll = dirtyPipeline | dirtyRT | dirtyTopology | dirtyRaster |
		dirtyViewport | dirtyScissor | dirtyVertexBufs | dirtyIndexBuf |
		dirtyDescriptors
)

const maxVertexBufs = 8

// vbufSlot is one bound vertex buffer.
type vbufSlot struct {
	buf *Buffer
	off int64
}

// ibufState is the bound index buffer.
type ibufState struct {
	buf    *Buffer
	off    int64
	format driver.IndexFmt
}

// descKind distinguishes how a bound slot is written into a
// descriptor heap copy and which image layout its resource must be
// in when the GPU reads it.
type descKind int

const (
	dkNone descKind = iota
	dkBuffer
	dkSampled
	dkStorage
	dkSampler
	dkCombined
	dkTexel
	dkAccel
)

// descSlot is the current binding of one descriptor-table slot
// (keyed by driver.Descriptor.Nr), carrying both the POD snapshot
// used for dedup (see descriptor.go) and the live resources needed to
// write the heap copy on a cache miss.
type descSlot struct {
	kind descKind
	buf  *Buffer
	off  int64
	size int64
	view *View
	tv   *TexelView
	as   *AccelStruct
	splr *Sampler
	snap binding
}

// StateManager holds the logical binding state of a single Context
// and computes the minimal command-buffer recording needed before a
// draw or dispatch, per spec.md §4.6.
type StateManager struct {
	dev *Device

	pipeline *Pipeline
	rt       RenderTarget
	topology driver.Topology
	raster   driver.RasterState
	samples  int

	viewport []driver.Viewport
	scissor  []driver.Scissor

	vbufs [maxVertexBufs]vbufSlot
	ibuf  ibufState

	descs map[int]descSlot

	dirty dirtyBit
}

func newStateManager(dev *Device) *StateManager {
	return &StateManager{dev: dev, descs: make(map[int]descSlot)}
}

// reset clears all bindings, as done at the start of a primary
// Context's recording.
func (s *StateManager) reset() {
	s.pipeline = nil
	s.rt = nil
	s.topology = 0
	s.raster = driver.RasterState{}
	s.samples = 0
	s.viewport = nil
	s.scissor = nil
	s.vbufs = [maxVertexBufs]vbufSlot{}
	s.ibuf = ibufState{}
	clear(s.descs)
	s.dirty = 0
}

// copyFrom duplicates another StateManager's bindings, as done when a
// secondary Context begins recording by inheriting its parent's state
// (spec.md §4.7's begin op).
func (s *StateManager) copyFrom(o *StateManager) {
	s.pipeline = o.pipeline
	s.rt = o.rt
	s.topology = o.topology
	s.raster = o.raster
	s.samples = o.samples
	s.viewport = append([]driver.Viewport(nil), o.viewport...)
	s.scissor = append([]driver.Scissor(nil), o.scissor...)
	s.vbufs = o.vbufs
	s.ibuf = o.ibuf
	clear(s.descs)
	for k, v := range o.descs {
		s.descs[k] = v
	}
	s.dirty = dirtyAll
}

func (s *StateManager) setPipeline(p *Pipeline) {
	if s.pipeline != p {
		s.pipeline = p
		s.dirty |= dirtyPipeline
	}
}

func (s *StateManager) setRenderTarget(rt RenderTarget) {
	if s.rt != rt {
		s.rt = rt
		s.dirty |= dirtyRT
	}
}

func (s *StateManager) setTopology(t driver.Topology) {
	if s.topology != t {
		s.topology = t
		s.dirty |= dirtyTopology
	}
}

func (s *StateManager) setRaster(r driver.RasterState) {
	if s.raster != r {
		s.raster = r
		s.dirty |= dirtyRaster
	}
}

func (s *StateManager) setViewport(vp []driver.Viewport) {
	s.viewport = vp
	s.dirty |= dirtyViewport
}

func (s *StateManager) setScissor(sc []driver.Scissor) {
	s.scissor = sc
	s.dirty |= dirtyScissor
}

func (s *StateManager) setVertexBuf(start int, buf *Buffer, off int64) {
	s.vbufs[start] = vbufSlot{buf: buf, off: off}
	s.dirty |= dirtyVertexBufs
}

func (s *StateManager) setIndexBuf(format driver.IndexFmt, buf *Buffer, off int64) {
	s.ibuf = ibufState{buf: buf, off: off, format: format}
	s.dirty |= dirtyIndexBuf
}

func (s *StateManager) bindBuffer(nr int, buf *Buffer, off, size int64) {
	s.descs[nr] = descSlot{kind: dkBuffer, buf: buf, off: off, size: size,
		snap: bufferBinding(bufID(buf), off, size)}
	s.dirty |= dirtyDescriptors
}

func (s *StateManager) bindSampled(nr int, v *View) {
	s.descs[nr] = descSlot{kind: dkSampled, view: v, snap: resourceBinding(viewID(v))}
	s.dirty |= dirtyDescriptors
}

func (s *StateManager) bindStorage(nr int, v *View) {
	s.descs[nr] = descSlot{kind: dkStorage, view: v, snap: resourceBinding(viewID(v))}
	s.dirty |= dirtyDescriptors
}

func (s *StateManager) bindSampler(nr int, sp *Sampler) {
	s.descs[nr] = descSlot{kind: dkSampler, splr: sp, snap: resourceBinding(samplerID(sp))}
	s.dirty |= dirtyDescriptors
}

func (s *StateManager) bindCombined(nr int, v *View, sp *Sampler) {
	s.descs[nr] = descSlot{kind: dkCombined, view: v, splr: sp, snap: combinedBinding(viewID(v), samplerID(sp))}
	s.dirty |= dirtyDescriptors
}

func (s *StateManager) bindTexel(nr int, tv *TexelView) {
	s.descs[nr] = descSlot{kind: dkTexel, tv: tv, snap: resourceBinding(texelID(tv))}
	s.dirty |= dirtyDescriptors
}

func (s *StateManager) bindAccel(nr int, a *AccelStruct) {
	s.descs[nr] = descSlot{kind: dkAccel, as: a, snap: resourceBinding(accelID(a))}
	s.dirty |= dirtyDescriptors
}

// flushDescriptors walks the current pipeline's layout, builds the
// binding snapshot in normalized order and allocates (or reuses) a
// descriptor-table copy for it via h's DescAllocator, writing the
// live resources into a freshly allocated copy on a cache miss.
// Implements the "pipeline.flush_descriptors" step of spec.md §4.6.
func (s *StateManager) flushDescriptors(h *CommandHandle, compute bool) error {
	layout := s.pipeline.Layout()
	descs := layout.Descs()
	bs := make([]binding, len(descs))
	for i, d := range descs {
		bs[i] = s.descs[d.Nr].snap
	}

	table, heap, idx, isNew, err := h.Descriptors().Allocate(layout, bs)
	if err != nil {
		return fmt.Errorf("rhi: flushDescriptors: %w", err)
	}

	if isNew {
		for _, d := range descs {
			slot, ok := s.descs[d.Nr]
			if !ok {
				continue
			}
			switch slot.kind {
			case dkBuffer:
				heap.SetBuffer(idx, d.Nr, 0, []driver.Buffer{slot.buf.buf}, []int64{slot.off}, []int64{slot.size})
				h.retain(slot.buf.Handle)
			case dkSampled, dkStorage:
				heap.SetImage(idx, d.Nr, 0, []driver.ImageView{slot.view.iv})
				h.retain(slot.view.Handle)
			case dkSampler:
				heap.SetSampler(idx, d.Nr, 0, []driver.Sampler{slot.splr.splr})
				h.retain(slot.splr.Handle)
			case dkCombined:
				heap.SetCombinedImage(idx, d.Nr, 0, []driver.ImageView{slot.view.iv}, []driver.Sampler{slot.splr.splr})
				h.retain(slot.view.Handle)
				h.retain(slot.splr.Handle)
			case dkTexel:
				heap.SetTexelBuffer(idx, d.Nr, 0, []driver.BufferView{slot.tv.bv})
				h.retain(slot.tv.Handle)
			case dkAccel:
				heap.SetAccelStruct(idx, d.Nr, 0, []driver.AccelStruct{slot.as.as})
				h.retain(slot.as.Handle)
			}
		}
	} else {
		for _, d := range descs {
			slot, ok := s.descs[d.Nr]
			if !ok {
				continue
			}
			switch slot.kind {
			case dkBuffer:
				h.retain(slot.buf.Handle)
			case dkSampled, dkStorage:
				h.retain(slot.view.Handle)
			case dkSampler:
				h.retain(slot.splr.Handle)
			case dkCombined:
				h.retain(slot.view.Handle)
				h.retain(slot.splr.Handle)
			case dkTexel:
				h.retain(slot.tv.Handle)
			case dkAccel:
				h.retain(slot.as.Handle)
			}
		}
	}

	if compute {
		h.CmdBuffer().SetDescTableComp(table, 0, []int{idx})
	} else {
		h.CmdBuffer().SetDescTableGraph(table, 0, []int{idx})
	}
	return nil
}

// slotLayout returns the image layout a bound slot's texture must be
// in for the GPU to access it, or false if the slot does not bind a
// texture at all.
func (sl *descSlot) slotLayout() (driver.Layout, bool) {
	switch sl.kind {
	case dkSampled, dkCombined:
		return driver.LShaderRead, true
	case dkStorage:
		return driver.LShaderStore, true
	}
	return 0, false
}

// flushTransitions records layout transitions for every bound texture
// whose tracked layout does not match the one its binding requires
// (shader-read for sampled and combined slots, shader-store for
// storage slots). Barriers cannot be recorded inside a rendering
// scope, so this runs when the scope is about to begin (or, for
// compute, right before the dispatch); flushGraphics then only has to
// verify that the layouts still hold.
func (s *StateManager) flushTransitions(h *CommandHandle) {
	var ts []driver.Transition
	for _, slot := range s.descs {
		after, ok := slot.slotLayout()
		if !ok {
			continue
		}
		v := slot.view
		before := v.tex.layoutOf(v.layer, v.level)
		if before == after {
			continue
		}
		acc := driver.AShaderRead
		if after == driver.LShaderStore {
			acc |= driver.AShaderWrite
		}
		ts = append(ts, driver.Transition{
			Barrier: driver.Barrier{
				SyncBefore:   driver.SAll,
				SyncAfter:    driver.SVertexShading | driver.SFragmentShading | driver.SComputeShading,
				AccessBefore: driver.AAnyWrite,
				AccessAfter:  acc,
			},
			LayoutBefore: before,
			LayoutAfter:  after,
			Img:          v.tex.img,
			Layer:        v.layer,
			Layers:       v.layers,
			Level:        v.level,
			Levels:       v.levels,
		})
		for layer := v.layer; layer < v.layer+v.layers; layer++ {
			for level := v.level; level < v.level+v.levels; level++ {
				v.tex.setLayout(layer, level, after)
			}
		}
		h.retain(v.Handle)
	}
	if len(ts) > 0 {
		h.CmdBuffer().Transition(ts)
	}
}

// checkLayouts verifies that every bound texture is already in the
// layout its binding requires. It is the draw-time complement of
// flushTransitions: once a rendering scope is open no barrier can be
// recorded, so a mismatch means the resource was bound after
// BeginRendering without a transition and the draw would read it in
// the wrong layout.
func (s *StateManager) checkLayouts() error {
	for nr, slot := range s.descs {
		want, ok := slot.slotLayout()
		if !ok {
			continue
		}
		v := slot.view
		if have := v.tex.layoutOf(v.layer, v.level); have != want {
			return fmt.Errorf("%w: texture at slot %d is in layout %d, want %d (bind it before BeginRendering)",
				ErrIncompatible, nr, have, want)
		}
	}
	return nil
}

// flushGraphics records the minimal state needed before a graphics
// draw, per spec.md §4.6's flush_graphics algorithm, and clears the
// dirty bits it handled.
func (s *StateManager) flushGraphics(h *CommandHandle, rtKey rtKey, vsamples int) error {
	if s.pipeline == nil {
		return fmt.Errorf("%w: no pipeline bound", ErrBadState)
	}
	if s.rt == nil {
		return fmt.Errorf("%w: no render target bound", ErrBadState)
	}

	if s.dirty&(dirtyPipeline|dirtyRT|dirtyTopology|dirtyRaster) != 0 {
		vk := variantKey{
			topology:  s.topology,
			cull:      s.raster.Cull,
			fill:      s.raster.Fill,
			clockwise: s.raster.Clockwise,
			rt:        rtKey,
		}
		pl, err := s.pipeline.variant(vk, s.raster, vsamples)
		if err != nil {
			return err
		}
		h.CmdBuffer().SetPipeline(pl)
	}

	if err := s.checkLayouts(); err != nil {
		return err
	}
	if err := s.flushDescriptors(h, false); err != nil {
		return err
	}

	if s.dirty&dirtyViewport != 0 && len(s.viewport) > 0 {
		h.CmdBuffer().SetViewport(s.viewport)
	}
	if s.dirty&dirtyScissor != 0 && len(s.scissor) > 0 {
		h.CmdBuffer().SetScissor(s.scissor)
	}
	if s.dirty&dirtyVertexBufs != 0 {
		// Bound slots need not be contiguous; each consecutive
		// run of occupied slots is recorded as its own bind so
		// a gap never shifts later buffers onto earlier slots.
		var bufs []driver.Buffer
		var offs []int64
		start := -1
		for i, v := range s.vbufs {
			if v.buf == nil {
				if start >= 0 {
					h.CmdBuffer().SetVertexBuf(start, bufs, offs)
					bufs, offs = nil, nil
					start = -1
				}
				continue
			}
			if start < 0 {
				start = i
			}
			bufs = append(bufs, v.buf.buf)
			offs = append(offs, v.off)
			h.retain(v.buf.Handle)
		}
		if start >= 0 {
			h.CmdBuffer().SetVertexBuf(start, bufs, offs)
		}
	}
	if s.dirty&dirtyIndexBuf != 0 && s.ibuf.buf != nil {
		h.CmdBuffer().SetIndexBuf(s.ibuf.format, s.ibuf.buf.buf, s.ibuf.off)
		h.retain(s.ibuf.buf.Handle)
	}

	s.dirty = 0
	return nil
}

// flushCompute records the minimal state needed before a dispatch,
// per spec.md §4.6's flush_compute algorithm (analogous to
// flush_graphics with no render-target or fixed-function state).
func (s *StateManager) flushCompute(h *CommandHandle) error {
	if s.pipeline == nil {
		return fmt.Errorf("%w: no pipeline bound", ErrBadState)
	}
	s.flushTransitions(h)
	if s.dirty&dirtyPipeline != 0 {
		h.CmdBuffer().SetPipeline(s.pipeline.compPipe)
	}
	if err := s.flushDescriptors(h, true); err != nil {
		return err
	}
	s.dirty = 0
	return nil
}
