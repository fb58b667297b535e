// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package rhi

import (
	"fmt"

	"github.com/kestrelgpu/rhi/driver"
)

// rtKey is the fixed-size tuple of attachment formats, load/store
// ops and sample count that two render targets must share to be
// considered compatible with the same compiled Pipeline. Because
// this backend always records rendering scopes with dynamic
// rendering (the redesign flag in spec.md §9 — one code path, not
// two), there is no VkRenderPass/VkFramebuffer object to cache;
// compatibility is checked structurally by comparing rtKey values
// instead of by sharing a cached renderpass handle. Unused color
// slots and a missing depth/stencil entry are canonicalized to
// driver.FInvalid, which is the zero PixelFmt value.
type rtKey struct {
	color   [4]driver.PixelFmt
	ds      driver.PixelFmt
	samples int
}

// ColorAttach describes one color attachment of a RenderTarget.
type ColorAttach struct {
	View    *View
	Resolve *View
	Clear   [4]float32
	Load    driver.LoadOp
	Store   driver.StoreOp
}

// DSAttach describes the depth/stencil attachment of a RenderTarget.
type DSAttach struct {
	View    *View
	Resolve *View
	LoadD   driver.LoadOp
	StoreD  driver.StoreOp
	ClearD  float32
	LoadS   driver.LoadOp
	StoreS  driver.StoreOp
	ClearS  uint32
}

// RenderTarget is a set of attachment views the GPU writes into
// during a rendering scope, plus the key identifying which compiled
// pipelines are compatible with it. Each RenderTarget registers
// itself as a weak back-reference on every Texture it references, so
// that destroying a Texture can invalidate the RenderTarget instead
// of leaving it dangling (spec.md §9).
type renderTarget struct {
	width, height, layers int
	color                 []ColorAttach
	ds                    *DSAttach
	key                   rtKey
	textures              []*Texture
	valid                 bool
}

// RenderTarget is the public handle to a renderTarget.
type RenderTarget = *renderTarget

// NewRenderTarget creates a RenderTarget from up to 4 color
// attachments and an optional depth/stencil attachment, matching the
// limit spec.md §4.7 places on begin_rendering.
func (dev *Device) NewRenderTarget(width, height, layers int, color []ColorAttach, ds *DSAttach) (RenderTarget, error) {
	if len(color) > 4 {
		return nil, fmt.Errorf("rhi: NewRenderTarget: too many color attachments (%d > 4)", len(color))
	}
	rt := &renderTarget{
		width: width, height: height, layers: layers,
		color: append([]ColorAttach(nil), color...),
		ds:    ds,
		valid: true,
	}
	for i, c := range rt.color {
		rt.key.color[i] = c.View.tex.format
		if rt.key.samples == 0 {
			rt.key.samples = c.View.tex.samples
		}
		rt.textures = append(rt.textures, c.View.tex)
		c.View.tex.registerRT(rt)
	}
	if ds != nil {
		rt.key.ds = ds.View.tex.format
		if rt.key.samples == 0 {
			rt.key.samples = ds.View.tex.samples
		}
		rt.textures = append(rt.textures, ds.View.tex)
		ds.View.tex.registerRT(rt)
	}
	return rt, nil
}

// Key returns the rtKey used to check compatibility against a
// compiled Pipeline.
func (rt *renderTarget) Key() rtKey { return rt.key }

// Valid reports whether the render target has not been invalidated
// by the destruction of one of its attached textures.
func (rt *renderTarget) Valid() bool { return rt.valid }

// invalidate marks rt unusable. Called by Texture.Destroy on every
// RenderTarget that references one of its views.
func (rt *renderTarget) invalidate() {
	if !rt.valid {
		return
	}
	rt.valid = false
	for _, t := range rt.textures {
		t.unregisterRT(rt)
	}
}

// Destroy releases rt's back-references. It does not destroy the
// textures or views the render target was built from.
func (rt *renderTarget) Destroy() { rt.invalidate() }
