// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package rhi

import (
	"fmt"

	"github.com/kestrelgpu/rhi/driver"
	"github.com/kestrelgpu/rhi/wsi"
)

// Viewport pairs a window with its swapchain, and the per-image
// RenderTargets built over the swapchain's views, per spec.md §4.9. It
// rebuilds those RenderTargets whenever it recreates the swapchain
// (in Resize, and when SetVSync changes the present mode). An
// ErrSwapchain error from Acquire or Present is returned to the
// caller; the swapchain is not recreated until Resize is called.
type Viewport struct {
	dev  *Device
	win  wsi.Window
	sc   driver.Swapchain
	fmt_ driver.PixelFmt

	views []driver.ImageView
	rts   []RenderTarget
}

// presenter is implemented by a driver.GPU that supports presentation.
type presenter interface {
	NewSwapchain(win wsi.Window, imageCount int, vsync bool) (driver.Swapchain, error)
}

// NewViewport creates a swapchain for win with the Device's desired
// image count (Options.DesiredSwapchainImages, clamped by the
// backend) and present mode (Options.NoVSync), and builds one
// color-only RenderTarget per swapchain image.
func NewViewport(dev *Device, win wsi.Window) (*Viewport, error) {
	pres, ok := dev.gpu.(presenter)
	if !ok {
		return nil, fmt.Errorf("%w: GPU does not implement Presenter", driver.ErrCannotPresent)
	}
	n := dev.opts.DesiredSwapchainImages
	if n <= 0 {
		n = 3
	}
	sc, err := pres.NewSwapchain(win, n, !dev.opts.NoVSync)
	if err != nil {
		return nil, fmt.Errorf("rhi: NewViewport: %w", err)
	}
	vp := &Viewport{dev: dev, win: win, sc: sc, fmt_: sc.Format()}
	if err := vp.rebuild(); err != nil {
		sc.Destroy()
		return nil, err
	}
	return vp, nil
}

// rebuild (re)creates the per-image RenderTargets from the
// swapchain's current views. Previously built RenderTargets are
// invalidated first.
func (vp *Viewport) rebuild() error {
	for _, rt := range vp.rts {
		rt.invalidate()
	}
	vp.views = vp.sc.Views()
	vp.rts = make([]RenderTarget, len(vp.views))
	for i, iv := range vp.views {
		tex := &Texture{
			format:  vp.fmt_,
			samples: 1,
			layers:  1,
			levels:  1,
			img:     iv.Image(),
			layout:  make(map[subresource]driver.Layout),
		}
		view := &View{tex: tex, iv: iv, layers: 1, levels: 1}
		view.Handle = newHandle(KindView, swapchainViewStub{})
		rt := &renderTarget{
			width:  vp.win.Width(),
			height: vp.win.Height(),
			layers: 1,
			color: []ColorAttach{{
				View:  view,
				Load:  driver.LClear,
				Store: driver.SStore,
			}},
			textures: []*Texture{tex},
			valid:    true,
		}
		rt.key.color[0] = vp.fmt_
		rt.key.samples = 1
		vp.rts[i] = rt
	}
	return nil
}

// swapchainViewStub absorbs the destroy() call Handle requires; the
// actual driver.ImageView backing a swapchain image is owned and
// destroyed by the swapchain itself, never by rhi.
type swapchainViewStub struct{}

func (swapchainViewStub) destroy() {}

// Format returns the swapchain images' pixel format.
func (vp *Viewport) Format() driver.PixelFmt { return vp.fmt_ }

// Acquire returns the index of the next writable image and its
// RenderTarget. The acquired image's contents are undefined, so its
// tracked layout is reset; the first rendering scope that targets it
// transitions it from scratch.
func (vp *Viewport) Acquire() (int, RenderTarget, error) {
	idx, err := vp.sc.Next()
	if err != nil {
		return 0, nil, fmt.Errorf("rhi: Viewport.Acquire: %w", err)
	}
	tex := vp.rts[idx].color[0].View.tex
	tex.setLayout(0, 0, driver.LUndefined)
	return idx, vp.rts[idx], nil
}

// TransitionForPresent records, on c, the transition of the image at
// idx into the present layout. It must be called after the last
// rendering scope that writes the image and before c is ended.
func (vp *Viewport) TransitionForPresent(c *Context, idx int) {
	c.Transition(vp.rts[idx].color[0].View, driver.LPresent, driver.Barrier{
		SyncBefore:   driver.SColorOutput,
		SyncAfter:    driver.SColorOutput,
		AccessBefore: driver.AColorWrite,
	})
}

// Present presents the image at idx. The commands that wrote to the
// image, ending with the TransitionForPresent record, must already
// have been submitted.
func (vp *Viewport) Present(idx int) error {
	if err := vp.sc.Present(idx); err != nil {
		return fmt.Errorf("rhi: Viewport.Present: %w", err)
	}
	return nil
}

// Resize recreates the swapchain (and its RenderTargets) for the
// window's current size. It must only be called once every in-flight
// frame referencing the old swapchain images has completed.
// Resizing to a zero-area window (e.g. a minimized one) is a no-op;
// the swapchain is rebuilt on the next Resize with a usable size.
func (vp *Viewport) Resize() error {
	if vp.win.Width() == 0 || vp.win.Height() == 0 {
		return nil
	}
	if err := vp.sc.Recreate(); err != nil {
		return fmt.Errorf("rhi: Viewport.Resize: %w", err)
	}
	return vp.rebuild()
}

// SetVSync switches between vertical-sync (FIFO) and non-blocking
// (Mailbox/Immediate) presentation by recreating the swapchain with
// the new mode. Like Resize, it must only be called once every
// in-flight frame referencing the old swapchain images has
// completed.
func (vp *Viewport) SetVSync(vsync bool) error {
	vp.sc.SetVSync(vsync)
	if err := vp.sc.Recreate(); err != nil {
		return fmt.Errorf("rhi: Viewport.SetVSync: %w", err)
	}
	return vp.rebuild()
}

// Destroy destroys the swapchain and invalidates its RenderTargets.
func (vp *Viewport) Destroy() {
	for _, rt := range vp.rts {
		rt.invalidate()
	}
	vp.sc.Destroy()
}
