// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package rhi

import (
	"testing"

	"github.com/kestrelgpu/rhi/driver"
	"github.com/kestrelgpu/rhi/wsi"
)

// fakeWindow is a stand-in wsi.Window for swapchain tests.
type fakeWindow struct {
	w, h  int
	title string
}

func (w *fakeWindow) Map() error   { return nil }
func (w *fakeWindow) Unmap() error { return nil }
func (w *fakeWindow) Resize(width, height int) error {
	w.w, w.h = width, height
	return nil
}
func (w *fakeWindow) SetTitle(title string) error {
	w.title = title
	return nil
}
func (w *fakeWindow) Close()        {}
func (w *fakeWindow) Width() int    { return w.w }
func (w *fakeWindow) Height() int   { return w.h }
func (w *fakeWindow) Title() string { return w.title }

// fakeSwapchain is a pure-Go driver.Swapchain.
type fakeSwapchain struct {
	views     []driver.ImageView
	next      int
	presented []int
	recreated int
	vsync     bool
}

func newFakeSwapchain(n int) *fakeSwapchain {
	s := &fakeSwapchain{views: make([]driver.ImageView, n)}
	for i := range s.views {
		s.views[i] = &fakeImageView{img: &fakeImage{}}
	}
	return s
}

func (s *fakeSwapchain) Destroy() {}
func (s *fakeSwapchain) Views() []driver.ImageView {
	return append([]driver.ImageView(nil), s.views...)
}
func (s *fakeSwapchain) Next() (int, error) {
	idx := s.next
	s.next = (s.next + 1) % len(s.views)
	return idx, nil
}
func (s *fakeSwapchain) Present(index int) error {
	s.presented = append(s.presented, index)
	return nil
}
func (s *fakeSwapchain) Recreate() error {
	s.recreated++
	return nil
}
func (s *fakeSwapchain) SetVSync(vsync bool) { s.vsync = vsync }
func (s *fakeSwapchain) Format() driver.PixelFmt { return driver.BGRA8Unorm }

// fakePresenterGPU augments fakeGPU with presentation support.
type fakePresenterGPU struct {
	fakeGPU
	sc *fakeSwapchain
}

func (g *fakePresenterGPU) NewSwapchain(win wsi.Window, imageCount int, vsync bool) (driver.Swapchain, error) {
	g.sc = newFakeSwapchain(imageCount)
	g.sc.vsync = vsync
	return g.sc, nil
}

type fakePresenterDriver struct {
	gpu fakePresenterGPU
}

func (d *fakePresenterDriver) Open() (driver.GPU, error) { return &d.gpu, nil }
func (d *fakePresenterDriver) Name() string              { return "fake-presenter" }
func (d *fakePresenterDriver) Close()                    {}

func openPresentDevice(t *testing.T, win *fakeWindow) (*Device, *Viewport, *fakeSwapchain) {
	t.Helper()
	drv := &fakePresenterDriver{}
	dev, err := Open(drv, Options{QueueCapacity: 4, DesiredSwapchainImages: 3})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	go dev.Run()
	t.Cleanup(dev.Close)
	vp, err := NewViewport(dev, win)
	if err != nil {
		t.Fatalf("NewViewport: %v", err)
	}
	return dev, vp, drv.gpu.sc
}

func TestViewportFrame(t *testing.T) {
	win := &fakeWindow{w: 640, h: 360}
	dev, vp, sc := openPresentDevice(t, win)

	if vp.Format() != driver.BGRA8Unorm {
		t.Errorf("Format() = %v, want BGRA8Unorm", vp.Format())
	}

	idx, rt, err := vp.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if !rt.Valid() {
		t.Fatal("acquired render target is invalid")
	}
	tex := rt.color[0].View.tex
	if l := tex.layoutOf(0, 0); l != driver.LUndefined {
		t.Fatalf("acquired image layout = %d, want LUndefined", l)
	}

	pool := NewCmdPool(dev, false)
	defer pool.Destroy()
	c := NewContext(dev, pool)
	if err := c.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := c.BeginRendering(rt); err != nil {
		t.Fatalf("BeginRendering: %v", err)
	}
	if l := tex.layoutOf(0, 0); l != driver.LColorTarget {
		t.Errorf("image layout inside rendering = %d, want LColorTarget", l)
	}
	if err := c.EndRendering(); err != nil {
		t.Fatalf("EndRendering: %v", err)
	}
	vp.TransitionForPresent(c, idx)
	if l := tex.layoutOf(0, 0); l != driver.LPresent {
		t.Errorf("image layout after TransitionForPresent = %d, want LPresent", l)
	}
	h, err := c.End()
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if err := pool.Submit(h); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := vp.Present(idx); err != nil {
		t.Fatalf("Present: %v", err)
	}
	if len(sc.presented) != 1 || sc.presented[0] != idx {
		t.Errorf("presented = %v, want [%d]", sc.presented, idx)
	}

	// Re-acquiring the image resets its tracked layout, since its
	// contents are undefined after presentation.
	for {
		i, _, err := vp.Acquire()
		if err != nil {
			t.Fatalf("Acquire: %v", err)
		}
		if i == idx {
			break
		}
	}
	if l := tex.layoutOf(0, 0); l != driver.LUndefined {
		t.Errorf("re-acquired image layout = %d, want LUndefined", l)
	}
}

func TestViewportSetVSync(t *testing.T) {
	win := &fakeWindow{w: 640, h: 360}
	_, vp, sc := openPresentDevice(t, win)
	if !sc.vsync {
		t.Fatal("viewport did not request vsync by default")
	}
	old := vp.rts[0]

	if err := vp.SetVSync(false); err != nil {
		t.Fatalf("SetVSync: %v", err)
	}
	if sc.vsync {
		t.Error("SetVSync(false) did not reach the swapchain")
	}
	if sc.recreated != 1 {
		t.Errorf("swapchain recreated %d times, want 1", sc.recreated)
	}
	if old.Valid() {
		t.Error("SetVSync did not invalidate the previous render targets")
	}
}

func TestViewportResize(t *testing.T) {
	win := &fakeWindow{w: 640, h: 360}
	_, vp, sc := openPresentDevice(t, win)
	old := vp.rts[0]

	// Resizing to a zero-area window is a no-op.
	win.w, win.h = 0, 0
	if err := vp.Resize(); err != nil {
		t.Fatalf("Resize to zero: %v", err)
	}
	if sc.recreated != 0 {
		t.Errorf("swapchain recreated %d times on zero-area resize, want 0", sc.recreated)
	}
	if !old.Valid() {
		t.Error("zero-area resize invalidated the render targets")
	}

	win.w, win.h = 800, 600
	if err := vp.Resize(); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if sc.recreated != 1 {
		t.Errorf("swapchain recreated %d times, want 1", sc.recreated)
	}
	if old.Valid() {
		t.Error("resize did not invalidate the previous render targets")
	}
	if vp.rts[0].width != 800 || vp.rts[0].height != 600 {
		t.Errorf("rebuilt render target is %dx%d, want 800x600", vp.rts[0].width, vp.rts[0].height)
	}
}
