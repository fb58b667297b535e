// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package rhi

import (
	"fmt"

	"github.com/kestrelgpu/rhi/driver"
)

// fakeGPU is a pure-Go driver.GPU used to unit test the orchestration
// layer without real Vulkan hardware, per SPEC_FULL.md §2's note that
// rhi is written against the driver.GPU interface for exactly this
// reason.
type fakeGPU struct{}

func (fakeGPU) Driver() driver.Driver { return nil }

func (fakeGPU) Commit(wk *driver.WorkItem, ch chan<- *driver.WorkItem) error {
	ch <- wk
	return nil
}

func (fakeGPU) NewCmdBuffer(secondary bool) (driver.CmdBuffer, error) {
	return &fakeCmdBuffer{secondary: secondary}, nil
}

func (fakeGPU) NewShaderCode(data []byte) (driver.ShaderCode, error) {
	return fakeDestroyer{}, nil
}

func (fakeGPU) NewDescHeap(ds []driver.Descriptor) (driver.DescHeap, error) {
	return &fakeDescHeap{descs: ds}, nil
}

func (fakeGPU) NewDescTable(dh []driver.DescHeap) (driver.DescTable, error) {
	return fakeDestroyer{}, nil
}

func (fakeGPU) NewPipeline(state any) (driver.Pipeline, error) {
	return fakeDestroyer{}, nil
}

func (fakeGPU) NewPipelineCache(data []byte) (driver.PipelineCache, error) {
	return &fakePipelineCache{data: append([]byte(nil), data...)}, nil
}

type fakePipelineCache struct {
	data []byte
}

func (c *fakePipelineCache) Destroy()              {}
func (c *fakePipelineCache) Data() ([]byte, error) { return c.data, nil }

func (fakeGPU) NewBuffer(size int64, visible bool, usg driver.Usage) (driver.Buffer, error) {
	return &fakeBuffer{size: size, visible: visible}, nil
}

func (fakeGPU) NewImage(pf driver.PixelFmt, size driver.Dim3D, layers, levels, samples int, usg driver.Usage) (driver.Image, error) {
	return &fakeImage{}, nil
}

func (fakeGPU) NewBufferView(buf driver.Buffer, pf driver.PixelFmt, off, size int64) (driver.BufferView, error) {
	return fakeDestroyer{}, nil
}

func (fakeGPU) NewAccelStruct(size int64) (driver.AccelStruct, error) {
	return fakeDestroyer{}, nil
}

func (fakeGPU) NewSampler(spln *driver.Sampling) (driver.Sampler, error) {
	return fakeDestroyer{}, nil
}

func (fakeGPU) Limits() driver.Limits { return driver.Limits{} }

type fakeDestroyer struct{}

func (fakeDestroyer) Destroy() {}

type fakeBuffer struct {
	size    int64
	visible bool
	data    []byte
}

func (b *fakeBuffer) Destroy()      {}
func (b *fakeBuffer) Visible() bool { return b.visible }
func (b *fakeBuffer) Cap() int64    { return b.size }
func (b *fakeBuffer) Bytes() []byte {
	if !b.visible {
		return nil
	}
	if b.data == nil {
		b.data = make([]byte, b.size)
	}
	return b.data
}

type fakeImage struct{}

func (*fakeImage) Destroy() {}
func (im *fakeImage) NewView(typ driver.ViewType, layer, layers, level, levels int) (driver.ImageView, error) {
	return &fakeImageView{img: im}, nil
}

type fakeImageView struct {
	img *fakeImage
}

func (*fakeImageView) Destroy()                  {}
func (v *fakeImageView) Image() driver.Image { return v.img }

type fakeDescHeap struct {
	descs  []driver.Descriptor
	count  int
	writes int
}

func (h *fakeDescHeap) Destroy()        {}
func (h *fakeDescHeap) New(n int) error { h.count = n; return nil }
func (h *fakeDescHeap) Count() int      { return h.count }
func (h *fakeDescHeap) SetBuffer(cpy, nr, start int, buf []driver.Buffer, off, size []int64) {
	h.writes++
}
func (h *fakeDescHeap) SetImage(cpy, nr, start int, iv []driver.ImageView) { h.writes++ }
func (h *fakeDescHeap) SetSampler(cpy, nr, start int, splr []driver.Sampler) {
	h.writes++
}
func (h *fakeDescHeap) SetCombinedImage(cpy, nr, start int, iv []driver.ImageView, splr []driver.Sampler) {
	h.writes++
}
func (h *fakeDescHeap) SetTexelBuffer(cpy, nr, start int, bv []driver.BufferView) {
	h.writes++
}
func (h *fakeDescHeap) SetAccelStruct(cpy, nr, start int, as []driver.AccelStruct) {
	h.writes++
}

type fakeCmdBuffer struct {
	secondary bool
	ops       []string
}

func (c *fakeCmdBuffer) Destroy()         {}
func (c *fakeCmdBuffer) Secondary() bool  { return c.secondary }
func (c *fakeCmdBuffer) Begin() error     { c.ops = append(c.ops, "begin"); return nil }
func (c *fakeCmdBuffer) End() error       { c.ops = append(c.ops, "end"); return nil }
func (c *fakeCmdBuffer) Reset() error     { c.ops = nil; return nil }
func (c *fakeCmdBuffer) BeginPass(width, height, layers int, color []driver.ColorTarget, ds *driver.DSTarget) {
	c.ops = append(c.ops, "beginpass")
}
func (c *fakeCmdBuffer) EndPass() { c.ops = append(c.ops, "endpass") }
func (c *fakeCmdBuffer) Execute(secondary []driver.CmdBuffer) {
	c.ops = append(c.ops, "execute")
}
func (c *fakeCmdBuffer) SetPipeline(pl driver.Pipeline)             { c.ops = append(c.ops, "setpipeline") }
func (c *fakeCmdBuffer) SetViewport(vp []driver.Viewport)           {}
func (c *fakeCmdBuffer) SetScissor(sciss []driver.Scissor)          {}
func (c *fakeCmdBuffer) SetBlendColor(r, g, b, a float32)           {}
func (c *fakeCmdBuffer) SetStencilRef(value uint32)                 {}
func (c *fakeCmdBuffer) SetVertexBuf(start int, buf []driver.Buffer, off []int64) {
	c.ops = append(c.ops, fmt.Sprintf("setvertexbuf@%d#%d", start, len(buf)))
}
func (c *fakeCmdBuffer) SetIndexBuf(format driver.IndexFmt, buf driver.Buffer, off int64) {
	c.ops = append(c.ops, "setindexbuf")
}
func (c *fakeCmdBuffer) SetDescTableGraph(table driver.DescTable, start int, heapCopy []int) {
	c.ops = append(c.ops, "setdesctablegraph")
}
func (c *fakeCmdBuffer) SetDescTableComp(table driver.DescTable, start int, heapCopy []int) {
	c.ops = append(c.ops, "setdesctablecomp")
}
func (c *fakeCmdBuffer) Draw(vertCount, instCount, baseVert, baseInst int) {
	c.ops = append(c.ops, "draw")
}
func (c *fakeCmdBuffer) DrawIndexed(idxCount, instCount, baseIdx, vertOff, baseInst int) {
	c.ops = append(c.ops, "drawindexed")
}
func (c *fakeCmdBuffer) Dispatch(grpCountX, grpCountY, grpCountZ int) {
	c.ops = append(c.ops, "dispatch")
}
func (c *fakeCmdBuffer) CopyBuffer(param *driver.BufferCopy)     {}
func (c *fakeCmdBuffer) CopyImage(param *driver.ImageCopy)       {}
func (c *fakeCmdBuffer) CopyBufToImg(param *driver.BufImgCopy)   {}
func (c *fakeCmdBuffer) CopyImgToBuf(param *driver.BufImgCopy)   {}
func (c *fakeCmdBuffer) Fill(buf driver.Buffer, off int64, value byte, size int64) {}
func (c *fakeCmdBuffer) Barrier(b []driver.Barrier) {}
func (c *fakeCmdBuffer) Transition(t []driver.Transition) {
	c.ops = append(c.ops, "transition")
}

// fakeDriver lets tests call rhi.Open directly.
type fakeDriver struct{}

func (fakeDriver) Open() (driver.GPU, error) { return fakeGPU{}, nil }
func (fakeDriver) Name() string              { return "fake" }
func (fakeDriver) Close()                    {}
