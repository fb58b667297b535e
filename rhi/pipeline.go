// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package rhi

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/kestrelgpu/rhi/driver"
)

// Compiler produces the backend-native shader blob (SPIR-V for the
// Vulkan backend) for one stage of a pipeline identity. Compilation
// itself is outside this package's scope — spec.md §4.8 says as
// much: the RHI only stores, caches and binds compiled bytecode.
type Compiler interface {
	Compile(identity string, stage driver.Stage) ([]byte, error)
}

// stageBlob is one compiled shader stage, as stored in a pipeline
// cache file.
type stageBlob struct {
	Stage driver.Stage
	Data  []byte
}

// ShaderCache is a binary store of compiled shader blobs keyed by
// pipeline identity (the pipeline's stable, fully scoped name). Its
// on-disk format is a small header (entry count) followed by, for
// each entry, a length-prefixed identity string and a length-
// prefixed list of length-prefixed stage blobs. The format is
// implementation-chosen but round-trips store -> load -> bind
// identically, which is all spec.md §6 requires of it.
type ShaderCache struct {
	mu      sync.Mutex
	entries map[string][]stageBlob
}

// NewShaderCache creates an empty cache.
func NewShaderCache() *ShaderCache {
	return &ShaderCache{entries: make(map[string][]stageBlob)}
}

// LoadShaderCache reads a cache previously produced by Store.
func LoadShaderCache(r io.Reader) (*ShaderCache, error) {
	c := NewShaderCache()
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		if err == io.EOF {
			return c, nil
		}
		return nil, fmt.Errorf("rhi: LoadShaderCache: %w", err)
	}
	for i := uint32(0); i < n; i++ {
		id, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("rhi: LoadShaderCache: %w", err)
		}
		var nstg uint32
		if err := binary.Read(r, binary.LittleEndian, &nstg); err != nil {
			return nil, fmt.Errorf("rhi: LoadShaderCache: %w", err)
		}
		blobs := make([]stageBlob, nstg)
		for j := range blobs {
			var stg int32
			if err := binary.Read(r, binary.LittleEndian, &stg); err != nil {
				return nil, fmt.Errorf("rhi: LoadShaderCache: %w", err)
			}
			data, err := readBytes(r)
			if err != nil {
				return nil, fmt.Errorf("rhi: LoadShaderCache: %w", err)
			}
			blobs[j] = stageBlob{Stage: driver.Stage(stg), Data: data}
		}
		c.entries[id] = blobs
	}
	return c, nil
}

// Store writes the cache to w.
func (c *ShaderCache) Store(w io.Writer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := binary.Write(w, binary.LittleEndian, uint32(len(c.entries))); err != nil {
		return err
	}
	for id, blobs := range c.entries {
		if err := writeString(w, id); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(len(blobs))); err != nil {
			return err
		}
		for _, b := range blobs {
			if err := binary.Write(w, binary.LittleEndian, int32(b.Stage)); err != nil {
				return err
			}
			if err := writeBytes(w, b.Data); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *ShaderCache) lookup(identity string) ([]stageBlob, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.entries[identity]
	return b, ok
}

func (c *ShaderCache) insert(identity string, blobs []stageBlob) {
	c.mu.Lock()
	c.entries[identity] = blobs
	c.mu.Unlock()
}

func readString(r io.Reader) (string, error) {
	b, err := readBytes(r)
	return string(b), err
}

func writeString(w io.Writer, s string) error { return writeBytes(w, []byte(s)) }

func readBytes(r io.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

func writeBytes(w io.Writer, b []byte) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// resolveStages loads blobs for identity from cache, compiling and
// inserting them on a miss.
func resolveStages(cache *ShaderCache, compiler Compiler, identity string, stages []driver.Stage) ([]stageBlob, error) {
	if blobs, ok := cache.lookup(identity); ok {
		return blobs, nil
	}
	if compiler == nil {
		return nil, fmt.Errorf("%w: identity %q", ErrNoCompiler, identity)
	}
	blobs := make([]stageBlob, len(stages))
	for i, s := range stages {
		data, err := compiler.Compile(identity, s)
		if err != nil {
			return nil, fmt.Errorf("rhi: compiling %q stage %v: %w", identity, s, err)
		}
		blobs[i] = stageBlob{Stage: s, Data: bytes.Clone(data)}
	}
	cache.insert(identity, blobs)
	return blobs, nil
}

// GraphicsDesc is the state template for a graphics Pipeline, minus
// the pipeline-static fields (topology, polygon mode, cull mode,
// front face, render-target format) that are compiled lazily into
// variants at first use (spec.md §4.8).
type GraphicsDesc struct {
	Identity string
	Layout   *Layout
	Input    []driver.VertexIn
	DS       driver.DSState
	Blend    driver.BlendState
}

// variantKey identifies one lazily compiled VkPipeline for a given
// Pipeline template: the Vulkan-pipeline-static state plus the
// render-target key it was compiled against.
type variantKey struct {
	topology  driver.Topology
	cull      driver.CullMode
	fill      driver.FillMode
	clockwise bool
	rt        rtKey
}

// Pipeline is an immutable graphics or compute Pipeline template. A
// graphics Pipeline lazily compiles one backend driver.Pipeline per
// distinct (topology, polygon mode, cull mode, front face,
// render-target format) combination it is drawn with; a compute
// Pipeline has exactly one backend driver.Pipeline.
type Pipeline struct {
	identity string
	layout   *Layout
	gpu      driver.GPU
	compute  bool

	mu       sync.Mutex
	vs, fs   driver.ShaderCode
	cs       driver.ShaderCode
	input    []driver.VertexIn
	ds       driver.DSState
	blend    driver.BlendState
	variants map[variantKey]driver.Pipeline
	compPipe driver.Pipeline
}

// Kind reports KindPipeline.
func (*Pipeline) Kind() Kind { return KindPipeline }

func (p *Pipeline) destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, v := range p.variants {
		v.Destroy()
	}
	if p.compPipe != nil {
		p.compPipe.Destroy()
	}
	if p.vs != nil {
		p.vs.Destroy()
	}
	if p.fs != nil {
		p.fs.Destroy()
	}
	if p.cs != nil {
		p.cs.Destroy()
	}
}

// Layout returns the pipeline-layout cache entry this pipeline is
// bound to.
func (p *Pipeline) Layout() *Layout { return p.layout }

// Compute reports whether this is a compute pipeline.
func (p *Pipeline) Compute() bool { return p.compute }

// NewGraphicsPipeline compiles (or loads from cache) the vertex and
// fragment shaders named by desc.Identity and returns the resulting
// Pipeline template. No backend driver.Pipeline is created yet; the
// first variant is compiled lazily by the state manager at the first
// draw that selects it.
func (dev *Device) NewGraphicsPipeline(desc GraphicsDesc, compiler Compiler) (*Pipeline, error) {
	blobs, err := resolveStages(dev.shaders, compiler, desc.Identity, []driver.Stage{driver.SVertex, driver.SFragment})
	if err != nil {
		return nil, err
	}
	var vsData, fsData []byte
	for _, b := range blobs {
		switch b.Stage {
		case driver.SVertex:
			vsData = b.Data
		case driver.SFragment:
			fsData = b.Data
		}
	}
	vs, err := dev.gpu.NewShaderCode(vsData)
	if err != nil {
		return nil, fmt.Errorf("rhi: NewGraphicsPipeline: vertex stage: %w", err)
	}
	fs, err := dev.gpu.NewShaderCode(fsData)
	if err != nil {
		vs.Destroy()
		return nil, fmt.Errorf("rhi: NewGraphicsPipeline: fragment stage: %w", err)
	}
	p := &Pipeline{
		identity: desc.Identity,
		layout:   desc.Layout,
		gpu:      dev.gpu,
		vs:       vs,
		fs:       fs,
		input:    desc.Input,
		ds:       desc.DS,
		blend:    desc.Blend,
		variants: make(map[variantKey]driver.Pipeline),
	}
	return p, nil
}

// ComputeDesc is the full state of a compute Pipeline.
type ComputeDesc struct {
	Identity string
	Layout   *Layout
}

// NewComputePipeline compiles (or loads from cache) the compute
// shader named by desc.Identity and builds the single backend
// pipeline eagerly (compute pipelines have no pipeline-static state
// to vary).
func (dev *Device) NewComputePipeline(desc ComputeDesc, compiler Compiler) (*Pipeline, error) {
	blobs, err := resolveStages(dev.shaders, compiler, desc.Identity, []driver.Stage{driver.SCompute})
	if err != nil {
		return nil, err
	}
	cs, err := dev.gpu.NewShaderCode(blobs[0].Data)
	if err != nil {
		return nil, fmt.Errorf("rhi: NewComputePipeline: %w", err)
	}
	pl, err := dev.gpu.NewPipeline(&driver.CompState{
		Func: driver.ShaderFunc{Code: cs, Name: "main"},
		Desc: desc.Layout.Table(),
	})
	if err != nil {
		cs.Destroy()
		return nil, fmt.Errorf("rhi: NewComputePipeline: %w", err)
	}
	return &Pipeline{identity: desc.Identity, layout: desc.Layout, gpu: dev.gpu, compute: true, cs: cs, compPipe: pl}, nil
}

// variant returns the backend driver.Pipeline for the given
// pipeline-static state and render-target key, compiling it on first
// use.
func (p *Pipeline) variant(vk variantKey, raster driver.RasterState, samples int) (driver.Pipeline, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pl, ok := p.variants[vk]; ok {
		return pl, nil
	}
	colorFmt := make([]driver.PixelFmt, 0, 4)
	for _, f := range vk.rt.color {
		if f == driver.FInvalid {
			break
		}
		colorFmt = append(colorFmt, f)
	}
	gs := &driver.GraphState{
		VertFunc: driver.ShaderFunc{Code: p.vs, Name: "main"},
		FragFunc: driver.ShaderFunc{Code: p.fs, Name: "main"},
		Desc:     p.layout.Table(),
		Input:    p.input,
		Topology: vk.topology,
		Raster:   raster,
		Samples:  samples,
		DS:       p.ds,
		Blend:    p.blend,
		ColorFmt: colorFmt,
		DSFmt:    vk.rt.ds,
	}
	pl, err := p.gpu.NewPipeline(gs)
	if err != nil {
		return nil, fmt.Errorf("rhi: compiling pipeline variant for %q: %w", p.identity, err)
	}
	p.variants[vk] = pl
	return pl, nil
}
