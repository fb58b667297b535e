// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package rhi

import (
	"bytes"
	"errors"
	"testing"

	"github.com/kestrelgpu/rhi/driver"
)

func TestShaderCacheRoundTrip(t *testing.T) {
	c := NewShaderCache()
	c.insert("mat/opaque", []stageBlob{
		{Stage: driver.SVertex, Data: []byte{1, 2, 3, 4}},
		{Stage: driver.SFragment, Data: []byte{5, 6, 7, 8}},
	})
	c.insert("mat/shadow", []stageBlob{
		{Stage: driver.SVertex, Data: []byte{9, 10, 11, 12}},
	})

	var buf bytes.Buffer
	if err := c.Store(&buf); err != nil {
		t.Fatalf("Store: %v", err)
	}
	c2, err := LoadShaderCache(&buf)
	if err != nil {
		t.Fatalf("LoadShaderCache: %v", err)
	}
	for _, id := range []string{"mat/opaque", "mat/shadow"} {
		want, _ := c.lookup(id)
		have, ok := c2.lookup(id)
		if !ok {
			t.Fatalf("entry %q missing after round trip", id)
		}
		if len(have) != len(want) {
			t.Fatalf("entry %q: %d stages, want %d", id, len(have), len(want))
		}
		for i := range want {
			if have[i].Stage != want[i].Stage || !bytes.Equal(have[i].Data, want[i].Data) {
				t.Errorf("entry %q stage %d differs after round trip", id, i)
			}
		}
	}
}

func TestLoadShaderCacheEmpty(t *testing.T) {
	c, err := LoadShaderCache(bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("LoadShaderCache of empty input: %v", err)
	}
	if len(c.entries) != 0 {
		t.Fatalf("empty input produced %d entries", len(c.entries))
	}
}

func TestPipelineCacheMissWithoutCompiler(t *testing.T) {
	dev := openTestDevice(t)
	layout, err := dev.Layouts().Acquire(driver.SVertex|driver.SFragment, nil)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	_, err = dev.NewGraphicsPipeline(GraphicsDesc{Identity: "missing", Layout: layout}, nil)
	if !errors.Is(err, ErrNoCompiler) {
		t.Errorf("cache miss with no compiler: err = %v, want ErrNoCompiler", err)
	}
}

func TestShaderCacheAvoidsRecompilation(t *testing.T) {
	dev := openTestDevice(t)
	layout, err := dev.Layouts().Acquire(driver.SVertex|driver.SFragment, nil)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	comp := &fakeCompiler{}
	if _, err := dev.NewGraphicsPipeline(GraphicsDesc{Identity: "mat/a", Layout: layout}, comp); err != nil {
		t.Fatalf("NewGraphicsPipeline: %v", err)
	}
	if comp.n != 2 {
		t.Fatalf("compile calls after first build = %d, want 2 (vertex+fragment)", comp.n)
	}
	// The second build of the same identity hits the blob cache.
	if _, err := dev.NewGraphicsPipeline(GraphicsDesc{Identity: "mat/a", Layout: layout}, comp); err != nil {
		t.Fatalf("NewGraphicsPipeline: %v", err)
	}
	if comp.n != 2 {
		t.Errorf("compile calls after cached rebuild = %d, want 2", comp.n)
	}
	// A compute identity compiles its single stage once.
	if _, err := dev.NewComputePipeline(ComputeDesc{Identity: "comp/a", Layout: layout}, comp); err != nil {
		t.Fatalf("NewComputePipeline: %v", err)
	}
	if comp.n != 3 {
		t.Errorf("compile calls after compute build = %d, want 3", comp.n)
	}
}

func TestDevicePipelineCacheRoundTrip(t *testing.T) {
	dev := openTestDevice(t)
	data, err := dev.PipelineCacheData()
	if err != nil {
		t.Fatalf("PipelineCacheData: %v", err)
	}
	if err := dev.LoadPipelineCache(data); err != nil {
		t.Fatalf("LoadPipelineCache: %v", err)
	}
}
