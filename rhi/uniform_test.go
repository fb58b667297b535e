// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package rhi

import "testing"

func TestPagerAllocAlignsAndAdvances(t *testing.T) {
	p := newPager(fakeGPU{}, 1024)
	_, off1, err := p.alloc(10)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	if off1 != 0 {
		t.Fatalf("first offset = %d, want 0", off1)
	}
	_, off2, err := p.alloc(10)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	if off2 != uniformAlign {
		t.Fatalf("second offset = %d, want %d", off2, uniformAlign)
	}
}

func TestPagerPageCount(t *testing.T) {
	p := newPager(fakeGPU{}, defaultPageSize)
	const allocs = 10000
	for i := 0; i < allocs; i++ {
		if _, _, err := p.alloc(256); err != nil {
			t.Fatalf("alloc #%d: %v", i, err)
		}
	}
	// ceil(10000*256 / 65536) pages on the first frame.
	const want = (allocs*256 + defaultPageSize - 1) / defaultPageSize
	if p.npages != want {
		t.Fatalf("pages after first frame = %d, want %d", p.npages, want)
	}
	// The second frame reuses every page: zero new pages.
	p.reset()
	for i := 0; i < allocs; i++ {
		if _, _, err := p.alloc(256); err != nil {
			t.Fatalf("alloc #%d: %v", i, err)
		}
	}
	if p.npages != want {
		t.Fatalf("pages after second frame = %d, want %d", p.npages, want)
	}
	p.destroy()
}

func TestPagerGrowsAndResets(t *testing.T) {
	p := newPager(fakeGPU{}, 256)
	for i := 0; i < 20; i++ {
		if _, _, err := p.alloc(200); err != nil {
			t.Fatalf("alloc #%d: %v", i, err)
		}
	}
	if p.npages < 2 {
		t.Fatalf("expected pager to grow past one page, got %d", p.npages)
	}
	n := p.npages
	p.reset()
	if p.npages != n {
		t.Fatalf("reset freed pages: npages = %d, want %d", p.npages, n)
	}
	_, off, err := p.alloc(8)
	if err != nil {
		t.Fatalf("alloc after reset: %v", err)
	}
	if off != 0 {
		t.Fatalf("offset after reset = %d, want 0", off)
	}
	p.destroy()
}
