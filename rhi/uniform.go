// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package rhi

import (
	"fmt"

	"github.com/kestrelgpu/rhi/driver"
)

// defaultPageSize is the capacity, in bytes, of each UniformPage.
// 64 KiB accommodates 256 draws worth of a 256-byte uniform block
// before a new page is needed, which keeps the common case (a frame
// of draws sharing one CommandHandle) to a handful of pages.
const defaultPageSize = 64 << 10

// uniformAlign is the alignment required of every allocation
// returned by pager.alloc, matching the alignment GraphicsState
// expects of uniform-buffer descriptor ranges.
const uniformAlign = 256

// uniformPage is a fixed-capacity, host-visible buffer sub-allocated
// for per-draw uniform data within a single CommandHandle's
// lifetime. Pages are linked so a handle can grow without
// invalidating offsets already handed out this frame.
type uniformPage struct {
	buf    driver.Buffer
	cap    int64
	cursor int64
	next   *uniformPage
}

// newUniformPage allocates a new host-visible page of the given
// capacity.
func newUniformPage(gpu driver.GPU, cap int64) (*uniformPage, error) {
	buf, err := gpu.NewBuffer(cap, true, driver.UShaderConst)
	if err != nil {
		return nil, fmt.Errorf("rhi: uniform page allocation failed: %w", err)
	}
	return &uniformPage{buf: buf, cap: buf.Cap()}, nil
}

// pager sub-allocates uniform memory for the lifetime of a single
// CommandHandle. It must not be used concurrently; a CommandHandle
// owns exactly one pager and the handle's owning goroutine is the
// only writer.
type pager struct {
	gpu      driver.GPU
	pageSize int64
	head     *uniformPage
	cur      *uniformPage
	npages   int
}

// newPager creates an empty pager. Pages are created lazily on the
// first alloc call.
func newPager(gpu driver.GPU, pageSize int64) *pager {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &pager{gpu: gpu, pageSize: pageSize}
}

// alloc sub-allocates size bytes of uniform memory, advancing from
// the current page. If the current page lacks room, the next page
// in the list is used (or a new one is appended). The returned
// offset is only valid until the owning CommandHandle is reset.
func (p *pager) alloc(size int64) (buf driver.Buffer, off int64, err error) {
	if p.cur == nil {
		if p.head == nil {
			p.head, err = newUniformPage(p.gpu, p.pageSize)
			if err != nil {
				return
			}
			p.npages = 1
		}
		p.cur = p.head
	}
	aligned := (size + uniformAlign - 1) &^ (uniformAlign - 1)
	for {
		if p.cur.cursor+aligned <= p.cur.cap {
			off = p.cur.cursor
			p.cur.cursor += aligned
			buf = p.cur.buf
			return
		}
		if p.cur.next == nil {
			cap := p.pageSize
			if aligned > cap {
				cap = aligned
			}
			p.cur.next, err = newUniformPage(p.gpu, cap)
			if err != nil {
				return
			}
			p.npages++
		}
		p.cur = p.cur.next
	}
}

// reset rewinds every page's cursor to zero without freeing the
// pages, so the same backing memory is reused on the next frame that
// recycles this pager's CommandHandle.
func (p *pager) reset() {
	for pg := p.head; pg != nil; pg = pg.next {
		pg.cursor = 0
	}
	p.cur = p.head
}

// flush makes host writes visible to the GPU. The backend always
// allocates uniform pages from host-coherent memory (see
// driver/vk's buffer allocator), so this is a deliberate no-op; it
// exists so call sites read the way the invariant in spec.md §4.2
// describes them ("flush is called before submit ... reset is not a
// flush") even though this backend needs no explicit flush.
func (p *pager) flush() {}

// destroy releases every page's backend buffer. Called only once the
// owning CommandHandle itself is being torn down for good (not on
// ordinary recycle, which calls reset instead).
func (p *pager) destroy() {
	for pg := p.head; pg != nil; {
		next := pg.next
		pg.buf.Destroy()
		pg = next
	}
	p.head, p.cur, p.npages = nil, nil, 0
}
