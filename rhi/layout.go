// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package rhi

import (
	"fmt"
	"hash/fnv"
	"sort"
	"sync"

	"github.com/kestrelgpu/rhi/driver"
)

// Layout is a shared, refcounted pipeline layout: a descriptor heap
// plus the descriptor table built from it, keyed by the normalized
// (stage mask, descriptor list) that produced it. Every Pipeline
// created with an identical descriptor list shares the same Layout.
type Layout struct {
	descs  []driver.Descriptor // Normalized: sorted by (Nr, Type).
	stages driver.Stage
	heap   driver.DescHeap
	table  driver.DescTable
	hash   uint64
	refs   int

	// Per-category tallies of descs, reported by DescCount.
	counts descCounts
}

type descCounts struct {
	buffer, image, constant, texture, sampler, combined int
	utexel, stexel, accel                               int
}

// Descs returns the normalized descriptor list backing this layout.
func (l *Layout) Descs() []driver.Descriptor { return l.descs }

// DescCount returns the number of descriptors of the given type the
// layout declares, counting array bindings once per element.
// DescAllocator does not read these tallies; the backend heap sizes
// each pool from the layout's descriptor list.
func (l *Layout) DescCount(t driver.DescType) int {
	switch t {
	case driver.DBuffer:
		return l.counts.buffer
	case driver.DImage:
		return l.counts.image
	case driver.DConstant:
		return l.counts.constant
	case driver.DTexture:
		return l.counts.texture
	case driver.DSampler:
		return l.counts.sampler
	case driver.DCombinedImage:
		return l.counts.combined
	case driver.DUniformTexel:
		return l.counts.utexel
	case driver.DStorageTexel:
		return l.counts.stexel
	case driver.DAccelStruct:
		return l.counts.accel
	}
	return 0
}

// Table returns the driver descriptor table built from this layout,
// for use in driver.GraphState.Desc / driver.CompState.Desc.
func (l *Layout) Table() driver.DescTable { return l.table }

// normalize returns a sorted copy of ds, ordered by (Nr, Type) as
// spec.md §4.3 requires ("sort by (binding, type)").
func normalize(ds []driver.Descriptor) []driver.Descriptor {
	out := make([]driver.Descriptor, len(ds))
	copy(out, ds)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Nr != out[j].Nr {
			return out[i].Nr < out[j].Nr
		}
		return out[i].Type < out[j].Type
	})
	return out
}

// hashLayout computes a stable hash of the normalized descriptor
// list, used as the first-level key into the layout cache. A hash
// collision is resolved by a byte-for-byte comparison of the
// normalized lists (see LayoutCache.Acquire).
func hashLayout(stages driver.Stage, ds []driver.Descriptor) uint64 {
	h := fnv.New64a()
	var b [8]byte
	putInt := func(v int) {
		b[0] = byte(v)
		b[1] = byte(v >> 8)
		b[2] = byte(v >> 16)
		b[3] = byte(v >> 24)
		b[4] = byte(v >> 32)
		b[5] = byte(v >> 40)
		b[6] = byte(v >> 48)
		b[7] = byte(v >> 56)
		h.Write(b[:])
	}
	putInt(int(stages))
	for _, d := range ds {
		putInt(int(d.Type))
		putInt(int(d.Stages))
		putInt(d.Nr)
		putInt(d.Len)
	}
	return h.Sum64()
}

func equalDescs(a, b []driver.Descriptor) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func tally(ds []driver.Descriptor) (c descCounts) {
	for _, d := range ds {
		switch d.Type {
		case driver.DBuffer:
			c.buffer += d.Len
		case driver.DImage:
			c.image += d.Len
		case driver.DConstant:
			c.constant += d.Len
		case driver.DTexture:
			c.texture += d.Len
		case driver.DSampler:
			c.sampler += d.Len
		case driver.DCombinedImage:
			c.combined += d.Len
		case driver.DUniformTexel:
			c.utexel += d.Len
		case driver.DStorageTexel:
			c.stexel += d.Len
		case driver.DAccelStruct:
			c.accel += d.Len
		}
	}
	return
}

// LayoutCache deduplicates Layouts by their normalized descriptor
// list, so every Pipeline sharing a binding signature shares a
// single backend descriptor heap/table pair. It is guarded by a
// single critical section, per spec.md §5.
type LayoutCache struct {
	gpu driver.GPU

	mu     sync.Mutex
	byHash map[uint64][]*Layout
}

// NewLayoutCache creates an empty cache.
func NewLayoutCache(gpu driver.GPU) *LayoutCache {
	return &LayoutCache{gpu: gpu, byHash: make(map[uint64][]*Layout)}
}

// Acquire returns the shared Layout for the given stage mask and
// descriptor list, creating one on a cache miss. The returned
// Layout's refcount is incremented; callers must call Release when
// done with it.
func (c *LayoutCache) Acquire(stages driver.Stage, ds []driver.Descriptor) (*Layout, error) {
	norm := normalize(ds)
	h := hashLayout(stages, norm)

	c.mu.Lock()
	for _, l := range c.byHash[h] {
		if equalDescs(l.descs, norm) && l.stages == stages {
			l.refs++
			c.mu.Unlock()
			return l, nil
		}
	}
	c.mu.Unlock()

	heap, err := c.gpu.NewDescHeap(norm)
	if err != nil {
		return nil, fmt.Errorf("rhi: LayoutCache.Acquire: NewDescHeap: %w", err)
	}
	if err := heap.New(1); err != nil {
		heap.Destroy()
		return nil, fmt.Errorf("rhi: LayoutCache.Acquire: DescHeap.New: %w", err)
	}
	table, err := c.gpu.NewDescTable([]driver.DescHeap{heap})
	if err != nil {
		heap.Destroy()
		return nil, fmt.Errorf("rhi: LayoutCache.Acquire: NewDescTable: %w", err)
	}

	l := &Layout{
		descs:  norm,
		stages: stages,
		heap:   heap,
		table:  table,
		hash:   h,
		refs:   1,
		counts: tally(norm),
	}

	c.mu.Lock()
	// Re-check: another goroutine may have inserted an identical
	// layout while this one was being built outside the lock.
	for _, o := range c.byHash[h] {
		if equalDescs(o.descs, norm) && o.stages == stages {
			o.refs++
			c.mu.Unlock()
			table.Destroy()
			heap.Destroy()
			return o, nil
		}
	}
	c.byHash[h] = append(c.byHash[h], l)
	c.mu.Unlock()
	return l, nil
}

// Release decrements l's refcount, destroying its backend layout and
// removing it from the cache once the count reaches zero.
func (c *LayoutCache) Release(l *Layout) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l.refs--
	if l.refs > 0 {
		return
	}
	bucket := c.byHash[l.hash]
	for i, o := range bucket {
		if o == l {
			bucket[i] = bucket[len(bucket)-1]
			c.byHash[l.hash] = bucket[:len(bucket)-1]
			break
		}
	}
	l.table.Destroy()
	l.heap.Destroy()
}
