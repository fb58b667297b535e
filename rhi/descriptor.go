// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package rhi

import (
	"encoding/binary"
	"fmt"

	"github.com/kestrelgpu/rhi/driver"
	"github.com/kestrelgpu/rhi/internal/bitm"
)

// descPoolCap is the number of descriptor-set copies preallocated in
// each pool. spec.md's example budget (1024 sets, a handful of each
// descriptor category) is sized for a pool shared by an entire
// render thread across every in-flight frame; here a pool belongs to
// a single CommandHandle (see the design note on DescAllocator
// below), so a smaller default suffices and pools still grow by
// chaining when it does not.
const descPoolCap = 256

// binding is the fixed-size (16 B) POD snapshot of one descriptor
// slot's bound resource, per spec.md §9: two 64-bit words are enough
// to hold the most complex case (a buffer identity plus an
// offset/size pair). The zero value represents an empty slot.
type binding [2]uint64

// bufferBinding packs a buffer identity and byte range into a
// binding snapshot.
func bufferBinding(id uint64, off, size int64) binding {
	return binding{id, uint64(off)<<32 | uint64(uint32(size))}
}

// resourceBinding packs a single resource identity (view, sampler,
// acceleration structure) into a binding snapshot.
func resourceBinding(id uint64) binding { return binding{id, 0} }

// combinedBinding packs an image view identity and a sampler
// identity sharing one binding (DCombinedImage).
func combinedBinding(viewID, splrID uint64) binding { return binding{viewID, splrID} }

// snapshotKey encodes a slice of bindings into a comparable string
// key, used for the per-CommandHandle descriptor-set dedup cache. It
// is exact (not merely a hash of the bindings), so two draws whose
// snapshots differ in only one word never collide.
func snapshotKey(bs []binding) string {
	buf := make([]byte, 16*len(bs))
	for i, b := range bs {
		binary.LittleEndian.PutUint64(buf[i*16:], b[0])
		binary.LittleEndian.PutUint64(buf[i*16+8:], b[1])
	}
	return string(buf)
}

// descPool is one fixed-capacity chunk of descriptor-set copies for
// a single Layout, plus the dedup cache of binding snapshots that
// have already had their descriptors written into one of its copies.
// Copy occupancy is tracked by a bitmap so a pool knows when it is
// exhausted without a separate counter.
type descPool struct {
	heap  driver.DescHeap
	table driver.DescTable
	used  bitm.Bitm[uint32]
	cache map[string]int
}

func newDescPool(gpu driver.GPU, l *Layout, cap int) (*descPool, error) {
	heap, err := gpu.NewDescHeap(l.descs)
	if err != nil {
		return nil, fmt.Errorf("rhi: newDescPool: NewDescHeap: %w", err)
	}
	if err := heap.New(cap); err != nil {
		heap.Destroy()
		return nil, fmt.Errorf("rhi: newDescPool: DescHeap.New: %w", err)
	}
	table, err := gpu.NewDescTable([]driver.DescHeap{heap})
	if err != nil {
		heap.Destroy()
		return nil, fmt.Errorf("rhi: newDescPool: NewDescTable: %w", err)
	}
	p := &descPool{heap: heap, table: table, cache: make(map[string]int, cap)}
	p.used.Grow((cap + 31) / 32)
	return p, nil
}

func (p *descPool) destroy() {
	p.table.Destroy()
	p.heap.Destroy()
}

func (p *descPool) reset() {
	p.used.Clear()
	clear(p.cache)
}

// descChain is the pool chain for a single Layout: one or more
// descPools, grown by appending (never by resizing an existing
// heap, which would invalidate descriptor sets already written into
// it — see spec.md §8 "descriptor pool exhaustion triggers chain
// growth, not failure").
type descChain struct {
	layout *Layout
	pools  []*descPool
}

// DescAllocator allocates and caches descriptor sets on behalf of a
// single CommandHandle.
//
// spec.md models this as a per-thread structure, with pools reset
// whenever their owning frame's fence signals. This port's
// concurrency model (see spec.md §5 and DESIGN.md) funnels all
// backend-touching recording onto a single render-thread dispatch
// queue, so the natural unit of "thread-local" here is not an OS
// thread but the CommandHandle whose recording is currently active:
// each CommandHandle owns its own DescAllocator, with its own
// private pools, so resetting it on recycle (after its own fence has
// signaled) can never invalidate descriptor sets some other,
// still-in-flight CommandHandle depends on.
type DescAllocator struct {
	gpu    driver.GPU
	chains map[*Layout]*descChain
}

func newDescAllocator(gpu driver.GPU) *DescAllocator {
	return &DescAllocator{gpu: gpu, chains: make(map[*Layout]*descChain)}
}

// Allocate returns the descriptor table and heap-copy index for the
// given layout and binding snapshot. isNew reports whether the
// returned copy has not yet had its descriptors written (the caller
// must then write them via the returned heap before recording the
// bind); when isNew is false, the copy is a cache hit and can be
// bound as-is.
func (a *DescAllocator) Allocate(l *Layout, bs []binding) (table driver.DescTable, heap driver.DescHeap, copyIdx int, isNew bool, err error) {
	ch, ok := a.chains[l]
	if !ok {
		ch = &descChain{layout: l}
		a.chains[l] = ch
	}

	key := snapshotKey(bs)
	for _, p := range ch.pools {
		if idx, ok := p.cache[key]; ok {
			return p.table, p.heap, idx, false, nil
		}
	}

	var p *descPool
	for _, cand := range ch.pools {
		if cand.used.Rem() > 0 {
			p = cand
			break
		}
	}
	if p == nil {
		p, err = newDescPool(a.gpu, l, descPoolCap)
		if err != nil {
			return nil, nil, 0, false, err
		}
		ch.pools = append(ch.pools, p)
	}

	idx, ok := p.used.Search()
	if !ok {
		// Unreachable: the pool was selected for having room.
		return nil, nil, 0, false, ErrPoolExhausted
	}
	p.used.Set(idx)
	p.cache[key] = idx
	return p.table, p.heap, idx, true, nil
}

// reset clears every pool's dedup cache and usage counter without
// releasing backend descriptor pools, so the same capacity is reused
// on the next recording after the owning CommandHandle recycles.
func (a *DescAllocator) reset() {
	for _, ch := range a.chains {
		for _, p := range ch.pools {
			p.reset()
		}
	}
}

// destroy releases every backend descriptor pool this allocator
// created.
func (a *DescAllocator) destroy() {
	for _, ch := range a.chains {
		for _, p := range ch.pools {
			p.destroy()
		}
	}
	a.chains = nil
}
