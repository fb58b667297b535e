// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package rhi

import (
	"fmt"
	"sync"

	"github.com/kestrelgpu/rhi/driver"
)

// cbState is the state of a CommandHandle's underlying command
// buffer. The only valid transitions are
//
//	Unused --begin--> Active --end--> Pending --submit--> Submitted
//	Submitted --fence signaled + reset--> Unused
//
// Any other transition is a bug and panics.
type cbState int

// CommandHandle states.
const (
	Unused cbState = iota
	Active
	Pending
	Submitted
)

func (s cbState) String() string {
	switch s {
	case Unused:
		return "Unused"
	case Active:
		return "Active"
	case Pending:
		return "Pending"
	case Submitted:
		return "Submitted"
	default:
		return "invalid"
	}
}

// CommandHandle pairs a driver.CmdBuffer with the bookkeeping needed
// to know when it is safe to record into or recycle: its state, the
// uniform pages it owns for this recording, and the stagging list of
// resources retained until the handle's fence signals.
type CommandHandle struct {
	dev       *Device
	cb        driver.CmdBuffer
	secondary bool
	state     cbState
	done      chan *driver.WorkItem
	pager     *pager
	descs     *DescAllocator
	stagging  []*Handle

	// Secondary handles run via Context.Execute. They stay in
	// Pending until this (primary) handle's fence signals, at
	// which point they are recycled along with it.
	staggedCmds []*CommandHandle
}

// Kind reports KindCmdHandle.
func (*CommandHandle) Kind() Kind { return KindCmdHandle }

func (h *CommandHandle) destroy() {
	h.pager.destroy()
	h.descs.destroy()
	h.cb.Destroy()
}

// Descriptors returns the DescAllocator that scopes descriptor-set
// allocation and caching to this handle's recording lifetime.
func (h *CommandHandle) Descriptors() *DescAllocator { return h.descs }

// Secondary reports whether h records secondary (executed-into)
// commands.
func (h *CommandHandle) Secondary() bool { return h.secondary }

// State reports the handle's current state.
func (h *CommandHandle) State() cbState { return h.state }

// CmdBuffer exposes the underlying driver.CmdBuffer for recording.
func (h *CommandHandle) CmdBuffer() driver.CmdBuffer { return h.cb }

// retainCmd appends a secondary handle to the stagging list, so it
// is not recycled before this (primary) handle's fence signals.
func (h *CommandHandle) retainCmd(sec *CommandHandle) {
	for _, s := range h.staggedCmds {
		if s == sec {
			return
		}
	}
	h.staggedCmds = append(h.staggedCmds, sec)
}

// retain appends r to the stagging list, so it is not destroyed
// before this handle's fence signals. It is a no-op if r is already
// staged on this handle (common case: the same resource bound
// repeatedly across many draws in one recording).
func (h *CommandHandle) retain(r *Handle) {
	for _, s := range h.stagging {
		if s == r {
			return
		}
	}
	r.retain()
	h.stagging = append(h.stagging, r)
}

// allocUniform sub-allocates size bytes of uniform memory valid
// until h is next reset.
func (h *CommandHandle) allocUniform(size int64) (driver.Buffer, int64, error) {
	return h.pager.alloc(size)
}

// begin transitions h from Unused to Active and begins recording.
func (h *CommandHandle) begin() error {
	if h.state != Unused {
		panic(fmt.Sprintf("rhi: begin called on CommandHandle in state %s", h.state))
	}
	if err := h.cb.Begin(); err != nil {
		return fmt.Errorf("rhi: CommandHandle.begin: %w", err)
	}
	h.state = Active
	return nil
}

// end transitions h from Active to Pending.
func (h *CommandHandle) end() error {
	if h.state != Active {
		panic(fmt.Sprintf("rhi: end called on CommandHandle in state %s", h.state))
	}
	if err := h.cb.End(); err != nil {
		h.state = Unused
		return fmt.Errorf("rhi: CommandHandle.end: %w", err)
	}
	h.state = Pending
	h.pager.flush()
	return nil
}

// recycle releases every staged resource, resets the pager and
// command buffer, and transitions h back to Unused. It must only be
// called once h.done has delivered its completion. Secondary handles
// staged on h are recycled along with it; they never have a fence of
// their own because only the primary that executed them is submitted.
func (h *CommandHandle) recycle() error {
	if h.state != Submitted {
		panic(fmt.Sprintf("rhi: recycle called on CommandHandle in state %s", h.state))
	}
	if err := h.reclaim(); err != nil {
		return err
	}
	for _, sec := range h.staggedCmds {
		if sec.state != Pending {
			panic(fmt.Sprintf("rhi: staged secondary CommandHandle in state %s", sec.state))
		}
		if err := sec.reclaim(); err != nil {
			return err
		}
		sec.state = Unused
	}
	h.staggedCmds = h.staggedCmds[:0]
	h.state = Unused
	return nil
}

// reclaim resets h's command buffer, releases its staged resources
// and rewinds its uniform pages and descriptor caches.
func (h *CommandHandle) reclaim() error {
	if err := h.cb.Reset(); err != nil {
		return fmt.Errorf("rhi: CommandHandle.recycle: %w", err)
	}
	for _, s := range h.stagging {
		s.release()
	}
	h.stagging = h.stagging[:0]
	h.pager.reset()
	h.descs.reset()
	return nil
}

// Wait blocks until h's fence signals and recycles it. It is used
// before destroying the handle outright (see CmdPool.Destroy).
// CmdPool.Request does not call it: when no pooled handle has
// signaled, Request allocates a new one.
func (h *CommandHandle) Wait() error {
	<-h.done
	return h.recycle()
}

// CmdPool supplies primary or secondary CommandHandles and recycles
// them once their fence signals. A CmdPool is thread-local: it must
// only ever be used by the single goroutine that owns it (the
// "submitting thread" in spec.md's terms) because its free list
// assumes no concurrent Request/Submit calls, though a mutex still
// guards push/pop since a background destruction goroutine may also
// retire handles via Wait.
type CmdPool struct {
	dev       *Device
	secondary bool
	mu        sync.Mutex
	handles   []*CommandHandle
}

// NewCmdPool creates an empty pool of primary or secondary
// CommandHandles.
func NewCmdPool(dev *Device, secondary bool) *CmdPool {
	return &CmdPool{dev: dev, secondary: secondary}
}

// Request returns a handle in state Unused. An existing pooled
// handle is reused if its fence has already signaled (cmd-buffer
// reset, fence reset and uniform-page cursors reset); otherwise a
// new handle is allocated.
func (p *CmdPool) Request() (*CommandHandle, error) {
	p.mu.Lock()
	for _, h := range p.handles {
		if h.state != Submitted {
			continue
		}
		select {
		case wk := <-h.done:
			_ = wk
			p.mu.Unlock()
			if err := h.recycle(); err != nil {
				return nil, err
			}
			return h, nil
		default:
		}
	}
	p.mu.Unlock()

	cb, err := p.dev.gpu.NewCmdBuffer(p.secondary)
	if err != nil {
		return nil, fmt.Errorf("rhi: CmdPool.Request: %w", err)
	}
	h := &CommandHandle{
		dev:       p.dev,
		cb:        cb,
		secondary: p.secondary,
		done:      make(chan *driver.WorkItem, 1),
		pager:     newPager(p.dev.gpu, defaultPageSize),
		descs:     newDescAllocator(p.dev.gpu),
	}
	p.mu.Lock()
	p.handles = append(p.handles, h)
	p.mu.Unlock()
	return h, nil
}

// Submit commits h for execution. h must be in state Pending (i.e.,
// End has already been called on it). Submission failures are fatal
// (device lost).
func (p *CmdPool) Submit(h *CommandHandle) error {
	if h.state != Pending {
		panic(fmt.Sprintf("rhi: submit called on CommandHandle in state %s", h.state))
	}
	wk := &driver.WorkItem{Work: []driver.CmdBuffer{h.cb}}
	if err := p.dev.gpu.Commit(wk, h.done); err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceLost, err)
	}
	h.state = Submitted
	return nil
}

// Destroy waits on and destroys every handle in the pool. It must
// only be called once all handles are no longer in use.
func (p *CmdPool) Destroy() {
	p.mu.Lock()
	handles := p.handles
	p.handles = nil
	p.mu.Unlock()
	for _, h := range handles {
		if h.state == Submitted {
			h.Wait()
		}
		h.destroy()
	}
}
