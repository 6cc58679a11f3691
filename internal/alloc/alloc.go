// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package alloc implements a power-of-two buddy allocator over a
// single growable backing range, for sub-allocating large shared
// vertex/index buffers and material UBO arenas out of one contiguous
// driver.Buffer.
package alloc

import (
	"errors"
	"sync"

	"github.com/shard3d/shard/internal/bitm"
)

var (
	// ErrTooLarge means the requested size exceeds the allocator's
	// largest configured order.
	ErrTooLarge = errors.New("alloc: requested size exceeds the largest block order")
	// ErrExhausted means no free block exists at the needed order,
	// even after growing the backing range.
	ErrExhausted = errors.New("alloc: backing range exhausted")
	// ErrMisaligned means an offset passed to Free is not a multiple
	// of the allocator's granularity.
	ErrMisaligned = errors.New("alloc: offset is not block-aligned")
	// ErrNotAllocated means Free was called with an offset that does
	// not correspond to a live allocation.
	ErrNotAllocated = errors.New("alloc: offset has no live allocation")
	errBadConfig    = errors.New("alloc: invalid allocator configuration")
)

// Allocator sub-allocates a single contiguous backing range, rooted
// at order 0 (size Granularity) up to a fixed top order (size
// Granularity<<(orders-1)). Block offsets, once returned by Allocate,
// remain valid for the allocator's lifetime: Reserve only ever
// appends new top-order blocks, it never moves existing ones.
//
// One Allocator owns exactly one backing buffer; callers that need
// to track more than one contiguous range (e.g. one per vertex
// layout) use one Allocator per range.
type Allocator struct {
	mu          sync.Mutex
	granularity int64
	counts      []int // counts[o]: number of order-o blocks currently tracked
	free        []bitm.Bitm[uint64]
	// owners maps a base-order (order 0) block index to the order
	// at which it was allocated, so Free can locate and coalesce it
	// from the offset alone.
	owners map[int64]int
}

// New creates an Allocator with granularity-byte order-0 blocks,
// "orders" order levels (0 through orders-1), and initialTop blocks
// already available at the top order.
func New(granularity int64, orders, initialTop int) (*Allocator, error) {
	if granularity <= 0 || orders <= 0 || initialTop <= 0 {
		return nil, errBadConfig
	}
	a := &Allocator{
		granularity: granularity,
		counts:      make([]int, orders),
		free:        make([]bitm.Bitm[uint64], orders),
		owners:      make(map[int64]int),
	}
	top := orders - 1
	for o := 0; o < orders; o++ {
		a.counts[o] = initialTop << (top - o)
		a.ensure(o)
	}
	for i := 0; i < initialTop; i++ {
		a.free[top].Set(i)
	}
	return a, nil
}

// ensure grows free[order]'s backing words until it covers
// counts[order] bits. New words default unset, meaning "not a free
// leaf at this order" — correct for freshly added capacity, which is
// only ever marked free at the order it was actually added at.
func (a *Allocator) ensure(order int) {
	b := &a.free[order]
	for b.Len() < a.counts[order] {
		b.Grow(1)
	}
}

// Cap returns the allocator's total backing size in bytes.
func (a *Allocator) Cap() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return int64(a.counts[0]) * a.granularity
}

func (a *Allocator) orderFor(size int64) (int, error) {
	if size <= 0 {
		size = 1
	}
	blocks := (size + a.granularity - 1) / a.granularity
	ord := 0
	for int64(1)<<ord < blocks {
		ord++
		if ord >= len(a.counts) {
			return 0, ErrTooLarge
		}
	}
	return ord, nil
}

// Allocate rounds size up to the next power-of-two multiple of the
// allocator's granularity, finds (splitting a larger free block if
// needed) or grows into a free block of that size, and returns its
// byte offset in the backing range.
func (a *Allocator) Allocate(size int64) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ord, err := a.orderFor(size)
	if err != nil {
		return 0, err
	}
	idx, ok := a.findFree(ord)
	if !ok {
		a.growLocked(ord)
		idx, ok = a.findFree(ord)
		if !ok {
			return 0, ErrExhausted
		}
	}
	base := int64(idx) << ord
	a.owners[base] = ord
	return base * a.granularity, nil
}

// Free releases the allocation at offset (as returned by Allocate),
// marking its block free and coalescing with its buddy as far up the
// tree as the buddy chain allows.
func (a *Allocator) Free(offset int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if offset < 0 || offset%a.granularity != 0 {
		return ErrMisaligned
	}
	base := offset / a.granularity
	ord, ok := a.owners[base]
	if !ok {
		return ErrNotAllocated
	}
	delete(a.owners, base)
	a.coalesce(int(base>>ord), ord)
	return nil
}

// Reserve ensures the backing range holds at least minBytes, doubling
// the block count at every order (appending fresh top-order blocks)
// until it does. Existing block offsets are never touched.
func (a *Allocator) Reserve(minBytes int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for int64(a.counts[0])*a.granularity < minBytes {
		a.growLocked(0)
	}
	return nil
}

// growLocked doubles the backing range once. Called with a.mu held.
// The order argument is unused beyond documenting the caller's
// intent; growth always doubles the whole range regardless of which
// order triggered it, per the "no block at the needed level" policy.
func (a *Allocator) growLocked(int) {
	top := len(a.counts) - 1
	old := a.counts[top]
	for o := range a.counts {
		a.counts[o] *= 2
		a.ensure(o)
	}
	for i := old; i < a.counts[top]; i++ {
		a.free[top].Set(i)
	}
}

// scanFree returns the index of the first free (set) leaf bit at
// order, if any. Orders are small in practice (a handful of
// vertex-layout/material arenas), so a linear scan is simpler than
// reusing Bitm.Search, whose "first unset bit" convention is inverted
// relative to the "set means free leaf" convention used here.
func (a *Allocator) scanFree(order int) (int, bool) {
	b := &a.free[order]
	for i := 0; i < a.counts[order]; i++ {
		if b.IsSet(i) {
			return i, true
		}
	}
	return 0, false
}

// findFree locates a free block at order, splitting a free block from
// a coarser order if none exists at order itself. The returned index
// is consumed (no longer marked free): the caller either allocates it
// directly or splits it further.
func (a *Allocator) findFree(order int) (int, bool) {
	if order >= len(a.free) {
		return 0, false
	}
	if i, ok := a.scanFree(order); ok {
		a.free[order].Unset(i)
		return i, true
	}
	parent, ok := a.findFree(order + 1)
	if !ok {
		return 0, false
	}
	left := parent * 2
	right := left + 1
	a.free[order].Set(right)
	return left, true
}

// coalesce marks the block at (idx, order) free, merging with its
// buddy repeatedly while the buddy is itself a free leaf.
func (a *Allocator) coalesce(idx, order int) {
	for order < len(a.free)-1 {
		buddy := idx ^ 1
		if buddy >= a.counts[order] || !a.free[order].IsSet(buddy) {
			break
		}
		a.free[order].Unset(buddy)
		idx /= 2
		order++
	}
	a.free[order].Set(idx)
}
