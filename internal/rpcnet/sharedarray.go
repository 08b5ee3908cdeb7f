package rpcnet

import "sync/atomic"

// SharedArray is the per-rank storage half of the distributed-memory
// capability ranks allocate from (alloc_shared<T>(n) -> SharedArray<T>). It
// is a plain local array: safety comes not from synchronizing access to it
// but from the rule that it is only ever touched from within its owning
// rank's progress-engine goroutine, via RPC handlers dispatched through a
// *Handle.
type SharedArray[T any] struct {
	data []T
}

// AllocShared allocates a zero-initialized shared array of length n. It is
// typically called once per rank during construction, before any rank's
// goroutines start; no barrier is called for this step, so the zero state
// is visible to every rank through that goroutine start ordering alone.
func AllocShared[T any](n int) *SharedArray[T] {
	return &SharedArray[T]{data: make([]T, n)}
}

// Len returns the number of elements in the array.
func (s *SharedArray[T]) Len() int { return len(s.data) }

// Get reads the element at local index i. Must be called from the owning
// rank's progress-engine goroutine.
func (s *SharedArray[T]) Get(i int) T { return s.data[i] }

// Put stores v at local index i. Must be called from the owning rank's
// progress-engine goroutine, and only after any CAS guarding the slot has
// succeeded.
func (s *SharedArray[T]) Put(i int, v T) { s.data[i] = v }

// AtomicFlags is a shared array of 32-bit occupancy flags supporting
// compare-and-swap, the atomic reservation primitive a slot store uses to
// claim a slot exactly once. Flags only ever transition 0 -> 1; the CAS here
// enforces that at most one caller observes the 0 -> 1 transition for a
// given index.
type AtomicFlags struct {
	used []int32
}

// AllocFlags allocates a zero-initialized flag array of length n.
func AllocFlags(n int) *AtomicFlags {
	return &AtomicFlags{used: make([]int32, n)}
}

// Len returns the number of flags.
func (a *AtomicFlags) Len() int { return len(a.used) }

// Load reads the flag at index i atomically. Relaxed ordering would be
// enough here, because readers only trust entries[i] after observing
// used[i] == 1; Go's atomic load is stronger than that.
func (a *AtomicFlags) Load(i int) int32 {
	return atomic.LoadInt32(&a.used[i])
}

// CAS atomically compares-and-swaps the flag at index i from expected to
// desired, returning the previously observed value. Exactly one concurrent
// caller racing on the same index with expected=0 observes 0 back; every
// other caller observes 1.
func (a *AtomicFlags) CAS(i int, expected, desired int32) (prev int32) {
	if atomic.CompareAndSwapInt32(&a.used[i], expected, desired) {
		return expected
	}
	return atomic.LoadInt32(&a.used[i])
}
