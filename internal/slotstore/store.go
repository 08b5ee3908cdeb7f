// Package slotstore implements the local slot store and its atomic
// reservation primitive: the fixed-length per-rank arrays of entries and
// occupancy flags that back one rank's share of the logical hash table,
// plus the compare-and-swap used to reserve a slot exactly once.
//
// Grounded on original_source/hash_map.hpp's request_slot/global_used
// pair, rendered with rpcnet.SharedArray/AtomicFlags instead of UPC++'s
// global_ptr and atomic_domain.
package slotstore

import (
	"github.com/dbgassembler/kmerhash/internal/kmer"
	"github.com/dbgassembler/kmerhash/internal/rpcnet"
)

// Store holds one rank's share of the logical table: L entries and L
// occupancy flags, where L is the scheme's SlotsPerRank. Every method here
// assumes it is called from the owning rank's progress-engine goroutine; the
// caller is responsible for that ordering.
type Store struct {
	entries *rpcnet.SharedArray[kmer.KmerPair]
	used    *rpcnet.AtomicFlags
}

// New allocates a zero-initialized Store of l slots. No barrier is called
// for construction: a Store is visible to all ranks because it is created
// and registered before any rank's goroutines start.
func New(l int) *Store {
	return &Store{
		entries: rpcnet.AllocShared[kmer.KmerPair](l),
		used:    rpcnet.AllocFlags(l),
	}
}

// Len returns L, the number of slots this rank owns.
func (s *Store) Len() int { return s.entries.Len() }

// Read fetches (used, entry) at local offset i: entries[i] is only
// meaningful when used is 1, which is established by the CAS that set it
// (happens-before through the atomic flag read).
func (s *Store) Read(i int) (used bool, entry kmer.KmerPair) {
	flag := s.used.Load(i)
	if flag == 0 {
		return false, kmer.KmerPair{}
	}
	return true, s.entries.Get(i)
}

// Write stores entry at local offset i. Legal only after a successful
// Reserve on the same offset; the caller is responsible for that ordering.
func (s *Store) Write(i int, entry kmer.KmerPair) {
	s.entries.Put(i, entry)
}

// Reserve atomically reserves local slot i, transitioning its occupancy
// flag 0 -> 1. It returns true iff this call performed that transition:
// under concurrent Reserve calls on the same i, exactly one returns true.
func (s *Store) Reserve(i int) bool {
	return s.used.CAS(i, 0, 1) == 0
}
