// Package partition implements the block partitioning scheme used to map a
// global slot index onto an owning rank and a local offset. A DistHash
// implementation would map keys to sites with a consistent-hashing ring to
// minimize key movement on membership change, but the table size here is
// fixed for its lifetime, so the mapping is a pure arithmetic function
// instead.
package partition

import "fmt"

// Scheme is a fixed block partitioning of M = L*N global slots across N
// ranks of L slots each.
type Scheme struct {
	ranks        int
	slotsPerRank int
}

// New creates a partitioning scheme for n ranks of l slots each.
func New(n, l int) Scheme {
	if n <= 0 || l <= 0 {
		panic("partition: ranks and slots-per-rank must be positive")
	}
	return Scheme{ranks: n, slotsPerRank: l}
}

// Ranks returns the number of ranks N.
func (s Scheme) Ranks() int { return s.ranks }

// SlotsPerRank returns L, the number of slots each rank owns.
func (s Scheme) SlotsPerRank() int { return s.slotsPerRank }

// Size returns M = L*N, the total number of slots in the logical table.
func (s Scheme) Size() int { return s.ranks * s.slotsPerRank }

// Locate maps a global slot index g to its owning rank and local offset.
func (s Scheme) Locate(g int) (rank, local int, err error) {
	if g < 0 || g >= s.Size() {
		return 0, 0, fmt.Errorf("partition: slot %d out of range [0, %d)", g, s.Size())
	}
	return g / s.slotsPerRank, g % s.slotsPerRank, nil
}

// Global maps a (rank, local offset) pair back to its global slot index.
func (s Scheme) Global(rank, local int) (g int, err error) {
	if rank < 0 || rank >= s.ranks {
		return 0, fmt.Errorf("partition: rank %d out of range [0, %d)", rank, s.ranks)
	}
	if local < 0 || local >= s.slotsPerRank {
		return 0, fmt.Errorf("partition: local offset %d out of range [0, %d)", local, s.slotsPerRank)
	}
	return rank*s.slotsPerRank + local, nil
}
