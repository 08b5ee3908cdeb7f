package assembly

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dbgassembler/kmerhash/internal/dht"
	"github.com/dbgassembler/kmerhash/internal/kmer"
	"github.com/dbgassembler/kmerhash/internal/kmerio"
	"github.com/dbgassembler/kmerhash/internal/partition"
	"github.com/dbgassembler/kmerhash/internal/rpcnet"
	"github.com/dbgassembler/kmerhash/internal/slotstore"
)

// setup builds an n-rank cluster of Drivers sharing one logical table of
// slotsPerRank slots per rank, mirroring how cmd/kmerhash wires things.
func setup(t *testing.T, n, slotsPerRank int) (drivers []*Driver, stop func()) {
	scheme := partition.New(n, slotsPerRank)
	cl := rpcnet.New(n)
	reg := slotstore.NewRegistry()

	stopCh := make(chan struct{})
	var wg sync.WaitGroup
	drivers = make([]*Driver, n)
	for r := 0; r < n; r++ {
		h := cl.Handle(r)
		reg.Register(slotstore.Key("run", r), slotstore.New(slotsPerRank))
		table := dht.New(scheme, h, reg, "run", nil)
		drivers[r] = New(table, h, nil)
		wg.Add(1)
		go func(h *rpcnet.Handle) {
			defer wg.Done()
			h.Serve(stopCh)
		}(h)
	}
	return drivers, func() {
		close(stopCh)
		wg.Wait()
	}
}

func TestSingleRankTwoKmersNoCollision(t *testing.T) {
	// K=3, {ATC back=F fwd=G, TCG back=A fwd=F}; expected contig "ATCG",
	// one start node. next_kmer is computed from the forward extension
	// field, not from table lookup, so fwd values must actually link ATC
	// to TCG.
	drivers, stop := setup(t, 1, 8)
	defer stop()

	atc, err := kmer.New("ATC", kmer.ExtNone, kmer.ExtG)
	require.NoError(t, err)
	tcg, err := kmer.New("TCG", kmer.ExtA, kmer.ExtNone)
	require.NoError(t, err)

	res, err := drivers[0].Run([]kmer.KmerPair{atc, tcg})
	require.NoError(t, err)
	require.Equal(t, 1, res.StartNodes)
	require.Len(t, res.Contigs, 1)
	require.Equal(t, "ATCG", kmerio.ExtractContig(res.Contigs[0]))
}

func TestAssemblyEndToEndAcrossTwoRanks(t *testing.T) {
	// K=3, lines ATC/F/G, TCG/A/T, CGT/T/F, split across 2 ranks; expected
	// single contig ATCGT, ATC is the sole start node.
	drivers, stop := setup(t, 2, 8)
	defer stop()

	atc, err := kmer.New("ATC", kmer.ExtNone, kmer.ExtG)
	require.NoError(t, err)
	tcg, err := kmer.New("TCG", kmer.ExtA, kmer.ExtT)
	require.NoError(t, err)
	cgt, err := kmer.New("CGT", kmer.ExtT, kmer.ExtNone)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]Result, 2)
	errs := make([]error, 2)
	shards := [][]kmer.KmerPair{{atc}, {tcg, cgt}}
	for r := 0; r < 2; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			results[r], errs[r] = drivers[r].Run(shards[r])
		}(r)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	var allContigs [][]kmer.KmerPair
	for _, res := range results {
		allContigs = append(allContigs, res.Contigs...)
	}
	require.Len(t, allContigs, 1)
	require.Equal(t, "ATCGT", kmerio.ExtractContig(allContigs[0]))
	require.Equal(t, 1, results[0].StartNodes)
	require.Equal(t, 0, results[1].StartNodes)
}

func TestContigSoundness(t *testing.T) {
	drivers, stop := setup(t, 1, 8)
	defer stop()

	atc, err := kmer.New("ATC", kmer.ExtNone, kmer.ExtG)
	require.NoError(t, err)
	tcg, err := kmer.New("TCG", kmer.ExtA, kmer.ExtT)
	require.NoError(t, err)
	cgt, err := kmer.New("CGT", kmer.ExtT, kmer.ExtNone)
	require.NoError(t, err)

	res, err := drivers[0].Run([]kmer.KmerPair{atc, tcg, cgt})
	require.NoError(t, err)
	require.Len(t, res.Contigs, 1)
	contig := res.Contigs[0]
	for i := 0; i < len(contig)-1; i++ {
		a, b := contig[i], contig[i+1]
		nextKey, err := a.NextKey()
		require.NoError(t, err)
		require.True(t, b.Kmer.Equal(nextKey))
	}
}

func TestLookupMissIsFatal(t *testing.T) {
	drivers, stop := setup(t, 1, 8)
	defer stop()

	// A start node whose forward extension has no matching entry in the
	// table must fail the traversal with a LookupMiss error.
	orphan, err := kmer.New("ATC", kmer.ExtNone, kmer.ExtG)
	require.NoError(t, err)

	_, err = drivers[0].Run([]kmer.KmerPair{orphan})
	require.Error(t, err)
}

func TestFatalErrorOnOneRankDoesNotDeadlockOthers(t *testing.T) {
	// Rank 0 hits a LookupMiss during traversal; rank 1 has nothing to
	// traverse and would otherwise reach both barriers first and block
	// forever waiting for rank 0, which never showed up because it
	// returned early. Both Run calls must return.
	drivers, stop := setup(t, 2, 8)
	defer stop()

	orphan, err := kmer.New("ATC", kmer.ExtNone, kmer.ExtG)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	shards := [][]kmer.KmerPair{{orphan}, nil}
	for r := 0; r < 2; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			_, errs[r] = drivers[r].Run(shards[r])
		}(r)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return for all ranks; a fatal error on one rank deadlocked the others' barriers")
	}

	require.Error(t, errs[0])
	require.NoError(t, errs[1])
}
