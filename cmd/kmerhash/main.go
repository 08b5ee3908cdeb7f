// Command kmerhash is the CLI entrypoint for the distributed k-mer hash
// table and assembler:
//
//	kmerhash <kmer_file> [verbose|test [prefix]]
//
// N ranks cooperate within this single process, each driven by its own
// goroutine over an internal/rpcnet.Cluster, a process-local realization of
// the distributed-memory capability the hash table is built on.
package main

import (
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	flag "github.com/spf13/pflag"
	"github.com/unixpickle/essentials"

	"github.com/dbgassembler/kmerhash/internal/assembly"
	"github.com/dbgassembler/kmerhash/internal/dht"
	"github.com/dbgassembler/kmerhash/internal/kmer"
	"github.com/dbgassembler/kmerhash/internal/kmerio"
	"github.com/dbgassembler/kmerhash/internal/kmerr"
	"github.com/dbgassembler/kmerhash/internal/obslog"
	"github.com/dbgassembler/kmerhash/internal/partition"
	"github.com/dbgassembler/kmerhash/internal/rpcnet"
	"github.com/dbgassembler/kmerhash/internal/slotstore"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	fs := flag.NewFlagSet("kmerhash", flag.ContinueOnError)
	ranks := fs.Int("ranks", 4, "number of cooperating ranks to run in this process")
	k := fs.Int("k", 21, "expected k-mer length; fatal mismatch against the input file")
	loadFactor := fs.Float64("load-factor", 0.5, "target load factor for the hash table")
	outDir := fs.String("out-dir", ".", "directory for test-mode contig output files")
	if err := fs.Parse(argv); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		argErr := kmerr.Argf("%v", err)
		fmt.Fprintln(os.Stderr, argErr)
		return kmerr.ExitCode(argErr)
	}

	positional := fs.Args()
	if len(positional) < 1 {
		err := kmerr.Argf("usage: kmerhash <kmer_file> [verbose|test [prefix]]")
		fmt.Fprintln(os.Stderr, err)
		return kmerr.ExitCode(err)
	}

	kmerFile := positional[0]
	mode := obslog.Minimal
	prefix := "test"
	if len(positional) >= 2 {
		switch positional[1] {
		case "verbose":
			mode = obslog.Verbose
		case "test":
			mode = obslog.Test
			if len(positional) >= 3 {
				prefix = positional[2]
			}
		default:
			err := kmerr.Argf("unknown run type %q: expected verbose or test", positional[1])
			fmt.Fprintln(os.Stderr, err)
			return kmerr.ExitCode(err)
		}
	}

	err := assemble(kmerFile, *ranks, *k, *loadFactor, mode, *outDir, prefix)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return kmerr.ExitCode(err)
	}
	return 0
}

// assemble runs the full construction + traversal pipeline, fanning out one
// goroutine per rank over a shared rpcnet.Cluster.
func assemble(kmerFile string, nRanks, wantK int, loadFactor float64, mode obslog.RunMode, outDir, prefix string) error {
	runID := uuid.New().String()

	fileK, err := kmerio.KmerSize(kmerFile)
	if err != nil {
		return err
	}
	if fileK != wantK {
		return kmerr.LengthMismatch(kmerFile, fileK, wantK)
	}

	nKmers, err := kmerio.LineCount(kmerFile)
	if err != nil {
		return err
	}

	tableSize := int(math.Ceil(float64(nKmers) / loadFactor))
	slotsPerRank := essentials.MaxInt((tableSize+nRanks-1)/nRanks, 1)
	scheme := partition.New(nRanks, slotsPerRank)

	cluster := rpcnet.New(nRanks)
	registry := slotstore.NewRegistry()
	for r := 0; r < nRanks; r++ {
		registry.Register(slotstore.Key(runID, r), slotstore.New(slotsPerRank))
	}

	stopCh := make(chan struct{})
	var serveWG sync.WaitGroup
	for r := 0; r < nRanks; r++ {
		h := cluster.Handle(r)
		serveWG.Add(1)
		go func(h *rpcnet.Handle) {
			defer serveWG.Done()
			h.Serve(stopCh)
		}(h)
	}
	defer func() {
		close(stopCh)
		serveWG.Wait()
	}()

	results := make([]assembly.Result, nRanks)
	errs := make([]error, nRanks)
	var runWG sync.WaitGroup
	overallStart := time.Now()
	for r := 0; r < nRanks; r++ {
		runWG.Add(1)
		go func(rank int) {
			defer runWG.Done()
			results[rank], errs[rank] = runRank(kmerFile, nRanks, rank, scheme, cluster, registry, runID, mode)
		}(r)
	}
	runWG.Wait()
	elapsed := time.Since(overallStart)

	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	if mode == obslog.Test {
		for r, res := range results {
			if err := writeContigs(outDir, prefix, r, res.Contigs); err != nil {
				return err
			}
		}
	}

	totalContigs := 0
	for _, res := range results {
		totalContigs += len(res.Contigs)
	}
	fmt.Printf("kmerhash: %d ranks, %d k-mers, %d contigs, %s\n",
		nRanks, nKmers, totalContigs, elapsed)
	return nil
}

func runRank(kmerFile string, nRanks, rank int, scheme partition.Scheme, cluster *rpcnet.Cluster,
	registry *slotstore.Registry, runID string, mode obslog.RunMode) (assembly.Result, error) {
	log := obslog.New(mode, runID, rank)
	handle := cluster.Handle(rank)
	table := dht.New(scheme, handle, registry, runID, log)
	driver := assembly.New(table, handle, log)

	kmers, err := kmerio.ReadKmers(kmerFile, nRanks, rank)
	if err != nil {
		return assembly.Result{Rank: rank}, err
	}
	return driver.Run(kmers)
}

func writeContigs(outDir, prefix string, rank int, contigs [][]kmer.KmerPair) error {
	path := fmt.Sprintf("%s/%s_%d.dat", outDir, prefix, rank)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return kmerr.IOf(err, "opening %s", path)
	}
	defer f.Close()

	for _, contig := range contigs {
		if _, err := fmt.Fprintln(f, kmerio.ExtractContig(contig)); err != nil {
			return kmerr.IOf(err, "writing %s", path)
		}
	}
	return nil
}
