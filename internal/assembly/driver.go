// Package assembly implements the assembly driver: each rank inserts its
// shard of k-mers, collects start nodes, barriers, then walks forward
// extensions via repeated Find calls to build contigs.
//
// Grounded on original_source/kmer_hash.cpp's main loop (insert, barrier,
// walk start nodes, barrier, write output in append mode), translated from
// a single-process upcxx::main into one Driver instance per rank running
// against an internal/dht.Table bound to that rank's rpcnet.Handle.
package assembly

import (
	"time"

	"go.uber.org/zap"

	"github.com/dbgassembler/kmerhash/internal/dht"
	"github.com/dbgassembler/kmerhash/internal/kmer"
	"github.com/dbgassembler/kmerhash/internal/kmerr"
	"github.com/dbgassembler/kmerhash/internal/rpcnet"
)

// Result summarizes one rank's contribution, for the CLI's verbose/test
// output.
type Result struct {
	Rank          int
	KmersInserted int
	StartNodes    int
	Contigs       [][]kmer.KmerPair
	InsertTime    time.Duration
	TraversalTime time.Duration
}

// Driver runs the per-rank assembly steps against one rank's Table.
type Driver struct {
	table  *dht.Table
	handle *rpcnet.Handle
	log    *zap.Logger
}

// New builds a Driver for one rank.
func New(table *dht.Table, handle *rpcnet.Handle, log *zap.Logger) *Driver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Driver{table: table, handle: handle, log: log}
}

// Run executes this rank's share of the assembly pipeline: insert all of
// its k-mers, barrier, walk every start node's contig, barrier.
//
// Every rank calls Barrier exactly twice no matter what: a fatal error on
// this rank (kmerr.Full during insert, kmerr.Miss during a walk) aborts this
// rank's own remaining work, but it still has to show up at both barriers,
// since every other rank that already reached one is blocked in Wait with
// no timeout and no way to know this rank dropped out.
func (d *Driver) Run(kmers []kmer.KmerPair) (Result, error) {
	res := Result{Rank: d.handle.Rank()}

	insertStart := time.Now()
	var startNodes []kmer.KmerPair
	var runErr error
	for _, kp := range kmers {
		if err := d.table.Insert(kp); err != nil {
			runErr = err
			break
		}
		res.KmersInserted++
		if kp.IsStartNode() {
			startNodes = append(startNodes, kp)
		}
		// Drain this rank's own mailbox between inserts: other ranks'
		// probes addressed to us don't have to wait for this rank to
		// finish its whole shard before a dedicated Serve goroutine gets
		// scheduled.
		for d.handle.Progress() {
		}
	}
	res.InsertTime = time.Since(insertStart)
	res.StartNodes = len(startNodes)

	if runErr == nil {
		d.log.Info("insertion phase complete",
			zap.Int("kmers_inserted", res.KmersInserted),
			zap.Int("start_nodes", res.StartNodes),
			zap.Duration("elapsed", res.InsertTime),
		)
	}

	d.handle.Barrier()

	var contigs [][]kmer.KmerPair
	traversalStart := time.Now()
	if runErr == nil {
		contigs = make([][]kmer.KmerPair, 0, len(startNodes))
		for _, seed := range startNodes {
			contig, err := d.walk(seed)
			if err != nil {
				runErr = err
				break
			}
			contigs = append(contigs, contig)
		}
	}
	res.Contigs = contigs
	res.TraversalTime = time.Since(traversalStart)

	if runErr == nil {
		d.log.Info("traversal phase complete",
			zap.Int("contigs", len(contigs)),
			zap.Duration("elapsed", res.TraversalTime),
		)
	}

	d.handle.Barrier()
	return res, runErr
}

// walk builds one contig starting at seed: repeatedly compute the next key,
// Find it, and append, until a terminal k-mer (no forward extension) is
// reached.
func (d *Driver) walk(seed kmer.KmerPair) ([]kmer.KmerPair, error) {
	contig := []kmer.KmerPair{seed}
	for !contig[len(contig)-1].IsTerminal() {
		last := contig[len(contig)-1]
		nextKey, err := last.NextKey()
		if err != nil {
			return nil, err
		}
		found, ok := d.table.Find(nextKey)
		if !ok {
			return nil, kmerr.Miss(nextKey.String())
		}
		d.log.Debug("extending contig", zap.String("kmer", found.Kmer.String()))
		contig = append(contig, found)
	}
	return contig, nil
}
