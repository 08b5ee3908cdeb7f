// Package kmerio implements the input/output collaborators consumed by the
// core: kmer_size, line_count, read_kmers and extract_contig. Input lines
// each contain a k-mer of fixed length K followed by its backward and
// forward extension characters, whitespace delimited; this package also
// implements contiguous block sharding of line ranges across ranks,
// mirroring internal/partition's block-partitioning philosophy.
package kmerio

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/dbgassembler/kmerhash/internal/kmer"
	"github.com/dbgassembler/kmerhash/internal/kmerr"
)

// KmerSize reports the k-mer length used in the file at path, by reading
// its first line.
func KmerSize(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, kmerr.IOf(err, "opening %s", path)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return 0, kmerr.IOf(err, "reading %s", path)
		}
		return 0, kmerr.IOf(io.EOF, "%s is empty", path)
	}
	fields := strings.Fields(scanner.Text())
	if len(fields) == 0 {
		return 0, kmerr.IOf(io.ErrUnexpectedEOF, "%s has a blank first line", path)
	}
	return len(fields[0]), nil
}

// LineCount returns the total number of k-mer lines in the file at path.
// This count is assumed to equal the number of distinct k-mers, and is
// taken as known ahead of read_kmers's sharding.
func LineCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, kmerr.IOf(err, "opening %s", path)
	}
	defer f.Close()

	n := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == "" {
			continue
		}
		n++
	}
	if err := scanner.Err(); err != nil {
		return 0, kmerr.IOf(err, "reading %s", path)
	}
	return n, nil
}

// shardBounds computes the contiguous [start, end) line range owned by
// rank out of nRanks total ranks, for a file of total lines, using the same
// block-partitioning approach internal/partition uses for hash table slots.
func shardBounds(total, nRanks, rank int) (start, end int) {
	base := total / nRanks
	rem := total % nRanks
	start = rank*base + min(rank, rem)
	extra := 0
	if rank < rem {
		extra = 1
	}
	end = start + base + extra
	return
}

// ReadKmers parses this rank's shard of the k-mer file at path: shards
// partition the file and together cover all k-mers exactly once.
func ReadKmers(path string, nRanks, rank int) ([]kmer.KmerPair, error) {
	total, err := LineCount(path)
	if err != nil {
		return nil, err
	}
	start, end := shardBounds(total, nRanks, rank)
	if start == end {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, kmerr.IOf(err, "opening %s", path)
	}
	defer f.Close()

	result := make([]kmer.KmerPair, 0, end-start)
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if line >= start && line < end {
			kp, err := parseLine(text)
			if err != nil {
				return nil, kmerr.IOf(err, "%s:%d", path, line+1)
			}
			result = append(result, kp)
		}
		line++
		if line >= end {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, kmerr.IOf(err, "reading %s", path)
	}
	return result, nil
}

func parseLine(text string) (kmer.KmerPair, error) {
	fields := strings.Fields(text)
	if len(fields) != 3 {
		return kmer.KmerPair{}, kmerr.Argf("expected \"<kmer> <backward> <forward>\", got %q", text)
	}
	backward, err := kmer.ParseExt(fields[1][0])
	if err != nil {
		return kmer.KmerPair{}, err
	}
	forward, err := kmer.ParseExt(fields[2][0])
	if err != nil {
		return kmer.KmerPair{}, err
	}
	return kmer.New(fields[0], backward, forward)
}

// ExtractContig renders a contig as the first k-mer's bases followed by
// each successor's forward extension base. Each successor's contribution
// is its own trailing base, which by construction of next_kmer equals the
// forward extension that produced it.
func ExtractContig(contig []kmer.KmerPair) string {
	if len(contig) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(contig[0].Kmer.String())
	for _, kp := range contig[1:] {
		s := kp.Kmer.String()
		b.WriteByte(s[len(s)-1])
	}
	return b.String()
}
