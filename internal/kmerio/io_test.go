package kmerio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dbgassembler/kmerhash/internal/kmer"
)

func writeTempFile(t *testing.T, lines ...string) string {
	dir := t.TempDir()
	path := filepath.Join(dir, "kmers.txt")
	var content string
	for _, l := range lines {
		content += l + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestKmerSize(t *testing.T) {
	path := writeTempFile(t, "ATC F G", "TCG C T")
	k, err := KmerSize(path)
	require.NoError(t, err)
	require.Equal(t, 3, k)
}

func TestLineCount(t *testing.T) {
	path := writeTempFile(t, "ATC F G", "TCG C T", "", "CGT T F")
	n, err := LineCount(path)
	require.NoError(t, err)
	require.Equal(t, 3, n)
}

func TestReadKmersShardsCoverAllLinesExactlyOnce(t *testing.T) {
	path := writeTempFile(t, "AAAA F C", "CCCC A G", "GGGG C T", "TTTT G A", "ATAT T C")
	const nRanks = 3

	seen := map[string]int{}
	for rank := 0; rank < nRanks; rank++ {
		kmers, err := ReadKmers(path, nRanks, rank)
		require.NoError(t, err)
		for _, kp := range kmers {
			seen[kp.Kmer.String()]++
		}
	}
	require.Len(t, seen, 5)
	for _, count := range seen {
		require.Equal(t, 1, count)
	}
}

func TestReadKmersParsesFields(t *testing.T) {
	path := writeTempFile(t, "ATC F G")
	kmers, err := ReadKmers(path, 1, 0)
	require.NoError(t, err)
	require.Len(t, kmers, 1)
	require.Equal(t, "ATC", kmers[0].Kmer.String())
	require.Equal(t, kmer.ExtNone, kmers[0].Backward)
	require.Equal(t, kmer.ExtG, kmers[0].Forward)
}

func TestExtractContig(t *testing.T) {
	atc, err := kmer.New("ATC", kmer.ExtNone, kmer.ExtG)
	require.NoError(t, err)
	tcg, err := kmer.New("TCG", kmer.ExtNone, kmer.ExtNone)
	require.NoError(t, err)
	require.Equal(t, "ATCG", ExtractContig([]kmer.KmerPair{atc, tcg}))
}

func TestExtractContigEmpty(t *testing.T) {
	require.Equal(t, "", ExtractContig(nil))
}
