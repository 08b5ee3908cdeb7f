// Package kmer implements the packed k-mer representation: a fixed-length
// DNA sequence packed two bits per base, plus the forward/backward
// single-base extension alphabet and the immutable KmerPair value the hash
// table stores.
package kmer

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Ext is a single-base extension, or F to mean "no edge in this direction".
type Ext byte

const (
	ExtA    Ext = 'A'
	ExtC    Ext = 'C'
	ExtG    Ext = 'G'
	ExtT    Ext = 'T'
	ExtNone Ext = 'F'
)

// ParseExt validates a single extension character.
func ParseExt(b byte) (Ext, error) {
	switch Ext(b) {
	case ExtA, ExtC, ExtG, ExtT, ExtNone:
		return Ext(b), nil
	default:
		return 0, fmt.Errorf("kmer: invalid extension base %q", b)
	}
}

var baseCode = map[byte]byte{'A': 0, 'C': 1, 'G': 2, 'T': 3}
var codeBase = [4]byte{'A', 'C', 'G', 'T'}

// PackedKmer is the bitwise-comparable key used throughout the table: the
// kmer field of a KmerPair, packed two bits per base. Two PackedKmers
// compare equal iff their packed bytes and length are identical.
type PackedKmer struct {
	bytes []byte
	k     int
}

// Pack packs a string of A/C/G/T bases into a PackedKmer.
func Pack(bases string) (PackedKmer, error) {
	k := len(bases)
	packed := make([]byte, (k*2+7)/8)
	for i := 0; i < k; i++ {
		code, ok := baseCode[bases[i]]
		if !ok {
			return PackedKmer{}, fmt.Errorf("kmer: invalid base %q at position %d", bases[i], i)
		}
		setBase(packed, i, code)
	}
	return PackedKmer{bytes: packed, k: k}, nil
}

// setBase writes a 2-bit base code at base index i into a packed byte
// slice, most-significant-base-first within each byte.
func setBase(packed []byte, i int, code byte) {
	byteIdx := i / 4
	shift := 6 - 2*(i%4)
	packed[byteIdx] &^= 0b11 << shift
	packed[byteIdx] |= code << shift
}

func getBase(packed []byte, i int) byte {
	byteIdx := i / 4
	shift := 6 - 2*(i%4)
	return (packed[byteIdx] >> shift) & 0b11
}

// Len returns K, the number of bases in the k-mer.
func (p PackedKmer) Len() int { return p.k }

// Equal reports whether two PackedKmers hold the same bases. Comparison is
// purely bitwise.
func (p PackedKmer) Equal(other PackedKmer) bool {
	if p.k != other.k {
		return false
	}
	if len(p.bytes) != len(other.bytes) {
		return false
	}
	for i := range p.bytes {
		if p.bytes[i] != other.bytes[i] {
			return false
		}
	}
	return true
}

// Hash returns a 64-bit value computed deterministically from the packed
// bytes. Hashing the packed representation, not a string rendering of it,
// keeps the hot probe loop allocation-free.
func (p PackedKmer) Hash() uint64 {
	h := xxhash.New()
	_, _ = h.Write(p.bytes)
	var kBuf [8]byte
	kBuf[0] = byte(p.k)
	_, _ = h.Write(kBuf[:1])
	return h.Sum64()
}

// String renders the k-mer as its base sequence.
func (p PackedKmer) String() string {
	out := make([]byte, p.k)
	for i := 0; i < p.k; i++ {
		out[i] = codeBase[getBase(p.bytes, i)]
	}
	return string(out)
}

// next shifts the packed bases left by one position, dropping the first
// base and appending ext in the newly freed last position. It backs
// KmerPair.NextKey.
func (p PackedKmer) next(ext Ext) (PackedKmer, error) {
	code, ok := baseCode[byte(ext)]
	if !ok {
		return PackedKmer{}, fmt.Errorf("kmer: cannot extend with %q", byte(ext))
	}
	out := make([]byte, len(p.bytes))
	for i := 1; i < p.k; i++ {
		setBase(out, i-1, getBase(p.bytes, i))
	}
	setBase(out, p.k-1, code)
	return PackedKmer{bytes: out, k: p.k}, nil
}

// KmerPair is the immutable value the hash table stores: a packed k-mer
// plus its forward and backward single-base extensions.
type KmerPair struct {
	Kmer     PackedKmer
	Forward  Ext
	Backward Ext
}

// New validates and builds a KmerPair from its string/extension parts.
func New(bases string, backward, forward Ext) (KmerPair, error) {
	packed, err := Pack(bases)
	if err != nil {
		return KmerPair{}, err
	}
	return KmerPair{Kmer: packed, Forward: forward, Backward: backward}, nil
}

// IsStartNode reports whether this k-mer has no backward extension, i.e.
// Backward == ExtNone: the start of a contig walk.
func (kp KmerPair) IsStartNode() bool {
	return kp.Backward == ExtNone
}

// IsTerminal reports whether this k-mer has no forward extension, ending a
// contig walk.
func (kp KmerPair) IsTerminal() bool {
	return kp.Forward == ExtNone
}

// NextKey computes the key of the successor k-mer in a contig walk: drop
// the first base of Kmer and append Forward.
func (kp KmerPair) NextKey() (PackedKmer, error) {
	if kp.IsTerminal() {
		return PackedKmer{}, fmt.Errorf("kmer: k-mer %s has no forward extension", kp.Kmer)
	}
	return kp.Kmer.next(kp.Forward)
}
