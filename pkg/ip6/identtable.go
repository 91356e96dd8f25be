package ip6

import (
	"math/rand"
	"sync/atomic"
)

// The identifier table is an arena of independently atomic counters. A flow's
// keyed hash picks a bucket; the bucket's counter hands out sequential
// identifiers. Striping keeps unrelated flows on unrelated counters so two
// flows only share an identifier sequence when their hashes collide on a
// bucket.
const (
	identTableBits = 11
	identTableSize = 1 << identTableBits // power of two, index by mask
)

type identTable struct {
	buckets [identTableSize]atomic.Uint32
}

// newIdentTable seeds every bucket with a random starting point so counters
// in different buckets do not march in lockstep from zero.
func newIdentTable() *identTable {
	t := &identTable{}
	for i := range t.buckets {
		t.buckets[i].Store(rand.Uint32())
	}
	return t
}

// reserve atomically claims count sequential identifiers from the bucket
// selected by hash and returns the base of the run. Wrap-around is modulo
// 2^32 per bucket.
func (t *identTable) reserve(hash uint32, count uint32) uint32 {
	b := &t.buckets[hash&(identTableSize-1)]
	return b.Add(count) - count
}

// idents is the process-wide identifier table, shared by every namespace.
var idents = newIdentTable()
