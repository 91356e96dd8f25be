package ip6

import (
	"crypto/rand"
	"encoding/binary"
	"net/netip"
	"sync/atomic"

	"github.com/dchest/siphash"
	"github.com/irctrakz/ip6out/pkg/core"
)

// identKeyLen is the width of the per-namespace keyed-hash seed.
const identKeyLen = 16

// Seed lifecycle states. The seed is filled lazily on first use and never
// reset afterwards.
const (
	keyUnset uint32 = iota
	keyClaimed
	keyPublished
)

// Namespace holds the per-network-namespace state the output path needs:
// the secret seed for fragment identifier hashing. The zero value is a valid
// namespace with an unset seed.
type Namespace struct {
	keyState atomic.Uint32
	key      [identKeyLen]byte
}

// NewNamespace returns a namespace whose seed will be filled from the
// system's random source on first use.
func NewNamespace() *Namespace {
	return &Namespace{}
}

// NewNamespaceWithKey returns a namespace with an externally supplied seed,
// for environments that manage their own secrets and for deterministic tests.
func NewNamespaceWithKey(key [identKeyLen]byte) *Namespace {
	ns := &Namespace{key: key}
	ns.keyState.Store(keyPublished)
	return ns
}

// identKey returns the namespace's seed, filling it on first use.
//
// The fill is deliberately lock-free. Concurrent first callers may each
// generate a seed; one wins the claim and publishes, the others use their
// local seed for the current call only. Identifiers stay unique either way
// (uniqueness comes from the allocator, not the seed), so the transient
// inconsistency during warm-up only costs a little unpredictability, never
// correctness. Once published the seed is stable for the namespace's
// lifetime.
func (ns *Namespace) identKey() [identKeyLen]byte {
	if ns.keyState.Load() == keyPublished {
		return ns.key
	}

	var k [identKeyLen]byte
	if _, err := rand.Read(k[:]); err != nil {
		// crypto/rand does not fail on supported platforms; if it ever
		// does, the all-zero key still yields unique identifiers.
		return k
	}
	if ns.keyState.CompareAndSwap(keyUnset, keyClaimed) {
		ns.key = k
		ns.keyState.Store(keyPublished)
		return k
	}
	if ns.keyState.Load() == keyPublished {
		return ns.key
	}
	// Another caller holds the claim but has not published yet. Use the
	// seed we generated rather than spinning.
	return k
}

// selectIdent picks a fragment identifier for the (dst, src) address pair.
// The hash input layout is destination first, then source; both ident paths
// must agree on this or the same flow would hop between buckets.
func selectIdent(ns *Namespace, dst, src [AddrLen]byte) uint32 {
	var combined [2 * AddrLen]byte
	copy(combined[:AddrLen], dst[:])
	copy(combined[AddrLen:], src[:])

	key := ns.identKey()
	h := siphash.Hash(
		binary.LittleEndian.Uint64(key[:8]),
		binary.LittleEndian.Uint64(key[8:]),
		combined[:],
	)

	id := idents.reserve(uint32(h), 1)
	if id == 0 {
		// Zero means "no identifier" to consumers; hand out the high
		// bit instead, which the counter will not revisit for a full
		// wrap.
		id = 1 << 31
	}
	return id
}

// SelectIdent returns a fragment identifier for a packet flowing from src to
// dst, using the route's resolved addresses. It never fails and never
// returns zero.
func SelectIdent(ns *Namespace, src, dst netip.Addr) uint32 {
	return selectIdent(ns, dst.As16(), src.As16())
}

// ProxySelectIdent assigns a fragment identifier to a packet whose addresses
// must be parsed out of the raw bytes, for callers handling untrusted or
// incomplete input. If the captured bytes do not cover both addresses the
// packet is left untouched; downstream logic decides what an unset
// identifier means.
func ProxySelectIdent(ns *Namespace, pkt core.Packet) {
	hdr := pkt.Header()
	if len(hdr) < DstAddrOff+AddrLen {
		return
	}

	var src, dst [AddrLen]byte
	copy(src[:], hdr[SrcAddrOff:])
	copy(dst[:], hdr[DstAddrOff:])

	pkt.Meta().FragID = selectIdent(ns, dst, src)
}
