package ip6

import "errors"

var (
	// ErrMalformedChain is returned when the extension header chain runs
	// off the end of the captured packet.
	ErrMalformedChain = errors.New("ip6: malformed extension header chain")

	// ErrLengthOverflow is returned when the cumulative header length
	// would exceed the maximum representable payload length.
	ErrLengthOverflow = errors.New("ip6: extension headers exceed maximum payload length")
)

// WalkConfig controls optional protocol features of the header walk.
type WalkConfig struct {
	// MobilityOptions enables the mobility carve-out: a destination
	// options header carrying a home-address option is always transparent
	// to the walk, regardless of where it sits in the chain.
	MobilityOptions bool
}

// FindFragInsertionPoint walks the extension header chain in hdr (a view
// starting at the fixed IPv6 header) and returns the offset at which a
// fragment header should be inserted, together with the offset of the
// next-header field whose value must be rewritten to point at it.
//
// Hop-by-hop and routing headers always sort before a fragment header, so
// the walk passes over them. A destination options header is passed over
// too, unless a routing header already appeared, in which case the fragment
// header belongs in front of it. Anything else, including upper-layer
// protocols, stops the walk immediately.
//
// The walk terminates without cycle detection: the offset strictly increases
// every iteration (a header's length is at least 8 bytes) and is bounded by
// the captured length.
func FindFragInsertionPoint(hdr []byte, cfg WalkConfig) (offset, nhOff int, err error) {
	offset = HeaderLen
	nhOff = NextHdrOff
	packetLen := len(hdr)
	foundRouting := false

	var nexthdr byte
	if packetLen > NextHdrOff {
		nexthdr = hdr[NextHdrOff]
	}

	for offset <= packetLen {
		switch nexthdr {
		case NextHdrHopByHop:
		case NextHdrRouting:
			foundRouting = true
		case NextHdrDestOpts:
			if cfg.MobilityOptions && findTLV(hdr, offset, optHomeAddress) >= 0 {
				break
			}
			if foundRouting {
				return offset, nhOff, nil
			}
		default:
			return offset, nhOff, nil
		}

		if offset+optHdrLen > packetLen {
			return 0, 0, ErrMalformedChain
		}
		hdrLen := extHdrLen(hdr[offset+optLenOff])
		if offset+hdrLen >= MaxPayloadLen {
			return 0, 0, ErrLengthOverflow
		}
		nhOff = offset + optTypeOff
		nexthdr = hdr[nhOff]
		offset += hdrLen
	}

	return 0, 0, ErrMalformedChain
}

// findTLV scans the option area of the extension header at offset for an
// option of type want and returns the option's offset, or -1 if the header
// does not contain it or its option area is malformed.
func findTLV(hdr []byte, offset int, want byte) int {
	if offset+optHdrLen > len(hdr) {
		return -1
	}
	end := offset + extHdrLen(hdr[offset+optLenOff])
	if end > len(hdr) {
		return -1
	}

	p := offset + optHdrLen
	for p < end {
		t := hdr[p]
		if t == optPad1 {
			p++
			continue
		}
		if t == want {
			return p
		}
		if p+1 >= end {
			return -1
		}
		p += optHdrLen + int(hdr[p+1])
	}
	return -1
}
