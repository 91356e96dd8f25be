// Package ip6 implements the IPv6 local-output helpers: fragment identifier
// selection and extension header chain traversal.
package ip6

// Fixed IPv6 header layout.
// https://en.wikipedia.org/wiki/IPv6_packet#Fixed_header
const (
	// HeaderLen is the length of the fixed IPv6 header.
	HeaderLen = 40

	// MaxPayloadLen is the largest payload length representable in the
	// 16-bit payload-length field. Anything larger is a jumbogram.
	MaxPayloadLen = 0xffff

	// PayloadLenOff is the offset of the payload-length field.
	PayloadLenOff = 4

	// NextHdrOff is the offset of the fixed header's next-header field.
	NextHdrOff = 6

	// HopLimitOff is the offset of the hop-limit field.
	HopLimitOff = 7

	// SrcAddrOff and DstAddrOff are the offsets of the source and
	// destination addresses. The two addresses are adjacent, source first.
	SrcAddrOff = 8
	DstAddrOff = 24

	// AddrLen is the length of an IPv6 address.
	AddrLen = 16
)

// Next-header protocol numbers relevant to the output path.
const (
	NextHdrHopByHop = 0
	NextHdrTCP      = 6
	NextHdrUDP      = 17
	NextHdrRouting  = 43
	NextHdrFragment = 44
	NextHdrICMPv6   = 58
	NextHdrNone     = 59
	NextHdrDestOpts = 60
)

// Extension headers share a common 2-byte prefix: next-header, then length
// in 8-byte units not counting the first 8 bytes.
const (
	optHdrLen  = 2
	optUnit    = 8
	optTypeOff = 0
	optLenOff  = 1
)

// Destination/hop-by-hop option (TLV) types.
const (
	optPad1        = 0
	optPadN        = 1
	optHomeAddress = 201 // mobility home-address option
)

// extHdrLen converts an extension header's length field into bytes.
// A field of 0 means the 8-byte minimum, so the result is never zero.
func extHdrLen(lenField byte) int {
	return (int(lenField) + 1) * optUnit
}
