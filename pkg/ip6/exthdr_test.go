package ip6

import (
	"errors"
	"testing"
)

// baseHeader returns a fixed IPv6 header with the given next-header value
// and a payload length matching payload.
func baseHeader(nexthdr byte, payloadLen int) []byte {
	hdr := make([]byte, HeaderLen)
	hdr[0] = 0x60
	hdr[PayloadLenOff] = byte(payloadLen >> 8)
	hdr[PayloadLenOff+1] = byte(payloadLen)
	hdr[NextHdrOff] = nexthdr
	hdr[HopLimitOff] = 64
	return hdr
}

// extHeader builds a minimal extension header of lenUnits additional 8-byte
// units, padded with PadN options.
func extHeader(nexthdr byte, lenUnits int) []byte {
	h := make([]byte, (lenUnits+1)*optUnit)
	h[0] = nexthdr
	h[1] = byte(lenUnits)
	// PadN filler for the option area
	if len(h) > optHdrLen+1 {
		h[optHdrLen] = optPadN
		h[optHdrLen+1] = byte(len(h) - optHdrLen - 2)
	}
	return h
}

// destOptsWithHomeAddress builds a destination options header carrying a
// home-address option.
func destOptsWithHomeAddress(nexthdr byte) []byte {
	h := make([]byte, 3*optUnit)
	h[0] = nexthdr
	h[1] = 2 // three 8-byte units
	h[2] = optHomeAddress
	h[3] = AddrLen
	// 16 bytes of address, then PadN(2) to fill the unit
	h[20] = optPadN
	h[21] = 2
	return h
}

func chain(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestFindFragInsertionPoint(t *testing.T) {
	tests := []struct {
		name       string
		pkt        []byte
		cfg        WalkConfig
		wantOffset int
		wantNHOff  int
		wantErr    error
	}{
		{
			name:       "no extension headers",
			pkt:        chain(baseHeader(NextHdrTCP, 20), make([]byte, 20)),
			wantOffset: HeaderLen,
			wantNHOff:  NextHdrOff,
		},
		{
			name:       "hop-by-hop then upper layer",
			pkt:        chain(baseHeader(NextHdrHopByHop, 0), extHeader(NextHdrUDP, 0), make([]byte, 8)),
			wantOffset: HeaderLen + 8,
			wantNHOff:  HeaderLen,
		},
		{
			name: "dest opts without routing is transparent",
			pkt: chain(
				baseHeader(NextHdrHopByHop, 0),
				extHeader(NextHdrDestOpts, 0),
				extHeader(NextHdrTCP, 0),
				make([]byte, 20),
			),
			wantOffset: HeaderLen + 16,
			wantNHOff:  HeaderLen + 8,
		},
		{
			name: "dest opts after routing is the insertion point",
			pkt: chain(
				baseHeader(NextHdrHopByHop, 0),
				extHeader(NextHdrRouting, 0),
				extHeader(NextHdrDestOpts, 0),
				extHeader(NextHdrTCP, 0),
				make([]byte, 20),
			),
			wantOffset: HeaderLen + 16,
			wantNHOff:  HeaderLen + 8,
		},
		{
			name: "routing header stops at upper layer",
			pkt: chain(
				baseHeader(NextHdrRouting, 0),
				extHeader(NextHdrICMPv6, 1),
				make([]byte, 8),
			),
			wantOffset: HeaderLen + 16,
			wantNHOff:  HeaderLen,
		},
		{
			name:    "truncated below base header",
			pkt:     baseHeader(NextHdrTCP, 0)[:24],
			wantErr: ErrMalformedChain,
		},
		{
			name:    "length field not readable",
			pkt:     chain(baseHeader(NextHdrHopByHop, 0), []byte{NextHdrTCP}),
			wantErr: ErrMalformedChain,
		},
		{
			name: "chain runs past captured bytes",
			pkt: chain(
				baseHeader(NextHdrHopByHop, 0),
				extHeader(NextHdrDestOpts, 6)[:16],
			),
			wantErr: ErrMalformedChain,
		},
		{
			name:    "declared length overflows payload bound",
			pkt:     chain(baseHeader(NextHdrHopByHop, 0), hugeChain()),
			wantErr: ErrLengthOverflow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offset, nhOff, err := FindFragInsertionPoint(tt.pkt, tt.cfg)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if offset != tt.wantOffset {
				t.Errorf("offset = %d, want %d", offset, tt.wantOffset)
			}
			if nhOff != tt.wantNHOff {
				t.Errorf("nhOff = %d, want %d", nhOff, tt.wantNHOff)
			}
		})
	}
}

// hugeChain builds back-to-back maximum-length hop-by-hop headers until the
// cumulative offset is close enough to the payload bound that the next
// header must overflow it.
func hugeChain() []byte {
	var out []byte
	for len(out)+HeaderLen < MaxPayloadLen {
		out = append(out, extHeader(NextHdrHopByHop, 255)...)
	}
	return out
}

func TestMobilityCarveOut(t *testing.T) {
	// dest opts with a home-address option, after a routing header
	pkt := chain(
		baseHeader(NextHdrRouting, 0),
		extHeader(NextHdrDestOpts, 0),
		destOptsWithHomeAddress(NextHdrTCP),
		make([]byte, 20),
	)

	t.Run("disabled stops at dest opts", func(t *testing.T) {
		offset, _, err := FindFragInsertionPoint(pkt, WalkConfig{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if offset != HeaderLen+8 {
			t.Errorf("offset = %d, want %d", offset, HeaderLen+8)
		}
	})

	t.Run("enabled walks past the home-address header", func(t *testing.T) {
		offset, _, err := FindFragInsertionPoint(pkt, WalkConfig{MobilityOptions: true})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// The home-address header is transparent, so the walk stops at
		// the upper layer behind it.
		if offset != HeaderLen+8+24 {
			t.Errorf("offset = %d, want %d", offset, HeaderLen+8+24)
		}
	})
}

func TestFindTLV(t *testing.T) {
	withOpt := destOptsWithHomeAddress(NextHdrTCP)

	if got := findTLV(withOpt, 0, optHomeAddress); got != 2 {
		t.Errorf("findTLV = %d, want 2", got)
	}
	if got := findTLV(extHeader(NextHdrTCP, 0), 0, optHomeAddress); got != -1 {
		t.Errorf("findTLV on plain header = %d, want -1", got)
	}
	// Truncated option area
	if got := findTLV(withOpt[:8], 0, optHomeAddress); got != -1 {
		t.Errorf("findTLV on truncated header = %d, want -1", got)
	}
}
