// Package output implements the IPv6 local-output stage: per-packet
// finalization, hook dispatch, and hand-off to a transmitter.
package output

import (
	"encoding/binary"
	"fmt"

	"github.com/irctrakz/ip6out/pkg/core"
	"github.com/irctrakz/ip6out/pkg/hooks"
	"github.com/irctrakz/ip6out/pkg/ip6"
	"github.com/irctrakz/ip6out/pkg/transmit"
)

// Finalizer stamps outgoing packets and routes them through the local-output
// hook chain into a transmitter.
type Finalizer struct {
	chain  *hooks.Chain
	tx     transmit.Transmitter
	outDev core.Device
}

// NewFinalizer builds a finalizer. outDev is the device context handed to
// hooks and may be nil.
func NewFinalizer(chain *hooks.Chain, tx transmit.Transmitter, outDev core.Device) *Finalizer {
	return &Finalizer{chain: chain, tx: tx, outDev: outDev}
}

// finalize writes the payload-length field, records the next-header field
// offset for later header insertion, stamps the protocol tag, and runs the
// local-output hooks.
func (f *Finalizer) finalize(pkt core.Packet) (core.Verdict, error) {
	hdr := pkt.Header()
	if len(hdr) < ip6.HeaderLen {
		return core.VerdictDrop, fmt.Errorf("output: packet shorter than IPv6 header (%d bytes)", len(hdr))
	}

	payloadLen := pkt.Length() - pkt.NetworkOffset() - ip6.HeaderLen
	if payloadLen > ip6.MaxPayloadLen {
		// Jumbogram: the 16-bit field cannot hold the length, signal
		// that with zero instead of truncating.
		payloadLen = 0
	}
	binary.BigEndian.PutUint16(hdr[ip6.PayloadLenOff:], uint16(payloadLen))

	meta := pkt.Meta()
	meta.NHOff = ip6.NextHdrOff
	meta.Protocol = core.EtherTypeIPv6

	return f.chain.Run(hooks.FamilyIPv6, hooks.LocalOut, pkt, nil, f.outDev), nil
}

// LocalOut finalizes pkt and hands it to the hook chain. If the chain lets
// it continue, the packet is transmitted and the transmitter's result is
// returned; any other verdict is returned as-is with a nil error, the hook
// chain having consumed or rejected the packet.
func (f *Finalizer) LocalOut(pkt core.Packet) (core.Verdict, error) {
	v, err := f.finalize(pkt)
	if err != nil {
		return v, err
	}
	if v == core.VerdictContinue {
		return v, f.tx.Transmit(pkt)
	}
	return v, nil
}
