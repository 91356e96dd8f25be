// Package transmit provides the transmission backends a finalized packet can
// be handed to.
package transmit

import (
	"errors"
	"sync/atomic"

	"github.com/irctrakz/ip6out/pkg/core"
)

// ErrShortPacket is returned when a packet does not carry a full network
// header.
var ErrShortPacket = errors.New("transmit: packet shorter than network header")

// Transmitter accepts a finalized packet for transmission.
type Transmitter interface {
	Transmit(pkt core.Packet) error
}

// Loopback is a channel-backed transmitter. It is the default backend for
// the daemon and the test harness: transmitted packets are delivered to
// whoever reads Packets().
type Loopback struct {
	ch      chan core.Packet
	sent    uint64
	dropped uint64
}

// NewLoopback returns a loopback transmitter with the given queue depth.
func NewLoopback(depth int) *Loopback {
	if depth <= 0 {
		depth = 256
	}
	return &Loopback{ch: make(chan core.Packet, depth)}
}

// Transmit queues the packet for the reader. A full queue drops the packet
// and reports an error rather than blocking the output path.
func (l *Loopback) Transmit(pkt core.Packet) error {
	select {
	case l.ch <- pkt:
		atomic.AddUint64(&l.sent, 1)
		return nil
	default:
		atomic.AddUint64(&l.dropped, 1)
		return errors.New("transmit: loopback queue full")
	}
}

// Packets returns the channel transmitted packets are delivered on.
func (l *Loopback) Packets() <-chan core.Packet {
	return l.ch
}

// Name implements core.Device.
func (l *Loopback) Name() string { return "loopback" }

// Metrics returns sent/dropped counters.
func (l *Loopback) Metrics() map[string]uint64 {
	return map[string]uint64{
		"packetsSent":    atomic.LoadUint64(&l.sent),
		"packetsDropped": atomic.LoadUint64(&l.dropped),
	}
}
