package transmit

import (
	"net"

	"golang.org/x/net/ipv6"

	"github.com/irctrakz/ip6out/pkg/core"
	"github.com/irctrakz/ip6out/pkg/ip6"
	"github.com/irctrakz/ip6out/pkg/logging"
)

// RawSocket transmits packets through a raw IPv6 socket. The kernel builds
// the fixed header on the way out, so Transmit strips ours and carries the
// hop limit across via a control message. Requires CAP_NET_RAW.
type RawSocket struct {
	conn net.PacketConn
	pc   *ipv6.PacketConn
}

// NewRawSocket opens a raw socket for the given upper-layer protocol name or
// number (e.g. "udp", "58").
func NewRawSocket(protocol string) (*RawSocket, error) {
	c, err := net.ListenPacket("ip6:"+protocol, "::")
	if err != nil {
		return nil, err
	}
	logging.Infof("raw socket transmitter open for protocol %s", protocol)
	return &RawSocket{conn: c, pc: ipv6.NewPacketConn(c)}, nil
}

// Transmit sends the packet's payload to the destination address parsed from
// its network header.
func (r *RawSocket) Transmit(pkt core.Packet) error {
	hdr := pkt.Header()
	if len(hdr) < ip6.HeaderLen {
		return ErrShortPacket
	}

	dst := &net.IPAddr{IP: net.IP(hdr[ip6.DstAddrOff : ip6.DstAddrOff+ip6.AddrLen])}
	cm := &ipv6.ControlMessage{HopLimit: int(hdr[ip6.HopLimitOff])}

	_, err := r.pc.WriteTo(hdr[ip6.HeaderLen:], cm, dst)
	return err
}

// Name implements core.Device.
func (r *RawSocket) Name() string { return "raw" }

// Close releases the socket.
func (r *RawSocket) Close() error { return r.conn.Close() }
