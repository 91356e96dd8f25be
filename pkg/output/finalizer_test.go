package output

import (
	"encoding/binary"
	"testing"

	"github.com/irctrakz/ip6out/pkg/core"
	"github.com/irctrakz/ip6out/pkg/hooks"
	"github.com/irctrakz/ip6out/pkg/ip6"
	"github.com/irctrakz/ip6out/pkg/transmit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ipv6Packet(payloadLen int) *core.SimplePacket {
	data := make([]byte, ip6.HeaderLen+payloadLen)
	data[0] = 0x60
	data[ip6.NextHdrOff] = ip6.NextHdrUDP
	data[ip6.HopLimitOff] = 64
	return core.NewPacket(data)
}

func TestLocalOutStampsAndTransmits(t *testing.T) {
	lo := transmit.NewLoopback(4)
	fin := NewFinalizer(hooks.NewChain(), lo, lo)

	pkt := ipv6Packet(100)
	v, err := fin.LocalOut(pkt)

	require.NoError(t, err)
	assert.Equal(t, core.VerdictContinue, v)

	hdr := pkt.Header()
	assert.Equal(t, uint16(100), binary.BigEndian.Uint16(hdr[ip6.PayloadLenOff:]))
	assert.Equal(t, ip6.NextHdrOff, pkt.Meta().NHOff)
	assert.Equal(t, core.EtherTypeIPv6, pkt.Meta().Protocol)

	select {
	case got := <-lo.Packets():
		assert.Same(t, pkt, got)
	default:
		t.Fatal("packet was not transmitted")
	}
}

func TestLocalOutJumboWritesZeroLength(t *testing.T) {
	lo := transmit.NewLoopback(4)
	fin := NewFinalizer(hooks.NewChain(), lo, nil)

	pkt := ipv6Packet(ip6.MaxPayloadLen + 1)
	_, err := fin.LocalOut(pkt)
	require.NoError(t, err)

	hdr := pkt.Header()
	assert.Equal(t, uint16(0), binary.BigEndian.Uint16(hdr[ip6.PayloadLenOff:]),
		"oversized payload must be signaled with a zero length field")
}

func TestLocalOutExactMaxPayloadIsNotJumbo(t *testing.T) {
	lo := transmit.NewLoopback(4)
	fin := NewFinalizer(hooks.NewChain(), lo, nil)

	pkt := ipv6Packet(ip6.MaxPayloadLen)
	_, err := fin.LocalOut(pkt)
	require.NoError(t, err)

	hdr := pkt.Header()
	assert.Equal(t, uint16(ip6.MaxPayloadLen), binary.BigEndian.Uint16(hdr[ip6.PayloadLenOff:]))
}

func TestLocalOutHonorsNetworkOffset(t *testing.T) {
	const linkHdr = 14
	data := make([]byte, linkHdr+ip6.HeaderLen+48)
	data[linkHdr] = 0x60
	pkt := core.NewPacketAt(data, linkHdr)

	lo := transmit.NewLoopback(4)
	fin := NewFinalizer(hooks.NewChain(), lo, nil)

	_, err := fin.LocalOut(pkt)
	require.NoError(t, err)

	hdr := pkt.Header()
	assert.Equal(t, uint16(48), binary.BigEndian.Uint16(hdr[ip6.PayloadLenOff:]))
}

func TestLocalOutHookVerdictShortCircuits(t *testing.T) {
	lo := transmit.NewLoopback(4)
	chain := hooks.NewChain()
	chain.Register(hooks.FamilyIPv6, hooks.LocalOut,
		func(p hooks.Point, pkt core.Packet, in, out core.Device) core.Verdict {
			return core.VerdictDrop
		})
	fin := NewFinalizer(chain, lo, nil)

	v, err := fin.LocalOut(ipv6Packet(10))

	require.NoError(t, err)
	assert.Equal(t, core.VerdictDrop, v)
	assert.Empty(t, lo.Metrics()["packetsSent"], "dropped packet must not be transmitted")
}

func TestLocalOutShortPacket(t *testing.T) {
	lo := transmit.NewLoopback(4)
	fin := NewFinalizer(hooks.NewChain(), lo, nil)

	_, err := fin.LocalOut(core.NewPacket(make([]byte, 16)))
	assert.Error(t, err)
}
