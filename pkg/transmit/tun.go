package transmit

import (
	"fmt"

	wgtun "golang.zx2c4.com/wireguard/tun"

	"github.com/irctrakz/ip6out/pkg/core"
	"github.com/irctrakz/ip6out/pkg/logging"
)

// tunWriteOffset leaves room in front of the packet for the virtio-net
// header the device layer may prepend on Linux.
const tunWriteOffset = 16

// TUN transmits packets into a kernel TUN device.
type TUN struct {
	dev  wgtun.Device
	name string
}

// NewTUN creates the named TUN device and returns a transmitter writing
// into it.
func NewTUN(name string, mtu int) (*TUN, error) {
	dev, err := wgtun.CreateTUN(name, mtu)
	if err != nil {
		return nil, fmt.Errorf("create tun %s: %w", name, err)
	}
	realName, err := dev.Name()
	if err != nil {
		realName = name
	}
	logging.Infof("TUN transmitter open on %s (mtu %d)", realName, mtu)
	return &TUN{dev: dev, name: realName}, nil
}

// Transmit writes the packet, from its network header onwards, into the
// device.
func (t *TUN) Transmit(pkt core.Packet) error {
	hdr := pkt.Header()
	if len(hdr) == 0 {
		return ErrShortPacket
	}

	buf := make([]byte, tunWriteOffset+len(hdr))
	copy(buf[tunWriteOffset:], hdr)
	_, err := t.dev.Write([][]byte{buf}, tunWriteOffset)
	return err
}

// Name implements core.Device.
func (t *TUN) Name() string { return t.name }

// MTU returns the device MTU.
func (t *TUN) MTU() (int, error) { return t.dev.MTU() }

// Close shuts the device down.
func (t *TUN) Close() error { return t.dev.Close() }
