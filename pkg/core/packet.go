package core

import (
	"sync/atomic"
)

// Global debug flag that can be set via configuration
var debugMode uint32

// SetDebugMode sets the global debug mode flag.
// When debug mode is enabled, Data returns a defensive copy of the packet
// bytes; when disabled, the internal buffer is returned directly for
// performance.
func SetDebugMode(enabled bool) {
	if enabled {
		atomic.StoreUint32(&debugMode, 1)
	} else {
		atomic.StoreUint32(&debugMode, 0)
	}
}

// IsDebugMode returns whether debug mode is enabled
func IsDebugMode() bool {
	return atomic.LoadUint32(&debugMode) == 1
}

// Metadata is per-packet scratch state carried alongside the buffer. It is
// written by the output path and read by whoever inserts or rewrites headers
// afterwards.
type Metadata struct {
	// NHOff is the offset, relative to the network header, of the
	// next-header field that precedes the insertion point recorded by the
	// output path. Valid only after finalization.
	NHOff int

	// FragID is the fragment identifier assigned to this packet, in host
	// byte order. Zero means no identifier has been assigned.
	FragID uint32

	// Protocol is the L3 protocol tag (ethertype) stamped on the packet.
	Protocol uint16
}

// Packet represents a network packet moving through the output path.
type Packet interface {
	// Data returns the full packet bytes.
	// In debug mode, this returns a copy of the data.
	// In non-debug mode, this returns the internal buffer directly.
	Data() []byte

	// Header returns a live, mutable view of the packet starting at the
	// network header. Writes through this slice modify the packet.
	Header() []byte

	// Length returns the total packet length in bytes.
	Length() int

	// NetworkOffset returns the offset of the network header within the
	// packet bytes.
	NetworkOffset() int

	// Meta returns the packet's scratch metadata.
	Meta() *Metadata
}

// SimplePacket is a buffer-backed implementation of Packet.
type SimplePacket struct {
	data   []byte
	netOff int
	meta   Metadata
}

// NewPacket creates a packet whose network header starts at byte 0.
func NewPacket(data []byte) *SimplePacket {
	return NewPacketAt(data, 0)
}

// NewPacketAt creates a packet whose network header starts at netOff.
func NewPacketAt(data []byte, netOff int) *SimplePacket {
	if data == nil {
		data = make([]byte, 0)
	}
	if netOff < 0 || netOff > len(data) {
		netOff = 0
	}

	// In debug mode, copy the data so callers holding the original slice
	// cannot race with the output path.
	if IsDebugMode() {
		dataCopy := make([]byte, len(data))
		copy(dataCopy, data)
		data = dataCopy
	}
	return &SimplePacket{data: data, netOff: netOff}
}

// Data returns the packet bytes, copied in debug mode.
func (p *SimplePacket) Data() []byte {
	if IsDebugMode() {
		dataCopy := make([]byte, len(p.data))
		copy(dataCopy, p.data)
		return dataCopy
	}
	return p.data
}

// Header returns the live bytes from the network header onwards.
func (p *SimplePacket) Header() []byte {
	return p.data[p.netOff:]
}

// Length returns the total packet length.
func (p *SimplePacket) Length() int {
	return len(p.data)
}

// NetworkOffset returns the offset of the network header.
func (p *SimplePacket) NetworkOffset() int {
	return p.netOff
}

// Meta returns the packet's scratch metadata.
func (p *SimplePacket) Meta() *Metadata {
	return &p.meta
}
