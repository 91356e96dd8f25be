package core

// Verdict is the result of running a packet through a hook chain.
type Verdict int

const (
	// VerdictContinue lets the packet proceed to the next hook and,
	// after the chain, to transmission.
	VerdictContinue Verdict = iota

	// VerdictDrop discards the packet.
	VerdictDrop

	// VerdictStolen means a hook took ownership of the packet; the chain
	// stops and the caller must not touch the packet again.
	VerdictStolen

	// VerdictQueued means the packet was handed off to an external queue.
	VerdictQueued

	// VerdictRepeat re-runs the hook that returned it.
	VerdictRepeat
)

func (v Verdict) String() string {
	switch v {
	case VerdictContinue:
		return "continue"
	case VerdictDrop:
		return "drop"
	case VerdictStolen:
		return "stolen"
	case VerdictQueued:
		return "queued"
	case VerdictRepeat:
		return "repeat"
	}
	return "unknown"
}

// EtherTypeIPv6 is the L3 protocol tag stamped on finalized IPv6 packets.
const EtherTypeIPv6 uint16 = 0x86dd

// Device identifies the network device a packet arrived on or is leaving
// through. Hook functions receive it as context only.
type Device interface {
	Name() string
}
