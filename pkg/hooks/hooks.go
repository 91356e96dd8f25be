// Package hooks implements the hook-chain abstraction the output path
// dispatches packets through before transmission.
package hooks

import (
	"sync"

	"github.com/irctrakz/ip6out/pkg/core"
	"github.com/irctrakz/ip6out/pkg/logging"
)

// Family identifies the protocol family a hook applies to.
type Family uint8

// Protocol families.
const (
	FamilyIPv4 Family = 2
	FamilyIPv6 Family = 10
)

// Point identifies where in the packet path a hook runs.
type Point uint8

// Hook points.
const (
	PreRouting Point = iota
	LocalIn
	Forward
	LocalOut
	PostRouting
	numPoints
)

// Func inspects or mutates a packet at a hook point. in and out carry the
// device context and may be nil.
type Func func(p Point, pkt core.Packet, in, out core.Device) core.Verdict

// Chain is a registry of hook functions per (family, point). Registration is
// expected at setup time; Run is safe for concurrent use with registration.
type Chain struct {
	mu    sync.RWMutex
	hooks map[Family][numPoints][]Func
}

// NewChain returns an empty hook chain.
func NewChain() *Chain {
	return &Chain{hooks: make(map[Family][numPoints][]Func)}
}

// Register appends fn to the chain for the given family and point.
func (c *Chain) Register(f Family, p Point, fn Func) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry := c.hooks[f]
	entry[p] = append(entry[p], fn)
	c.hooks[f] = entry
}

// Run passes pkt through every hook registered for (f, p) in registration
// order. The first verdict other than Continue stops the chain and is
// returned; a hook returning Repeat is invoked again. An empty chain yields
// Continue.
func (c *Chain) Run(f Family, p Point, pkt core.Packet, in, out core.Device) core.Verdict {
	c.mu.RLock()
	fns := c.hooks[f][p]
	c.mu.RUnlock()

	for _, fn := range fns {
		v := fn(p, pkt, in, out)
		for v == core.VerdictRepeat {
			v = fn(p, pkt, in, out)
		}
		if v != core.VerdictContinue {
			logging.Debugf("hook chain verdict %s at point %d", v, p)
			return v
		}
	}
	return core.VerdictContinue
}
