package output

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/irctrakz/ip6out/pkg/core"
	"github.com/irctrakz/ip6out/pkg/logging"
)

// Processor is a worker pool in front of a Finalizer, modeling the many
// concurrent execution contexts the output path is entered from.
type Processor struct {
	fin *Finalizer

	workerCount int
	packetCh    chan core.Packet
	stopCh      chan struct{}
	wg          sync.WaitGroup

	// Metrics
	packetsProcessed uint64
	packetsDropped   uint64
	queueFullDrops   uint64
	hookDrops        uint64
}

// NewProcessor creates a processor with the given worker count and queue
// depth.
func NewProcessor(fin *Finalizer, workerCount, queueDepth int) *Processor {
	if workerCount <= 0 {
		workerCount = 4
	}
	if queueDepth <= 0 {
		queueDepth = 1000
	}
	return &Processor{
		fin:         fin,
		workerCount: workerCount,
		packetCh:    make(chan core.Packet, queueDepth),
		stopCh:      make(chan struct{}),
	}
}

// Start launches the worker pool.
func (p *Processor) Start() error {
	p.wg.Add(p.workerCount)
	for i := 0; i < p.workerCount; i++ {
		go p.worker(i)
	}

	logging.Infof("output processor started with %d workers", p.workerCount)
	return nil
}

// Stop drains the pool and waits for the workers to exit.
func (p *Processor) Stop() error {
	close(p.stopCh)
	p.wg.Wait()
	close(p.packetCh)

	logging.Infof("output processor stopped")
	return nil
}

// Enqueue submits a packet to the pool without blocking; a full queue drops
// the packet.
func (p *Processor) Enqueue(pkt core.Packet) error {
	select {
	case p.packetCh <- pkt:
		return nil
	default:
		atomic.AddUint64(&p.packetsDropped, 1)
		atomic.AddUint64(&p.queueFullDrops, 1)
		return fmt.Errorf("packet dropped: output queue is full")
	}
}

// worker finalizes packets from the queue
func (p *Processor) worker(id int) {
	defer p.wg.Done()

	logging.Debugf("output worker %d started", id)

	for {
		select {
		case <-p.stopCh:
			logging.Debugf("output worker %d stopped", id)
			return
		case pkt, ok := <-p.packetCh:
			if !ok {
				return
			}

			v, err := p.fin.LocalOut(pkt)
			switch {
			case err != nil:
				atomic.AddUint64(&p.packetsDropped, 1)
				logging.Errorf("output worker %d: %v", id, err)
			case v != core.VerdictContinue:
				atomic.AddUint64(&p.hookDrops, 1)
				atomic.AddUint64(&p.packetsProcessed, 1)
			default:
				atomic.AddUint64(&p.packetsProcessed, 1)
			}
		}
	}
}

// Metrics returns the processor's counters.
func (p *Processor) Metrics() map[string]uint64 {
	return map[string]uint64{
		"packetsProcessed": atomic.LoadUint64(&p.packetsProcessed),
		"packetsDropped":   atomic.LoadUint64(&p.packetsDropped),
		"queueFullDrops":   atomic.LoadUint64(&p.queueFullDrops),
		"hookDrops":        atomic.LoadUint64(&p.hookDrops),
	}
}
