package output

import (
	"testing"
	"time"

	"github.com/irctrakz/ip6out/pkg/core"
	"github.com/irctrakz/ip6out/pkg/hooks"
	"github.com/irctrakz/ip6out/pkg/transmit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessorFinalizesEnqueuedPackets(t *testing.T) {
	lo := transmit.NewLoopback(64)
	fin := NewFinalizer(hooks.NewChain(), lo, lo)
	proc := NewProcessor(fin, 2, 64)

	require.NoError(t, proc.Start())

	const n = 16
	for i := 0; i < n; i++ {
		require.NoError(t, proc.Enqueue(ipv6Packet(i)))
	}

	received := 0
	timeout := time.After(2 * time.Second)
	for received < n {
		select {
		case <-lo.Packets():
			received++
		case <-timeout:
			t.Fatalf("only %d of %d packets transmitted", received, n)
		}
	}

	require.NoError(t, proc.Stop())
	assert.Equal(t, uint64(n), proc.Metrics()["packetsProcessed"])
}

func TestProcessorQueueFullDrops(t *testing.T) {
	lo := transmit.NewLoopback(1)
	fin := NewFinalizer(hooks.NewChain(), lo, nil)
	// Not started: the queue fills up.
	proc := NewProcessor(fin, 1, 2)

	require.NoError(t, proc.Enqueue(ipv6Packet(1)))
	require.NoError(t, proc.Enqueue(ipv6Packet(1)))
	err := proc.Enqueue(ipv6Packet(1))

	assert.Error(t, err)
	assert.Equal(t, uint64(1), proc.Metrics()["queueFullDrops"])
}

func TestProcessorCountsHookDrops(t *testing.T) {
	lo := transmit.NewLoopback(4)
	chain := hooks.NewChain()
	chain.Register(hooks.FamilyIPv6, hooks.LocalOut,
		func(p hooks.Point, pkt core.Packet, in, out core.Device) core.Verdict {
			return core.VerdictDrop
		})
	proc := NewProcessor(NewFinalizer(chain, lo, nil), 1, 4)

	require.NoError(t, proc.Start())
	require.NoError(t, proc.Enqueue(ipv6Packet(8)))

	deadline := time.Now().Add(2 * time.Second)
	for proc.Metrics()["hookDrops"] == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.NoError(t, proc.Stop())

	assert.Equal(t, uint64(1), proc.Metrics()["hookDrops"])
	assert.Empty(t, lo.Metrics()["packetsSent"])
}
