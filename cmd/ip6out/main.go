package main

import (
	"errors"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/irctrakz/ip6out/pkg/config"
	"github.com/irctrakz/ip6out/pkg/core"
	"github.com/irctrakz/ip6out/pkg/hooks"
	"github.com/irctrakz/ip6out/pkg/ip6"
	"github.com/irctrakz/ip6out/pkg/logging"
	"github.com/irctrakz/ip6out/pkg/output"
	"github.com/irctrakz/ip6out/pkg/transmit"
)

// ip6out replays IPv6 packets from a pcap stream on stdin through the
// local-output path: finalize, hook chain, transmit.
func main() {
	// Debug logging toggle via DEBUG env (truthy parser)
	dval := strings.ToLower(strings.TrimSpace(os.Getenv("DEBUG")))
	debugOn := dval == "1" || dval == "true" || dval == "yes" || dval == "on"
	if debugOn {
		logging.SetLevel(logging.DebugLevel)
		core.SetDebugMode(true)
		logging.Infof("DEBUG enabled: verbose logging and packet copy mode")
	}

	cfg := config.DefaultConfig()
	cfgPath := strings.TrimSpace(os.Getenv("IP6OUT_CONFIG"))
	if cfgPath == "" && len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}
	if cfgPath != "" {
		if err := config.LoadFromFile(cfgPath, cfg); err != nil {
			log.Fatalf("config: %v", err)
		}
	}
	config.ApplyEnvOverrides(cfg)
	if !debugOn {
		if err := config.ApplyLogging(cfg); err != nil {
			log.Fatalf("config: %v", err)
		}
	}

	tx, cleanup, err := buildTransmitter(cfg)
	if err != nil {
		log.Fatalf("transmitter: %v", err)
	}
	defer cleanup()

	// Drop packets whose extension header chain cannot be walked; a chain
	// we cannot find an insertion point in is a chain we cannot fragment
	// or amend later.
	walkCfg := ip6.WalkConfig{MobilityOptions: cfg.IPv6.MobilityOptions}
	chain := hooks.NewChain()
	chain.Register(hooks.FamilyIPv6, hooks.LocalOut,
		func(p hooks.Point, pkt core.Packet, in, out core.Device) core.Verdict {
			if _, _, err := ip6.FindFragInsertionPoint(pkt.Header(), walkCfg); err != nil {
				logging.Debugf("dropping packet: %v", err)
				return core.VerdictDrop
			}
			return core.VerdictContinue
		})

	var outDev core.Device
	if lo, ok := tx.(*transmit.Loopback); ok {
		outDev = lo
		go drainLoopback(lo)
	}

	fin := output.NewFinalizer(chain, tx, outDev)
	proc := output.NewProcessor(fin, cfg.Output.Workers, cfg.Output.QueueDepth)
	if err := proc.Start(); err != nil {
		log.Fatalf("processor: %v", err)
	}
	defer proc.Stop()

	ns := ip6.NewNamespace()

	// Optional periodic metrics reporter
	if interval := strings.TrimSpace(os.Getenv("METRICS_INTERVAL")); interval != "" {
		go runMetricsReporter(interval, proc, tx)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := replay(os.Stdin, ns, proc); err != nil {
			logging.Errorf("replay: %v", err)
		}
	}()

	sigc := make(chan os.Signal, 2)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
	case <-done:
	}
}

// replay feeds every IPv6 packet in the pcap stream through the output path,
// assigning proxy fragment identifiers on the way in.
func replay(r io.Reader, ns *ip6.Namespace, proc *output.Processor) error {
	pr, err := pcapgo.NewReader(r)
	if err != nil {
		return err
	}

	netOff := 0
	if pr.LinkType() == layers.LinkTypeEthernet {
		netOff = 14
	}

	var fed, skipped uint64
	for {
		data, _, err := pr.ReadPacketData()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if len(data) <= netOff || data[netOff]>>4 != 6 {
			skipped++
			continue
		}

		pkt := core.NewPacketAt(data, netOff)
		ip6.ProxySelectIdent(ns, pkt)
		if err := proc.Enqueue(pkt); err != nil {
			logging.Warnf("enqueue: %v", err)
			continue
		}
		fed++
	}

	logging.Infof("replay finished: %d packets fed, %d skipped", fed, skipped)
	return nil
}

func buildTransmitter(cfg *config.Config) (transmit.Transmitter, func(), error) {
	switch strings.ToLower(cfg.Output.Transmitter) {
	case "", "loopback":
		return transmit.NewLoopback(cfg.Output.QueueDepth), func() {}, nil
	case "raw":
		r, err := transmit.NewRawSocket(cfg.Output.RawProtocol)
		if err != nil {
			return nil, nil, err
		}
		return r, func() { r.Close() }, nil
	case "tun":
		t, err := transmit.NewTUN(cfg.Output.TUNName, cfg.Output.TUNMTU)
		if err != nil {
			return nil, nil, err
		}
		return t, func() { t.Close() }, nil
	}
	return nil, nil, errors.New("unknown transmitter " + cfg.Output.Transmitter)
}

// drainLoopback consumes transmitted packets so the loopback queue never
// backs up when nothing downstream is attached.
func drainLoopback(lo *transmit.Loopback) {
	for pkt := range lo.Packets() {
		logging.Debugf("transmitted packet: len=%d fragID=%#x",
			pkt.Length(), pkt.Meta().FragID)
	}
}
