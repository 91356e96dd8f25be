package main

import (
	"encoding/json"
	"time"

	"github.com/irctrakz/ip6out/pkg/logging"
	"github.com/irctrakz/ip6out/pkg/output"
	"github.com/irctrakz/ip6out/pkg/transmit"
)

type metricsSnapshot struct {
	Timestamp string            `json:"ts"`
	Proc      map[string]uint64 `json:"proc"`
	TX        map[string]uint64 `json:"tx"`
}

func runMetricsReporter(interval string, proc *output.Processor, tx transmit.Transmitter) {
	d, err := time.ParseDuration(interval)
	if err != nil {
		d = 30 * time.Second
	}

	ticker := time.NewTicker(d)
	defer ticker.Stop()
	for {
		dumpMetrics(proc, tx)
		<-ticker.C
	}
}

func dumpMetrics(proc *output.Processor, tx transmit.Transmitter) {
	snap := metricsSnapshot{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Proc:      proc.Metrics(),
	}
	if lo, ok := tx.(*transmit.Loopback); ok {
		snap.TX = lo.Metrics()
	}

	if b, err := json.Marshal(snap); err == nil {
		logging.Infof("metrics %s", string(b))
	}
}
