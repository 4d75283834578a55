package source

import (
	"context"
	"math/rand"
	"time"

	"github.com/rfidlab/smarttray/internal/catalog"
	"github.com/rfidlab/smarttray/internal/model"
	"github.com/rfidlab/smarttray/internal/obs"
	"github.com/rfidlab/smarttray/internal/tray"
)

// Simulator scans a random catalog tag once per interval, standing in for a
// real RFID antenna during demos. A failed scan is logged and the loop keeps
// going.
type Simulator struct {
	agg      *tray.Aggregator
	cat      *catalog.Store
	interval time.Duration
}

// NewSimulator creates a simulator producer.
func NewSimulator(agg *tray.Aggregator, cat *catalog.Store, interval time.Duration) *Simulator {
	return &Simulator{agg: agg, cat: cat, interval: interval}
}

// ID implements Producer.
func (s *Simulator) ID() string { return "simulator" }

// Run implements Producer.
func (s *Simulator) Run(ctx context.Context) error {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			keys := s.cat.Keys()
			if len(keys) == 0 {
				continue
			}
			tag := keys[rand.Intn(len(keys))]
			ev := model.ScanEvent{Tag: tag, SourceID: s.ID(), At: time.Now()}
			if _, err := s.agg.Submit(ev); err != nil {
				obs.Logger.Warnw("simulator_scan_rejected", "tag", tag, "error", err)
			}
		}
	}
}
