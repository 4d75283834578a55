// Package locator resolves a (SKU, size) query to the rack holding the item
// and drives the rack's transient indicator.
package locator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rfidlab/smarttray/internal/model"
	"github.com/rfidlab/smarttray/internal/obs"
	"github.com/rfidlab/smarttray/internal/tray"
)

// ErrNotFound is returned when no inventory entry matches the query.
var ErrNotFound = errors.New("item not found")

// document is the on-disk inventory shape: the location list plus the
// per-rack actuator endpoints (ESP32 blink URLs).
type document struct {
	Items     []model.RackLocation `json:"items"`
	Actuators map[string]string    `json:"actuators"`
}

// Locator holds the inventory list in insertion order. The list is loaded
// once at startup and treated as read-only, so lookups need no locking.
type Locator struct {
	items     []model.RackLocation
	actuators map[string]string
	agg       *tray.Aggregator
	dwell     time.Duration
	client    *http.Client
}

// New builds a locator over an in-memory inventory. Every rack named by the
// inventory or an actuator entry is registered on the aggregator so it shows
// up in snapshots as inactive from the start.
func New(items []model.RackLocation, actuators map[string]string, agg *tray.Aggregator, dwell, actuatorTimeout time.Duration) *Locator {
	l := &Locator{
		items:     items,
		actuators: actuators,
		agg:       agg,
		dwell:     dwell,
		client:    &http.Client{Timeout: actuatorTimeout},
	}
	for _, it := range items {
		agg.RegisterRack(it.Rack)
	}
	for rack := range actuators {
		agg.RegisterRack(rack)
	}
	return l
}

// Open loads the inventory document at path and builds a locator from it.
// A missing file yields an empty locator (billing-only deployments carry no
// inventory); a malformed one is a startup error.
func Open(path string, agg *tray.Aggregator, dwell, actuatorTimeout time.Duration) (*Locator, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		obs.Logger.Warnw("inventory_missing", "path", path)
		return New(nil, nil, agg, dwell, actuatorTimeout), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read inventory %s: %w", path, err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse inventory %s: %w", path, err)
	}
	return New(doc.Items, doc.Actuators, agg, dwell, actuatorTimeout), nil
}

// Racks returns the known rack identifiers in inventory order, without
// duplicates.
func (l *Locator) Racks() []string {
	seen := make(map[string]bool)
	var racks []string
	for _, it := range l.items {
		if !seen[it.Rack] {
			seen[it.Rack] = true
			racks = append(racks, it.Rack)
		}
	}
	for rack := range l.actuators {
		if !seen[rack] {
			seen[rack] = true
			racks = append(racks, rack)
		}
	}
	return racks
}

// Locate returns the rack of the first inventory entry matching sku and size
// (case-insensitive, inventory order). A hit activates the rack indicator
// for the configured dwell and best-effort pings the rack's actuator; a miss
// changes no state.
func (l *Locator) Locate(sku, size string) (string, error) {
	for _, it := range l.items {
		if strings.EqualFold(it.SKU, sku) && strings.EqualFold(it.Size, size) {
			l.agg.TriggerIndicator(it.Rack, l.dwell)
			if url, ok := l.actuators[it.Rack]; ok {
				go l.notify(it.Rack, url)
			}
			return it.Rack, nil
		}
	}
	return "", fmt.Errorf("locate %s/%s: %w", sku, size, ErrNotFound)
}

// notify pings the rack's actuator endpoint. The on-screen indicator is
// authoritative, so a failure here is logged and nothing else.
func (l *Locator) notify(rack, url string) {
	ctx, cancel := context.WithTimeout(context.Background(), l.client.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		obs.Logger.Warnw("actuator_request_invalid", "rack", rack, "url", url, "error", err)
		return
	}
	resp, err := l.client.Do(req)
	if err != nil {
		obs.Logger.Warnw("actuator_unreachable", "rack", rack, "url", url, "error", err)
		return
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= 300 {
		obs.Logger.Warnw("actuator_rejected", "rack", rack, "url", url, "status", resp.StatusCode)
	}
}
