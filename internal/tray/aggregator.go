// Package tray implements the event-aggregation core: scan events from
// concurrent producers are folded into the current bill under one exclusive
// section, and readers take consistent snapshots of the derived state.
package tray

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rfidlab/smarttray/internal/catalog"
	"github.com/rfidlab/smarttray/internal/config"
	"github.com/rfidlab/smarttray/internal/model"
	"github.com/rfidlab/smarttray/internal/obs"
)

var oneHundred = decimal.NewFromInt(100)

// Options name the policy choices the prototype variants disagreed on.
type Options struct {
	// ScanPolicy controls re-scans of a tag already in the tray:
	// increment quantity (default) or reject as a duplicate.
	ScanPolicy string
	// ResetClearsDiscount makes Reset also drop the discount percent.
	// Off by default: the discount is session pricing policy, not tray state.
	ResetClearsDiscount bool
}

type rackState struct {
	active bool
	gen    uint64
}

// Aggregator owns the canonical mutable state: tray lines, discount, and
// rack indicators. Every operation runs under a single exclusive section,
// so producers on any schedule cannot observe or produce a torn state.
type Aggregator struct {
	cat  *catalog.Store
	opts Options

	mu       sync.Mutex
	lines    map[model.Tag]*model.TrayLine
	order    []model.Tag
	discount float64
	racks    map[string]*rackState

	accepted atomic.Uint64
	rejected atomic.Uint64
}

// New creates an empty aggregator over the given catalog.
func New(cat *catalog.Store, opts Options) *Aggregator {
	if opts.ScanPolicy == "" {
		opts.ScanPolicy = config.ScanPolicyIncrement
	}
	return &Aggregator{
		cat:   cat,
		opts:  opts,
		lines: make(map[model.Tag]*model.TrayLine),
		racks: make(map[string]*rackState),
	}
}

// Scan normalizes a raw token from a synchronous caller and merges it into
// the tray.
func (a *Aggregator) Scan(raw string) (model.TrayLine, error) {
	return a.Submit(model.ScanEvent{Tag: model.NormalizeTag(raw), SourceID: "manual", At: time.Now()})
}

// Submit folds one producer event into the tray. A tag already present gets
// its quantity incremented (or is rejected, per policy); a new tag gets a
// line with quantity 1 copying the catalog product at this instant. The
// returned line is the post-merge state.
func (a *Aggregator) Submit(ev model.ScanEvent) (model.TrayLine, error) {
	if ev.Tag == "" {
		a.rejected.Add(1)
		return model.TrayLine{}, fmt.Errorf("scan from %s: %w", ev.SourceID, ErrUnknownTag)
	}
	p, ok := a.cat.Get(ev.Tag)
	if !ok {
		a.rejected.Add(1)
		return model.TrayLine{}, fmt.Errorf("scan %s from %s: %w", ev.Tag, ev.SourceID, ErrUnknownTag)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if ln, exists := a.lines[ev.Tag]; exists {
		if a.opts.ScanPolicy == config.ScanPolicyReject {
			a.rejected.Add(1)
			return *ln, fmt.Errorf("scan %s from %s: %w", ev.Tag, ev.SourceID, ErrAlreadyInTray)
		}
		ln.Quantity++
		a.accepted.Add(1)
		return *ln, nil
	}
	ln := &model.TrayLine{Tag: ev.Tag, Name: p.Name, UnitPrice: p.Price, Quantity: 1}
	a.lines[ev.Tag] = ln
	a.order = append(a.order, ev.Tag)
	a.accepted.Add(1)
	return *ln, nil
}

// AdjustQuantity applies a signed delta to a line's quantity. A result of
// zero or less removes the line; the tray never holds a line with
// quantity <= 0. The returned line reports the new state, with quantity 0
// meaning the line was removed.
func (a *Aggregator) AdjustQuantity(tag model.Tag, delta int) (model.TrayLine, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	ln, ok := a.lines[tag]
	if !ok {
		return model.TrayLine{}, fmt.Errorf("adjust %s: %w", tag, ErrNotInTray)
	}
	ln.Quantity += delta
	if ln.Quantity <= 0 {
		a.removeLocked(tag)
		out := *ln
		out.Quantity = 0
		return out, nil
	}
	return *ln, nil
}

// Remove deletes a line regardless of quantity.
func (a *Aggregator) Remove(tag model.Tag) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.lines[tag]; !ok {
		return fmt.Errorf("remove %s: %w", tag, ErrNotInTray)
	}
	a.removeLocked(tag)
	return nil
}

func (a *Aggregator) removeLocked(tag model.Tag) {
	delete(a.lines, tag)
	for i, t := range a.order {
		if t == tag {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
}

// SetDiscount stores a percentage in [0, 100] applied to the subtotal.
// It takes effect on the next snapshot.
func (a *Aggregator) SetDiscount(percent float64) error {
	if percent < 0 || percent > 100 {
		return fmt.Errorf("discount %v: %w", percent, ErrOutOfRange)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.discount = percent
	return nil
}

// Discount returns the current discount percent.
func (a *Aggregator) Discount() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.discount
}

// Reset clears the tray. The discount survives unless the aggregator was
// built with ResetClearsDiscount.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lines = make(map[model.Tag]*model.TrayLine)
	a.order = nil
	if a.opts.ResetClearsDiscount {
		a.discount = 0
	}
}

// RegisterRack makes a rack appear in snapshots before its first locate hit.
func (a *Aggregator) RegisterRack(rackID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.racks[rackID]; !ok {
		a.racks[rackID] = &rackState{}
	}
}

// TriggerIndicator activates a rack indicator and schedules its reset after
// dwell. Each trigger bumps the rack's generation; a firing timer only
// clears the flag if it is still the most recent trigger, so a re-trigger
// before the deadline restarts the dwell window instead of racing it.
func (a *Aggregator) TriggerIndicator(rackID string, dwell time.Duration) {
	a.mu.Lock()
	rs, ok := a.racks[rackID]
	if !ok {
		rs = &rackState{}
		a.racks[rackID] = rs
	}
	rs.gen++
	gen := rs.gen
	rs.active = true
	a.mu.Unlock()

	time.AfterFunc(dwell, func() {
		a.mu.Lock()
		if rs.gen == gen {
			rs.active = false
		}
		a.mu.Unlock()
	})
	obs.Logger.Infow("indicator_triggered", "rack", rackID, "dwell", dwell.String())
}

// Snapshot copies the tray, computed summary, and indicator map under the
// exclusive section. Lines come back in insertion order. Calling it twice
// without intervening mutation yields identical output.
func (a *Aggregator) Snapshot() model.Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	lines := make([]model.TrayLine, 0, len(a.order))
	subtotal := decimal.Zero
	for _, tag := range a.order {
		ln := a.lines[tag]
		lines = append(lines, *ln)
		subtotal = subtotal.Add(ln.LineTotal())
	}
	discountAmt := subtotal.Mul(decimal.NewFromFloat(a.discount)).Div(oneHundred)
	indicators := make(map[string]bool, len(a.racks))
	for id, rs := range a.racks {
		indicators[id] = rs.active
	}
	return model.Snapshot{
		Lines: lines,
		Summary: model.BillSummary{
			Subtotal:       subtotal,
			DiscountAmount: discountAmt,
			Total:          subtotal.Sub(discountAmt),
		},
		Indicators: indicators,
	}
}

// Metrics returns scan counters and the current tray size.
func (a *Aggregator) Metrics() (accepted, rejected uint64, traySize int) {
	accepted = a.accepted.Load()
	rejected = a.rejected.Load()
	a.mu.Lock()
	traySize = len(a.lines)
	a.mu.Unlock()
	return accepted, rejected, traySize
}
