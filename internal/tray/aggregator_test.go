package tray

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rfidlab/smarttray/internal/catalog"
	"github.com/rfidlab/smarttray/internal/config"
	"github.com/rfidlab/smarttray/internal/model"
)

func testCatalog(t *testing.T) *catalog.Store {
	t.Helper()
	cat := catalog.New()
	products := map[model.Tag]model.Product{
		"EPC001": {Name: "Men's Tee", Price: decimal.NewFromInt(1290)},
		"EPC002": {Name: "Jeans", Price: decimal.NewFromInt(1890)},
		"EPC003": {Name: "Kurti", Price: decimal.NewFromInt(1150)},
	}
	for tag, p := range products {
		if err := cat.Set(tag, p); err != nil {
			t.Fatalf("seed catalog: %v", err)
		}
	}
	return cat
}

func TestScanUnknownTagRejected(t *testing.T) {
	a := New(testCatalog(t), Options{})
	if _, err := a.Scan("NOPE"); !errors.Is(err, ErrUnknownTag) {
		t.Fatalf("expected ErrUnknownTag, got %v", err)
	}
	if _, err := a.Scan("   "); !errors.Is(err, ErrUnknownTag) {
		t.Fatalf("expected ErrUnknownTag for blank token, got %v", err)
	}
	if snap := a.Snapshot(); len(snap.Lines) != 0 {
		t.Fatalf("rejected scan must not change state: %+v", snap.Lines)
	}
}

func TestScanNormalizesToken(t *testing.T) {
	a := New(testCatalog(t), Options{})
	ln, err := a.Scan("  epc001\r\n")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if ln.Tag != "EPC001" || ln.Quantity != 1 {
		t.Fatalf("unexpected line: %+v", ln)
	}
}

func TestRescanIncrementsQuantity(t *testing.T) {
	a := New(testCatalog(t), Options{})
	for i := 1; i <= 5; i++ {
		ln, err := a.Scan("EPC001")
		if err != nil {
			t.Fatalf("scan %d: %v", i, err)
		}
		if ln.Quantity != i {
			t.Fatalf("scan %d: quantity %d", i, ln.Quantity)
		}
	}
}

func TestRejectPolicyRefusesRescan(t *testing.T) {
	a := New(testCatalog(t), Options{ScanPolicy: config.ScanPolicyReject})
	if _, err := a.Scan("EPC001"); err != nil {
		t.Fatalf("first scan: %v", err)
	}
	ln, err := a.Scan("EPC001")
	if !errors.Is(err, ErrAlreadyInTray) {
		t.Fatalf("expected ErrAlreadyInTray, got %v", err)
	}
	if ln.Quantity != 1 {
		t.Fatalf("rejected rescan must not change quantity: %d", ln.Quantity)
	}
}

func TestScanCopiesProductAtScanTime(t *testing.T) {
	cat := testCatalog(t)
	a := New(cat, Options{})
	if _, err := a.Scan("EPC001"); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if err := cat.Set("EPC001", model.Product{Name: "Renamed", Price: decimal.NewFromInt(9999)}); err != nil {
		t.Fatalf("edit catalog: %v", err)
	}
	snap := a.Snapshot()
	if snap.Lines[0].Name != "Men's Tee" || !snap.Lines[0].UnitPrice.Equal(decimal.NewFromInt(1290)) {
		t.Fatalf("line must keep the product snapshot from scan time: %+v", snap.Lines[0])
	}
}

func TestAdjustQuantityFloorRemovesLine(t *testing.T) {
	a := New(testCatalog(t), Options{})
	_, _ = a.Scan("EPC001")
	ln, err := a.AdjustQuantity("EPC001", -1)
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if ln.Quantity != 0 {
		t.Fatalf("expected removal report, got quantity %d", ln.Quantity)
	}
	if _, err := a.AdjustQuantity("EPC001", 1); !errors.Is(err, ErrNotInTray) {
		t.Fatalf("expected ErrNotInTray after removal, got %v", err)
	}
}

func TestAdjustQuantityAbsentTag(t *testing.T) {
	a := New(testCatalog(t), Options{})
	if _, err := a.AdjustQuantity("EPC001", 1); !errors.Is(err, ErrNotInTray) {
		t.Fatalf("expected ErrNotInTray, got %v", err)
	}
}

func TestRemoveDeletesRegardlessOfQuantity(t *testing.T) {
	a := New(testCatalog(t), Options{})
	for i := 0; i < 4; i++ {
		_, _ = a.Scan("EPC001")
	}
	if err := a.Remove("EPC001"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := a.Remove("EPC001"); !errors.Is(err, ErrNotInTray) {
		t.Fatalf("expected ErrNotInTray, got %v", err)
	}
	if snap := a.Snapshot(); len(snap.Lines) != 0 {
		t.Fatalf("tray not empty after remove")
	}
}

func TestSetDiscountRange(t *testing.T) {
	a := New(testCatalog(t), Options{})
	for _, bad := range []float64{-0.5, 100.5, 200} {
		if err := a.SetDiscount(bad); !errors.Is(err, ErrOutOfRange) {
			t.Fatalf("discount %v: expected ErrOutOfRange, got %v", bad, err)
		}
	}
	for _, ok := range []float64{0, 50, 100} {
		if err := a.SetDiscount(ok); err != nil {
			t.Fatalf("discount %v: %v", ok, err)
		}
	}
}

func TestBillingScenario(t *testing.T) {
	cat := catalog.New()
	if err := cat.Set("T1", model.Product{Name: "Tee", Price: decimal.NewFromInt(100)}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	a := New(cat, Options{})

	ln, err := a.Scan("T1")
	if err != nil || ln.Quantity != 1 {
		t.Fatalf("first scan: %+v %v", ln, err)
	}
	ln, _ = a.Scan("T1")
	if ln.Quantity != 2 {
		t.Fatalf("second scan: quantity %d", ln.Quantity)
	}
	if sub := a.Snapshot().Summary.Subtotal; !sub.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("subtotal: %s", sub)
	}

	if err := a.SetDiscount(10); err != nil {
		t.Fatalf("discount: %v", err)
	}
	sum := a.Snapshot().Summary
	if !sum.DiscountAmount.Equal(decimal.NewFromInt(20)) || !sum.Total.Equal(decimal.NewFromInt(180)) {
		t.Fatalf("after discount: %+v", sum)
	}

	if _, err := a.AdjustQuantity("T1", -1); err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if total := a.Snapshot().Summary.Total; !total.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("total after decrement: %s", total)
	}

	if _, err := a.AdjustQuantity("T1", -1); err != nil {
		t.Fatalf("adjust: %v", err)
	}
	snap := a.Snapshot()
	if len(snap.Lines) != 0 || !snap.Summary.Total.Equal(decimal.Zero) {
		t.Fatalf("expected empty tray, total 0: %+v", snap)
	}
}

func TestResetPreservesDiscountByDefault(t *testing.T) {
	a := New(testCatalog(t), Options{})
	_, _ = a.Scan("EPC001")
	_ = a.SetDiscount(25)
	a.Reset()
	snap := a.Snapshot()
	if len(snap.Lines) != 0 || !snap.Summary.Subtotal.Equal(decimal.Zero) || !snap.Summary.Total.Equal(decimal.Zero) {
		t.Fatalf("reset left state behind: %+v", snap)
	}
	if a.Discount() != 25 {
		t.Fatalf("reset must preserve discount, got %v", a.Discount())
	}
}

func TestResetClearsDiscountWhenConfigured(t *testing.T) {
	a := New(testCatalog(t), Options{ResetClearsDiscount: true})
	_ = a.SetDiscount(25)
	a.Reset()
	if a.Discount() != 0 {
		t.Fatalf("expected discount cleared, got %v", a.Discount())
	}
}

func TestSnapshotInsertionOrder(t *testing.T) {
	a := New(testCatalog(t), Options{})
	for _, tag := range []string{"EPC002", "EPC001", "EPC003"} {
		if _, err := a.Scan(tag); err != nil {
			t.Fatalf("scan %s: %v", tag, err)
		}
	}
	snap := a.Snapshot()
	got := []model.Tag{snap.Lines[0].Tag, snap.Lines[1].Tag, snap.Lines[2].Tag}
	want := []model.Tag{"EPC002", "EPC001", "EPC003"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order %v, want %v", got, want)
		}
	}
}

func TestConcurrentScansSerialize(t *testing.T) {
	a := New(testCatalog(t), Options{})
	const perTag = 50
	var wg sync.WaitGroup
	for _, tag := range []string{"EPC001", "EPC002", "EPC003"} {
		for i := 0; i < perTag; i++ {
			wg.Add(1)
			go func(tag string) {
				defer wg.Done()
				if _, err := a.Scan(tag); err != nil {
					t.Errorf("scan %s: %v", tag, err)
				}
			}(tag)
		}
	}
	wg.Wait()
	snap := a.Snapshot()
	if len(snap.Lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(snap.Lines))
	}
	for _, ln := range snap.Lines {
		if ln.Quantity != perTag {
			t.Fatalf("line %s: quantity %d, want %d", ln.Tag, ln.Quantity, perTag)
		}
	}
}

func TestSnapshotNeverTorn(t *testing.T) {
	a := New(testCatalog(t), Options{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			_, _ = a.Scan("EPC001")
			_, _ = a.Scan("EPC002")
		}
	}()
	for i := 0; i < 100; i++ {
		snap := a.Snapshot()
		sum := decimal.Zero
		for _, ln := range snap.Lines {
			sum = sum.Add(ln.LineTotal())
		}
		if !sum.Equal(snap.Summary.Subtotal) {
			t.Fatalf("torn snapshot: lines sum %s, subtotal %s", sum, snap.Summary.Subtotal)
		}
	}
	<-done
}

func TestTriggerIndicatorDwell(t *testing.T) {
	a := New(testCatalog(t), Options{})
	a.RegisterRack("Rack 1")
	a.RegisterRack("Rack 2")

	a.TriggerIndicator("Rack 1", 50*time.Millisecond)
	snap := a.Snapshot()
	if !snap.Indicators["Rack 1"] {
		t.Fatalf("indicator must be active immediately after trigger")
	}
	if snap.Indicators["Rack 2"] {
		t.Fatalf("unrelated rack must stay inactive")
	}

	time.Sleep(150 * time.Millisecond)
	if a.Snapshot().Indicators["Rack 1"] {
		t.Fatalf("indicator still active after dwell")
	}
}

func TestTriggerIndicatorRestartsDwellWindow(t *testing.T) {
	a := New(testCatalog(t), Options{})
	a.TriggerIndicator("Rack 1", 80*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	a.TriggerIndicator("Rack 1", 80*time.Millisecond)

	// The first timer fires inside the second window; the generation check
	// must keep the indicator active until the later deadline.
	time.Sleep(60 * time.Millisecond)
	if !a.Snapshot().Indicators["Rack 1"] {
		t.Fatalf("re-trigger must extend the dwell window")
	}
	time.Sleep(100 * time.Millisecond)
	if a.Snapshot().Indicators["Rack 1"] {
		t.Fatalf("indicator still active after extended dwell")
	}
}

func TestIndependentRackTimers(t *testing.T) {
	a := New(testCatalog(t), Options{})
	a.TriggerIndicator("Rack 1", 40*time.Millisecond)
	a.TriggerIndicator("Rack 2", 200*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	snap := a.Snapshot()
	if snap.Indicators["Rack 1"] {
		t.Fatalf("Rack 1 should have reset")
	}
	if !snap.Indicators["Rack 2"] {
		t.Fatalf("Rack 2 should still be active")
	}
}

func TestMetricsCounters(t *testing.T) {
	a := New(testCatalog(t), Options{})
	_, _ = a.Scan("EPC001")
	_, _ = a.Scan("EPC001")
	_, _ = a.Scan("NOPE")
	acc, rej, size := a.Metrics()
	if acc != 2 || rej != 1 || size != 1 {
		t.Fatalf("metrics: accepted=%d rejected=%d size=%d", acc, rej, size)
	}
}
