// Package export renders bill snapshots as CSV and PDF byte streams. The
// exporters are pure: they read a snapshot and never touch aggregator state.
package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"

	"github.com/rfidlab/smarttray/internal/model"
)

// ErrEmptyBill is returned when there is nothing to export.
var ErrEmptyBill = errors.New("empty bill")

var columns = []string{"Tag", "Name", "UnitPrice", "Quantity", "LineTotal"}

// CSV renders the bill rows plus a trailing grand-total row.
func CSV(snap model.Snapshot) ([]byte, error) {
	if len(snap.Lines) == 0 {
		return nil, ErrEmptyBill
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(columns); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for _, ln := range snap.Lines {
		rec := []string{
			string(ln.Tag),
			ln.Name,
			ln.UnitPrice.String(),
			strconv.Itoa(ln.Quantity),
			ln.LineTotal().String(),
		}
		if err := w.Write(rec); err != nil {
			return nil, fmt.Errorf("write row: %w", err)
		}
	}
	total := []string{"", "", "", "Grand Total", snap.Summary.Total.String()}
	if err := w.Write(total); err != nil {
		return nil, fmt.Errorf("write total: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
