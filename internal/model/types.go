// Package model defines domain types used by the service.
package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Tag is a normalized EPC tag identifier.
type Tag string

// NormalizeTag strips surrounding whitespace and uppercases a raw token.
// Tokens from the serial reader arrive in mixed case with trailing CR/LF.
func NormalizeTag(raw string) Tag {
	return Tag(strings.ToUpper(strings.TrimSpace(raw)))
}

// Product is a catalog entry keyed by Tag.
type Product struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// TrayLine is one billed row: a tag plus the product fields captured at scan
// time. Catalog edits after the scan do not rewrite an existing line.
type TrayLine struct {
	Tag       Tag             `json:"tag"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// LineTotal returns unit price times quantity.
func (l TrayLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// BillSummary holds the derived totals for the current tray.
type BillSummary struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Total          decimal.Decimal `json:"total"`
}

// Snapshot is a consistent point-in-time view of aggregator state.
type Snapshot struct {
	Lines      []TrayLine      `json:"lines"`
	Summary    BillSummary     `json:"summary"`
	Indicators map[string]bool `json:"indicators"`
}

// ScanEvent is the unit of work a producer submits.
type ScanEvent struct {
	Tag      Tag       `json:"tag"`
	SourceID string    `json:"source_id"`
	At       time.Time `json:"at"`
}

// RackLocation maps one (SKU, size) pair to the rack holding it.
type RackLocation struct {
	SKU  string `json:"sku"`
	Size string `json:"size"`
	Rack string `json:"rack"`
}
