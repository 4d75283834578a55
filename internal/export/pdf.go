package export

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/go-pdf/fpdf"

	"github.com/rfidlab/smarttray/internal/model"
)

var pdfColWidths = []float64{62, 40, 26, 22, 30}

// PDF renders the bill as a paginated invoice document with the same row
// contract as CSV.
func PDF(snap model.Snapshot) ([]byte, error) {
	if len(snap.Lines) == 0 {
		return nil, ErrEmptyBill
	}

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetAutoPageBreak(true, 20)
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 16)
	doc.CellFormat(0, 10, "Smart Tray Invoice", "", 1, "C", false, 0, "")
	doc.Ln(4)

	writeHeader(doc)
	doc.SetFont("Helvetica", "", 10)
	for _, ln := range snap.Lines {
		if doc.GetY() > 260 {
			doc.AddPage()
			writeHeader(doc)
			doc.SetFont("Helvetica", "", 10)
		}
		cells := []string{
			string(ln.Tag),
			ln.Name,
			ln.UnitPrice.String(),
			strconv.Itoa(ln.Quantity),
			ln.LineTotal().String(),
		}
		for i, c := range cells {
			doc.CellFormat(pdfColWidths[i], 8, c, "1", 0, "C", false, 0, "")
		}
		doc.Ln(-1)
	}

	doc.SetFont("Helvetica", "B", 10)
	doc.CellFormat(pdfColWidths[0]+pdfColWidths[1]+pdfColWidths[2], 8, "", "1", 0, "C", false, 0, "")
	doc.CellFormat(pdfColWidths[3], 8, "Grand Total", "1", 0, "C", false, 0, "")
	doc.CellFormat(pdfColWidths[4], 8, snap.Summary.Total.String(), "1", 0, "C", false, 0, "")
	doc.Ln(-1)

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func writeHeader(doc *fpdf.Fpdf) {
	doc.SetFont("Helvetica", "B", 10)
	doc.SetFillColor(200, 200, 200)
	for i, c := range columns {
		doc.CellFormat(pdfColWidths[i], 8, c, "1", 0, "C", true, 0, "")
	}
	doc.Ln(-1)
}
