// Package export renders settlements as downloadable documents.
package export

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/iho/rentledger/internal/domain"
)

// XLSXContentType is the media type of SettlementXLSX output.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	summarySheet  = "summary"
	itemsSheet    = "items"
	sharesSheet   = "shares"
	postingsSheet = "postings"
)

// numFmtMoney is the built-in "0.00" number format.
const numFmtMoney = 2

type sheetWriter struct {
	f     *excelize.File
	money int
	err   error
}

func (w *sheetWriter) row(sheet string, row int, values ...any) {
	if w.err != nil {
		return
	}

	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		w.err = err
		return
	}

	for i, v := range values {
		if d, ok := v.(decimal.Decimal); ok {
			values[i] = d.InexactFloat64()
		}
	}

	w.err = w.f.SetSheetRow(sheet, cell, &values)
}

func (w *sheetWriter) moneyColumns(sheet string, rows int, columns ...string) {
	if w.err != nil || rows < 2 {
		return
	}

	for _, col := range columns {
		if err := w.f.SetCellStyle(sheet, fmt.Sprintf("%s2", col), fmt.Sprintf("%s%d", col, rows), w.money); err != nil {
			w.err = err
			return
		}
	}
}

// SettlementXLSX renders a settlement with its items, shares and postings as
// a workbook with one sheet each plus a summary.
func SettlementXLSX(s *domain.Settlement, postings []*domain.Posting) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	for _, name := range []string{itemsSheet, sharesSheet, postingsSheet} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}

	money, err := f.NewStyle(&excelize.Style{NumFmt: numFmtMoney})
	if err != nil {
		return nil, err
	}

	w := &sheetWriter{f: f, money: money}

	w.row(summarySheet, 1, "Settlement", s.ID)
	w.row(summarySheet, 2, "Property", s.PropertyID)
	w.row(summarySheet, 3, "Period start", s.Period.Start.Format(domain.DateLayout))
	w.row(summarySheet, 4, "Period end", s.Period.End.Format(domain.DateLayout))
	w.row(summarySheet, 5, "Approach", string(s.Approach))
	w.row(summarySheet, 6, "Status", string(s.Status))
	w.row(summarySheet, 7, "Version", s.Version)
	w.row(summarySheet, 8, "Items total", s.ItemsTotal)
	w.row(summarySheet, 9, "Total amount", s.TotalAmount)
	if s.VoidReason != "" {
		w.row(summarySheet, 10, "Void reason", s.VoidReason)
	}
	for i, warn := range s.Warnings {
		w.row(summarySheet, 12+i, "Warning", string(warn.Code), warn.Message)
	}

	w.row(itemsSheet, 1, "Source", "Source ID", "Description", "Utility", "Split", "Quantity", "Unit", "Unit price", "Amount")
	for i, it := range s.Items {
		var price any = ""
		if it.UnitPrice != nil {
			price = *it.UnitPrice
		}
		w.row(itemsSheet, i+2, string(it.SourceType), it.SourceID, it.Description, string(it.UtilityType),
			string(it.SplitMethod), it.Quantity, it.Unit, price, it.Amount)
	}
	w.moneyColumns(itemsSheet, len(s.Items)+1, "I")

	w.row(sharesSheet, 1, "Tenant ID", "Tenant", "Days", "Fraction", "Calculated", "Adjusted", "Final", "Notes", "Owner notes")
	for i, sh := range s.Shares {
		var adjusted any = ""
		if sh.AdjustedAmount != nil {
			adjusted = *sh.AdjustedAmount
		}
		w.row(sharesSheet, i+2, sh.TenantID, sh.TenantName, sh.OccupiedDays, sh.Fraction,
			sh.CalculatedAmount, adjusted, sh.FinalAmount, sh.Notes, sh.OwnerNotes)
	}
	w.moneyColumns(sharesSheet, len(s.Shares)+1, "E", "F", "G")

	w.row(postingsSheet, 1, "Posting ID", "Kind", "Tenant ID", "Share ID", "Amount", "Reverses", "Created at")
	for i, p := range postings {
		reverses := ""
		if p.ReversesID != nil {
			reverses = *p.ReversesID
		}
		w.row(postingsSheet, i+2, p.ID, string(p.Kind), p.TenantID, p.ShareID, p.Amount, reverses,
			p.CreatedAt.UTC().Format("2006-01-02 15:04:05"))
	}
	w.moneyColumns(postingsSheet, len(postings)+1, "E")

	if w.err != nil {
		return nil, fmt.Errorf("failed to write settlement %s: %w", s.ID, w.err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
