/*
history.go - Movement history exports

PURPOSE:
  Renders the annotated histories computed by package stock as CSV or as an
  XLSX workbook. Rows keep the order they were given in; balances are the
  canonical running balances, never recomputed here.

LAYOUT:
  Site | Material | Date | Type | Designation | In kg | In bags | Out kg |
  Out bags | Balance kg | Balance bags

  The workbook has one sheet per ledger: "Stock Movements" for on-site
  stock, "Pressing Warehouse" for the warehouse grades.
*/
package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/tidewater/stock-ledger/ledger"
	"github.com/tidewater/stock-ledger/stock"
)

const (
	SheetSite      = "Stock Movements"
	SheetWarehouse = "Pressing Warehouse"
)

var historyHeaders = []string{
	"Site", "Material", "Date", "Movement type", "Designation",
	"In (kg)", "In (bags)", "Out (kg)", "Out (bags)",
	"Balance (kg)", "Balance (bags)",
}

var warehouseHeaders = []string{
	"Material", "Grade", "Date", "Movement type", "Designation",
	"In (kg)", "In (bags)", "Out (kg)", "Out (bags)",
	"Balance (kg)", "Balance (bags)",
}

// GradeHistory is the warehouse history of one material in one grade.
type GradeHistory struct {
	MaterialTypeID ledger.MaterialTypeID
	Grade          stock.Grade
	Entries        []stock.WarehouseEntry
}

// Book is what goes into a workbook.
type Book struct {
	Site      []stock.ScopeHistory
	Warehouse []GradeHistory
}

// row is one rendered line without its two leading key columns.
type row struct {
	date        ledger.Date
	kind        string
	designation string
	in, out     ledger.Quantity
	balance     ledger.Quantity
}

func entryRow[K ledger.Kind](e ledger.Entry[K]) row {
	return row{
		date:        e.Date,
		kind:        string(e.Kind),
		designation: e.Designation,
		in:          e.In,
		out:         e.Out,
		balance:     e.Balance,
	}
}

// =============================================================================
// CSV
// =============================================================================

// WriteHistoryCSV writes on-site histories as CSV with a UTF-8 byte order
// mark so spreadsheet tools pick the right encoding. f localizes numbers
// and labels; nil keeps them machine-readable.
func WriteHistoryCSV(w io.Writer, histories []stock.ScopeHistory, f *Formatter) error {
	if _, err := io.WriteString(w, "\uFEFF"); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(historyHeaders); err != nil {
		return err
	}
	for _, h := range histories {
		for _, e := range h.Entries {
			r := entryRow(e)
			if err := cw.Write([]string{
				string(h.Scope.SiteID),
				string(h.Scope.MaterialTypeID),
				r.date.String(),
				f.Kind(r.kind),
				r.designation,
				f.Weight(r.in.Weight), f.Count(r.in.Count),
				f.Weight(r.out.Weight), f.Count(r.out.Count),
				f.Weight(r.balance.Weight), f.Count(r.balance.Count),
			}); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// =============================================================================
// XLSX
// =============================================================================

var columnWidths = []float64{16, 16, 12, 24, 40, 12, 10, 12, 10, 14, 12}

// WriteHistoryXLSX writes b as a workbook with a styled header row on each
// sheet. Quantities are stored as numbers.
func WriteHistoryXLSX(w io.Writer, b Book, f *Formatter) error {
	x := excelize.NewFile()
	defer x.Close()

	if err := x.SetSheetName("Sheet1", SheetSite); err != nil {
		return err
	}
	if _, err := x.NewSheet(SheetWarehouse); err != nil {
		return err
	}

	header, err := x.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	sw := sheetWriter{file: x, formatter: f}
	sw.headers(SheetSite, historyHeaders, header)
	line := 2
	for _, h := range b.Site {
		for _, e := range h.Entries {
			sw.row(SheetSite, line, string(h.Scope.SiteID), string(h.Scope.MaterialTypeID), entryRow(e))
			line++
		}
	}

	sw.headers(SheetWarehouse, warehouseHeaders, header)
	line = 2
	for _, h := range b.Warehouse {
		for _, e := range h.Entries {
			sw.row(SheetWarehouse, line, string(h.MaterialTypeID), string(h.Grade), entryRow(e))
			line++
		}
	}
	if sw.err != nil {
		return sw.err
	}

	x.SetActiveSheet(0)
	return x.Write(w)
}

// sheetWriter keeps the first cell error so rows can be written without
// checking every call.
type sheetWriter struct {
	file      *excelize.File
	formatter *Formatter
	err       error
}

func (s *sheetWriter) set(sheet string, col, line int, v any) {
	if s.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(col, line)
	if err == nil {
		err = s.file.SetCellValue(sheet, cell, v)
	}
	s.err = err
}

func (s *sheetWriter) headers(sheet string, names []string, style int) {
	for i, h := range names {
		s.set(sheet, i+1, 1, h)
	}
	for i, width := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			s.err = err
			return
		}
		if err := s.file.SetColWidth(sheet, col, col, width); err != nil && s.err == nil {
			s.err = err
		}
	}
	last, _ := excelize.ColumnNumberToName(len(names))
	if err := s.file.SetCellStyle(sheet, "A1", last+"1", style); err != nil && s.err == nil {
		s.err = err
	}
}

func (s *sheetWriter) row(sheet string, line int, key1, key2 string, r row) {
	values := []any{
		key1, key2, r.date.String(), s.formatter.Kind(r.kind), r.designation,
		number(r.in.Weight), r.in.Count,
		number(r.out.Weight), r.out.Count,
		number(r.balance.Weight), r.balance.Count,
	}
	for i, v := range values {
		s.set(sheet, i+1, line, v)
	}
}

func number(d decimal.Decimal) float64 { return d.InexactFloat64() }
