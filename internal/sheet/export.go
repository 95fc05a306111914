// Package sheet writes requirement sheets and reads inventory and customer
// spreadsheets.
package sheet

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/vbonduro/pharmaflow/internal/domain"
)

const (
	SheetName = "Order"

	colorTitle  = "FFFF99"
	colorHeader = "C0C0C0"
	colorRow    = "CCFFFF"
)

// Requirement is the content of one exported requirement sheet.
type Requirement struct {
	OrderID   string
	Org       string
	DateLabel string
	Items     []domain.RequirementItem
}

// Filename is the download name for r.
func (r Requirement) Filename() string {
	return fmt.Sprintf("%s_%s.xlsx", r.OrderID, r.Org)
}

func thinBorders() []excelize.Border {
	var out []excelize.Border
	for _, side := range []string{"left", "right", "top", "bottom"} {
		out = append(out, excelize.Border{Type: side, Color: "000000", Style: 1})
	}
	return out
}

func fill(color string) excelize.Fill {
	return excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}}
}

type styles struct {
	title, headerItem, headerQty, rowItem, rowQty int
}

func newStyles(f *excelize.File) (styles, error) {
	var s styles
	defs := []struct {
		dst   *int
		style *excelize.Style
	}{
		{&s.title, &excelize.Style{
			Fill:      fill(colorTitle),
			Font:      &excelize.Font{Bold: true},
			Alignment: &excelize.Alignment{Horizontal: "center"},
			Border:    thinBorders(),
		}},
		{&s.headerItem, &excelize.Style{
			Fill:      fill(colorHeader),
			Font:      &excelize.Font{Bold: true},
			Alignment: &excelize.Alignment{Horizontal: "left"},
			Border:    thinBorders(),
		}},
		{&s.headerQty, &excelize.Style{
			Fill:      fill(colorHeader),
			Font:      &excelize.Font{Bold: true},
			Alignment: &excelize.Alignment{Horizontal: "center"},
			Border:    thinBorders(),
		}},
		{&s.rowItem, &excelize.Style{
			Fill:   fill(colorRow),
			Border: thinBorders(),
		}},
		{&s.rowQty, &excelize.Style{
			Fill:      fill(colorRow),
			Alignment: &excelize.Alignment{Horizontal: "center"},
			Border:    thinBorders(),
		}},
	}
	for _, d := range defs {
		id, err := f.NewStyle(d.style)
		if err != nil {
			return styles{}, fmt.Errorf("failed to create style: %w", err)
		}
		*d.dst = id
	}
	return s, nil
}

// WriteRequirement renders r as a styled single-sheet workbook.
func WriteRequirement(w io.Writer, r Requirement) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	st, err := newStyles(f)
	if err != nil {
		return err
	}

	set := func(cell string, v any, style int) error {
		if err := f.SetCellValue(SheetName, cell, v); err != nil {
			return fmt.Errorf("failed to set %s: %w", cell, err)
		}
		return f.SetCellStyle(SheetName, cell, cell, style)
	}

	header := []struct {
		cell  string
		value string
		style int
	}{
		{"A1", strings.ToUpper(r.Org), st.title},
		{"B1", "", st.title},
		{"A2", "REQUIREMENT ORDER DATED: " + r.DateLabel, st.title},
		{"B2", "", st.title},
		{"A3", "ITEM", st.headerItem},
		{"B3", "ITEM_QTY", st.headerQty},
	}
	for _, h := range header {
		if err := set(h.cell, h.value, h.style); err != nil {
			return err
		}
	}
	for _, rng := range [][2]string{{"A1", "B1"}, {"A2", "B2"}} {
		if err := f.MergeCell(SheetName, rng[0], rng[1]); err != nil {
			return fmt.Errorf("failed to merge %s:%s: %w", rng[0], rng[1], err)
		}
	}

	for i, it := range r.Items {
		row := i + 4
		if err := set(fmt.Sprintf("A%d", row), it.ItemName, st.rowItem); err != nil {
			return err
		}
		if err := set(fmt.Sprintf("B%d", row), it.Quantity, st.rowQty); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(SheetName, "A", "A", 45); err != nil {
		return fmt.Errorf("failed to size column A: %w", err)
	}
	if err := f.SetColWidth(SheetName, "B", "B", 15); err != nil {
		return fmt.Errorf("failed to size column B: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
