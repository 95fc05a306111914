package sheet

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/vbonduro/pharmaflow/internal/domain"
)

const (
	DefaultUnit    = "Pieces"
	DefaultCompany = "Generic"
)

var (
	nameAliases     = []string{"itemName", "Item Name", "item", "Item"}
	unitAliases     = []string{"unitType", "Unit"}
	quantityAliases = []string{"quantity", "Stock", "Qty"}
	companyAliases  = []string{"company", "Company"}

	customerAliases = []string{"name", "Name", "customer", "Customer"}
	areaAliases     = []string{"area", "Area"}
)

// row gives access to one data row by header alias.
type row struct {
	cols    map[string]int
	headers []string
	values  []string
}

func (r row) get(aliases []string) string {
	for _, a := range aliases {
		idx, ok := r.cols[strings.ToLower(a)]
		if !ok || idx >= len(r.values) {
			continue
		}
		if v := strings.TrimSpace(r.values[idx]); v != "" {
			return v
		}
	}
	return ""
}

// extra collects the non-empty cells whose header matches none of the known
// aliases, keyed by the header as written. An "id" column is ignored.
func (r row) extra(known ...[]string) map[string]string {
	skip := map[string]bool{"id": true}
	for _, aliases := range known {
		for _, a := range aliases {
			skip[strings.ToLower(a)] = true
		}
	}
	var out map[string]string
	for i, h := range r.headers {
		if h == "" || skip[strings.ToLower(h)] || i >= len(r.values) {
			continue
		}
		if r.cols[strings.ToLower(h)] != i {
			continue
		}
		v := strings.TrimSpace(r.values[i])
		if v == "" {
			continue
		}
		if out == nil {
			out = make(map[string]string)
		}
		out[h] = v
	}
	return out
}

// readRows returns the first sheet of an xlsx workbook, or the records of a
// CSV file. The format is taken from the file name, falling back to sniffing
// for the zip signature.
func readRows(r io.Reader, filename string) ([]row, error) {
	br := bufio.NewReader(r)

	var records [][]string
	var err error
	if isXLSX(br, filename) {
		records, err = readXLSX(br)
	} else {
		records, err = readCSV(br)
	}
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	cols := make(map[string]int, len(records[0]))
	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		key := strings.ToLower(headers[i])
		if _, dup := cols[key]; !dup {
			cols[key] = i
		}
	}
	rows := make([]row, 0, len(records)-1)
	for _, rec := range records[1:] {
		rows = append(rows, row{cols: cols, headers: headers, values: rec})
	}
	return rows, nil
}

func isXLSX(br *bufio.Reader, filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return true
	case ".csv":
		return false
	}
	magic, _ := br.Peek(4)
	return bytes.Equal(magic, []byte("PK\x03\x04"))
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return records, nil
}

func parseQuantity(s string) int {
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return max(n, 0)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || f < 0 {
		return 0
	}
	return int(f)
}

// ReadInventory parses inventory rows. Rows without an item name are skipped.
// Columns other than the known ones are kept in Extra. Returned items have
// no id.
func ReadInventory(r io.Reader, filename string) ([]domain.InventoryItem, error) {
	rows, err := readRows(r, filename)
	if err != nil {
		return nil, err
	}
	items := make([]domain.InventoryItem, 0, len(rows))
	for _, rw := range rows {
		name := rw.get(nameAliases)
		if name == "" {
			continue
		}
		item := domain.InventoryItem{
			ItemName: name,
			UnitType: rw.get(unitAliases),
			Quantity: parseQuantity(rw.get(quantityAliases)),
			Company:  rw.get(companyAliases),
			Extra:    rw.extra(nameAliases, unitAliases, quantityAliases, companyAliases),
		}
		if item.UnitType == "" {
			item.UnitType = DefaultUnit
		}
		if item.Company == "" {
			item.Company = DefaultCompany
		}
		items = append(items, item)
	}
	return items, nil
}

// ReadCustomers parses customer rows. Rows without a name are skipped.
func ReadCustomers(r io.Reader, filename string) ([]domain.Customer, error) {
	rows, err := readRows(r, filename)
	if err != nil {
		return nil, err
	}
	customers := make([]domain.Customer, 0, len(rows))
	for _, rw := range rows {
		name := rw.get(customerAliases)
		if name == "" {
			continue
		}
		c := domain.Customer{Name: name}
		if area := rw.get(areaAliases); area != "" {
			c.Area = &area
		}
		customers = append(customers, c)
	}
	return customers, nil
}
