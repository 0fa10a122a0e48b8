// Package sheet reads reservation spreadsheets. Only the first worksheet is
// consulted; rows are addressed by their 1-based spreadsheet row number, so
// the header is row 1 and data starts at row 2.
package sheet

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Columns is the required header set, order-independent in the file.
var Columns = []string{
	"reservation_id",
	"guest_name",
	"status",
	"check_in_date",
	"check_out_date",
}

// Sheet holds the first worksheet of an uploaded workbook.
type Sheet struct {
	rows   [][]string
	header []string
}

// Open parses workbook bytes and loads the first worksheet.
func Open(data []byte) (*Sheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook contains no worksheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read worksheet %q: %w", sheets[0], err)
	}

	s := &Sheet{rows: rows}
	if len(rows) > 0 {
		for _, cell := range rows[0] {
			s.header = append(s.header, strings.TrimSpace(cell))
		}
	}
	return s, nil
}

// ValidateHeader checks that the header row carries exactly the expected
// column set, ignoring order. The error names both sets so the uploader can
// see what the file actually contained.
func (s *Sheet) ValidateHeader() error {
	expected := make(map[string]struct{}, len(Columns))
	for _, c := range Columns {
		expected[c] = struct{}{}
	}
	found := make(map[string]struct{}, len(s.header))
	for _, c := range s.header {
		if c != "" {
			found[c] = struct{}{}
		}
	}
	if len(found) == len(expected) {
		match := true
		for c := range expected {
			if _, ok := found[c]; !ok {
				match = false
				break
			}
		}
		if match {
			return nil
		}
	}
	return fmt.Errorf("invalid headers. Expected: %s, Found: %s",
		strings.Join(Columns, ", "), strings.Join(sortedKeys(found), ", "))
}

// LastRow returns the 1-based number of the last row present in the sheet.
func (s *Sheet) LastRow() int {
	return len(s.rows)
}

// Row maps column names to trimmed cell values for the given 1-based row
// number. Cells missing from the row are absent from the map.
func (s *Sheet) Row(n int) map[string]string {
	row := map[string]string{}
	if n < 1 || n > len(s.rows) {
		return row
	}
	cells := s.rows[n-1]
	for i, name := range s.header {
		if name == "" || i >= len(cells) {
			continue
		}
		row[name] = strings.TrimSpace(cells[i])
	}
	return row
}

// Empty reports whether every mapped value of the row is blank. The first
// empty row terminates the scan for a file.
func Empty(row map[string]string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
