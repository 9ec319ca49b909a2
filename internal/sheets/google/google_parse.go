package google

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"fingestor/internal/core"
	ports "fingestor/internal/sheets"
)

func headerValues() []interface{} {
	out := make([]interface{}, len(ports.Header))
	for i, h := range ports.Header {
		out[i] = h
	}
	return out
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// findRow returns the 1-based sheet row whose first cell is id, or 0.
// The header row never matches.
func findRow(col [][]interface{}, id int64) int {
	want := strconv.FormatInt(id, 10)
	for i := 1; i < len(col); i++ {
		if len(col[i]) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(col[i][0])) == want {
			return i + 1
		}
	}
	return 0
}

// parseRows converts data rows (header excluded) back into mirror rows.
// Blank rows left behind by deletes are skipped.
func parseRows(values [][]interface{}) ([]ports.Row, error) {
	rows := make([]ports.Row, 0, len(values))
	for i, raw := range values {
		cells := toStrings(raw)
		if safeGet(cells, 0) == "" {
			continue
		}
		r, err := parseRow(cells)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows, nil
}

func parseRow(cells []string) (ports.Row, error) {
	var r ports.Row

	id, err := strconv.ParseInt(safeGet(cells, 0), 10, 64)
	if err != nil {
		return r, fmt.Errorf("invalid id %q", safeGet(cells, 0))
	}
	date, err := time.ParseInLocation(ports.DateLayout, safeGet(cells, 1), time.Local)
	if err != nil {
		return r, fmt.Errorf("invalid date %q", safeGet(cells, 1))
	}
	due, err := time.ParseInLocation(ports.DateLayout, safeGet(cells, 2), time.Local)
	if err != nil {
		return r, fmt.Errorf("invalid due date %q", safeGet(cells, 2))
	}
	amount, err := core.ParseAmount(safeGet(cells, 5))
	if err != nil {
		return r, fmt.Errorf("invalid amount %q: %w", safeGet(cells, 5), err)
	}

	r = ports.Row{
		ID:          id,
		Date:        date,
		DueDate:     due,
		Description: safeGet(cells, 3),
		Kind:        core.Kind(safeGet(cells, 4)),
		Amount:      amount,
		Status:      core.Status(safeGet(cells, 6)),
	}
	return r, nil
}
