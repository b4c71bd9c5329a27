// internal/nutrition/csv.go
package nutrition

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// LoadStats describes what happened to the rows of a reference CSV.
type LoadStats struct {
	Rows    int `json:"rows"`
	Loaded  int `json:"loaded"`
	Skipped int `json:"skipped"`
}

// ParseTable reads a `food,calories` CSV with a header row. Rows with a missing
// field, an unparseable or negative calorie count, or broken quoting are skipped.
// Only read errors from r are returned.
func ParseTable(r io.Reader) (*Table, LoadStats, error) {
	var stats LoadStats

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	t := NewTable()
	header := true
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			// A malformed first line still occupies the header slot.
			if header {
				header = false
				continue
			}
			stats.Rows++
			stats.Skipped++
			continue
		}
		if err != nil {
			return nil, stats, fmt.Errorf("failed to read calorie table: %w", err)
		}
		if header {
			header = false
			continue
		}

		stats.Rows++
		name, calories, ok := parseRow(rec)
		if !ok {
			stats.Skipped++
			continue
		}
		t.add(name, calories)
		stats.Loaded++
	}

	return t, stats, nil
}

func parseRow(rec []string) (string, int, bool) {
	if len(rec) < 2 {
		return "", 0, false
	}
	name := strings.TrimSpace(rec[0])
	raw := strings.TrimSpace(rec[1])
	if name == "" || raw == "" {
		return "", 0, false
	}

	calories, err := strconv.Atoi(raw)
	if err != nil {
		// "52.5" style values are truncated to whole calories.
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return "", 0, false
		}
		calories = int(math.Trunc(f))
	}
	if calories < 0 {
		return "", 0, false
	}
	return name, calories, true
}
