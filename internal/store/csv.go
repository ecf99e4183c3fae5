package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
)

// headerAliases maps common spreadsheet headers onto Columns.
var headerAliases = map[string]string{
	"username":        "handle",
	"instagram":       "handle",
	"url":             "profile_url",
	"link":            "profile_url",
	"topic":           "topics",
	"category":        "topics",
	"followers_count": "followers",
	"stories_reach":   "reach_stories",
	"reels_reach":     "reach_reels",
	"post_reach":      "reach_post",
	"updated":         "updated_at",
}

// ReadCSV parses an influencer sheet export. The first row is the header;
// unknown columns are ignored and blank rows skipped. A handle column is
// required.
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("read csv: empty input")
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = normalizeHeader(h)
	}
	if !slices.Contains(cols, "handle") {
		return nil, errors.New("read csv: missing handle column")
	}

	var rows []Row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", len(rows)+2, err)
		}

		row := make(Row, len(Columns))
		blank := true
		for i, cell := range rec {
			if i >= len(cols) || cols[i] == "" {
				continue
			}
			cell = strings.TrimSpace(cell)
			if cell != "" {
				blank = false
			}
			row[cols[i]] = cell
		}
		if !blank {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.NewReplacer(" ", "_", "-", "_").Replace(h)
	if alias, ok := headerAliases[h]; ok {
		h = alias
	}
	if !slices.Contains(Columns, h) {
		return ""
	}
	return h
}
