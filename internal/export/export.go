// Package export renders picked influencer records into downloadable documents.
package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ashureev/influencer-desk/internal/domain"
)

// ErrUnknownFormat is returned for a format without a renderer.
var ErrUnknownFormat = errors.New("unknown export format")

// Exporter renders records into one document format.
type Exporter interface {
	Format() string
	Export(records []domain.Record, formats []string, now time.Time) (domain.Document, error)
}

// Registry looks exporters up by format name.
type Registry struct {
	byFormat map[string]Exporter
}

// NewRegistry indexes the given exporters.
func NewRegistry(exporters ...Exporter) *Registry {
	r := &Registry{byFormat: make(map[string]Exporter, len(exporters))}
	for _, e := range exporters {
		r.byFormat[e.Format()] = e
	}
	return r
}

// Formats lists the registered format names in sorted order.
func (r *Registry) Formats() []string {
	out := make([]string, 0, len(r.byFormat))
	for f := range r.byFormat {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}

// Export renders records with the named exporter.
func (r *Registry) Export(format string, records []domain.Record, formats []string, now time.Time) (domain.Document, error) {
	e, ok := r.byFormat[strings.ToLower(format)]
	if !ok {
		return domain.Document{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return e.Export(records, formats, now)
}

// CSV writes one row per record. Reach columns follow the requested
// content formats, or all of them when none were requested.
type CSV struct{}

// Format implements Exporter.
func (CSV) Format() string { return "csv" }

// Export implements Exporter.
func (CSV) Export(records []domain.Record, formats []string, now time.Time) (domain.Document, error) {
	reach := reachColumns(formats)

	header := []string{"name", "handle", "profile_url", "city", "topics", "language", "followers"}
	for _, c := range reach {
		header = append(header, "reach_"+c.format)
	}
	header = append(header, "price", "updated_at")

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return domain.Document{}, fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range records {
		row := []string{r.Name, r.Handle, r.ProfileURL, r.City, r.Topics, r.Language, formatInt(r.Followers)}
		for _, c := range reach {
			row = append(row, formatInt(c.value(r)))
		}
		updated := ""
		if r.UpdatedAt != nil {
			updated = r.UpdatedAt.UTC().Format("2006-01-02")
		}
		row = append(row, formatInt(r.Price), updated)
		if err := w.Write(row); err != nil {
			return domain.Document{}, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return domain.Document{}, fmt.Errorf("flush csv: %w", err)
	}

	return domain.Document{
		Filename: "influencers-" + now.UTC().Format("20060102-150405") + ".csv",
		MIME:     "text/csv",
		Data:     buf.Bytes(),
	}, nil
}

type reachColumn struct {
	format string
	value  func(domain.Record) *int
}

var allReach = []reachColumn{
	{format: "stories", value: func(r domain.Record) *int { return r.ReachStories }},
	{format: "reels", value: func(r domain.Record) *int { return r.ReachReels }},
	{format: "post", value: func(r domain.Record) *int { return r.ReachPost }},
}

func reachColumns(formats []string) []reachColumn {
	if len(formats) == 0 {
		return allReach
	}
	var out []reachColumn
	for _, c := range allReach {
		if slices.Contains(formats, c.format) {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return allReach
	}
	return out
}

func formatInt(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}
