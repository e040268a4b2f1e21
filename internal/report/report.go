// Package report flattens queue groupings into tabular rows for download
// and operator inspection. It is a pure read-side transform: generators
// consume snapshots of queue views and never mutate them.
package report

import (
	"fmt"
	"time"

	"github.com/limshub/vessel-queue/internal/domain"
)

// RowFormatter is the per-queue-type row strategy: a fixed-width header and
// one row of the same width per entry.
type RowFormatter interface {
	Header() []string
	Row(g domain.Grouping, e domain.Entry) []string
}

// Generator renders queue contents with the formatter registered for each
// queue type, falling back to the default columns.
type Generator struct {
	formatters map[domain.QueueType]RowFormatter
	fallback   RowFormatter
}

func NewGenerator() *Generator {
	return &Generator{
		formatters: make(map[domain.QueueType]RowFormatter),
		fallback:   defaultFormatter{},
	}
}

// Register installs a queue-specific row strategy.
func (gen *Generator) Register(qt domain.QueueType, f RowFormatter) {
	gen.formatters[qt] = f
}

func (gen *Generator) formatter(qt domain.QueueType) RowFormatter {
	if f, ok := gen.formatters[qt]; ok {
		return f
	}
	return gen.fallback
}

// ForQueue renders header plus one row per entry for a single queue's
// groupings, in priority order.
func (gen *Generator) ForQueue(qt domain.QueueType, views []domain.GroupingWithEntries) Sheet {
	f := gen.formatter(qt)
	sheet := Sheet{Header: f.Header()}
	for _, view := range views {
		for _, e := range view.Entries {
			sheet.Rows = append(sheet.Rows, f.Row(view.Grouping, e))
		}
	}
	return sheet
}

// ForGrouping renders a single grouping.
func (gen *Generator) ForGrouping(view domain.GroupingWithEntries) Sheet {
	return gen.ForQueue(view.Grouping.QueueType, []domain.GroupingWithEntries{view})
}

// Merged renders several queues into one sheet. Queue-specific strategies
// have differing widths, so the merged view always uses the default
// columns, which identify the queue per row.
func (gen *Generator) Merged(queues map[domain.QueueType][]domain.GroupingWithEntries) Sheet {
	sheet := Sheet{Header: gen.fallback.Header()}
	for _, qt := range domain.AllQueueTypes {
		views, ok := queues[qt]
		if !ok {
			continue
		}
		for _, view := range views {
			for _, e := range view.Entries {
				sheet.Rows = append(sheet.Rows, gen.fallback.Row(view.Grouping, e))
			}
		}
	}
	return sheet
}

// defaultFormatter covers every queue type that has no dedicated strategy.
type defaultFormatter struct{}

func (defaultFormatter) Header() []string {
	return []string{
		"Queue", "Grouping", "Group Name", "Position",
		"Vessel", "Status", "Origin", "Queued At", "Completed By", "Completed At",
	}
}

func (defaultFormatter) Row(g domain.Grouping, e domain.Entry) []string {
	return []string{
		g.QueueType.DisplayName(),
		fmt.Sprintf("%d", g.ID),
		g.OriginMessage,
		fmt.Sprintf("%d", g.SortOrder),
		e.VesselLabel,
		string(e.Status),
		string(g.Origin),
		formatTime(&e.CreatedAt),
		stringOrEmpty(e.CompletedBy),
		formatTime(e.CompletedAt),
	}
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
