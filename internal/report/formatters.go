package report

import (
	"fmt"

	"github.com/limshub/vessel-queue/internal/domain"
)

// PlatingFormatter is the strategy for the plating queues: bench techs
// picking vessels need the position and label, not the audit columns.
type PlatingFormatter struct{}

func (PlatingFormatter) Header() []string {
	return []string{"Position", "Grouping", "Group Name", "Vessel", "Status", "Queued At"}
}

func (PlatingFormatter) Row(g domain.Grouping, e domain.Entry) []string {
	return []string{
		fmt.Sprintf("%d", g.SortOrder),
		fmt.Sprintf("%d", g.ID),
		g.OriginMessage,
		e.VesselLabel,
		string(e.Status),
		formatTime(&e.CreatedAt),
	}
}
