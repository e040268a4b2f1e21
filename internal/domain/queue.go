package domain

import "time"

// QueueType identifies the workflow a queue serves. Each type maps to
// exactly one Queue row, seeded by migration.
type QueueType string

const (
	QueueSampleReady       QueueType = "sample-ready"
	QueuePlatingArray      QueueType = "plating-array"
	QueuePlatingSequencing QueueType = "plating-sequencing"
	QueueQuantification    QueueType = "quantification"
)

// AllQueueTypes lists every registered queue type in display order.
var AllQueueTypes = []QueueType{
	QueueSampleReady,
	QueuePlatingArray,
	QueuePlatingSequencing,
	QueueQuantification,
}

func (q QueueType) IsValid() bool {
	switch q {
	case QueueSampleReady, QueuePlatingArray, QueuePlatingSequencing, QueueQuantification:
		return true
	}
	return false
}

// DisplayName is the human-readable queue label used on reports.
func (q QueueType) DisplayName() string {
	switch q {
	case QueueSampleReady:
		return "Sample Ready"
	case QueuePlatingArray:
		return "Array Plating"
	case QueuePlatingSequencing:
		return "Sequencing Plating"
	case QueueQuantification:
		return "Quantification"
	}
	return string(q)
}

// GroupingStatus tracks the lifecycle of a grouping.
// Repeat marks a re-activated Completed grouping (rework).
type GroupingStatus string

const (
	GroupingActive    GroupingStatus = "active"
	GroupingRepeat    GroupingStatus = "repeat"
	GroupingCompleted GroupingStatus = "completed"
	GroupingExcluded  GroupingStatus = "excluded"
)

// InOrder reports whether a grouping with this status participates in the
// strict sort-order total ordering of its queue.
func (s GroupingStatus) InOrder() bool {
	return s == GroupingActive || s == GroupingRepeat
}

// EntryStatus tracks the lifecycle of a single queued vessel.
type EntryStatus string

const (
	EntryActive    EntryStatus = "active"
	EntryCompleted EntryStatus = "completed"
	EntryExcluded  EntryStatus = "excluded"
)

// Origin records how a grouping came to be enqueued. Audit/report only.
type Origin string

const (
	OriginManual Origin = "manual"
	OriginRework Origin = "rework"
	OriginRouted Origin = "routed"
)

func (o Origin) IsValid() bool {
	switch o {
	case OriginManual, OriginRework, OriginRouted:
		return true
	}
	return false
}

// Queue is the per-type aggregate root. Groupings are not held in memory;
// they are loaded per operation through the repository (FK references only).
type Queue struct {
	ID        int64     `json:"id"`
	QueueType QueueType `json:"queue_type"`
	CreatedAt time.Time `json:"created_at"`
}

// Grouping is the unit of priority reordering. A lower SortOrder dequeues
// first. Completed/Excluded groupings keep their last order for audit.
type Grouping struct {
	ID            int64          `json:"id"`
	QueueType     QueueType      `json:"queue_type"`
	SortOrder     int64          `json:"sort_order"`
	Status        GroupingStatus `json:"status"`
	OriginMessage string         `json:"origin_message"`
	Origin        Origin         `json:"origin"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Entry is one vessel's membership record within a grouping. Entries are
// never hard-deleted; Completed/Excluded is the terminal representation.
type Entry struct {
	ID          int64       `json:"id"`
	GroupingID  int64       `json:"grouping_id"`
	VesselLabel string      `json:"vessel_label"`
	Status      EntryStatus `json:"status"`
	CompletedBy *string     `json:"completed_by,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	ExcludedAt  *time.Time  `json:"excluded_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// GroupingWithEntries pairs a grouping with its member entries for the
// read path (reports, API views).
type GroupingWithEntries struct {
	Grouping Grouping `json:"grouping"`
	Entries  []Entry  `json:"entries"`
}

// QueueCounts is the dashboard readout for one queue.
type QueueCounts struct {
	QueueType       QueueType `json:"queue_type"`
	ActiveGroupings int       `json:"active_groupings"`
	ActiveEntries   int       `json:"active_entries"`
}
