package domain

// EnqueueRequest is the inbound payload for adding vessels to a queue.
// Vessels submitted together stay together as one grouping so they can be
// repositioned as a unit later.
type EnqueueRequest struct {
	VesselLabels []string `json:"vessel_labels"`
	Message      string   `json:"message"`
	Origin       Origin   `json:"origin"`
	// Position optionally places the new grouping at a 1-based position
	// among active groupings instead of the tail.
	Position *int `json:"position,omitempty"`
}

func (r *EnqueueRequest) Validate() error {
	if len(r.VesselLabels) == 0 {
		return ErrEmptyVesselSet
	}
	if r.Origin == "" {
		r.Origin = OriginManual
	}
	if !r.Origin.IsValid() {
		return ErrInvalidOrigin
	}
	return nil
}

// ReorderRequest moves a grouping to an explicit 1-based position.
// A nil position is rejected; callers wanting top or bottom use the
// dedicated endpoints.
type ReorderRequest struct {
	Position *int `json:"position"`
}

// ExcludeRequest removes vessels from active consideration by barcode or
// sample key. Unknown keys produce warnings, not errors.
type ExcludeRequest struct {
	VesselKeys []string `json:"vessel_keys"`
}

// CompleteRequest marks vessels done in a queue and triggers the
// post-dequeue handler for the queue type.
type CompleteRequest struct {
	VesselLabels []string `json:"vessel_labels"`
	CompletedBy  string   `json:"completed_by"`
	// Override skips the per-queue readiness check, completing vessels
	// even when the check flags them as not yet done.
	Override bool `json:"override"`
}

func (r *CompleteRequest) Validate() error {
	if len(r.VesselLabels) == 0 {
		return ErrEmptyVesselSet
	}
	return nil
}

// RenameRequest re-labels a grouping's readable text.
type RenameRequest struct {
	Name string `json:"name"`
}
