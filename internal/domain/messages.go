package domain

import "fmt"

// MessageCollection accumulates non-fatal feedback for the caller.
// Queue operations append to it instead of returning errors for recoverable
// conditions: a duplicate enqueue, an unknown exclusion key, an invalid
// reorder target. Errors mark the operation as aborted; warnings and infos
// do not.
//
// Not safe for concurrent use; each request builds its own collection.
type MessageCollection struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
	Infos    []string `json:"infos"`
}

func NewMessageCollection() *MessageCollection {
	return &MessageCollection{}
}

func (mc *MessageCollection) AddError(format string, args ...any) {
	mc.Errors = append(mc.Errors, fmt.Sprintf(format, args...))
}

func (mc *MessageCollection) AddWarning(format string, args ...any) {
	mc.Warnings = append(mc.Warnings, fmt.Sprintf(format, args...))
}

func (mc *MessageCollection) AddInfo(format string, args ...any) {
	mc.Infos = append(mc.Infos, fmt.Sprintf(format, args...))
}

// HasErrors reports whether the operation recorded a fatal validation
// failure. Callers treat this as "aborted, no state changed".
func (mc *MessageCollection) HasErrors() bool { return len(mc.Errors) > 0 }

func (mc *MessageCollection) HasWarnings() bool { return len(mc.Warnings) > 0 }
