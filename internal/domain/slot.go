package domain

import "time"

// TimeSlot is one fixed-duration candidate slot in a provider's day grid.
// Slots are computed fresh on every query and never persisted.
type TimeSlot struct {
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	Available      bool      `json:"available"`
	ConflictReason string    `json:"conflict_reason,omitempty"`
}
