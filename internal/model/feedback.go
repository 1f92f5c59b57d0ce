package model

import "time"

// Feedback is an audit record of a user correction. It has no effect on
// pipeline behavior; the visibility change itself lives on the Update row.
type Feedback struct {
	ID        int64
	UpdateID  int64
	IsCorrect bool
	CreatedAt time.Time
}
