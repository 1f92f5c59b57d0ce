package model

import "time"

// Update is a persisted important mail item. (user_id, source_id) is unique:
// re-ingesting the same provider item never creates a second row.
// DiscoveredAt is set once at insert. IsImportant starts true and may only
// transition to false; rows are never physically deleted.
type Update struct {
	ID           int64     `json:"id"`
	UserID       int       `json:"-"`
	SourceID     string    `json:"source_id"`
	Label        string    `json:"label"`
	Title        string    `json:"title"`
	Summary      string    `json:"summary"`
	DiscoveredAt time.Time `json:"discovered_at"`
	IsImportant  bool      `json:"is_important"`
}
