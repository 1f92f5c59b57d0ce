package mq

import "time"

// UpdateDiscoveredPayload is published on routing key "update.discovered"
// for every newly stored update.
type UpdateDiscoveredPayload struct {
	UpdateID     int64     `json:"update_id"`
	UserID       int       `json:"user_id"`
	SourceID     string    `json:"source_id"`
	Label        string    `json:"label"`
	Title        string    `json:"title"`
	DiscoveredAt time.Time `json:"discovered_at"`
}

// ScanCompletedPayload is published on routing key "scan.completed" after
// every pipeline run, including runs that found nothing.
type ScanCompletedPayload struct {
	RunID    string `json:"run_id"`
	UserID   int    `json:"user_id"`
	Fetched  int    `json:"fetched"`
	New      int    `json:"new"`
	Accepted int    `json:"accepted"`
	Deferred int    `json:"deferred"`
}

// UserRegisteredPayload is published on routing key "user.registered".
type UserRegisteredPayload struct {
	UserID int    `json:"user_id"`
	Email  string `json:"email"`
}
