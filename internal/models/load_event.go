package models

import "time"

// LoadEvent records one attempt to load a model.
type LoadEvent struct {
	ID         string    `json:"id"`
	ModelDir   string    `json:"model_dir"`
	Runtime    string    `json:"runtime"`
	Device     string    `json:"device"`
	Success    bool      `json:"success"`
	ClassCount int       `json:"class_count"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// LoadEventStats summarises the recorded load attempts.
type LoadEventStats struct {
	Total       int       `json:"total"`
	Failures    int       `json:"failures"`
	LastSuccess time.Time `json:"last_success"`
}
