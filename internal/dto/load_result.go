package dto

import (
	"encoding/json"
	"time"

	"mineralclassifier/internal/services/ai"
)

// LoadResult is the outcome of a model (re)load shown to the user.
type LoadResult struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Status  ai.Status `json:"status"`
}

// ModelStatus is the payload pushed to status subscribers and returned by
// the model endpoint.
type ModelStatus struct {
	ai.Status
	Event     string    `json:"event"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// MarshalJSON formats the timestamps for the browser and omits an unset
// load time.
func (s ModelStatus) MarshalJSON() ([]byte, error) {
	type Alias ModelStatus
	loadedAt := ""
	if s.LoadedAt != nil {
		loadedAt = s.LoadedAt.Format(time.RFC3339)
	}
	return json.Marshal(&struct {
		LoadedAt  string `json:"loaded_at,omitempty"`
		UpdatedAt string `json:"updatedAt"`
		Alias
	}{
		LoadedAt:  loadedAt,
		UpdatedAt: s.UpdatedAt.Format(time.RFC3339),
		Alias:     (Alias)(s),
	})
}
