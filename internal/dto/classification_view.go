package dto

import (
	"html/template"

	"mineralclassifier/internal/services/ai"
)

// Level tells the front-end how to style a result.
type Level string

const (
	LevelOK      Level = "ok"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// ClassificationView is everything the page and the JSON API show for one
// classification request. Summary and Details use **bold** markup; Chart is
// a ready-to-embed SVG and stays empty unless the classification succeeded.
type ClassificationView struct {
	Level      Level          `json:"level"`
	Reason     string         `json:"reason,omitempty"`
	Summary    string         `json:"summary"`
	Details    string         `json:"details"`
	Chart      template.HTML  `json:"chart,omitempty"`
	Prediction *ai.Prediction `json:"prediction,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
}

// HasChart reports whether a chart was rendered.
func (v ClassificationView) HasChart() bool {
	return v.Chart != ""
}

// Succeeded reports whether the view carries a prediction.
func (v ClassificationView) Succeeded() bool {
	return v.Level == LevelOK && v.Prediction != nil
}
