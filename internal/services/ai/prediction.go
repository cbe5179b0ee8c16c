package ai

import (
	"fmt"
	"sort"
	"time"
)

// Score is the probability assigned to one label.
type Score struct {
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
}

// Prediction is the result of one forward pass.
type Prediction struct {
	Label      string  `json:"label"`
	Index      int     `json:"index"`
	Confidence float64 `json:"confidence"`
	Scores     []Score `json:"scores"` // label-index order
}

// Distribution maps every label to its probability.
func (p *Prediction) Distribution() map[string]float64 {
	dist := make(map[string]float64, len(p.Scores))
	for _, s := range p.Scores {
		dist[s.Label] = s.Probability
	}
	return dist
}

// Ranked returns the scores by descending probability. Equal probabilities
// keep label-index order.
func (p *Prediction) Ranked() []Score {
	ranked := make([]Score, len(p.Scores))
	copy(ranked, p.Scores)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Probability > ranked[j].Probability
	})
	return ranked
}

func newPrediction(labels LabelMap, logits []float32) (*Prediction, error) {
	if len(logits) != len(labels) {
		return nil, fmt.Errorf("model produced %d logits for %d labels", len(logits), len(labels))
	}
	if !allFinite(logits) {
		return nil, fmt.Errorf("model produced non-finite logits")
	}

	probs := Softmax(logits)
	best := Argmax(probs)

	scores := make([]Score, len(labels))
	for i, label := range labels {
		scores[i] = Score{Label: label, Probability: probs[i]}
	}

	return &Prediction{
		Label:      labels[best],
		Index:      best,
		Confidence: probs[best],
		Scores:     scores,
	}, nil
}

// Status describes the classifier's current model.
type Status struct {
	Loaded    bool       `json:"loaded"`
	ModelDir  string     `json:"model_dir,omitempty"`
	Runtime   string     `json:"runtime,omitempty"`
	Device    Device     `json:"device,omitempty"`
	Classes   []string   `json:"classes"`
	LoadedAt  *time.Time `json:"loaded_at,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}
