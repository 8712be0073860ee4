package domain

import "time"

// Interaction is one answered question in a session.
type Interaction struct {
	Query     string    `json:"query"`
	Summary   string    `json:"summary"`
	Timestamp time.Time `json:"timestamp"`
}
