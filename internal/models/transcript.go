package models

import "time"

// Transcript is one completed summary exchange, kept for the user's history
// until the retention job prunes it.
type Transcript struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	Prompt    string    `json:"prompt"`
	Reply     string    `json:"reply"`
	Style     string    `json:"style"`
	CreatedAt time.Time `json:"created_at"`
}
