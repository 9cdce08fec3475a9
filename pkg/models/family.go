package models

import "time"

// Family is a row in the family profile store. Only the cloud reasoning
// flag is read by the gateway; everything else about a family lives in the
// bot's own storage.
type Family struct {
	ID             string    `json:"id"`
	CloudReasoning bool      `json:"cloud_reasoning"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
