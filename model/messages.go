package model

import "time"

// StructureRequest asks the worker to structure and persist one draft.
type StructureRequest struct {
	Language     string       `json:"language"`
	BigEventName string       `json:"bigEventName"`
	Draft        ArticleDraft `json:"draft"`
	Priority     string       `json:"priority"` // "high", "normal", "low"
	RequestID    string       `json:"requestId"`
}

// StructureResult reports the outcome of one structuring request.
type StructureResult struct {
	Language     string    `json:"language"`
	BigEventName string    `json:"bigEventName"`
	EventName    string    `json:"eventName"`
	WarningCount int       `json:"warningCount"`
	Success      bool      `json:"success"`
	Error        string    `json:"error,omitempty"`
	ProcessedAt  time.Time `json:"processedAt"`
	RequestID    string    `json:"requestId"`
}
