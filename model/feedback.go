package model

import (
	"fmt"
	"time"
)

// FeedbackRecord is a user-submitted rating tied to a chat message/response
// pair. Queued locally when offline; never silently dropped.
type FeedbackRecord struct {
	RequestID  string    `json:"request_id"`
	MessageID  string    `json:"message_id"`
	ResponseID string    `json:"response_id"`
	Question   string    `json:"question"`
	Response   string    `json:"response"`
	Rating     int       `json:"rating"`
	Comments   string    `json:"comments,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ValidationError describes malformed input to a public operation. It is
// raised synchronously, before any state mutation or network I/O.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("model: invalid %s: %s", e.Field, e.Reason)
}

// Validate checks required fields and the rating range.
func (f *FeedbackRecord) Validate() error {
	if f.MessageID == "" {
		return &ValidationError{Field: "message_id", Reason: "required field is empty"}
	}
	if f.ResponseID == "" {
		return &ValidationError{Field: "response_id", Reason: "required field is empty"}
	}
	if f.Rating < 1 || f.Rating > 5 {
		return &ValidationError{Field: "rating", Reason: fmt.Sprintf("%d is out of range [1,5]", f.Rating)}
	}
	return nil
}
