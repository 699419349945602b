package event

import (
	"time"

	"github.com/google/uuid"
)

// Payload keys used by bulk operation events
const (
	KeyOperation = "operation"
	KeyTaskID    = "task_id"
	KeyCount     = "count"
	KeyMessage   = "message"
	KeyIDs       = "assessment_ids"
)

// Event represents a domain event
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	AssessmentID  int64                  `json:"assessment_id,omitempty"`
	Ready         bool                   `json:"ready"`
	Payload       map[string]interface{} `json:"payload,omitempty"`
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id"`
}

// NewAttributeModified reports that an attribute of a row changed, with the
// row readiness computed after the change
func NewAttributeModified(assessmentID int64, ready bool) *Event {
	return &Event{
		ID:           uuid.NewString(),
		Type:         TypeAttributeModified,
		AssessmentID: assessmentID,
		Ready:        ready,
		Timestamp:    time.Now(),
	}
}

// NewReadyToComplete reports a row that is ready right after initialization
func NewReadyToComplete(assessmentID int64) *Event {
	return &Event{
		ID:           uuid.NewString(),
		Type:         TypeReadyToComplete,
		AssessmentID: assessmentID,
		Ready:        true,
		Timestamp:    time.Now(),
	}
}

// NewEventWithCorrelation creates an event linked to a correlation chain
// (the grid session that produced it)
func NewEventWithCorrelation(eventType Type, payload map[string]interface{}, correlationID string) *Event {
	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		Payload:       payload,
		Timestamp:     time.Now(),
		CorrelationID: correlationID,
	}
}

// WithPayload returns a new Event with an added payload key-value pair (immutable operation)
func (e *Event) WithPayload(key string, value interface{}) *Event {
	newPayload := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		newPayload[k] = v
	}
	newPayload[key] = value

	cp := *e
	cp.Payload = newPayload
	return &cp
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// GetPayloadInt retrieves an int64 value from the payload
func (e *Event) GetPayloadInt(key string) int64 {
	if val, ok := e.Payload[key]; ok {
		switch v := val.(type) {
		case int64:
			return v
		case int:
			return int64(v)
		case float64:
			return int64(v)
		}
	}
	return 0
}

// GetPayloadIDs retrieves an id list from the payload
func (e *Event) GetPayloadIDs(key string) []int64 {
	if val, ok := e.Payload[key]; ok {
		if ids, ok := val.([]int64); ok {
			return append([]int64(nil), ids...)
		}
	}
	return nil
}
