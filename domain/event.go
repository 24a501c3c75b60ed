// Package domain defines the core domain models for the visualizer.
package domain

import (
	"encoding/json"
	"time"
)

// EventType represents the type of a lifecycle event.
type EventType string

const (
	EventTypeRunStarted       EventType = "run-started"
	EventTypeAgentStarted     EventType = "agent-started"
	EventTypeAgentMessage     EventType = "agent-message"
	EventTypeAgentCompleted   EventType = "agent-completed"
	EventTypeHandoff          EventType = "handoff"
	EventTypeOrchestratorNote EventType = "orchestrator-note"
	EventTypeRunCompleted     EventType = "run-completed"
	EventTypeRunFailed        EventType = "run-failed"
	// EventTypeUnknown is the parse result for any tag outside the fixed
	// vocabulary. Consumers render it as an inert stream entry.
	EventTypeUnknown EventType = "unknown"
)

// knownTypes is the closed vocabulary accepted off the wire.
var knownTypes = map[EventType]bool{
	EventTypeRunStarted:       true,
	EventTypeAgentStarted:     true,
	EventTypeAgentMessage:     true,
	EventTypeAgentCompleted:   true,
	EventTypeHandoff:          true,
	EventTypeOrchestratorNote: true,
	EventTypeRunCompleted:     true,
	EventTypeRunFailed:        true,
}

// ParseEventType maps a wire tag to the closed vocabulary.
func ParseEventType(s string) EventType {
	t := EventType(s)
	if knownTypes[t] {
		return t
	}
	return EventTypeUnknown
}

// Terminal reports whether the type ends a run.
func (t EventType) Terminal() bool {
	return t == EventTypeRunCompleted || t == EventTypeRunFailed
}

// Event is one immutable lifecycle occurrence. Created once by the
// orchestration side; the bus assigns Seq at publish and never mutates
// anything else.
type Event struct {
	Type      EventType              `json:"type"`
	Seq       int                    `json:"seq"`
	Timestamp float64                `json:"timestamp"`
	DemoID    string                 `json:"demo_id,omitempty"`
	Data      map[string]interface{} `json:"data"`
}

// NewEvent creates an event stamped with the current wall clock.
func NewEvent(eventType EventType, data map[string]interface{}) Event {
	if data == nil {
		data = map[string]interface{}{}
	}
	return Event{
		Type:      eventType,
		Timestamp: float64(time.Now().UnixNano()) / float64(time.Second),
		Data:      data,
	}
}

// Agent returns data["agent"] if present.
func (e Event) Agent() string {
	return e.stringField("agent")
}

// FromAgent returns data["from_agent"] if present.
func (e Event) FromAgent() string {
	return e.stringField("from_agent")
}

// Message returns data["message"] if present.
func (e Event) Message() string {
	return e.stringField("message")
}

func (e Event) stringField(key string) string {
	if e.Data == nil {
		return ""
	}
	if s, ok := e.Data[key].(string); ok {
		return s
	}
	return ""
}

// Time converts the float-seconds timestamp back to a time.Time.
func (e Event) Time() time.Time {
	sec := int64(e.Timestamp)
	nsec := int64((e.Timestamp - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec)
}

// UnmarshalJSON decodes an event, folding unrecognized type tags into
// EventTypeUnknown rather than rejecting the record.
func (e *Event) UnmarshalJSON(b []byte) error {
	var raw struct {
		Type      string                 `json:"type"`
		Seq       int                    `json:"seq"`
		Timestamp float64                `json:"timestamp"`
		DemoID    string                 `json:"demo_id"`
		Data      map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	e.Type = ParseEventType(raw.Type)
	e.Seq = raw.Seq
	e.Timestamp = raw.Timestamp
	e.DemoID = raw.DemoID
	e.Data = raw.Data
	if e.Data == nil {
		e.Data = map[string]interface{}{}
	}
	return nil
}
