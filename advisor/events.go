package advisor

import "time"

// EventType tags an event of the reasoning trace or the response stream.
type EventType string

const (
	EventQueryAnalysis   EventType = "query_analysis"
	EventToolCallStart   EventType = "tool_call_start"
	EventToolCallResult  EventType = "tool_call_result"
	EventEvaluation      EventType = "evaluation"
	EventQueryRefinement EventType = "query_refinement"
	EventSynthesisStart  EventType = "synthesis_start"
	EventSynthesisError  EventType = "synthesis_error"
	EventToken           EventType = "token"
	EventDone            EventType = "done"
	EventError           EventType = "error"
)

// Event is one entry of the reasoning trace or the response stream.
type Event struct {
	Type    EventType      `json:"type"`
	Tool    string         `json:"tool,omitempty"`
	Query   string         `json:"query,omitempty"`
	Content string         `json:"content,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
	Time    time.Time      `json:"time"`
}

func newEvent(typ EventType, data map[string]any) Event {
	return Event{Type: typ, Data: data, Time: time.Now()}
}
