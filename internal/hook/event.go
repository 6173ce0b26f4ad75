package hook

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Point is a named moment in an action's life at which the dispatch
// pipeline runs.
type Point string

const (
	PointPreAction        Point = "pre_action"
	PointPostAction       Point = "post_action"
	PointPromptSubmit     Point = "prompt_submit"
	PointSubagentComplete Point = "subagent_complete"
	PointPreCompact       Point = "pre_compact"
)

// AllPoints lists every lifecycle point in pipeline order.
var AllPoints = []Point{
	PointPreAction,
	PointPostAction,
	PointPromptSubmit,
	PointSubagentComplete,
	PointPreCompact,
}

// ParsePoint normalizes and validates a lifecycle point string.
func ParsePoint(s string) (Point, error) {
	normalized := Point(strings.ToLower(strings.TrimSpace(s)))
	for _, p := range AllPoints {
		if normalized == p {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown lifecycle point: %q", s)
}

// Gates reports whether decisions at this point can block the pending
// action. Post-hoc points observe, they do not gate.
func (p Point) Gates() bool {
	return p == PointPreAction || p == PointPromptSubmit
}

// Event is one unit of work submitted to the dispatcher. It is read
// once and lives for the duration of a single dispatch invocation.
type Event struct {
	Point       Point           `json:"lifecycle_point"`
	ActionName  string          `json:"action_name"`
	ActionInput json.RawMessage `json:"action_input,omitempty"`
	PriorResult json.RawMessage `json:"prior_result,omitempty"`
	SessionID   string          `json:"session_id,omitempty"`
	Timestamp   time.Time       `json:"timestamp,omitempty"`
}

// ReadEvent decodes and validates exactly one event from r.
// A malformed event is the only fatal input condition in the pipeline.
func ReadEvent(r io.Reader) (Event, error) {
	var raw struct {
		Point       string          `json:"lifecycle_point"`
		ActionName  string          `json:"action_name"`
		ActionInput json.RawMessage `json:"action_input"`
		PriorResult json.RawMessage `json:"prior_result"`
		SessionID   string          `json:"session_id"`
		Timestamp   time.Time       `json:"timestamp"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}

	point, err := ParsePoint(raw.Point)
	if err != nil {
		return Event{}, err
	}

	event := Event{
		Point:       point,
		ActionName:  strings.TrimSpace(raw.ActionName),
		ActionInput: raw.ActionInput,
		PriorResult: raw.PriorResult,
		SessionID:   strings.TrimSpace(raw.SessionID),
		Timestamp:   raw.Timestamp,
	}

	switch point {
	case PointPreAction, PointPostAction:
		if event.ActionName == "" {
			return Event{}, fmt.Errorf("action_name is required for %s events", point)
		}
	default:
		if event.ActionName == "" {
			event.ActionName = string(point)
		}
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	return event, nil
}

// InputMap decodes the action input as a generic object. Missing or
// non-object input yields an empty map.
func (e Event) InputMap() map[string]any {
	if len(e.ActionInput) == 0 {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(e.ActionInput, &m); err != nil {
		return map[string]any{}
	}
	return m
}

// InputString returns the named action input field as a trimmed string.
func (e Event) InputString(key string) string {
	v, ok := e.InputMap()[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

// NewInvocationID creates an id correlating all audit records of one
// dispatch invocation.
func NewInvocationID() string {
	return uuid.NewString()
}
