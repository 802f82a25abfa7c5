// Package events defines event types and publishers for upstream resource change events.
package events

// ResourceChangedEvent is emitted after a mutating call succeeded upstream.
type ResourceChangedEvent struct {
	InvocationID string `json:"invocationId"`
	Family       string `json:"family"`
	Resource     string `json:"resource"`
	ResourceID   string `json:"resourceId,omitempty"`
	Kind         string `json:"kind"`
	Path         string `json:"path"`
	Verb         string `json:"verb"`
	Status       int    `json:"status"`
	Timestamp    string `json:"timestamp"`
}
