package db

import "time"

// InvocationRecord represents a row in the gateway_invocations table.
type InvocationRecord struct {
	ID           string    `json:"id"`
	Kind         string    `json:"kind"`
	Path         string    `json:"path"`
	ResourceID   *string   `json:"resource_id,omitempty"`
	Family       string    `json:"family"`
	Resource     string    `json:"resource"`
	Verb         string    `json:"verb"`
	Mutating     bool      `json:"mutating"`
	Status       int       `json:"status"`
	Outcome      string    `json:"outcome"`
	ErrorCode    *string   `json:"error_code,omitempty"`
	ErrorMessage *string   `json:"error_message,omitempty"`
	Started      time.Time `json:"started"`
	DurationMs   int64     `json:"duration_ms"`
	Created      time.Time `json:"created"`
}

// ListInvocationsParams filters ListInvocations.
type ListInvocationsParams struct {
	Kind    string
	Family  string
	Outcome string
	Page    int
	Limit   int
}

// OutcomeCount is one row of CountByOutcome.
type OutcomeCount struct {
	Family  string `json:"family"`
	Outcome string `json:"outcome"`
	Count   int    `json:"count"`
}

// OptionalString maps "" to NULL.
func OptionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
