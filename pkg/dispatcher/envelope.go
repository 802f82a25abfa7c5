// Package dispatcher routes incoming COMMS messages to gateway tools.
package dispatcher

import (
	"context"
	"encoding/json"
	"time"
)

// GatewayRequest is the JSON envelope for incoming COMMS gateway requests.
type GatewayRequest struct {
	ID     string             `json:"id"`
	Type   string             `json:"type"`
	Cap    string             `json:"cap"`
	Method string             `json:"method"`
	Params json.RawMessage    `json:"params"`
	Ctx    *InvocationContext `json:"ctx,omitempty"`
}

// GatewayResponse is the JSON envelope for COMMS gateway responses.
type GatewayResponse struct {
	ID     string       `json:"id"`
	Ok     bool         `json:"ok"`
	Result interface{}  `json:"result,omitempty"`
	Error  *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail holds structured error information.
type ErrorDetail struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
	Retryable bool        `json:"retryable"`
}

// InvocationContext holds context from the caller.
type InvocationContext struct {
	TenantID      string `json:"tenantId,omitempty"`
	UserID        string `json:"userId,omitempty"`
	RequestID     string `json:"requestId,omitempty"`
	CorrelationID string `json:"correlationId,omitempty"`
	DeadlineMs    int    `json:"deadlineMs,omitempty"`
	TimeoutMs     int    `json:"timeoutMs,omitempty"`
}

// RequestContext derives the per-request context. The caller's deadline or
// timeout is honoured when it is shorter than max.
func RequestContext(parent context.Context, req *GatewayRequest, max time.Duration) (context.Context, context.CancelFunc) {
	timeout := max
	if req != nil && req.Ctx != nil {
		ms := req.Ctx.DeadlineMs
		if ms <= 0 {
			ms = req.Ctx.TimeoutMs
		}
		if ms > 0 && time.Duration(ms)*time.Millisecond < timeout {
			timeout = time.Duration(ms) * time.Millisecond
		}
	}
	return context.WithTimeout(parent, timeout)
}
