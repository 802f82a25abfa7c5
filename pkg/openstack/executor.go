package openstack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
)

const logPrefix = "openstack:executor"

// AuthTokenHeader carries the token on every upstream call.
const AuthTokenHeader = "X-Auth-Token"

// RawResponse is an upstream response with its body fully read.
type RawResponse struct {
	StatusCode int
	StatusText string
	Header     http.Header
	Body       []byte
}

// Executor performs one authenticated upstream call per request.
type Executor struct {
	tokens     TokenProvider
	httpClient *http.Client
}

// NewExecutor creates an Executor. A nil client uses http.DefaultClient.
func NewExecutor(tokens TokenProvider, httpClient *http.Client) *Executor {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Executor{tokens: tokens, httpClient: httpClient}
}

// Execute authenticates, sends req and returns the raw response. Upstream
// non-2xx statuses are returned as responses, not errors.
func (e *Executor) Execute(ctx context.Context, req *OperationRequest) (*RawResponse, error) {
	if req == nil {
		return nil, NewInvalidArgumentError("request is nil")
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	token, err := e.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if req.Verb.HasBody() {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, NewInvalidArgumentError(fmt.Sprintf("failed to encode request body: %v", err))
		}
		body = bytes.NewReader(payload)
	}

	url := req.URL()
	httpReq, err := http.NewRequestWithContext(ctx, string(req.Verb), url, body)
	if err != nil {
		return nil, NewInvalidArgumentError(fmt.Sprintf("invalid upstream URL %q", url))
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(AuthTokenHeader, token)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.Header {
		httpReq.Header.Set(k, v)
	}

	slog.Debug(fmt.Sprintf("%s - %s %s", logPrefix, req.Verb, url))
	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, NewNetworkError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewNetworkError(err)
	}

	slog.Debug(fmt.Sprintf("%s - %s %s -> %d", logPrefix, req.Verb, url, resp.StatusCode))
	return &RawResponse{
		StatusCode: resp.StatusCode,
		StatusText: statusText(resp),
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// statusText strips the numeric code from the status line ("200 OK" -> "OK").
func statusText(resp *http.Response) string {
	code := strconv.Itoa(resp.StatusCode)
	if text, ok := strings.CutPrefix(resp.Status, code+" "); ok {
		return text
	}
	if resp.Status == code {
		return ""
	}
	if resp.Status == "" {
		return http.StatusText(resp.StatusCode)
	}
	return resp.Status
}
