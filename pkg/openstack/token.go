package openstack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

const tokenLogPrefix = "openstack:token"

// SubjectTokenHeader is the identity response header carrying the issued token.
const SubjectTokenHeader = "X-Subject-Token"

// Credentials identify the project-scoped user the gateway authenticates as.
type Credentials struct {
	IdentityBaseURL string
	UserID          string
	Password        string
	TenantID        string
}

// TokenProvider issues an authentication token for a single upstream call.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// PasswordTokenProvider authenticates with the password method on every call.
// Tokens are never cached.
type PasswordTokenProvider struct {
	creds      Credentials
	httpClient *http.Client
}

// NewPasswordTokenProvider creates a PasswordTokenProvider. A nil client uses http.DefaultClient.
func NewPasswordTokenProvider(creds Credentials, httpClient *http.Client) *PasswordTokenProvider {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &PasswordTokenProvider{creds: creds, httpClient: httpClient}
}

type authRequest struct {
	Auth authBody `json:"auth"`
}

type authBody struct {
	Identity authIdentity `json:"identity"`
	Scope    authScope    `json:"scope"`
}

type authIdentity struct {
	Methods  []string     `json:"methods"`
	Password authPassword `json:"password"`
}

type authPassword struct {
	User authUser `json:"user"`
}

type authUser struct {
	ID       string `json:"id"`
	Password string `json:"password"`
}

type authScope struct {
	Project authProject `json:"project"`
}

type authProject struct {
	ID string `json:"id"`
}

func newAuthRequest(creds Credentials) authRequest {
	return authRequest{Auth: authBody{
		Identity: authIdentity{
			Methods: []string{"password"},
			Password: authPassword{User: authUser{
				ID:       creds.UserID,
				Password: creds.Password,
			}},
		},
		Scope: authScope{Project: authProject{ID: creds.TenantID}},
	}}
}

// Token requests a new token from {identity}/auth/tokens. A response without the
// subject-token header yields an empty token and no error; the upstream call
// that uses it will be rejected by the service instead.
func (p *PasswordTokenProvider) Token(ctx context.Context) (string, error) {
	if p.creds.UserID == "" || p.creds.Password == "" || p.creds.TenantID == "" {
		return "", NewConfigurationError("required identity fields are not defined")
	}
	if p.creds.IdentityBaseURL == "" {
		return "", NewConfigurationError("identity base URL is not defined")
	}

	payload, err := json.Marshal(newAuthRequest(p.creds))
	if err != nil {
		return "", &GatewayError{Code: CodeInternal, Message: "failed to encode auth request", Err: err}
	}

	url := ComposeURL(p.creds.IdentityBaseURL, "/auth/tokens")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", NewInvalidArgumentError(fmt.Sprintf("invalid identity URL %q", url))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	slog.Debug(fmt.Sprintf("%s - POST %s", tokenLogPrefix, url))
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", NewNetworkError(err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	token := resp.Header.Get(SubjectTokenHeader)
	if token == "" {
		slog.Warn(fmt.Sprintf("%s - identity responded %d without %s", tokenLogPrefix, resp.StatusCode, SubjectTokenHeader))
	}
	return token, nil
}
