package openstack

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// recordedCall is one request seen by a fake upstream.
type recordedCall struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

// fakeCloud is an identity and service upstream in one httptest server.
type fakeCloud struct {
	t      *testing.T
	server *httptest.Server

	mu    sync.Mutex
	calls []recordedCall

	token        string
	status       int
	responseBody string
	contentType  string
}

func newFakeCloud(t *testing.T) *fakeCloud {
	t.Helper()
	f := &fakeCloud{t: t, token: "tok-123", status: http.StatusOK, responseBody: `{}`, contentType: "application/json"}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeCloud) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.calls = append(f.calls, recordedCall{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Header: r.Header.Clone(),
		Body:   body,
	})
	f.mu.Unlock()

	if r.URL.Path == "/identity/v3/auth/tokens" {
		if f.token != "" {
			w.Header().Set("x-subject-token", f.token)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"token":{}}`)
		return
	}
	w.Header().Set("Content-Type", f.contentType)
	w.WriteHeader(f.status)
	_, _ = io.WriteString(w, f.responseBody)
}

func (f *fakeCloud) identityURL() string { return f.server.URL + "/identity/v3" }

func (f *fakeCloud) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeCloud) call(i int) recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i >= len(f.calls) {
		f.t.Fatalf("openstack:testing_test - call %d not recorded, have %d", i, len(f.calls))
	}
	return f.calls[i]
}

func (f *fakeCloud) credentials() Credentials {
	return Credentials{
		IdentityBaseURL: f.identityURL(),
		UserID:          "user-1",
		Password:        "secret",
		TenantID:        "tenant-1",
	}
}

func (f *fakeCloud) executor() *Executor {
	return NewExecutor(NewPasswordTokenProvider(f.credentials(), f.server.Client()), f.server.Client())
}

func decodeEnvelope(t *testing.T, out string) map[string]any {
	t.Helper()
	var env map[string]any
	if err := json.Unmarshal([]byte(out), &env); err != nil {
		t.Fatalf("openstack:testing_test - output is not JSON: %v (%q)", err, out)
	}
	return env
}
