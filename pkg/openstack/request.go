package openstack

import "net/http"

// Verb is an upstream HTTP method.
type Verb string

const (
	VerbGet    Verb = http.MethodGet
	VerbPost   Verb = http.MethodPost
	VerbPut    Verb = http.MethodPut
	VerbDelete Verb = http.MethodDelete
)

// HasBody reports whether requests with this verb carry a JSON body.
func (v Verb) HasBody() bool {
	return v == VerbPost || v == VerbPut
}

// OperationRequest is a single upstream call. Build it with NewGet, NewDelete,
// NewPost or NewPut; it is not modified after construction.
type OperationRequest struct {
	Verb    Verb
	BaseURL string
	Path    string
	Body    map[string]any
	// Header holds extra headers such as API microversions.
	Header map[string]string
}

func NewGet(baseURL, path string) *OperationRequest {
	return &OperationRequest{Verb: VerbGet, BaseURL: baseURL, Path: path}
}

func NewDelete(baseURL, path string) *OperationRequest {
	return &OperationRequest{Verb: VerbDelete, BaseURL: baseURL, Path: path}
}

func NewPost(baseURL, path string, body map[string]any) *OperationRequest {
	return &OperationRequest{Verb: VerbPost, BaseURL: baseURL, Path: path, Body: body}
}

func NewPut(baseURL, path string, body map[string]any) *OperationRequest {
	return &OperationRequest{Verb: VerbPut, BaseURL: baseURL, Path: path, Body: body}
}

// WithHeader returns a copy of r with the given headers merged in.
func (r *OperationRequest) WithHeader(header map[string]string) *OperationRequest {
	if len(header) == 0 {
		return r
	}
	out := *r
	out.Header = make(map[string]string, len(r.Header)+len(header))
	for k, v := range r.Header {
		out.Header[k] = v
	}
	for k, v := range header {
		out.Header[k] = v
	}
	return &out
}

// URL is the composed upstream URL.
func (r *OperationRequest) URL() string {
	return ComposeURL(r.BaseURL, r.Path)
}

func (r *OperationRequest) validate() error {
	switch r.Verb {
	case VerbGet, VerbDelete:
		if r.Body != nil {
			return NewInvalidArgumentError(string(r.Verb) + " request must not carry a body")
		}
	case VerbPost, VerbPut:
		if r.Body == nil {
			return NewInvalidArgumentError(string(r.Verb) + " request requires a body")
		}
	default:
		return NewInvalidArgumentError("unsupported verb: " + string(r.Verb))
	}
	if r.BaseURL == "" {
		return NewConfigurationError("base URL is not defined")
	}
	return nil
}
