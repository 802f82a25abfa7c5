package openstack

import "errors"

// Error codes carried by GatewayError.
const (
	CodeConfiguration   = "CONFIGURATION_ERROR"
	CodeNetwork         = "NETWORK_ERROR"
	CodeUnroutable      = "UNROUTABLE_OPERATION"
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeInternal        = "INTERNAL_ERROR"
)

// GatewayError is a structured failure of a single invocation. Its Error text is
// what the caller sees after the "Error: " prefix, so it carries no code.
type GatewayError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// NewGatewayError creates a new GatewayError.
func NewGatewayError(code, message string) *GatewayError {
	return &GatewayError{Code: code, Message: message}
}

// NewConfigurationError reports a missing credential or base URL.
func NewConfigurationError(message string) *GatewayError {
	return &GatewayError{Code: CodeConfiguration, Message: message}
}

// NewNetworkError wraps a transport failure; the cause stays in the chain.
func NewNetworkError(err error) *GatewayError {
	return &GatewayError{Code: CodeNetwork, Message: "request failed", Err: err}
}

// NewUnroutableError reports a path the router has no entry for.
func NewUnroutableError(path string) *GatewayError {
	return &GatewayError{Code: CodeUnroutable, Message: "Unhandled path: " + path}
}

// NewInvalidArgumentError reports a malformed request.
func NewInvalidArgumentError(message string) *GatewayError {
	return &GatewayError{Code: CodeInvalidArgument, Message: message}
}

// CodeOf returns the GatewayError code in err's chain, or CodeInternal.
func CodeOf(err error) string {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Code
	}
	return CodeInternal
}
