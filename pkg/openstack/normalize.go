package openstack

import (
	"bytes"
	"encoding/json"
	"fmt"
)

var utf8BOM = []byte("\xef\xbb\xbf")

// Formatter renders a raw upstream response as the string returned to callers.
type Formatter func(raw *RawResponse) (string, error)

// NormalizedResponse is the uniform envelope for every completed upstream call.
type NormalizedResponse struct {
	Status     int    `json:"status"`
	StatusText string `json:"statusText"`
	Body       any    `json:"body"`
}

// FormatResponse renders raw with its body as parsed JSON, or as the raw text
// when the body is not valid JSON (plain text, HTML, empty).
func FormatResponse(raw *RawResponse) (string, error) {
	text := decodeText(raw.Body)
	var body any = string(text)
	if json.Valid(text) {
		body = json.RawMessage(text)
	}
	return encodeEnvelope(raw, body)
}

// decodeText reads a body as UTF-8 text: a leading BOM is dropped and invalid
// byte sequences become U+FFFD.
func decodeText(body []byte) []byte {
	return bytes.ToValidUTF8(bytes.TrimPrefix(body, utf8BOM), []byte("\uFFFD"))
}

func encodeEnvelope(raw *RawResponse, body any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(NormalizedResponse{
		Status:     raw.StatusCode,
		StatusText: raw.StatusText,
		Body:       body,
	}); err != nil {
		return "", fmt.Errorf("%s - failed to encode response: %w", logPrefix, err)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
