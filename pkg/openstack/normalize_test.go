package openstack

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestFormatResponse(t *testing.T) {
	tests := []struct {
		name string
		raw  RawResponse
		want string
	}{
		{
			name: "json object",
			raw:  RawResponse{StatusCode: 200, StatusText: "OK", Body: []byte(`{"servers":[{"id":"s1"}]}`)},
			want: `{"status":200,"statusText":"OK","body":{"servers":[{"id":"s1"}]}}`,
		},
		{
			name: "json is compacted",
			raw:  RawResponse{StatusCode: 200, StatusText: "OK", Body: []byte("{\n  \"a\": [1, 2]\n}\n")},
			want: `{"status":200,"statusText":"OK","body":{"a":[1,2]}}`,
		},
		{
			name: "plain text",
			raw:  RawResponse{StatusCode: 500, StatusText: "Internal Server Error", Body: []byte("upstream exploded")},
			want: `{"status":500,"statusText":"Internal Server Error","body":"upstream exploded"}`,
		},
		{
			name: "html is not escaped",
			raw:  RawResponse{StatusCode: 502, StatusText: "Bad Gateway", Body: []byte("<html>bad & worse</html>")},
			want: `{"status":502,"statusText":"Bad Gateway","body":"<html>bad & worse</html>"}`,
		},
		{
			name: "empty body",
			raw:  RawResponse{StatusCode: 204, StatusText: "No Content"},
			want: `{"status":204,"statusText":"No Content","body":""}`,
		},
		{
			name: "json scalar",
			raw:  RawResponse{StatusCode: 200, StatusText: "OK", Body: []byte(`42`)},
			want: `{"status":200,"statusText":"OK","body":42}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatResponse(&tt.raw)
			if err != nil {
				t.Fatalf("openstack:normalize_test - unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("openstack:normalize_test - FormatResponse() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFormatResponse_BodyMatchesParsedJSON(t *testing.T) {
	payloads := []string{
		`{"a":1,"b":[true,false,null],"c":{"d":"e"}}`,
		`[1,"two",{"three":3}]`,
		`"just a string"`,
		`null`,
		`{"unicode":"サーバー","escaped":"<"}`,
	}

	for _, payload := range payloads {
		out, err := FormatResponse(&RawResponse{StatusCode: 200, StatusText: "OK", Body: []byte(payload)})
		if err != nil {
			t.Fatalf("openstack:normalize_test - unexpected error: %v", err)
		}
		env := decodeEnvelope(t, out)

		var want any
		if err := json.Unmarshal([]byte(payload), &want); err != nil {
			t.Fatalf("openstack:normalize_test - bad fixture %q: %v", payload, err)
		}
		if !reflect.DeepEqual(env["body"], want) {
			t.Errorf("openstack:normalize_test - body = %#v, want %#v", env["body"], want)
		}
	}
}

func TestFormatResponse_NonJSONBodyUnchanged(t *testing.T) {
	payloads := []string{"not json", "{broken", "   ", "<h1>503</h1>\n"}

	for _, payload := range payloads {
		out, err := FormatResponse(&RawResponse{StatusCode: 503, StatusText: "Service Unavailable", Body: []byte(payload)})
		if err != nil {
			t.Fatalf("openstack:normalize_test - unexpected error: %v", err)
		}
		env := decodeEnvelope(t, out)
		if env["body"] != payload {
			t.Errorf("openstack:normalize_test - body = %#v, want %q", env["body"], payload)
		}
		if env["status"] != float64(503) {
			t.Errorf("openstack:normalize_test - status = %v", env["status"])
		}
	}
}

func TestFormatResponse_DecodesBodyAsText(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "invalid utf-8 is replaced",
			body: "{\"a\":\"\xff\"}",
			want: `{"status":200,"statusText":"OK","body":{"a":"` + "\uFFFD" + `"}}`,
		},
		{
			name: "leading bom is dropped",
			body: "\ufeff{\"a\":1}",
			want: `{"status":200,"statusText":"OK","body":{"a":1}}`,
		},
		{
			name: "bom before plain text",
			body: "\ufeffhello",
			want: `{"status":200,"statusText":"OK","body":"hello"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatResponse(&RawResponse{StatusCode: 200, StatusText: "OK", Body: []byte(tt.body)})
			if err != nil {
				t.Fatalf("openstack:normalize_test - unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("openstack:normalize_test - got %q, want %q", got, tt.want)
			}
		})
	}
}
