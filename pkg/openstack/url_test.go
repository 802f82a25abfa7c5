package openstack

import "testing"

func TestComposeURL(t *testing.T) {
	tests := []struct {
		name string
		base string
		path string
		want string
	}{
		{name: "leading slash", base: "https://compute.example/v2.1", path: "/servers/detail", want: "https://compute.example/v2.1/servers/detail"},
		{name: "no leading slash", base: "https://compute.example/v2.1", path: "servers/detail", want: "https://compute.example/v2.1/servers/detail"},
		{name: "doubled slash is kept", base: "https://compute.example/v2.1/", path: "/servers", want: "https://compute.example/v2.1//servers"},
		{name: "base with slash and bare path", base: "https://compute.example/v2.1/", path: "servers", want: "https://compute.example/v2.1//servers"},
		{name: "query string", base: "https://image.example", path: "/v2/images?limit=200", want: "https://image.example/v2/images?limit=200"},
		{name: "empty path", base: "https://image.example", path: "", want: "https://image.example/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComposeURL(tt.base, tt.path); got != tt.want {
				t.Errorf("openstack:url_test - ComposeURL(%q, %q) = %q, want %q", tt.base, tt.path, got, tt.want)
			}
		})
	}
}

func TestJoinID(t *testing.T) {
	if got := JoinID("/servers", "server-id-123"); got != "/servers/server-id-123" {
		t.Errorf("openstack:url_test - JoinID = %q", got)
	}
	if got := JoinID("/v2.0/ports", "a b"); got != "/v2.0/ports/a b" {
		t.Errorf("openstack:url_test - identifiers must not be escaped, got %q", got)
	}
	if got := JoinID("/volumes/", "v1"); got != "/volumes//v1" {
		t.Errorf("openstack:url_test - JoinID = %q", got)
	}
}

func TestServerScoped(t *testing.T) {
	if got := ServerScoped("abc", "/ips"); got != "/servers/abc/ips" {
		t.Errorf("openstack:url_test - ServerScoped = %q", got)
	}
	if got := ServerScoped("abc", "/rrd/cpu"); got != "/servers/abc/rrd/cpu" {
		t.Errorf("openstack:url_test - ServerScoped = %q", got)
	}
}
