package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/morezero/openstack-gateway/pkg/dispatcher"
	"github.com/morezero/openstack-gateway/pkg/gateway"
)

const mainTestPrefix = "cmd/gateway:main_test"

func TestRootCmd_HasCommands(t *testing.T) {
	root := newRootCmd()
	for _, path := range [][]string{
		{"mcp"}, {"serve"}, {"routes"}, {"migrate", "up"}, {"migrate", "down"}, {"migrate", "status"}, {"ensure-db"}, {"clear"},
	} {
		cmd, _, err := root.Find(path)
		if err != nil || cmd == root {
			t.Errorf("%s - command %v not found: %v", mainTestPrefix, path, err)
		}
	}
	for _, name := range []string{"OPENSTACK_IDENTITY_BASE_URL", "OPENSTACK_TENANT_ID", "COMMS_URL", "DATABASE_URL", "GATEWAY_CATALOG_FILE"} {
		if !strings.Contains(root.Long, name) {
			t.Errorf("%s - help should mention %s", mainTestPrefix, name)
		}
	}
	if strings.Contains(root.Long, "README") {
		t.Errorf("%s - help must be self-contained", mainTestPrefix)
	}
}

func TestRoutesCmd_Table(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"routes", "--kind", string(gateway.KindDeleteParam)})
	if err := root.Execute(); err != nil {
		t.Fatalf("%s - routes: %v", mainTestPrefix, err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if want := len(gateway.Paths(gateway.KindDeleteParam)) + 1; len(lines) != want {
		t.Errorf("%s - expected %d lines, got %d:\n%s", mainTestPrefix, want, len(lines), out.String())
	}
	if !strings.HasPrefix(lines[0], "TOOL") {
		t.Errorf("%s - header = %q", mainTestPrefix, lines[0])
	}
	for _, line := range lines[1:] {
		if !strings.Contains(line, "DELETE") {
			t.Errorf("%s - delete route line without DELETE: %q", mainTestPrefix, line)
		}
	}
}

func TestRoutesCmd_JSON(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"routes", "--json"})
	if err := root.Execute(); err != nil {
		t.Fatalf("%s - routes: %v", mainTestPrefix, err)
	}
	var ops dispatcher.ListOperationsOutput
	if err := json.Unmarshal(out.Bytes(), &ops); err != nil {
		t.Fatalf("%s - output is not JSON: %v", mainTestPrefix, err)
	}
	if len(ops.Operations) != len(gateway.Routes()) {
		t.Errorf("%s - %d operations, want %d", mainTestPrefix, len(ops.Operations), len(gateway.Routes()))
	}
}

func TestRoutesCmd_UnknownKind(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"routes", "--kind", "conoha_openstack_patch"})
	if err := root.Execute(); err == nil {
		t.Errorf("%s - expected error for unknown kind", mainTestPrefix)
	}
}

func TestParseBefore(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "", want: time.Time{}},
		{in: "24h", want: now.Add(-24 * time.Hour)},
		{in: "2025-05-01T00:00:00Z", want: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)},
		{in: "-1h", wantErr: true},
		{in: "yesterday", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseBefore(tt.in, now)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s - parseBefore(%q) err = %v, wantErr %v", mainTestPrefix, tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && !got.Equal(tt.want) {
			t.Errorf("%s - parseBefore(%q) = %v, want %v", mainTestPrefix, tt.in, got, tt.want)
		}
	}
}

func TestWithDatabaseName(t *testing.T) {
	got, err := withDatabaseName("postgres://u:p@localhost:5432/gateway?sslmode=disable", "gateway_test")
	if err != nil {
		t.Fatalf("%s - unexpected error: %v", mainTestPrefix, err)
	}
	if got != "postgres://u:p@localhost:5432/gateway_test?sslmode=disable" {
		t.Errorf("%s - withDatabaseName = %q", mainTestPrefix, got)
	}
	if _, err := withDatabaseName("://bad", "x"); err == nil {
		t.Errorf("%s - expected parse error", mainTestPrefix)
	}
}
