package db

import (
	"strings"
	"testing"
)

const poolMigrationTestPrefix = "db:pool_migration_test"

func TestMigrationReport_String(t *testing.T) {
	applied := MigrationReport{Applied: true, Files: 1}.String()
	if !strings.Contains(applied, "applied (gateway_invocations present, 1 migration files in embedded)") {
		t.Errorf("%s - report = %q", poolMigrationTestPrefix, applied)
	}
	pending := MigrationReport{Files: 2, Source: "migrations"}.String()
	if !strings.Contains(pending, "not applied") || !strings.Contains(pending, "in migrations") {
		t.Errorf("%s - report = %q", poolMigrationTestPrefix, pending)
	}
}
