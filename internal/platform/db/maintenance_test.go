package db

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

func TestDiagnosisHealthy(t *testing.T) {
	tests := []struct {
		name string
		d    Diagnosis
		want bool
	}{
		{name: "clean", d: Diagnosis{Orphans: []OrphanCheck{{Name: "x", Count: 0}}}, want: true},
		{name: "missing column", d: Diagnosis{MissingColumns: []string{"users.mfa_enabled"}}},
		{name: "pending migration", d: Diagnosis{PendingMigrations: []string{"0003_x"}}},
		{name: "orphans", d: Diagnosis{Orphans: []OrphanCheck{{Name: "slips_without_run", Count: 2}}}},
	}
	for _, tc := range tests {
		if got := tc.d.Healthy(); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

// Fresh installs get every patched column from the initial migration.
func TestColumnPatchesMatchInitialSchema(t *testing.T) {
	raw, err := os.ReadFile(filepath.Join("..", "..", "..", "migrations", "0001_init.sql"))
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	tables := map[string]string{}
	re := regexp.MustCompile(`(?s)CREATE TABLE IF NOT EXISTS (\w+) \((.*?)\n\);`)
	for _, m := range re.FindAllStringSubmatch(string(raw), -1) {
		tables[m[1]] = m[2]
	}

	seen := map[string]bool{}
	for _, p := range ColumnPatches {
		key := p.Table + "." + p.Column
		if seen[key] {
			t.Fatalf("duplicate patch %s", key)
		}
		seen[key] = true
		body, ok := tables[p.Table]
		if !ok {
			t.Fatalf("patch %s targets unknown table", key)
		}
		if !strings.Contains(body, "\n  "+p.Column+" ") {
			t.Fatalf("patch %s missing from initial schema", key)
		}
	}
}
