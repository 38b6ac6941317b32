package database

import (
	"strings"
	"testing"

	"github.com/kangminhyuk1111/hoops/internal/config"
)

func TestStatementsSplitsEmbeddedSchema(t *testing.T) {
	stmts := statements(schema)
	if len(stmts) != 6 {
		t.Fatalf("got %d statements, want 6", len(stmts))
	}
	for _, s := range stmts {
		if !strings.HasPrefix(s, "CREATE TABLE IF NOT EXISTS") {
			t.Fatalf("unexpected statement start: %.40q", s)
		}
	}
}

func TestStatementsSkipsComments(t *testing.T) {
	got := statements("-- header\nSELECT 1;\n  -- trailing\n;\nSELECT 2")
	if len(got) != 2 || got[0] != "SELECT 1" || got[1] != "SELECT 2" {
		t.Fatalf("statements = %q", got)
	}
}

func TestDSNUsesUTC(t *testing.T) {
	got := dsn(config.DBConfig{User: "hoops", Pass: "pw", Host: "db", Port: "3306", Name: "hoops"})
	for _, want := range []string{"hoops:pw@tcp(db:3306)/hoops", "parseTime=true", "collation=utf8mb4_unicode_ci"} {
		if !strings.Contains(got, want) {
			t.Errorf("dsn %q missing %q", got, want)
		}
	}
	if strings.Contains(got, "loc=") {
		t.Errorf("dsn %q: UTC is the driver default and should not be spelled out", got)
	}
}
