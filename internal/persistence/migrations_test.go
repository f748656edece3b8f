package persistence

import (
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestRunMigrations_EmptyDSNIsSkipped(t *testing.T) {
	if err := RunMigrations("", MigrateUp, zap.NewNop()); err != nil {
		t.Fatalf("RunMigrations with empty DSN = %v, want nil", err)
	}
}

func TestRunMigrations_InvalidDirection(t *testing.T) {
	for _, direction := range []string{"", "UP", "sideways"} {
		err := RunMigrations("postgres://localhost/towerops", direction, zap.NewNop())
		if err == nil || !strings.Contains(err.Error(), "direction") {
			t.Errorf("direction %q: err = %v", direction, err)
		}
	}
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	ups, downs := map[string]bool{}, map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}
	if len(ups) == 0 {
		t.Fatal("no migrations embedded")
	}
	for version := range ups {
		if !downs[version] {
			t.Errorf("migration %s has no down file", version)
		}
	}
}
