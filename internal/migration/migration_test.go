package migration

import (
	"io/fs"
	"strings"
	"testing"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(embeddedMigrations, migrationsDir)
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}
	ups, downs := map[string]bool{}, map[string]bool{}
	for _, entry := range entries {
		name := entry.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}
	if len(ups) == 0 {
		t.Fatal("expected at least one migration")
	}
	for version := range ups {
		if !downs[version] {
			t.Fatalf("migration %s has no down script", version)
		}
	}
}

func TestRunMigrationsRequiresHandle(t *testing.T) {
	if err := RunMigrations(nil); err == nil {
		t.Fatal("expected error for nil handle")
	}
}
