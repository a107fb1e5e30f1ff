package migrate

import (
	"errors"
	"os"
	"strings"
	"testing"
)

func TestParseDirection(t *testing.T) {
	for _, s := range []string{"up", "down"} {
		if d, err := ParseDirection(s); err != nil || string(d) != s {
			t.Errorf("ParseDirection(%q) = %q, %v", s, d, err)
		}
	}
	for _, s := range []string{"", "UP", "Up", "sideways", "both"} {
		if _, err := ParseDirection(s); err == nil {
			t.Errorf("ParseDirection(%q) should fail", s)
		}
	}
}

func TestRun_EmptyDSN(t *testing.T) {
	for _, dsn := range []string{"", "   "} {
		err := Run(dsn, Up)
		if err == nil {
			t.Fatalf("Run(%q) should return error", dsn)
		}
		if !strings.HasPrefix(err.Error(), "DATABASE_URL is not set") {
			t.Errorf("error = %q", err)
		}
	}
}

func TestRun_InvalidDirection(t *testing.T) {
	err := Run("postgres://localhost/test", Direction("sideways"))
	if err == nil || !strings.Contains(err.Error(), "direction") {
		t.Errorf("Run with bad direction = %v", err)
	}
}

func TestRun_InvalidDSN(t *testing.T) {
	testCases := []struct {
		name string
		dsn  string
	}{
		{"invalid format", "invalid-dsn"},
		{"missing driver", "://localhost/test"},
		{"spaces", "postgres://localhost with spaces/test"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := Run(tc.dsn, Up)
			if err == nil {
				t.Fatalf("Run with invalid DSN %q should return error", tc.dsn)
			}
			if errors.Is(err, ErrNoChange) {
				t.Error("Run must never surface ErrNoChange")
			}
		})
	}
}

func TestVersion_EmptyDSN(t *testing.T) {
	if _, _, _, err := Version(""); err == nil {
		t.Error("Version with empty DSN should return error")
	}
}

func TestRun_Integration(t *testing.T) {
	dsn := os.Getenv("MIGRATE_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("MIGRATE_TEST_DATABASE_URL not set, skipping integration test")
	}
	if err := Run(dsn, Up); err != nil {
		t.Fatalf("up: %v", err)
	}
	if err := Run(dsn, Up); err != nil {
		t.Fatalf("second up must be a no-op: %v", err)
	}
	v, dirty, ok, err := Version(dsn)
	if err != nil || !ok || dirty || v < 1 {
		t.Errorf("Version = %d dirty=%v ok=%v err=%v", v, dirty, ok, err)
	}
	if err := Run(dsn, Down); err != nil {
		t.Fatalf("down: %v", err)
	}
}
