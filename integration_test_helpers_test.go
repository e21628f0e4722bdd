//go:build integration

package postgresql

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"regexp"
	"testing"
	"time"
)

var (
	integrationDSNURLPattern   = regexp.MustCompile(`(?i)postgres(?:ql)?://[^\s]+`)
	integrationPasswordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)
	integrationTablePattern    = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
)

// integrationConfig reads POSTGRES_* variables and falls back to the CI
// service defaults (db/user/password all "fondat", sslmode disable).
func integrationConfig(t *testing.T) Config {
	t.Helper()

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("loading integration config: %s", sanitizeErrorMessage(err))
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.User == "" {
		cfg.User = "fondat"
	}
	if cfg.Password == "" {
		cfg.Password = "fondat"
	}
	if cfg.Database == "" {
		cfg.Database = "fondat"
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 20 * time.Second
	}

	if os.Getenv("POSTGRES_INTEGRATION_DEBUG") != "" {
		t.Logf("integration host=%s database=%s", cfg.Host, cfg.Database)
	}
	return cfg
}

func integrationTableName(t *testing.T) string {
	t.Helper()

	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		t.Fatalf("failed to generate random table suffix: %s", sanitizeErrorMessage(err))
	}
	name := fmt.Sprintf("fondat_it_%d_%x", time.Now().Unix(), binary.BigEndian.Uint32(b[:]))
	if !integrationTablePattern.MatchString(name) {
		t.Fatalf("generated invalid table name: %q", name)
	}

	return name
}

func sanitizeErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	msg = integrationDSNURLPattern.ReplaceAllString(msg, "[REDACTED_DSN]")
	msg = integrationPasswordPattern.ReplaceAllString(msg, "password=[REDACTED]")
	return msg
}

func mustNoErr(t *testing.T, err error, operation string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: %s", operation, sanitizeErrorMessage(err))
	}
}

func mustIs(t *testing.T, got error, want error, operation string) {
	t.Helper()
	if !errors.Is(got, want) {
		t.Fatalf("%s: got=%s want=%v", operation, sanitizeErrorMessage(got), want)
	}
}
