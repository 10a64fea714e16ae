//go:build integration

package cubepg

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"
)

var (
	integrationDSNURLPattern   = regexp.MustCompile(`(?i)postgres(?:ql)?://[^\s]+`)
	integrationPasswordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)
	integrationSchemaPattern   = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
)

func requireIntegrationEnv(t *testing.T) string {
	t.Helper()

	databaseURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if databaseURL == "" {
		t.Fatal("integration requires environment variable: DATABASE_URL")
	}

	return databaseURL
}

// configFromURL maps a URL-form DSN onto Config so the integration run
// exercises the same field-based configuration production uses.
func configFromURL(t *testing.T, raw string) Config {
	t.Helper()

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("DATABASE_URL is not URL-form parseable: %s", sanitizeErrorMessage(err))
	}

	cfg := Config{
		Host:     u.Hostname(),
		Port:     5432,
		Database: strings.TrimPrefix(u.Path, "/"),
		TLS:      u.Query().Get("sslmode") != "disable",
	}
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			t.Fatalf("DATABASE_URL port %q is not numeric", p)
		}
		cfg.Port = port
	}
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Password, _ = u.User.Password()
	}

	if cfg.Host == "" || cfg.Database == "" || cfg.User == "" {
		t.Fatal("DATABASE_URL must include host, database, and user")
	}

	return cfg
}

func integrationSchemaName(t *testing.T) string {
	t.Helper()

	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		t.Fatalf("failed to generate random schema suffix: %s", sanitizeErrorMessage(err))
	}
	name := fmt.Sprintf("cube_pg_it_%d_%x", time.Now().Unix(), binary.BigEndian.Uint32(b[:]))
	if !integrationSchemaPattern.MatchString(name) {
		t.Fatalf("generated invalid schema name: %q", name)
	}

	return name
}

func quoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func qualifiedTable(schema, table string) string {
	return quoteIdent(schema) + "." + quoteIdent(table)
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
