package cubepg

import (
	"errors"
	"regexp"
	"strings"
	"testing"
)

var dsnAuthorityPattern = regexp.MustCompile(`(?i)postgres(?:ql)?://[^\s]+@`)

func assertNoDSNLeak(t *testing.T, msg string) {
	t.Helper()

	lower := strings.ToLower(msg)
	for _, marker := range []string{"postgres://", "postgresql://", "password="} {
		if strings.Contains(lower, marker) {
			t.Fatalf("error leaked sensitive marker %q: %q", marker, msg)
		}
	}
	if dsnAuthorityPattern.MatchString(msg) {
		t.Fatalf("error leaked DSN authority info: %q", msg)
	}
}

func assertTypedErrorWraps(t *testing.T, err error, kind Kind, cause error) {
	t.Helper()

	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to match %v, got %v", cause, err)
	}
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *Error wrapper, got %T", err)
	}
	if e.Kind != kind {
		t.Fatalf("kind=%q, want %q", e.Kind, kind)
	}
}
