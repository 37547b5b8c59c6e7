package env

import "testing"

func TestGetPrefersPrefixedKey(t *testing.T) {
	t.Setenv("LOG_FORMAT", "console")
	t.Setenv("AUDITMAGIC_LOG_FORMAT", "json")

	if got := Get("LOG_FORMAT", "text"); got != "json" {
		t.Fatalf("expected prefixed value, got %q", got)
	}
}

func TestGetFallsBack(t *testing.T) {
	t.Setenv("AUDITMAGIC_LOG_FORMAT", "  ")
	t.Setenv("LOG_FORMAT", "console")

	if got := Get("LOG_FORMAT", "json"); got != "console" {
		t.Fatalf("expected bare value, got %q", got)
	}

	t.Setenv("LOG_FORMAT", "")
	if got := Get("LOG_FORMAT", "json"); got != "json" {
		t.Fatalf("expected fallback, got %q", got)
	}
}
