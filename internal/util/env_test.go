package util

import "testing"

func TestParseBoolEnv(t *testing.T) {
	t.Setenv("TEST_BOOL", "true")
	if !ParseBoolEnv("TEST_BOOL", false) {
		t.Error("expected true for 'true'")
	}
	t.Setenv("TEST_BOOL", "not-a-bool")
	if !ParseBoolEnv("TEST_BOOL", true) {
		t.Error("expected default for invalid value")
	}
	if ParseBoolEnv("TEST_BOOL_UNSET", false) {
		t.Error("expected default for unset variable")
	}
}

func TestParseIntEnv(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	if got := ParseIntEnv("TEST_INT", 7); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
	t.Setenv("TEST_INT", "nope")
	if got := ParseIntEnv("TEST_INT", 7); got != 7 {
		t.Errorf("expected default 7, got %d", got)
	}
}

func TestParseFloatEnv(t *testing.T) {
	t.Setenv("TEST_FLOAT", "0.5")
	if got := ParseFloatEnv("TEST_FLOAT", 1.0); got != 0.5 {
		t.Errorf("expected 0.5, got %f", got)
	}
	if got := ParseFloatEnv("TEST_FLOAT_UNSET", 1.0); got != 1.0 {
		t.Errorf("expected default 1.0, got %f", got)
	}
}
