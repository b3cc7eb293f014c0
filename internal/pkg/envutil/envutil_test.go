package envutil

import (
	"testing"
	"time"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("ENVUTIL_INT", "7")
	t.Setenv("ENVUTIL_BAD_INT", "seven")
	t.Setenv("ENVUTIL_BOOL", "on")
	t.Setenv("ENVUTIL_DUR", "90s")
	t.Setenv("ENVUTIL_DUR_SECS", "30")
	t.Setenv("ENVUTIL_STR", "  value ")
	t.Setenv("ENVUTIL_FLOAT", "0.25")

	if got := Int("ENVUTIL_INT", 1); got != 7 {
		t.Fatalf("Int=%d", got)
	}
	if got := Int("ENVUTIL_BAD_INT", 1); got != 1 {
		t.Fatalf("Int fallback=%d", got)
	}
	if !Bool("ENVUTIL_BOOL", false) {
		t.Fatal("Bool on")
	}
	if Bool("ENVUTIL_MISSING", false) {
		t.Fatal("Bool default")
	}
	if got := Duration("ENVUTIL_DUR", time.Second); got != 90*time.Second {
		t.Fatalf("Duration=%s", got)
	}
	if got := Duration("ENVUTIL_DUR_SECS", time.Second); got != 30*time.Second {
		t.Fatalf("Duration secs=%s", got)
	}
	if got := String("ENVUTIL_STR", "x"); got != "value" {
		t.Fatalf("String=%q", got)
	}
	if got := Float("ENVUTIL_FLOAT", 1); got != 0.25 {
		t.Fatalf("Float=%v", got)
	}
	if got := Float("ENVUTIL_STR", 1); got != 1 {
		t.Fatalf("Float fallback=%v", got)
	}
}
