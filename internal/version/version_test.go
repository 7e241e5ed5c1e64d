package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	Version, Commit, BuildDate = "1.2.0", "abc123", "2026-10-16"
	got := String()
	for _, want := range []string{"1.2.0", "abc123", "2026-10-16"} {
		if !strings.Contains(got, want) {
			t.Fatalf("版本信息应包含 %q: %s", want, got)
		}
	}
}
