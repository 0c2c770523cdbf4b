package commands

import (
	"strings"
	"testing"
)

func TestVersion(t *testing.T) {
	cfgPath := setupTestConfig(t)

	stdout, _, code := runCmd(t, "--config", cfgPath, "version")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	if !strings.Contains(stdout, "vecdump") {
		t.Fatalf("expected 'vecdump', got: %s", stdout)
	}
}
