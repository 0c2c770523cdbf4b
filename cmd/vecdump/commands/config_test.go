package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// setupTestConfig returns a config file path inside a fresh temp dir so
// tests never touch ~/.vecdump.
func setupTestConfig(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "config.yaml")
}

func runCmd(t *testing.T, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()

	oldStdout := os.Stdout
	oldStderr := os.Stderr

	rOut, wOut, _ := os.Pipe()
	rErr, wErr, _ := os.Pipe()
	os.Stdout = wOut
	os.Stderr = wErr

	cfgFile = ""
	contextName = ""
	outputJSON = false
	outputYAML = false
	verbose = false

	rootCmd.SetArgs(args)
	err := rootCmd.Execute()

	wOut.Close()
	wErr.Close()
	os.Stdout = oldStdout
	os.Stderr = oldStderr

	var outBuf, errBuf bytes.Buffer
	outBuf.ReadFrom(rOut)
	errBuf.ReadFrom(rErr)

	stdout = outBuf.String()
	stderr = errBuf.String()
	if err != nil {
		exitCode = 1
		if stderr == "" {
			stderr = err.Error()
		}
	}

	resetFlags(rootCmd)
	return
}

func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		f.Changed = false
		f.Value.Set(f.DefValue)
	})
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func TestConfigAddContext(t *testing.T) {
	cfgPath := setupTestConfig(t)

	stdout, _, code := runCmd(t, "--config", cfgPath,
		"config", "add-context", "dev", "--redis-url", "redis://localhost:6379/0")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if !strings.Contains(stdout, "added") {
		t.Fatalf("expected 'added' in output, got: %s", stdout)
	}

	stdout, _, code = runCmd(t, "--config", cfgPath, "config", "list-contexts")
	if code != 0 {
		t.Fatalf("list-contexts failed, exit %d", code)
	}
	if !strings.Contains(stdout, "dev") {
		t.Fatalf("expected 'dev' in output, got: %s", stdout)
	}
}

func TestConfigAddContextRequiresRedisURL(t *testing.T) {
	cfgPath := setupTestConfig(t)

	_, stderr, code := runCmd(t, "--config", cfgPath, "config", "add-context", "dev")
	if code == 0 {
		t.Fatal("expected non-zero exit without --redis-url")
	}
	if !strings.Contains(stderr, "redis-url is required") {
		t.Fatalf("expected 'redis-url is required', got: %s", stderr)
	}
}

func TestConfigAddContextUnknownProvider(t *testing.T) {
	cfgPath := setupTestConfig(t)

	_, stderr, code := runCmd(t, "--config", cfgPath,
		"config", "add-context", "dev",
		"--redis-url", "redis://localhost:6379",
		"--provider", "cohere", "--api-key", "x")
	if code == 0 {
		t.Fatal("expected non-zero exit for unknown provider")
	}
	if !strings.Contains(stderr, "unknown provider") {
		t.Fatalf("expected 'unknown provider', got: %s", stderr)
	}
}

func TestConfigUseAndGetContext(t *testing.T) {
	cfgPath := setupTestConfig(t)

	runCmd(t, "--config", cfgPath, "config", "add-context", "dev", "--redis-url", "redis://localhost:6379")
	_, _, code := runCmd(t, "--config", cfgPath, "config", "use-context", "dev")
	if code != 0 {
		t.Fatalf("use-context failed, exit %d", code)
	}

	stdout, _, code := runCmd(t, "--config", cfgPath, "config", "get-context")
	if code != 0 {
		t.Fatalf("get-context failed, exit %d", code)
	}
	if !strings.Contains(stdout, "dev") {
		t.Fatalf("expected 'dev', got: %s", stdout)
	}
}

func TestConfigUseContextUnknown(t *testing.T) {
	cfgPath := setupTestConfig(t)

	_, stderr, code := runCmd(t, "--config", cfgPath, "config", "use-context", "ghost")
	if code == 0 {
		t.Fatal("expected non-zero exit for unknown context")
	}
	if !strings.Contains(stderr, "not found") {
		t.Fatalf("expected 'not found', got: %s", stderr)
	}
}

func TestConfigGetContextUnset(t *testing.T) {
	cfgPath := setupTestConfig(t)

	stdout, _, code := runCmd(t, "--config", cfgPath, "config", "get-context")
	if code != 0 {
		t.Fatalf("get-context failed, exit %d", code)
	}
	if !strings.Contains(stdout, "No current context") {
		t.Fatalf("expected 'No current context', got: %s", stdout)
	}
}

func TestConfigDeleteContext(t *testing.T) {
	cfgPath := setupTestConfig(t)

	runCmd(t, "--config", cfgPath, "config", "add-context", "staging", "--redis-url", "redis://localhost:6379")
	_, _, code := runCmd(t, "--config", cfgPath, "config", "delete-context", "staging")
	if code != 0 {
		t.Fatalf("delete-context failed, exit %d", code)
	}

	_, stderr, code := runCmd(t, "--config", cfgPath, "config", "delete-context", "staging")
	if code == 0 {
		t.Fatal("expected non-zero exit deleting a missing context")
	}
	if !strings.Contains(stderr, "not found") {
		t.Fatalf("expected 'not found', got: %s", stderr)
	}
}

func TestConfigListContextsEmpty(t *testing.T) {
	cfgPath := setupTestConfig(t)

	stdout, _, code := runCmd(t, "--config", cfgPath, "config", "list-contexts")
	if code != 0 {
		t.Fatalf("list-contexts failed, exit %d", code)
	}
	if !strings.Contains(stdout, "No contexts") {
		t.Fatalf("expected 'No contexts', got: %s", stdout)
	}
}

func TestConfigViewMasksAPIKey(t *testing.T) {
	cfgPath := setupTestConfig(t)

	const rawKey = "sk-1234567890abcdef"
	runCmd(t, "--config", cfgPath,
		"config", "add-context", "prod",
		"--redis-url", "redis://redis.example.com:6379/1",
		"--provider", "openai", "--api-key", rawKey)

	stdout, _, code := runCmd(t, "--config", cfgPath, "config", "view")
	if code != 0 {
		t.Fatalf("view failed, exit %d", code)
	}
	if strings.Contains(stdout, rawKey) {
		t.Fatalf("view must not print the raw API key, got: %s", stdout)
	}
	if !strings.Contains(stdout, "sk-1***********cdef") {
		t.Fatalf("expected masked key, got: %s", stdout)
	}
	if !strings.Contains(stdout, "redis.example.com") {
		t.Fatalf("expected Redis URL, got: %s", stdout)
	}
}
