package e2e

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const TEST_WATCH_TIMEOUT = 10 * time.Second

// binary locates the built CLI. The suite is skipped when it has not been built.
func binary(t *testing.T) string {
	t.Helper()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get cwd: %v", err)
	}

	binDir := os.Getenv("ACTIVITYTRACKER_BIN_DIR")
	if binDir == "" {
		binDir = filepath.Join(cwd, "..", "..", "bin")
	}
	binDir, _ = filepath.Abs(binDir)

	cliPath := filepath.Join(binDir, "activitytracker")
	if _, err := os.Stat(cliPath); os.IsNotExist(err) {
		t.Skipf("CLI binary not found at %s. Build it with 'go build -o bin/ ./cmd/activitytracker'.", cliPath)
	}
	return cliPath
}

// isolatedEnv points HOME and the config directory into tempDir
func isolatedEnv(tempDir string) []string {
	var cleanEnv []string
	for _, e := range os.Environ() {
		if strings.HasPrefix(e, "HOME=") || strings.HasPrefix(e, "ACTIVITYTRACKER_") {
			continue
		}
		cleanEnv = append(cleanEnv, e)
	}
	return append(cleanEnv,
		fmt.Sprintf("HOME=%s", tempDir),
		"ACTIVITYTRACKER_TEST=1",
	)
}

func TestEndToEndWorkflow(t *testing.T) {
	cliPath := binary(t)
	tempDir := t.TempDir()
	env := isolatedEnv(tempDir)

	store := filepath.Join(tempDir, "data", "activities.json")
	configDir := filepath.Join(tempDir, "config")
	run := func(args ...string) string {
		t.Helper()
		return runCmd(t, cliPath, env, append([]string{"--store", store, "--config-dir", configDir}, args...)...)
	}

	// 1. Initialize
	out := run("init", "--owner", "e2e")
	if !strings.Contains(out, "Initialized") {
		t.Fatalf("unexpected init output: %s", out)
	}

	// 2. Record activities
	run("add", "write", "-s", "2024-06-03T09:00:00", "-e", "2024-06-03T10:30:00")
	run("add", "review", "-s", "2024-06-03T10:30:00", "-m", "30", "-n", "PR 12")
	run("add", "write", "-s", "2024-06-03T11:00:00", "-e", "2024-06-03T12:00:00")

	// 3. Read them back
	out = run("list", "--json")
	if strings.Count(out, `"activity"`) != 3 {
		t.Errorf("expected 3 entries in list output:\n%s", out)
	}
	out = run("summary")
	if !strings.Contains(out, "write") || !strings.Contains(out, "2.50") {
		t.Errorf("unexpected summary output:\n%s", out)
	}

	// 4. Clean data validates
	out = run("validate")
	if !strings.Contains(out, "No conflicts detected.") {
		t.Errorf("unexpected validate output:\n%s", out)
	}

	// 5. Backups
	run("backup", "create")
	out = run("backup", "list")
	if !strings.Contains(out, "activitytracker-") {
		t.Errorf("backup not listed:\n%s", out)
	}

	// 6. Copy into SQLite and read from there
	sqlitePath := filepath.Join(tempDir, "data", "activities.db")
	run("migrate", "--to", sqlitePath)
	out = runCmd(t, cliPath, env, "--store", sqlitePath, "--config-dir", configDir, "list", "--json")
	if strings.Count(out, `"activity"`) != 3 {
		t.Errorf("expected 3 entries in migrated store:\n%s", out)
	}

	// 7. Diagnostics pass
	out = run("doctor")
	if !strings.Contains(out, "All diagnostics passed!") {
		t.Errorf("unexpected doctor output:\n%s", out)
	}
}

func TestWatchSeesExternalWrite(t *testing.T) {
	cliPath := binary(t)
	tempDir := t.TempDir()
	env := isolatedEnv(tempDir)

	store := filepath.Join(tempDir, "activities.json")
	configDir := filepath.Join(tempDir, "config")
	runCmd(t, cliPath, env, "--store", store, "--config-dir", configDir, "init")

	watch := exec.Command(cliPath, "--store", store, "--config-dir", configDir,
		"watch", "--events", "1", "--for", TEST_WATCH_TIMEOUT.String())
	watch.Env = env
	var output strings.Builder
	watch.Stdout = &output
	watch.Stderr = &output
	if err := watch.Start(); err != nil {
		t.Fatalf("Failed to start watch: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- watch.Wait() }()

	// Keep writing until the watcher reports a change or gives up
	deadline := time.After(TEST_WATCH_TIMEOUT + 5*time.Second)
	for i := 0; ; i++ {
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("watch failed: %v\nOutput: %s", err, output.String())
			}
			if !strings.Contains(output.String(), "store changed") {
				t.Errorf("watch exited without reporting a change:\n%s", output.String())
			}
			return
		case <-deadline:
			_ = watch.Process.Kill()
			t.Fatalf("Timed out waiting for watch\nOutput: %s", output.String())
		case <-time.After(300 * time.Millisecond):
			runCmd(t, cliPath, env, "--store", store, "--config-dir", configDir, "add", fmt.Sprintf("task-%d", i))
		}
	}
}

func runCmd(t *testing.T, path string, env []string, args ...string) string {
	t.Helper()
	cmd := exec.Command(path, args...)
	cmd.Env = env
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("Command %s %v failed: %v\nOutput: %s", path, args, err, out)
	}
	return string(out)
}
