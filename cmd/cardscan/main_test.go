package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cardscan/internal/config"
	"cardscan/internal/queue"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	configPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[paths]
data_dir = %q
scratch_dir = %q
upload_dir = %q
log_dir = %q
review_path = %q
api_bind = "127.0.0.1:0"
ingest_key = "test-key"
`,
		filepath.Join(base, "data"),
		filepath.Join(base, "scratch"),
		filepath.Join(base, "uploads"),
		filepath.Join(base, "logs"),
		filepath.Join(base, "review", "review_queue.jsonl"),
	)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliTestEnv{baseDir: base, configPath: configPath}
}

func runCLI(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func requireContains(t *testing.T, output, want string) {
	t.Helper()
	if !strings.Contains(output, want) {
		t.Fatalf("expected output to contain %q, got:\n%s", want, output)
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, err := runCLI(t, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, err := runCLI(t, "", "config", "init", "--path", target); err == nil {
		t.Fatal("second init must refuse to overwrite")
	}
}

func TestCLISubmitAndQueueCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	scanPath := filepath.Join(env.baseDir, "bolt.png")
	if err := os.WriteFile(scanPath, []byte("image-bytes"), 0o644); err != nil {
		t.Fatalf("write scan: %v", err)
	}

	out, err := runCLI(t, env.configPath, "submit", "--set", "m10", "--foil", scanPath)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	requireContains(t, out, "Queued bolt.png as job 1")

	out, err = runCLI(t, env.configPath, "jobs")
	if err != nil {
		t.Fatalf("jobs: %v", err)
	}
	requireContains(t, out, "bolt.png")
	requireContains(t, out, "queued")

	out, err = runCLI(t, env.configPath, "show", "1")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, "queued")
	requireContains(t, out, "m10")
	requireContains(t, out, "yes")

	out, err = runCLI(t, env.configPath, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "queued")

	out, err = runCLI(t, env.configPath, "clear")
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	requireContains(t, out, "Cleared 1 jobs")

	out, err = runCLI(t, env.configPath, "jobs")
	if err != nil {
		t.Fatalf("jobs after clear: %v", err)
	}
	requireContains(t, out, "Queue is empty")
}

func TestCLIRetryRequeuesFailedJobs(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	cfg, _, err := config.Load(env.configPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	job, err := store.Enqueue(ctx, queue.NewJob{FilePath: filepath.Join(env.baseDir, "gone.png")})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	job.Attempts = 5
	job.SetFailure("input_missing", 5)
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	out, err := runCLI(t, env.configPath, "retry")
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	requireContains(t, out, "Requeued 1 failed jobs")
}

func TestCLIInventoryEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, env.configPath, "inventory")
	if err != nil {
		t.Fatalf("inventory: %v", err)
	}
	requireContains(t, out, "Inventory is empty")
}
