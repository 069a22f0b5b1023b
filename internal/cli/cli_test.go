package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/jlieth/legacy-scrobbler-go/internal/network"
	"github.com/jlieth/legacy-scrobbler-go/internal/testutil"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	testutil.UnsetScrobblerEnv()
	dir := t.TempDir()
	path := filepath.Join(dir, "scrobbler.yaml")
	contents := fmt.Sprintf(`
network:
  name: example
  username: testuser
  password_hash: "3858f62230ac3c915f300c664312c63f"
  handshake_url: "http://example.invalid/handshake"
state_dir: %q
`, dir)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	app := New()
	var out bytes.Buffer
	app.rootCmd.SetOut(&out)
	app.rootCmd.SetErr(&out)
	app.rootCmd.SetArgs(args)
	err := app.Execute()
	return out.String(), err
}

func TestEnqueueAndStatus(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out, err := execute(t, "--config", cfgPath, "enqueue",
		"--artist", "Artist", "--title", "Song",
		"--time", "2026-08-30T12:00:00Z")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if !strings.Contains(out, "Artist - Song") {
		t.Errorf("enqueue output: %s", out)
	}

	out, err = execute(t, "--config", cfgPath, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "pending:   1") {
		t.Errorf("status output: %s", out)
	}
	if !strings.Contains(out, "Artist - Song") {
		t.Errorf("status should list the queued listen: %s", out)
	}
}

func TestEnqueue_RequiresArtist(t *testing.T) {
	cfgPath := writeTestConfig(t)

	_, err := execute(t, "--config", cfgPath, "enqueue", "--title", "Song")
	if err == nil {
		t.Fatal("expected error without --artist")
	}
}

func TestEnqueue_RejectsBadTime(t *testing.T) {
	cfgPath := writeTestConfig(t)

	_, err := execute(t, "--config", cfgPath, "enqueue",
		"--artist", "A", "--title", "T", "--time", "not-a-time")
	if err == nil || !strings.Contains(err.Error(), "--time") {
		t.Fatalf("err = %v, want time parse error", err)
	}
}

func TestStatus_NoDatabase(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out, err := execute(t, "--config", cfgPath, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "queue is empty") {
		t.Errorf("status output: %s", out)
	}
}

func TestVersion(t *testing.T) {
	app := New()
	app.SetVersion("1.0.0", "deadbeef", "2026-01-01")

	var out bytes.Buffer
	app.rootCmd.SetOut(&out)
	app.rootCmd.SetArgs([]string{"version"})
	if err := app.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "scrobbler version 1.0.0") {
		t.Errorf("version output: %s", out.String())
	}
}

// TestRunDaemon_FatalHandshakeStops drives the full daemon wiring: config
// load, store, spool watcher and the tick loop, against a server that
// rejects the account. The daemon must come back with the fatal error
// instead of retrying forever.
func TestRunDaemon_FatalHandshakeStops(t *testing.T) {
	testutil.UnsetScrobblerEnv()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "BADAUTH\n")
	}))
	defer server.Close()

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "scrobbler.yaml")
	contents := fmt.Sprintf(`
network:
  name: example
  username: testuser
  password_hash: "3858f62230ac3c915f300c664312c63f"
  handshake_url: %q
tick_interval: 10ms
state_dir: %q
spool_dir: %q
`, server.URL, dir, filepath.Join(dir, "spool"))
	if err := os.WriteFile(cfgPath, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	app := New()
	app.configPath = cfgPath

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := app.RunDaemon(ctx)
	if !errors.Is(err, network.ErrBadAuth) {
		t.Fatalf("err = %v, want ErrBadAuth", err)
	}
}

func TestSignalHandler(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	handler := NewSignalHandler(cancel)

	var mu sync.Mutex
	called := false
	handler.OnShutdown(func() {
		mu.Lock()
		called = true
		mu.Unlock()
	})

	handler.Start()
	defer handler.Stop()

	handler.signals <- syscall.SIGTERM

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context not cancelled after signal")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		ok := called
		mu.Unlock()
		if ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("shutdown callback not invoked")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
