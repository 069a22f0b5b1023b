package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/jlieth/legacy-scrobbler-go/internal/events"
	"github.com/jlieth/legacy-scrobbler-go/internal/manifest"
	"github.com/jlieth/legacy-scrobbler-go/internal/testutil"
)

func testManifest(t *testing.T, contents string) *manifest.Manifest {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, manifest.DefaultFile)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := manifest.Load(path)
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}
	return m
}

// exitError fabricates a non-nil run error; the stub cannot produce a
// real *exec.ExitError, so exit codes map to -1 in these tests.
var exitError = fmt.Errorf("exit status 1")

func TestRun_FailFast(t *testing.T) {
	m := testManifest(t, `
environments:
  check:
    commands:
      - cmd-a
      - cmd-b
      - cmd-c
`)
	stub := testutil.NewStubRunner()
	stub.Stub("cmd-a", "", "", nil)
	stub.Stub("cmd-b", "", "b is broken", exitError)

	bus := events.NewBus()
	var mu sync.Mutex
	var seen []events.EventType
	bus.Subscribe(func(e events.Event) {
		mu.Lock()
		seen = append(seen, e.Type)
		mu.Unlock()
	})

	ex := New(m, Options{Runner: stub, Bus: bus})
	err := ex.Run(context.Background(), []string{"check"}, false)

	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("err = %v, want CommandError", err)
	}
	if cmdErr.Index != 1 || cmdErr.Command != "cmd-b" {
		t.Errorf("failed command = #%d %q", cmdErr.Index, cmdErr.Command)
	}
	if cmdErr.Stderr != "b is broken" {
		t.Errorf("stderr = %q", cmdErr.Stderr)
	}

	if stub.CallsFor("cmd-c") != 0 {
		t.Error("cmd-c ran after cmd-b failed")
	}

	mu.Lock()
	defer mu.Unlock()
	for _, typ := range seen {
		if typ == events.EnvCompleted || typ == events.RunCompleted {
			t.Errorf("unexpected success event %s", typ)
		}
	}
}

func TestRun_Sequential_SkipsAfterFailure(t *testing.T) {
	m := testManifest(t, `
environments:
  first:
    commands: [cmd-first]
  second:
    commands: [cmd-second]
`)
	stub := testutil.NewStubRunner()
	stub.Stub("cmd-first", "", "", exitError)

	bus := events.NewBus()
	var mu sync.Mutex
	skipped := 0
	bus.Subscribe(func(e events.Event) {
		if e.Type == events.EnvSkipped {
			mu.Lock()
			skipped++
			mu.Unlock()
		}
	})

	ex := New(m, Options{Runner: stub, Bus: bus})
	if err := ex.Run(context.Background(), []string{"first", "second"}, false); err == nil {
		t.Fatal("expected error")
	}
	if stub.CallsFor("cmd-second") != 0 {
		t.Error("second environment ran after first failed")
	}
	mu.Lock()
	defer mu.Unlock()
	if skipped != 1 {
		t.Errorf("skipped events = %d, want 1", skipped)
	}
}

func TestRun_Parallel(t *testing.T) {
	m := testManifest(t, `
environments:
  a:
    commands: [cmd-a]
  b:
    commands: [cmd-b]
`)
	stub := testutil.NewStubRunner()
	stub.SucceedAll()

	ex := New(m, Options{Runner: stub})
	if err := ex.Run(context.Background(), []string{"a", "b"}, true); err != nil {
		t.Fatalf("run: %v", err)
	}
	if stub.CallsFor("cmd-a") != 1 || stub.CallsFor("cmd-b") != 1 {
		t.Errorf("calls = %v", stub.Calls())
	}
}

func TestRun_UnknownEnv(t *testing.T) {
	m := testManifest(t, `
environments:
  a:
    commands: [cmd-a]
`)
	stub := testutil.NewStubRunner()
	ex := New(m, Options{Runner: stub})

	err := ex.Run(context.Background(), []string{"nope"}, false)
	if !errors.Is(err, manifest.ErrUnknownEnv) {
		t.Fatalf("err = %v, want ErrUnknownEnv", err)
	}
	if len(stub.Calls()) != 0 {
		t.Error("commands ran for unknown environment")
	}
}

func TestRun_DefaultEnvs(t *testing.T) {
	m := testManifest(t, `
default: [a]
environments:
  a:
    commands: [cmd-a]
  b:
    commands: [cmd-b]
`)
	stub := testutil.NewStubRunner()
	stub.SucceedAll()

	ex := New(m, Options{Runner: stub})
	if err := ex.Run(context.Background(), nil, false); err != nil {
		t.Fatal(err)
	}
	if stub.CallsFor("cmd-a") != 1 || stub.CallsFor("cmd-b") != 0 {
		t.Errorf("calls = %v", stub.Calls())
	}
}

func TestCheckDeps(t *testing.T) {
	dir := t.TempDir()
	reqs := filepath.Join(dir, "requirements.txt")
	if err := os.WriteFile(reqs, []byte("some-package\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	empty := filepath.Join(dir, "empty.txt")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	ok := &manifest.ResolvedEnv{Deps: []manifest.Dep{{Requirement: reqs}, {Package: "pkg"}}}
	if err := CheckDeps(ok); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	missing := &manifest.ResolvedEnv{Deps: []manifest.Dep{{Requirement: filepath.Join(dir, "nope.txt")}}}
	if err := CheckDeps(missing); !errors.Is(err, ErrMissingDeps) {
		t.Errorf("missing file: err = %v, want ErrMissingDeps", err)
	}

	emptyEnv := &manifest.ResolvedEnv{Deps: []manifest.Dep{{Requirement: empty}}}
	if err := CheckDeps(emptyEnv); !errors.Is(err, ErrMissingDeps) {
		t.Errorf("empty file: err = %v, want ErrMissingDeps", err)
	}
}

func TestRun_MissingDepsStopsBeforeCommands(t *testing.T) {
	m := testManifest(t, `
environments:
  test:
    deps: ["-r requirements.txt"]
    commands: [cmd-test]
`)
	stub := testutil.NewStubRunner()
	ex := New(m, Options{Runner: stub})

	err := ex.Run(context.Background(), []string{"test"}, false)
	if !errors.Is(err, ErrMissingDeps) {
		t.Fatalf("err = %v, want ErrMissingDeps", err)
	}
	if len(stub.Calls()) != 0 {
		t.Error("commands ran despite missing deps")
	}
}

func TestRun_InstallsDeps(t *testing.T) {
	m := testManifest(t, `
environments:
  test:
    deps: ["-r requirements.txt", "extra-package"]
    commands: [cmd-test]
`)
	reqs := filepath.Join(m.Dir, "requirements.txt")
	if err := os.WriteFile(reqs, []byte("some-package\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	stub := testutil.NewStubRunner()
	stub.SucceedAll()

	ex := New(m, Options{Runner: stub, Installer: "installer"})
	if err := ex.Run(context.Background(), []string{"test"}, false); err != nil {
		t.Fatal(err)
	}

	calls := stub.Calls()
	if len(calls) != 2 {
		t.Fatalf("calls = %v, want install then command", calls)
	}
	install := calls[0]
	if !strings.HasPrefix(install, "installer --target ") {
		t.Errorf("install command = %q", install)
	}
	if !strings.Contains(install, ex.EnvDir("test")) {
		t.Errorf("install command %q missing env dir", install)
	}
	if !strings.Contains(install, "-r "+reqs) || !strings.Contains(install, "extra-package") {
		t.Errorf("install command %q missing dep sources", install)
	}
	if calls[1] != "cmd-test" {
		t.Errorf("second call = %q", calls[1])
	}
}

func TestRun_SkipInstall(t *testing.T) {
	m := testManifest(t, `
environments:
  test:
    deps: ["-r requirements.txt"]
    commands: [cmd-test]
`)
	reqs := filepath.Join(m.Dir, "requirements.txt")
	if err := os.WriteFile(reqs, []byte("some-package\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	stub := testutil.NewStubRunner()
	stub.SucceedAll()

	ex := New(m, Options{Runner: stub, SkipInstall: true})
	if err := ex.Run(context.Background(), []string{"test"}, false); err != nil {
		t.Fatal(err)
	}
	if calls := stub.Calls(); len(calls) != 1 || calls[0] != "cmd-test" {
		t.Errorf("calls = %v, want only cmd-test", calls)
	}
}

// captureRunner records the environment each command ran with.
type captureRunner struct {
	mu   sync.Mutex
	envs map[string][]string
}

func (c *captureRunner) Run(ctx context.Context, dir string, env []string, command string) (string, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.envs == nil {
		c.envs = map[string][]string{}
	}
	c.envs[command] = env
	return "", "", nil
}

func TestRun_PassesFilteredEnviron(t *testing.T) {
	m := testManifest(t, `
environments:
  test:
    passenv: ["CI", "CODECOV_*"]
    commands: [cmd-test]
`)
	capture := &captureRunner{}
	ambient := []string{
		"PATH=/usr/bin",
		"CI=true",
		"CODECOV_TOKEN=tok",
		"SECRET=nope",
	}

	ex := New(m, Options{Runner: capture, Environ: ambient})
	if err := ex.Run(context.Background(), []string{"test"}, false); err != nil {
		t.Fatal(err)
	}

	env := capture.envs["cmd-test"]
	joined := strings.Join(env, "\n")
	for _, want := range []string{"PATH=/usr/bin", "CI=true", "CODECOV_TOKEN=tok"} {
		if !strings.Contains(joined, want) {
			t.Errorf("environment missing %q: %v", want, env)
		}
	}
	if strings.Contains(joined, "SECRET=") {
		t.Errorf("environment leaked SECRET: %v", env)
	}
}
