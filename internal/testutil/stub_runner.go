// Package testutil provides shared test helpers.
package testutil

import (
	"context"
	"fmt"
	"sync"
)

// StubRunner is a CommandRunner stand-in for tests. Responses are stubbed
// per command string and consumed in order; unstubbed commands fail the
// call unless a default is registered.
type StubRunner struct {
	mu       sync.Mutex
	stubs    map[string][]stubResponse
	defaults map[string]stubResponse
	fallback *stubResponse
	calls    []string
}

type stubResponse struct {
	stdout string
	stderr string
	err    error
}

func NewStubRunner() *StubRunner {
	return &StubRunner{
		stubs:    make(map[string][]stubResponse),
		defaults: make(map[string]stubResponse),
	}
}

// Stub queues one response for the exact command string.
func (s *StubRunner) Stub(command, stdout, stderr string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stubs[command] = append(s.stubs[command], stubResponse{stdout: stdout, stderr: stderr, err: err})
}

// StubDefault registers a response returned whenever the command's queue
// is empty.
func (s *StubRunner) StubDefault(command, stdout, stderr string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaults[command] = stubResponse{stdout: stdout, stderr: stderr, err: err}
}

// SucceedAll makes every command succeed unless specifically stubbed.
func (s *StubRunner) SucceedAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fallback = &stubResponse{}
}

func (s *StubRunner) Run(ctx context.Context, dir string, env []string, command string) (string, string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, command)
	queue := s.stubs[command]
	if len(queue) == 0 {
		if resp, ok := s.defaults[command]; ok {
			s.mu.Unlock()
			return resp.stdout, resp.stderr, resp.err
		}
		if s.fallback != nil {
			resp := *s.fallback
			s.mu.Unlock()
			return resp.stdout, resp.stderr, resp.err
		}
		s.mu.Unlock()
		return "", "", fmt.Errorf("unexpected command: %s", command)
	}
	resp := queue[0]
	s.stubs[command] = queue[1:]
	s.mu.Unlock()
	return resp.stdout, resp.stderr, resp.err
}

// Calls returns the commands run so far, in order.
func (s *StubRunner) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallsFor counts how many times the exact command was run.
func (s *StubRunner) CallsFor(command string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, call := range s.calls {
		if call == command {
			count++
		}
	}
	return count
}
