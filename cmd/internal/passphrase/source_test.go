package passphrase

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func testSource(env map[string]string, terminal bool, typed string, readErr error) *Source {
	s := NewSource("TEST_PASS", "wallet keystore")
	s.lookupEnv = func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	s.isTerminal = func() bool { return terminal }
	s.read = func() ([]byte, error) { return []byte(typed), readErr }
	s.prompt = io.Discard
	return s
}

func TestSourcePrefersEnvironment(t *testing.T) {
	s := testSource(map[string]string{"TEST_PASS": "hunter2"}, true, "typed", nil)
	got, err := s.Get()
	if err != nil || got != "hunter2" {
		t.Fatalf("got %q err %v", got, err)
	}
}

func TestSourceRejectsEmptyEnvironment(t *testing.T) {
	s := testSource(map[string]string{"TEST_PASS": "  "}, true, "typed", nil)
	if _, err := s.Get(); err == nil || !strings.Contains(err.Error(), "set but empty") {
		t.Fatalf("expected empty env error, got %v", err)
	}
}

func TestSourcePromptsOnTerminal(t *testing.T) {
	s := testSource(nil, true, "typed", nil)
	got, err := s.Get()
	if err != nil || got != "typed" {
		t.Fatalf("got %q err %v", got, err)
	}
	s.read = func() ([]byte, error) { return []byte("other"), nil }
	if again, _ := s.Get(); again != "typed" {
		t.Fatalf("passphrase not cached: %q", again)
	}
}

func TestSourceFailures(t *testing.T) {
	if _, err := testSource(nil, false, "", nil).Get(); err == nil || !strings.Contains(err.Error(), "TEST_PASS") {
		t.Fatalf("expected non-interactive error, got %v", err)
	}
	if _, err := testSource(nil, true, " ", nil).Get(); err == nil {
		t.Fatalf("expected empty prompt error")
	}
	boom := errors.New("boom")
	if _, err := testSource(nil, true, "", boom).Get(); !errors.Is(err, boom) {
		t.Fatalf("expected read error, got %v", err)
	}
}
