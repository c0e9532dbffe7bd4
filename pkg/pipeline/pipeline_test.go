package pipeline

import (
	"strings"
	"testing"

	"github.com/blobcache/imgcache/pkg/ixerr"
)

func TestRunSingleStage(t *testing.T) {
	out, err := Run([]byte("hello"), Command{Prog: "cat"})
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "hello" {
		t.Errorf("got %q, want %q", out, "hello")
	}
}

func TestRunChainsStdoutToStdin(t *testing.T) {
	p := New(
		Command{Prog: "cat"},
		Command{Prog: "tr", Args: []string{"a-z", "A-Z"}},
	)
	out, err := p.Run([]byte("hello"))
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "HELLO" {
		t.Errorf("got %q, want %q", out, "HELLO")
	}
}

func TestRunEmptyPipelineIsIdentity(t *testing.T) {
	p := New()
	out, err := p.Run([]byte("x"))
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "x" {
		t.Errorf("got %q, want %q", out, "x")
	}
}

func TestRunNonZeroExitIsCommandError(t *testing.T) {
	_, err := Run(nil, Command{Prog: "false"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !ixerr.Is(err, ixerr.KindCommand) {
		t.Errorf("expected KindCommand, got %v", err)
	}
}

func TestRunDecoratesWithStderrAndInput(t *testing.T) {
	_, err := Run([]byte("some input"), Command{Prog: "sh", Args: []string{"-c", "echo oops >&2; exit 1"}})
	if err == nil {
		t.Fatal("expected error")
	}
	chain := ixerr.Chain(err)
	if !strings.Contains(chain, "oops") {
		t.Errorf("expected stderr in chain, got %q", chain)
	}
	if !strings.Contains(chain, "some input") {
		t.Errorf("expected input in chain, got %q", chain)
	}
}

func TestCanChain(t *testing.T) {
	a := Pipeline{Dir: "/tmp"}
	b := Pipeline{Dir: "/tmp"}
	if !CanChain(a, b) {
		t.Error("expected pipelines with same Dir/Env to be chainable")
	}
	c := Pipeline{Dir: "/var"}
	if CanChain(a, c) {
		t.Error("expected pipelines with different Dir to not be chainable")
	}
}
