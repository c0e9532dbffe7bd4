package ixerr

import (
	"strings"
	"testing"
)

func TestCommandError(t *testing.T) {
	err := Command("jpegtran -rotate 90", "exit status 1")
	e, ok := As(err)
	if !ok {
		t.Fatalf("As() = false, want true")
	}
	if e.Kind != KindCommand {
		t.Errorf("Kind = %v, want KindCommand", e.Kind)
	}
	if !Is(err, KindCommand) {
		t.Errorf("Is(err, KindCommand) = false")
	}
}

func TestDecoratorChain(t *testing.T) {
	base := Command("pnmscale 0.500000", "exit status 2")
	decorated := WithStderr([]byte("out of memory"), base)
	decorated = InFunction("Scaled.build", decorated)
	decorated = Described("deriving scaled image", decorated)

	chain := Chain(decorated)
	if !strings.Contains(chain, "deriving scaled image") {
		t.Errorf("chain missing outer description: %q", chain)
	}
	if !strings.Contains(chain, "Scaled.build") {
		t.Errorf("chain missing InFunction layer: %q", chain)
	}
	if !strings.Contains(chain, "out of memory") {
		t.Errorf("chain missing stderr context: %q", chain)
	}

	if !Is(decorated, KindCommand) {
		t.Errorf("Is(decorated, KindCommand) = false, want true")
	}
}

func TestWithStdoutCapsBytes(t *testing.T) {
	big := strings.Repeat("x", 5000)
	err := WithStdout([]byte(big), Caller("bad pnmfile output"))
	if len(err.Error()) > maxContextBytes+200 {
		t.Errorf("decorated error message too long: %d bytes", len(err.Error()))
	}
}

func TestCallerNeverWrapsCause(t *testing.T) {
	err := Caller("unknown conversion %s->%s", "PPM", "PPM")
	e, ok := err.(*Error)
	if !ok || e.Kind != KindCaller {
		t.Fatalf("expected an unwrapped KindCaller *Error, got %v", err)
	}
}

func TestOtherPreservesMessage(t *testing.T) {
	orig := Caller("already typed")
	if converted := Other(orig); converted != orig {
		t.Errorf("Other() should pass through an existing *Error unchanged")
	}
}
