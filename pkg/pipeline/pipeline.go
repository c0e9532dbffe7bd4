// Package pipeline runs chains of external commands, piping one stage's
// stdout into the next stage's stdin (spec §4.F). Grounded on
// pkg/video/thumbnail/thumbnailer.go's buildCmd (one exec.Cmd per stage,
// with an io.Writer wired as Stdout) and the cleanup discipline of
// pkg/blobserver/localdisk/receive.go (decorate errors with enough context
// to diagnose a failed external tool without re-running it).
package pipeline

import (
	"bytes"
	"os/exec"
	"strings"

	"github.com/blobcache/imgcache/pkg/ixerr"
)

// Command describes a single external-process stage: a program and its
// arguments. It carries no environment or working-directory overrides of
// its own; a Pipeline applies the same Dir/Env to every stage it runs, per
// spec §4.F's composition rule that two stages may only be chained when
// their ambient execution context (working dir, environment, open fds,
// process group) agrees.
type Command struct {
	Prog string
	Args []string
}

// Repr is a short diagnostic representation of the command, used in error
// messages and as filecache.Source's Cmd field. It is not meant to be
// shell-safe or re-executable.
func (c Command) Repr() string {
	return strings.Join(append([]string{c.Prog}, c.Args...), " ")
}

// Pipeline is an ordered chain of stages executed with the first stage
// reading from the caller-supplied input and each subsequent stage reading
// the previous stage's stdout.
type Pipeline struct {
	Stages []Command
	Dir    string
	Env    []string // nil means inherit the current process's environment
}

// New returns a Pipeline of the given stages with no Dir/Env override.
func New(stages ...Command) Pipeline {
	return Pipeline{Stages: stages}
}

// Run executes cmd alone with input as stdin and returns its stdout. It is
// the single-stage convenience used by pkg/filecache.FromCommand.
func Run(input []byte, cmd Command) ([]byte, error) {
	return New(cmd).Run(input)
}

// Run executes the pipeline's stages in order, feeding input to the first
// stage and returning the last stage's stdout. On a non-zero exit from any
// stage, it returns an ixerr Command error decorated with that stage's
// stderr and the bytes that were fed to it.
func (p Pipeline) Run(input []byte) ([]byte, error) {
	if len(p.Stages) == 0 {
		return input, nil
	}
	cur := input
	for _, stage := range p.Stages {
		out, err := p.runOne(stage, cur)
		if err != nil {
			return nil, err
		}
		cur = out
	}
	return cur, nil
}

func (p Pipeline) runOne(stage Command, input []byte) ([]byte, error) {
	cmd := exec.Command(stage.Prog, stage.Args...)
	cmd.Dir = p.Dir
	cmd.Env = p.Env
	cmd.Stdin = bytes.NewReader(input)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runErr == nil {
		return stdout.Bytes(), nil
	}

	exitRepr := runErr.Error()
	if ee, ok := runErr.(*exec.ExitError); ok {
		exitRepr = ee.String()
	}
	cmdErr := ixerr.Command(stage.Repr(), exitRepr)
	cmdErr = ixerr.WithStderr(stderr.Bytes(), cmdErr)
	cmdErr = ixerr.WithInput(input, cmdErr)
	return nil, cmdErr
}

// CanChain reports whether two pipelines may be concatenated into one
// process chain without an intermediate round-trip through this process:
// they must agree on working directory and environment (spec §4.F).
// Pipelines built by this package never set extra open files or process
// groups, so those aspects of the spec's equality check are always equal
// here and are not compared.
func CanChain(a, b Pipeline) bool {
	if a.Dir != b.Dir {
		return false
	}
	return envEqual(a.Env, b.Env)
}

func envEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
