// Package ffmpeg wraps the external audio tool used for assembly: raw-stream
// concatenation of ordered fragments and a single container conversion pass.
// The tool is injected as a capability so the pipeline can be tested without
// spawning processes.
package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrNoOutput indicates the tool exited successfully but produced no
// output file.
var ErrNoOutput = errors.New("audio tool produced no output")

// AssemblyError is a failed external tool invocation. It is fatal and
// carries the captured tool output for diagnostics.
type AssemblyError struct {
	Op     string // "concatenate" or "convert"
	Output string
	Err    error
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("%s failed: %v: %s", e.Op, e.Err, strings.TrimSpace(e.Output))
}

func (e *AssemblyError) Unwrap() error {
	return e.Err
}

// Tool is the audio tool capability consumed by the assembler.
type Tool interface {
	// Concatenate joins the ordered input files into output as raw
	// streams, without re-encoding.
	Concatenate(ctx context.Context, inputs []string, output string) error

	// Convert transcodes input to the target container extension and
	// returns the produced path. When the input already has the target
	// extension no work is done and the input path is returned.
	Convert(ctx context.Context, input, targetExt string) (string, error)
}

// commandRunner abstracts process execution for testing.
type commandRunner interface {
	CombinedOutput(ctx context.Context, name string, args []string) ([]byte, error)
}

type osCommandRunner struct{}

func (osCommandRunner) CombinedOutput(ctx context.Context, name string, args []string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// FFmpeg implements Tool by invoking the ffmpeg binary.
type FFmpeg struct {
	bin string
	cmd commandRunner
}

// Option configures an FFmpeg tool.
type Option func(*FFmpeg)

// WithCommandRunner replaces process execution, for tests.
func WithCommandRunner(r commandRunner) Option {
	return func(f *FFmpeg) {
		f.cmd = r
	}
}

// New creates an FFmpeg tool using the given binary path.
func New(bin string, opts ...Option) *FFmpeg {
	f := &FFmpeg{bin: bin, cmd: osCommandRunner{}}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Concatenate joins fragments with the concat protocol and stream copy.
// Fragment order in inputs is the assembly order.
func (f *FFmpeg) Concatenate(ctx context.Context, inputs []string, output string) error {
	args := []string{
		"-y",
		"-i", "concat:" + strings.Join(inputs, "|"),
		"-c", "copy",
		output,
	}
	out, err := f.cmd.CombinedOutput(ctx, f.bin, args)
	if err != nil {
		return &AssemblyError{Op: "concatenate", Output: string(out), Err: err}
	}
	if _, err := os.Stat(output); err != nil {
		return &AssemblyError{Op: "concatenate", Output: string(out), Err: ErrNoOutput}
	}
	return nil
}

// Convert transcodes input to the target container. Matching extensions are
// a no-op: the input is already the requested artifact.
func (f *FFmpeg) Convert(ctx context.Context, input, targetExt string) (string, error) {
	targetExt = strings.TrimPrefix(targetExt, ".")
	if strings.TrimPrefix(filepath.Ext(input), ".") == targetExt {
		return input, nil
	}

	output := strings.TrimSuffix(input, filepath.Ext(input)) + "." + targetExt
	out, err := f.cmd.CombinedOutput(ctx, f.bin, []string{"-y", "-i", input, output})
	if err != nil {
		return "", &AssemblyError{Op: "convert", Output: string(out), Err: err}
	}
	if _, err := os.Stat(output); err != nil {
		return "", &AssemblyError{Op: "convert", Output: string(out), Err: ErrNoOutput}
	}
	return output, nil
}
