package synth

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/ahouse2/co-counsel-nexus-sub001/internal/core"
	"github.com/ahouse2/co-counsel-nexus-sub001/internal/logging"
)

// CLISynthesizer implements core.TextSynthesizer by shelling out to an
// external CLI tool. The prompt is passed on stdin and the tool's stdout
// is returned verbatim.
type CLISynthesizer struct {
	command string
	args    []string
	timeout time.Duration
	logger  *logging.Logger
}

// NewCLISynthesizer creates a synthesizer backed by the given command.
func NewCLISynthesizer(command string, args []string, timeout time.Duration, logger *logging.Logger) (*CLISynthesizer, error) {
	if command == "" {
		return nil, core.ErrValidation(core.CodeInvalidConfig, "synthesizer command not configured")
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &CLISynthesizer{
		command: command,
		args:    args,
		timeout: timeout,
		logger:  logger.With("adapter", "synth"),
	}, nil
}

// Available reports whether the configured command can be found on PATH.
func (s *CLISynthesizer) Available() bool {
	name := s.command
	if parts := strings.Fields(name); len(parts) > 0 {
		name = parts[0]
	}
	_, err := exec.LookPath(name)
	return err == nil
}

// Synthesize runs the CLI with the prompt on stdin and returns its stdout.
func (s *CLISynthesizer) Synthesize(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cmdPath := s.command
	args := s.args
	// Handle multi-word commands (e.g. "gh copilot").
	if parts := strings.Fields(cmdPath); len(parts) > 1 {
		cmdPath = parts[0]
		args = append(append([]string{}, parts[1:]...), args...)
	}

	// #nosec G204 -- command path and args come from validated config
	cmd := exec.CommandContext(ctx, cmdPath, args...)
	cmd.Stdin = strings.NewReader(prompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Env = append(os.Environ(), "NEXUS_MANAGED=true")

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", core.ErrConsensusParse("synthesizer timed out").
				WithCause(ctx.Err()).
				WithDetail("timeout", s.timeout.String())
		}
		s.logger.Warn("synthesizer command failed",
			"command", s.command,
			"duration", duration.String(),
			"stderr", s.logger.Sanitize(truncate(stderr.String(), 512)))
		return "", core.ErrConsensusParse("synthesizer command failed").
			WithCause(err).
			WithDetail("stderr", truncate(stderr.String(), 512))
	}

	out := strings.TrimSpace(stdout.String())
	if out == "" {
		return "", core.ErrConsensusParse("synthesizer produced no output")
	}

	s.logger.Debug("synthesis complete",
		"duration", duration.String(),
		"output_bytes", len(out))
	return out, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return fmt.Sprintf("%s... (%d bytes total)", s[:max], len(s))
}
