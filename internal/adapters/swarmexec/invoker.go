// Package swarmexec adapts external commands as swarm invokers. The
// command receives the invocation as JSON on stdin and prints a JSON
// array of agent outputs on stdout.
package swarmexec

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/ahouse2/co-counsel-nexus-sub001/internal/core"
	"github.com/ahouse2/co-counsel-nexus-sub001/internal/logging"
)

// Invoker implements core.SwarmInvoker by shelling out.
type Invoker struct {
	name    string
	command string
	args    []string
	timeout time.Duration
	logger  *logging.Logger
}

// NewInvoker creates an exec-backed invoker for the named swarm.
func NewInvoker(name, command string, args []string, timeout time.Duration, logger *logging.Logger) (*Invoker, error) {
	if name == "" {
		return nil, core.ErrValidation(core.CodeInvalidConfig, "swarm name must not be empty")
	}
	if command == "" {
		return nil, core.ErrValidation(core.CodeInvalidConfig, "swarm command must not be empty")
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Invoker{
		name:    name,
		command: command,
		args:    args,
		timeout: timeout,
		logger:  logger.WithSwarm(name),
	}, nil
}

// Name returns the swarm name.
func (i *Invoker) Name() string { return i.name }

type invocation struct {
	Swarm   string         `json:"swarm"`
	Target  string         `json:"target"`
	Context map[string]any `json:"context"`
}

// Invoke runs the configured command and parses its agent outputs.
func (i *Invoker) Invoke(ctx context.Context, target string, contextBag map[string]any) ([]core.AgentOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	stdin, err := json.Marshal(invocation{Swarm: i.name, Target: target, Context: contextBag})
	if err != nil {
		return nil, core.ErrStage(i.name, "encoding invocation").WithCause(err)
	}

	cmdPath := i.command
	args := i.args
	if parts := strings.Fields(cmdPath); len(parts) > 1 {
		cmdPath = parts[0]
		args = append(append([]string{}, parts[1:]...), args...)
	}

	// #nosec G204 -- command path and args come from validated config
	cmd := exec.CommandContext(ctx, cmdPath, args...)
	cmd.Stdin = bytes.NewReader(stdin)
	cmd.Env = append(os.Environ(), "NEXUS_MANAGED=true", "NEXUS_SWARM="+i.name)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		i.logger.Warn("swarm command failed",
			"duration", time.Since(start).String(),
			"stderr", i.logger.Sanitize(truncate(stderr.String(), 512)))
		return nil, core.ErrStage(i.name, "swarm command failed").WithCause(err)
	}

	var outputs []core.AgentOutput
	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &outputs); err != nil {
		return nil, core.ErrStage(i.name, "decoding agent outputs").WithCause(err)
	}
	for idx := range outputs {
		outputs[idx].Confidence = core.ClampConfidence(outputs[idx].Confidence)
	}

	i.logger.Debug("swarm invocation complete",
		"duration", time.Since(start).String(),
		"outputs", len(outputs))
	return outputs, nil
}

// Inert returns a registered-but-idle invoker producing no outputs.
// Used for swarms declared in the pipeline but not wired to a command.
func Inert(name string) core.SwarmInvoker {
	return core.SwarmInvokerFunc{
		SwarmName: name,
		Fn: func(context.Context, string, map[string]any) ([]core.AgentOutput, error) {
			return nil, nil
		},
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
