package swarmexec

import (
	"context"
	"testing"
	"time"

	"github.com/ahouse2/co-counsel-nexus-sub001/internal/core"
	"github.com/ahouse2/co-counsel-nexus-sub001/internal/logging"
)

func TestInvokeParsesOutputs(t *testing.T) {
	// Drain stdin, then emit two agent outputs.
	script := `cat >/dev/null; echo '[{"agent_name":"alpha","output":{"decision":"pursue"},"confidence":0.9},{"agent_name":"beta","output":{"decision":"pursue"},"confidence":1.7}]'`
	inv, err := NewInvoker("research", "sh", []string{"-c", script}, 5*time.Second, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	outputs, err := inv.Invoke(context.Background(), "case-1", map[string]any{"k": "v"})
	if err != nil {
		t.Fatalf("Invoke() error: %v", err)
	}
	if len(outputs) != 2 {
		t.Fatalf("got %d outputs, want 2", len(outputs))
	}
	if outputs[0].AgentName != "alpha" {
		t.Errorf("agent = %q", outputs[0].AgentName)
	}
	if outputs[1].Confidence != 1.0 {
		t.Errorf("confidence not clamped: %v", outputs[1].Confidence)
	}
}

func TestInvokeReceivesInvocationOnStdin(t *testing.T) {
	// Echo the stdin back as a single output keyed by the target field.
	script := `payload=$(cat); printf '[{"agent_name":"echo","output":%s,"confidence":1}]' "$payload"`
	inv, err := NewInvoker("research", "sh", []string{"-c", script}, 5*time.Second, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	outputs, err := inv.Invoke(context.Background(), "case-7", nil)
	if err != nil {
		t.Fatalf("Invoke() error: %v", err)
	}
	got, ok := outputs[0].Output.(map[string]any)
	if !ok {
		t.Fatalf("output shape: %#v", outputs[0].Output)
	}
	if got["target"] != "case-7" || got["swarm"] != "research" {
		t.Errorf("invocation envelope = %v", got)
	}
}

func TestInvokeCommandFailure(t *testing.T) {
	inv, err := NewInvoker("research", "false", nil, 5*time.Second, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	_, err = inv.Invoke(context.Background(), "case-1", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !core.IsCategory(err, core.ErrCatStage) {
		t.Errorf("category = %v, want stage", core.GetCategory(err))
	}
}

func TestInvokeMalformedOutput(t *testing.T) {
	inv, err := NewInvoker("research", "sh", []string{"-c", "cat >/dev/null; echo not-json"}, 5*time.Second, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	_, err = inv.Invoke(context.Background(), "case-1", nil)
	if err == nil {
		t.Fatal("expected error for malformed output")
	}
}

func TestInvokeTimeout(t *testing.T) {
	inv, err := NewInvoker("research", "sleep", []string{"5"}, 100*time.Millisecond, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	start := time.Now()
	_, err = inv.Invoke(context.Background(), "case-1", nil)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > 2*time.Second {
		t.Error("timeout not enforced")
	}
}

func TestNewInvokerValidation(t *testing.T) {
	if _, err := NewInvoker("", "cmd", nil, 0, nil); err == nil {
		t.Error("expected error for empty name")
	}
	if _, err := NewInvoker("research", "", nil, 0, nil); err == nil {
		t.Error("expected error for empty command")
	}
}

func TestInertInvoker(t *testing.T) {
	inv := Inert("forensic")
	if inv.Name() != "forensic" {
		t.Errorf("name = %q", inv.Name())
	}
	outputs, err := inv.Invoke(context.Background(), "case-1", nil)
	if err != nil || outputs != nil {
		t.Errorf("inert invoker: outputs=%v err=%v", outputs, err)
	}
}
