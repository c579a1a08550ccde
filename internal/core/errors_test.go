package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainErrorMessage(t *testing.T) {
	err := ErrStage("legal_research", "invoker failed")
	got := err.Error()
	want := "[stage] STAGE_FAILED: invoker failed"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	withCause := ErrStage("legal_research", "invoker failed").WithCause(errors.New("boom"))
	if withCause.Error() != want+" (boom)" {
		t.Errorf("Error() with cause = %q", withCause.Error())
	}
}

func TestDomainErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := ErrProvider(SectionEntities, cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should see through to the cause")
	}

	wrapped := fmt.Errorf("outer: %w", err)
	var domErr *DomainError
	if !errors.As(wrapped, &domErr) {
		t.Fatal("errors.As failed on wrapped domain error")
	}
	if domErr.Category != ErrCatProvider {
		t.Errorf("category = %v", domErr.Category)
	}
}

func TestGetCategory(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{"handler error", ErrHandler("graph_updated", "failed"), ErrCatHandler},
		{"delivery error", ErrDelivery("ghost"), ErrCatDelivery},
		{"store error", ErrStore(errors.New("disk full")), ErrCatStore},
		{"store read error", ErrStoreRead(errors.New("locked")), ErrCatStore},
		{"validation error", ErrValidation(CodeEmptyCaseID, "missing"), ErrCatValidation},
		{"wrapped domain error", fmt.Errorf("ctx: %w", ErrConsensusParse("garbage")), ErrCatConsensusParse},
		{"plain error", errors.New("anything"), ErrCatInternal},
		{"nil-ish unknown", fmt.Errorf("untyped"), ErrCatInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCategory(tt.err); got != tt.want {
				t.Errorf("GetCategory() = %v, want %v", got, tt.want)
			}
			if !IsCategory(tt.err, tt.want) {
				t.Errorf("IsCategory(%v) = false", tt.want)
			}
		})
	}
}

func TestWithDetailCopies(t *testing.T) {
	err := ErrDelivery("ghost").WithDetail("attempt", 2)
	if err.Details["attempt"] != 2 {
		t.Errorf("details = %v", err.Details)
	}
	if err.Details["to_swarm"] != "ghost" {
		t.Errorf("constructor detail lost: %v", err.Details)
	}
}

func TestDomainErrorIs(t *testing.T) {
	a := ErrDelivery("ghost")
	b := ErrDelivery("other")
	if !errors.Is(a, b) {
		t.Error("same category+code should match")
	}
	if errors.Is(a, ErrConsensusParse("x")) {
		t.Error("different category should not match")
	}
}
