package workflow

import "testing"

func TestCreateStartsAllStepsPending(t *testing.T) {
	r := NewRegistry()
	state := r.Create("ingest", []StepDef{{ID: "fetch"}, {ID: "load", Dependencies: []string{"fetch"}}})
	if state.Status != Created {
		t.Errorf("status = %v, want created", state.Status)
	}
	for _, s := range state.Steps {
		if s.Status != StepPending {
			t.Errorf("step %s status = %v, want pending", s.ID, s.Status)
		}
	}
}

func TestStartStepBlockedByIncompleteDependency(t *testing.T) {
	r := NewRegistry()
	state := r.Create("ingest", []StepDef{{ID: "fetch"}, {ID: "load", Dependencies: []string{"fetch"}}})

	if err := r.StartStep(state.ID, "load"); err == nil {
		t.Fatal("expected starting a gated step to fail")
	}
}

func TestStartStepEligibleAfterDependencyCompletes(t *testing.T) {
	r := NewRegistry()
	state := r.Create("ingest", []StepDef{{ID: "fetch"}, {ID: "load", Dependencies: []string{"fetch"}}})

	if err := r.StartStep(state.ID, "fetch"); err != nil {
		t.Fatalf("StartStep(fetch): %v", err)
	}
	if err := r.CompleteStep(state.ID, "fetch", nil); err != nil {
		t.Fatalf("CompleteStep(fetch): %v", err)
	}
	if err := r.StartStep(state.ID, "load"); err != nil {
		t.Fatalf("StartStep(load) after dependency completed: %v", err)
	}
}

func TestWorkflowCompletesWhenAllStepsComplete(t *testing.T) {
	r := NewRegistry()
	state := r.Create("single", []StepDef{{ID: "only"}})

	r.StartStep(state.ID, "only")
	r.CompleteStep(state.ID, "only", "done")

	got, _ := r.Get(state.ID)
	if got.Status != Completed {
		t.Errorf("status = %v, want completed", got.Status)
	}
}

func TestWorkflowFailsAsSoonAsAnyStepFails(t *testing.T) {
	r := NewRegistry()
	state := r.Create("two-step", []StepDef{{ID: "a"}, {ID: "b"}})

	r.StartStep(state.ID, "a")
	r.FailStep(state.ID, "a", "boom")

	got, _ := r.Get(state.ID)
	if got.Status != Failed {
		t.Errorf("status = %v, want failed", got.Status)
	}
}

func TestUnknownWorkflowOrStepIsNotFound(t *testing.T) {
	r := NewRegistry()
	if err := r.StartStep("missing-workflow", "x"); err == nil {
		t.Fatal("expected not_found for missing workflow")
	}
	state := r.Create("wf", []StepDef{{ID: "a"}})
	if err := r.StartStep(state.ID, "missing-step"); err == nil {
		t.Fatal("expected not_found for missing step")
	}
}

func TestCancelSetsCancelledAndIsSticky(t *testing.T) {
	r := NewRegistry()
	state := r.Create("wf", []StepDef{{ID: "a"}})
	if err := r.Cancel(state.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	r.StartStep(state.ID, "a")
	r.CompleteStep(state.ID, "a", nil)

	got, _ := r.Get(state.ID)
	if got.Status != Cancelled {
		t.Errorf("status = %v, want cancelled to stick even after step completion", got.Status)
	}
}
