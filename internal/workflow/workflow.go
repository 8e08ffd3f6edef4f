// Package workflow is the in-memory CRUD-over-a-DAG registry of spec.md
// §3.1 WorkflowState, grounded on clanker's
// internal/agent/coordinator/state.go SharedDataBus/AgentRegistry idiom: a
// small mutex-guarded struct with Register/Mark*/snapshot methods, adapted
// here from AWS-health agent bookkeeping to dependency-gated named steps.
package workflow

import (
	"time"

	"github.com/google/uuid"

	"github.com/quiltdata/quilt-mcp-server/internal/apperr"
)

type Status string

const (
	Created    Status = "created"
	InProgress Status = "in_progress"
	Completed  Status = "completed"
	Failed     Status = "failed"
	Cancelled  Status = "cancelled"
)

type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in_progress"
	StepCompleted  StepStatus = "completed"
	StepFailed     StepStatus = "failed"
	StepSkipped    StepStatus = "skipped"
)

// StepDef is the caller-supplied shape of one step at creation time.
type StepDef struct {
	ID           string
	Dependencies []string
}

// StepState is one step's live state, per spec.md §3.1.
type StepState struct {
	ID           string
	Status       StepStatus
	Dependencies []string
	Result       any
	Error        string
}

// State is one workflow's live state, per spec.md §3.1.
type State struct {
	ID        string
	Name      string
	Status    Status
	Steps     []*StepState
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s *State) step(stepID string) (*StepState, bool) {
	for _, st := range s.Steps {
		if st.ID == stepID {
			return st, true
		}
	}
	return nil, false
}

// dependenciesComplete implements spec.md §3.1's "a step becomes eligible
// only when all dependencies are completed", mirroring
// coordinator.SharedDataBus.HasAll's all-keys-present check.
func (s *State) dependenciesComplete(step *StepState) bool {
	for _, dep := range step.Dependencies {
		depStep, ok := s.step(dep)
		if !ok || depStep.Status != StepCompleted {
			return false
		}
	}
	return true
}

// recomputeStatus derives the workflow's aggregate status from its steps:
// Failed as soon as any step is Failed, Completed iff every step is
// Completed, InProgress once any step is in progress or completed; with
// none of these the status is left as it was (spec.md §3.1).
func (s *State) recomputeStatus() {
	if s.Status == Cancelled {
		return
	}
	allCompleted := true
	for _, st := range s.Steps {
		if st.Status == StepFailed {
			s.Status = Failed
			return
		}
		if st.Status != StepCompleted {
			allCompleted = false
		}
	}
	if allCompleted {
		s.Status = Completed
		return
	}
	for _, st := range s.Steps {
		if st.Status == StepInProgress || st.Status == StepCompleted {
			s.Status = InProgress
			return
		}
	}
}

// Registry is the process-wide, concurrency-guarded workflow store of
// spec.md §3.2 / §5's "single concurrent map... state transitions are
// serialized per workflow id". A single mutex over the whole map is a
// coarser but simpler serialization than per-id locks, matching the
// granularity clanker's own AgentRegistry uses for its stats.
type Registry struct {
	mu        chan struct{} // 1-buffered, used as a mutex
	workflows map[string]*State
}

func NewRegistry() *Registry {
	r := &Registry{mu: make(chan struct{}, 1), workflows: make(map[string]*State)}
	r.mu <- struct{}{}
	return r
}

func (r *Registry) lock()   { <-r.mu }
func (r *Registry) unlock() { r.mu <- struct{}{} }

// Create registers a new workflow in the Created state with all steps Pending.
func (r *Registry) Create(name string, steps []StepDef) *State {
	stepStates := make([]*StepState, 0, len(steps))
	for _, def := range steps {
		stepStates = append(stepStates, &StepState{ID: def.ID, Status: StepPending, Dependencies: def.Dependencies})
	}

	state := &State{
		ID:        uuid.NewString(),
		Name:      name,
		Status:    Created,
		Steps:     stepStates,
		CreatedAt: nowFunc(),
		UpdatedAt: nowFunc(),
	}

	r.lock()
	defer r.unlock()
	r.workflows[state.ID] = state
	return state
}

func (r *Registry) Get(id string) (*State, bool) {
	r.lock()
	defer r.unlock()
	state, ok := r.workflows[id]
	return state, ok
}

func (r *Registry) List() []*State {
	r.lock()
	defer r.unlock()
	out := make([]*State, 0, len(r.workflows))
	for _, s := range r.workflows {
		out = append(out, s)
	}
	return out
}

// StartStep transitions stepID to InProgress, enforcing the
// dependencies-completed eligibility invariant.
func (r *Registry) StartStep(workflowID, stepID string) error {
	r.lock()
	defer r.unlock()

	state, step, err := r.lookup(workflowID, stepID)
	if err != nil {
		return err
	}
	if !state.dependenciesComplete(step) {
		return apperr.New(apperr.Conflict, "step has incomplete dependencies").With("step", stepID)
	}
	step.Status = StepInProgress
	if state.Status != Cancelled {
		state.Status = InProgress
	}
	state.UpdatedAt = nowFunc()
	return nil
}

func (r *Registry) CompleteStep(workflowID, stepID string, result any) error {
	r.lock()
	defer r.unlock()

	state, step, err := r.lookup(workflowID, stepID)
	if err != nil {
		return err
	}
	step.Status = StepCompleted
	step.Result = result
	state.recomputeStatus()
	state.UpdatedAt = nowFunc()
	return nil
}

func (r *Registry) FailStep(workflowID, stepID, errMessage string) error {
	r.lock()
	defer r.unlock()

	state, step, err := r.lookup(workflowID, stepID)
	if err != nil {
		return err
	}
	step.Status = StepFailed
	step.Error = errMessage
	state.recomputeStatus()
	state.UpdatedAt = nowFunc()
	return nil
}

func (r *Registry) SkipStep(workflowID, stepID string) error {
	r.lock()
	defer r.unlock()

	state, step, err := r.lookup(workflowID, stepID)
	if err != nil {
		return err
	}
	step.Status = StepSkipped
	state.recomputeStatus()
	state.UpdatedAt = nowFunc()
	return nil
}

func (r *Registry) Cancel(workflowID string) error {
	r.lock()
	defer r.unlock()

	state, ok := r.workflows[workflowID]
	if !ok {
		return apperr.New(apperr.NotFound, "workflow not found").With("workflow_id", workflowID)
	}
	state.Status = Cancelled
	state.UpdatedAt = nowFunc()
	return nil
}

func (r *Registry) lookup(workflowID, stepID string) (*State, *StepState, error) {
	state, ok := r.workflows[workflowID]
	if !ok {
		return nil, nil, apperr.New(apperr.NotFound, "workflow not found").With("workflow_id", workflowID)
	}
	step, ok := state.step(stepID)
	if !ok {
		return nil, nil, apperr.New(apperr.NotFound, "step not found").With("step_id", stepID)
	}
	return state, step, nil
}

// nowFunc is indirected so tests can stub it without touching wall time.
var nowFunc = time.Now
