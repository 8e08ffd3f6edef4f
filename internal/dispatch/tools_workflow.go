package dispatch

import (
	"context"

	"github.com/quiltdata/quilt-mcp-server/internal/apperr"
	"github.com/quiltdata/quilt-mcp-server/internal/workflow"
)

// registerWorkflowTools wires the in-memory workflow registry (O) of
// spec.md §3.1/§3.2. Unlike every other tool group these handlers don't
// need reqctx.State — the workflow registry is process-wide, not scoped to
// an AWS session or catalog token — but they still run through the full
// authenticate/authorize dispatch sequence.
func (r *Registry) registerWorkflowTools() {
	r.register(&Descriptor{Name: "workflow_create", Description: "Create a workflow from a list of named, dependency-gated steps.", Handler: r.handleWorkflowCreate})
	r.register(&Descriptor{Name: "workflow_get", Description: "Fetch a workflow's current state.", Handler: r.handleWorkflowGet})
	r.register(&Descriptor{Name: "workflow_list", Description: "List all known workflows.", Handler: r.handleWorkflowList})
	r.register(&Descriptor{Name: "workflow_start_step", Description: "Transition a step to in_progress, failing if its dependencies aren't complete.", Handler: r.handleWorkflowStartStep})
	r.register(&Descriptor{Name: "workflow_complete_step", Description: "Mark a step complete with an optional result payload.", Handler: r.handleWorkflowCompleteStep})
	r.register(&Descriptor{Name: "workflow_fail_step", Description: "Mark a step failed with an error message.", Handler: r.handleWorkflowFailStep})
	r.register(&Descriptor{Name: "workflow_skip_step", Description: "Mark a step skipped.", Handler: r.handleWorkflowSkipStep})
	r.register(&Descriptor{Name: "workflow_cancel", Description: "Cancel a workflow.", Handler: r.handleWorkflowCancel})
}

func stepDefs(args map[string]any) []workflow.StepDef {
	raw, _ := args["steps"].([]any)
	defs := make([]workflow.StepDef, 0, len(raw))
	for _, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		defs = append(defs, workflow.StepDef{
			ID:           stringArg(entry, "id"),
			Dependencies: stringSliceArg(entry, "dependencies"),
		})
	}
	return defs
}

func workflowPayload(state *workflow.State) map[string]any {
	steps := make([]map[string]any, 0, len(state.Steps))
	for _, s := range state.Steps {
		steps = append(steps, map[string]any{
			"id":           s.ID,
			"status":       s.Status,
			"dependencies": s.Dependencies,
			"result":       s.Result,
			"error":        s.Error,
		})
	}
	return map[string]any{
		"workflow": map[string]any{
			"id":         state.ID,
			"name":       state.Name,
			"status":     state.Status,
			"steps":      steps,
			"created_at": state.CreatedAt,
			"updated_at": state.UpdatedAt,
		},
	}
}

func (r *Registry) handleWorkflowCreate(ctx context.Context, args map[string]any) (map[string]any, error) {
	name := stringArg(args, "name")
	if name == "" {
		return nil, apperr.Validationf("name is required")
	}
	defs := stepDefs(args)
	if len(defs) == 0 {
		return nil, apperr.Validationf("steps must be a non-empty list")
	}
	state := r.workflows.Create(name, defs)
	return workflowPayload(state), nil
}

func (r *Registry) handleWorkflowGet(ctx context.Context, args map[string]any) (map[string]any, error) {
	id := stringArg(args, "workflow_id")
	state, ok := r.workflows.Get(id)
	if !ok {
		return nil, apperr.New(apperr.NotFound, "workflow not found").With("workflow_id", id)
	}
	return workflowPayload(state), nil
}

func (r *Registry) handleWorkflowList(ctx context.Context, args map[string]any) (map[string]any, error) {
	states := r.workflows.List()
	out := make([]map[string]any, 0, len(states))
	for _, s := range states {
		out = append(out, workflowPayload(s)["workflow"].(map[string]any))
	}
	return map[string]any{"workflows": out, "count": len(out)}, nil
}

func (r *Registry) handleWorkflowStartStep(ctx context.Context, args map[string]any) (map[string]any, error) {
	workflowID, stepID := stringArg(args, "workflow_id"), stringArg(args, "step_id")
	if err := r.workflows.StartStep(workflowID, stepID); err != nil {
		return nil, err
	}
	state, _ := r.workflows.Get(workflowID)
	return workflowPayload(state), nil
}

func (r *Registry) handleWorkflowCompleteStep(ctx context.Context, args map[string]any) (map[string]any, error) {
	workflowID, stepID := stringArg(args, "workflow_id"), stringArg(args, "step_id")
	if err := r.workflows.CompleteStep(workflowID, stepID, args["result"]); err != nil {
		return nil, err
	}
	state, _ := r.workflows.Get(workflowID)
	return workflowPayload(state), nil
}

func (r *Registry) handleWorkflowFailStep(ctx context.Context, args map[string]any) (map[string]any, error) {
	workflowID, stepID := stringArg(args, "workflow_id"), stringArg(args, "step_id")
	if err := r.workflows.FailStep(workflowID, stepID, stringArg(args, "error")); err != nil {
		return nil, err
	}
	state, _ := r.workflows.Get(workflowID)
	return workflowPayload(state), nil
}

func (r *Registry) handleWorkflowSkipStep(ctx context.Context, args map[string]any) (map[string]any, error) {
	workflowID, stepID := stringArg(args, "workflow_id"), stringArg(args, "step_id")
	if err := r.workflows.SkipStep(workflowID, stepID); err != nil {
		return nil, err
	}
	state, _ := r.workflows.Get(workflowID)
	return workflowPayload(state), nil
}

func (r *Registry) handleWorkflowCancel(ctx context.Context, args map[string]any) (map[string]any, error) {
	workflowID := stringArg(args, "workflow_id")
	if err := r.workflows.Cancel(workflowID); err != nil {
		return nil, err
	}
	state, _ := r.workflows.Get(workflowID)
	return workflowPayload(state), nil
}
