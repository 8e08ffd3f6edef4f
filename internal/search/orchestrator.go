package search

import "context"

// Backend is implemented by GraphQLBackend and S3Backend.
type Backend interface {
	Name() string
	Search(ctx context.Context, q Query) BackendResponse
}

// Orchestrator runs a query against each backend of the preferred list in
// turn and merges the results. A backend that errors contributes an empty
// list and reports its error in its BackendResponse; Search returns no Go
// error even when every backend errors, and the response then has no results.
type Orchestrator struct {
	backends []Backend
}

func NewOrchestrator(backends ...Backend) *Orchestrator {
	return &Orchestrator{backends: backends}
}

func (o *Orchestrator) Search(ctx context.Context, q Query) (*Response, error) {
	// Callers (dispatch's arg parsing) already default an absent limit to
	// 50; an explicit limit=0 must pass through as zero results rather
	// than being treated as unset (spec.md §8.3 "limit = 0 -> results
	// length 0"). Limits above 1000 are clamped to 1000 and negative limits
	// to 0.
	if q.Limit > 1000 {
		q.Limit = 1000
	}
	if q.Limit < 0 {
		q.Limit = 0
	}

	var backendResponses []BackendResponse
	var allResults []Result
	failures := 0

	for _, backend := range o.backends {
		resp := backend.Search(ctx, q)
		backendResponses = append(backendResponses, resp)
		if resp.ErrorMessage != "" && len(resp.Results) == 0 {
			failures++
		}
		allResults = append(allResults, resp.Results...)
	}

	if len(o.backends) > 0 && failures == len(o.backends) {
		return &Response{Backends: backendResponses}, nil
	}

	if len(allResults) > q.Limit {
		allResults = allResults[:q.Limit]
	}

	return &Response{Results: allResults, Backends: backendResponses, Total: len(allResults)}, nil
}
