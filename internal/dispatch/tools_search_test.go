package dispatch

import (
	"context"
	"testing"

	"github.com/quiltdata/quilt-mcp-server/internal/search"
)

type stubSearchBackend struct{ name string }

func (s stubSearchBackend) Name() string { return s.name }
func (s stubSearchBackend) Search(context.Context, search.Query) search.BackendResponse {
	return search.BackendResponse{Backend: s.name}
}

func TestSelectSearchBackendsDefaultsToGraphQLOnly(t *testing.T) {
	graphql, s3 := stubSearchBackend{"graphql"}, stubSearchBackend{"s3"}
	backends := selectSearchBackends("", true, graphql, s3)
	if len(backends) != 1 || backends[0].Name() != "graphql" {
		t.Errorf("backends = %+v, want [graphql] by default", backends)
	}
}

func TestSelectSearchBackendsExplicitS3Only(t *testing.T) {
	graphql, s3 := stubSearchBackend{"graphql"}, stubSearchBackend{"s3"}
	backends := selectSearchBackends("s3", true, graphql, s3)
	if len(backends) != 1 || backends[0].Name() != "s3" {
		t.Errorf("backends = %+v, want [s3] when explicitly requested", backends)
	}
}

func TestSelectSearchBackendsExplicitBothIncludesEach(t *testing.T) {
	graphql, s3 := stubSearchBackend{"graphql"}, stubSearchBackend{"s3"}
	backends := selectSearchBackends("both", true, graphql, s3)
	if len(backends) != 2 {
		t.Errorf("backends = %+v, want both", backends)
	}
}

func TestSelectSearchBackendsFallsBackToS3WhenCatalogUnconfigured(t *testing.T) {
	graphql, s3 := stubSearchBackend{"graphql"}, stubSearchBackend{"s3"}
	backends := selectSearchBackends("", false, graphql, s3)
	if len(backends) != 2 {
		t.Errorf("backends = %+v, want both when the catalog isn't configured", backends)
	}
}

func TestGraphqlUnavailableTrueOnlyWhenGraphQLErroredWithNoResults(t *testing.T) {
	errored := &search.Response{Backends: []search.BackendResponse{{Backend: "graphql", ErrorMessage: "down"}}}
	if !graphqlUnavailable(errored) {
		t.Error("expected graphqlUnavailable = true for an errored, empty graphql backend response")
	}

	healthy := &search.Response{Backends: []search.BackendResponse{{Backend: "graphql", Results: []search.Result{{ID: "1"}}}}}
	if graphqlUnavailable(healthy) {
		t.Error("expected graphqlUnavailable = false when graphql returned results")
	}

	noGraphQL := &search.Response{Backends: []search.BackendResponse{{Backend: "s3"}}}
	if graphqlUnavailable(noGraphQL) {
		t.Error("expected graphqlUnavailable = false when graphql wasn't even queried")
	}
}
