package dispatch

import (
	"context"

	"github.com/quiltdata/quilt-mcp-server/internal/apperr"
	"github.com/quiltdata/quilt-mcp-server/internal/reqctx"
	"github.com/quiltdata/quilt-mcp-server/internal/search"
)

func (r *Registry) registerSearchTools() {
	r.register(&Descriptor{
		Name:        "unified_search",
		Description: "Search packages and/or objects across the catalog, with a GraphQL backend and an S3 listing fallback.",
		Handler:     r.handleUnifiedSearch,
	})
}

func (r *Registry) handleUnifiedSearch(ctx context.Context, args map[string]any) (map[string]any, error) {
	state, err := reqctx.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	text := stringArg(args, "query")
	if text == "" {
		return nil, apperr.Validationf("query is required")
	}

	catalog := r.catalogFor(state)
	s3Client := r.s3For(state)
	defaultBucket := stringArg(args, "target")

	searchType := stringArg(args, "search_type")
	if searchType == "" {
		searchType = search.ClassifyIntent(text)
	}

	q := search.Query{
		Text:           text,
		Scope:          stringArg(args, "scope"),
		Target:         defaultBucket,
		SearchType:     searchType,
		Limit:          intArg(args, "limit", 50),
		Offset:         intArg(args, "offset", 0),
		FileExtensions: stringSliceArg(args, "file_extensions"),
		SizeMin:        int64PtrArg(args, "size_min"),
		SizeMax:        int64PtrArg(args, "size_max"),
	}

	backend := stringArg(args, "backend")
	s3Backend := search.NewS3Backend(s3Client, defaultBucket)
	graphqlBackend := search.NewGraphQLBackend(catalog)
	backends := selectSearchBackends(backend, r.cfg.CatalogURL != "", graphqlBackend, s3Backend)

	resp, err := search.NewOrchestrator(backends...).Search(ctx, q)
	if err != nil {
		return nil, err
	}

	// GraphQL errored at request time and the caller never opted into S3 up
	// front: retry against the S3 fallback rather than surfacing an empty
	// result set for an available catalog of data.
	if backend == "" && r.cfg.CatalogURL != "" && graphqlUnavailable(resp) {
		resp, err = search.NewOrchestrator(s3Backend).Search(ctx, q)
		if err != nil {
			return nil, err
		}
	}

	return map[string]any{
		"results":  resp.Results,
		"total":    resp.Total,
		"backends": resp.Backends,
	}, nil
}

// selectSearchBackends implements spec.md §4.4: "default: the GraphQL
// backend; the S3 backend is a graceful fallback when explicitly selected or
// when GraphQL is unavailable." GraphQL alone runs unless the caller
// explicitly asks for s3/both, or the catalog isn't configured at all.
func selectSearchBackends(backend string, catalogConfigured bool, graphql, s3 search.Backend) []search.Backend {
	switch {
	case backend == "s3":
		return []search.Backend{s3}
	case backend == "both" || !catalogConfigured:
		return []search.Backend{graphql, s3}
	default:
		return []search.Backend{graphql}
	}
}

// graphqlUnavailable reports whether the graphql backend's response was an
// outright failure (errored with no results), the trigger condition for the
// S3 graceful fallback of spec.md §4.4.
func graphqlUnavailable(resp *search.Response) bool {
	for _, b := range resp.Backends {
		if b.Backend == "graphql" {
			return b.ErrorMessage != "" && len(b.Results) == 0
		}
	}
	return false
}
