package search

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/quiltdata/quilt-mcp-server/internal/catalogclient"
)

// GraphQLBackend is the preferred search backend, grounded on
// original_source's search/backends/graphql.py.
type GraphQLBackend struct {
	catalog *catalogclient.Client
}

func NewGraphQLBackend(catalog *catalogclient.Client) *GraphQLBackend {
	return &GraphQLBackend{catalog: catalog}
}

func (b *GraphQLBackend) Name() string { return "graphql" }

// Search routes the query per spec.md §4.4's scope table.
func (b *GraphQLBackend) Search(ctx context.Context, q Query) BackendResponse {
	resp := BackendResponse{Backend: b.Name()}

	searchType := q.SearchType
	if searchType == "auto" {
		searchType = ClassifyIntent(q.Text)
	}

	if searchType == "both" {
		return b.searchBoth(ctx, q)
	}

	results, err := b.dispatch(ctx, q, searchType)
	if err != nil {
		resp.ErrorMessage = err.Error()
		return resp
	}
	resp.Results = results
	return resp
}

func (b *GraphQLBackend) searchBoth(ctx context.Context, q Query) BackendResponse {
	resp := BackendResponse{Backend: b.Name()}
	half := q.Limit / 2
	if half == 0 {
		half = q.Limit
	}

	packagesQ, objectsQ := q, q
	packagesQ.Limit, objectsQ.Limit = half, q.Limit-half

	var combined []Result
	if hits, err := b.dispatch(ctx, packagesQ, "packages"); err == nil {
		combined = append(combined, hits...)
	} else {
		resp.ErrorMessage = err.Error()
	}
	if hits, err := b.dispatch(ctx, objectsQ, "objects"); err == nil {
		combined = append(combined, hits...)
	} else if resp.ErrorMessage == "" {
		resp.ErrorMessage = err.Error()
	}

	resp.Results = trimTo(combined, q.Limit)
	return resp
}

func (b *GraphQLBackend) dispatch(ctx context.Context, q Query, searchType string) ([]Result, error) {
	switch {
	case q.Scope == "bucket" && searchType == "packages":
		page := offsetToPage(q.Offset, q.Limit)
		pkgs, err := b.catalog.BucketPackages(ctx, q.Target, q.Text, page, q.Limit)
		if err != nil {
			return nil, err
		}
		// The requested page already starts at (page-1)*limit; only the
		// remainder of the offset falls inside it.
		return applyOffset(packagesToResults(pkgs), q.Offset-(page-1)*q.Limit), nil

	case q.Scope == "bucket" && searchType == "objects":
		filter := translateFilter(q)
		out, err := b.catalog.SearchObjects(ctx, q.Text, filter, []string{q.Target})
		if err != nil {
			return nil, err
		}
		return normalizeObjectResult(out, q.Offset), nil

	case (q.Scope == "global" || q.Scope == "catalog") && searchType == "packages":
		out, err := b.catalog.SearchPackages(ctx, q.Text, false, nil)
		if err != nil {
			return nil, err
		}
		if out.Typename == "EmptySearchResultSet" {
			return nil, nil
		}
		return applyOffset(packagesToResults(out.Hits), q.Offset), nil

	case (q.Scope == "global" || q.Scope == "catalog") && searchType == "objects":
		filter := translateFilter(q)
		out, err := b.catalog.SearchObjects(ctx, q.Text, filter, nil)
		if err != nil {
			return nil, err
		}
		return normalizeObjectResult(out, q.Offset), nil

	case q.Scope == "package":
		entries, err := b.catalog.PackageEntries(ctx, q.Target, q.Limit*2)
		if err != nil {
			return nil, err
		}
		var hits []Result
		for _, e := range entries {
			if q.Text != "" && !strings.Contains(strings.ToLower(e.LogicalKey), strings.ToLower(q.Text)) {
				continue
			}
			hits = append(hits, Result{
				ID:         fmt.Sprintf("graphql-entry-%s-%s", q.Target, e.LogicalKey),
				Kind:       "file",
				Title:      path.Base(e.LogicalKey),
				LogicalKey: e.LogicalKey,
				Backend:    b.Name(),
				Metadata:   map[string]any{"package": q.Target, "size": e.Size, "hash": e.Hash},
			})
		}
		return trimTo(applyOffset(hits, q.Offset), q.Limit), nil

	default:
		return nil, nil
	}
}

func offsetToPage(offset, limit int) int {
	if limit <= 0 {
		return 1
	}
	return offset/limit + 1
}

// applyOffset implements spec.md §4.4's "offset is applied after the first
// backend page is retrieved" pagination rule. Only the one page the catalog
// returned is sliced, so hits beyond that page are never reached.
func applyOffset[T any](items []T, offset int) []T {
	if offset <= 0 || offset >= len(items) {
		if offset >= len(items) {
			return nil
		}
		return items
	}
	return items[offset:]
}

func trimTo(items []Result, limit int) []Result {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

func translateFilter(q Query) *catalogclient.ObjectFilterInput {
	filter := &catalogclient.ObjectFilterInput{}
	hasFilter := false

	if len(q.FileExtensions) > 0 {
		filter.Ext = &catalogclient.TermsFilter{Terms: normalizeExtensions(q.FileExtensions)}
		hasFilter = true
		if len(q.FileExtensions) == 1 && strings.HasPrefix(q.Text, "*.") {
			filter.Key = &catalogclient.WildcardFilter{Wildcard: q.Text}
		}
	}
	if q.SizeMin != nil || q.SizeMax != nil {
		filter.Size = &catalogclient.RangeFilter{GTE: q.SizeMin, LTE: q.SizeMax}
		hasFilter = true
	}
	if !hasFilter && strings.HasPrefix(q.Text, "*.") {
		filter.Key = &catalogclient.WildcardFilter{Wildcard: q.Text}
		hasFilter = true
	}

	if !hasFilter {
		return nil
	}
	return filter
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		out = append(out, strings.ToLower(strings.TrimPrefix(e, ".")))
	}
	return out
}

func packagesToResults(pkgs []catalogclient.PackageSummary) []Result {
	out := make([]Result, 0, len(pkgs))
	for _, p := range pkgs {
		out = append(out, Result{
			ID:          fmt.Sprintf("graphql-pkg-%s-%s-%s", p.Bucket, p.Name, p.Hash),
			Kind:        "package",
			Title:       p.Bucket + "/" + p.Name,
			Description: packageDescription(p),
			S3URI:       fmt.Sprintf("s3://%s/.quilt/named_packages/%s", p.Bucket, p.Name),
			Backend:     "graphql",
			Metadata: map[string]any{
				"hash": p.Hash, "pointer": p.Pointer, "size": p.Size, "modified": p.Modified,
				"totalEntriesCount": p.TotalEntriesCount, "comment": p.Comment, "workflow": p.Workflow,
			},
		})
	}
	return out
}

func packageDescription(p catalogclient.PackageSummary) string {
	comment := p.Comment
	if len(comment) > 80 {
		comment = comment[:80]
	}
	return fmt.Sprintf("%d files | %s | %s", p.TotalEntriesCount, humanSize(p.Size), comment)
}

func humanSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%dB", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func normalizeObjectResult(out *catalogclient.SearchObjectsResult, offset int) []Result {
	if out == nil || out.Typename == "EmptySearchResultSet" {
		return nil
	}
	hits := make([]Result, 0, len(out.Hits))
	for _, h := range out.Hits {
		hits = append(hits, Result{
			ID:         fmt.Sprintf("graphql-object-%s-%s", h.Bucket, h.Key),
			Kind:       "file",
			Title:      path.Base(h.Key),
			S3URI:      fmt.Sprintf("s3://%s/%s", h.Bucket, h.Key),
			LogicalKey: h.Key,
			Backend:    "graphql",
			Metadata: map[string]any{
				"bucket": h.Bucket, "version": h.Version, "size": h.Size,
				"modified": h.Modified, "deleted": h.Deleted, "indexed": h.Indexed,
			},
		})
	}
	return applyOffset(hits, offset)
}
