package search

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/quiltdata/quilt-mcp-server/internal/s3ops"
)

// S3Backend is the graceful-fallback backend of spec.md §4.4, grounded on
// original_source's search/backends/s3.py: basic ListObjectsV2 plus
// in-process term/extension filtering, used when GraphQL is unavailable.
type S3Backend struct {
	s3             *s3ops.Client
	defaultBucket  string
}

func NewS3Backend(client *s3ops.Client, defaultBucket string) *S3Backend {
	return &S3Backend{s3: client, defaultBucket: defaultBucket}
}

func (b *S3Backend) Name() string { return "s3" }

var stopWords = map[string]bool{
	"find": true, "search": true, "get": true, "files": true, "file": true,
	"data": true, "show": true, "list": true,
}

func (b *S3Backend) Search(ctx context.Context, q Query) BackendResponse {
	resp := BackendResponse{Backend: b.Name()}

	// This backend only ever sees raw S3 objects; a packages-only query has
	// nothing for it to contribute, so it must stay silent rather than
	// inject file hits into a package result set.
	if q.SearchType == "packages" {
		return resp
	}

	bucket := q.Target
	if q.Scope != "bucket" || bucket == "" {
		bucket = b.defaultBucket
	}
	bucket = strings.TrimPrefix(bucket, "s3://")
	if idx := strings.Index(bucket, "/"); idx >= 0 {
		bucket = bucket[:idx]
	}
	if bucket == "" {
		return resp
	}

	prefix, terms := extractPrefixAndTerms(q.Text)

	entries, err := b.s3.ListObjects(ctx, bucket, prefix, "", q.Limit*2)
	if err != nil {
		resp.ErrorMessage = err.Error()
		return resp
	}

	type scored = struct {
		result Result
		score  float64
	}
	var candidates []scored

	for _, e := range entries {
		if e.IsPrefix {
			continue
		}
		if len(terms) > 0 && !matchesAnyTerm(e.Key, terms) {
			continue
		}
		if len(q.FileExtensions) > 0 && !hasAnyExtension(e.Key, q.FileExtensions) {
			continue
		}
		if q.SizeMin != nil && e.Size < *q.SizeMin {
			continue
		}
		if q.SizeMax != nil && e.Size > *q.SizeMax {
			continue
		}
		candidates = append(candidates, scored{
			result: Result{
				ID:          fmt.Sprintf("s3-object-%s-%s", bucket, e.Key),
				Kind:        "file",
				Title:       path.Base(e.Key),
				Description: "S3 object in " + bucket,
				S3URI:       fmt.Sprintf("s3://%s/%s", bucket, e.Key),
				LogicalKey:  e.Key,
				Backend:     b.Name(),
				Metadata:    map[string]any{"bucket": bucket, "size": e.Size, "modified": e.LastModified},
			},
			score: scoreMatch(e.Key, terms),
		})
	}

	sortByScoreDescending(candidates)

	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, c.result)
		if len(results) >= q.Limit {
			break
		}
	}

	resp.Results = results
	return resp
}

// scoreMatch implements spec.md §4.6 step 5: +1.0 per token in the
// basename, +0.5 per token elsewhere in the key, normalized by token count.
func scoreMatch(key string, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	lowerKey := strings.ToLower(key)
	lowerBase := strings.ToLower(path.Base(key))
	var score float64
	for _, t := range terms {
		if strings.Contains(lowerBase, t) {
			score += 1.0
		} else if strings.Contains(lowerKey, t) {
			score += 0.5
		}
	}
	return score / float64(len(terms))
}

func sortByScoreDescending(items []struct {
	result Result
	score  float64
}) {
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && items[j].score > items[j-1].score; j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
}

// extractPrefixAndTerms mirrors s3.py's _search_bucket: if the query looks
// like a path (contains "/" and no verb keywords), treat it as a prefix;
// otherwise split into lowercase match terms, dropping stop words.
func extractPrefixAndTerms(query string) (prefix string, terms []string) {
	lower := strings.ToLower(query)
	if strings.Contains(query, "/") && !containsAny(lower, []string{"find", "search", "get"}) {
		return query, nil
	}
	for _, word := range strings.Fields(lower) {
		if !stopWords[word] {
			terms = append(terms, word)
		}
	}
	return "", terms
}

func matchesAnyTerm(key string, terms []string) bool {
	lower := strings.ToLower(key)
	for _, t := range terms {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

func hasAnyExtension(key string, extensions []string) bool {
	lower := strings.ToLower(key)
	for _, ext := range normalizeExtensions(extensions) {
		if strings.HasSuffix(lower, "."+ext) {
			return true
		}
	}
	return false
}
