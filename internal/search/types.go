// Package search implements unified search over packages and objects
// (spec.md §4.4 module I), grounded on original_source's
// search/backends/graphql.py and search/backends/s3.py, with the query
// intent classifier styled on clanker's internal/agent/semantic.Analyzer
// (a lexical pass over fixed keyword sets, no external NLP call).
package search

// Query is the inbound unified-search request.
type Query struct {
	Text       string
	Scope      string // bucket | global | catalog | package
	Target     string // bucket name or package name, depending on Scope
	SearchType string // auto | packages | objects | both
	Limit      int
	Offset     int
	FileExtensions []string
	SizeMin    *int64
	SizeMax    *int64
}

// Result is the normalized hit shape of spec.md §4.4 "Normalization".
type Result struct {
	ID          string
	Kind        string // file | package
	Title       string
	Description string
	S3URI       string
	LogicalKey  string
	Backend     string
	Metadata    map[string]any
}

// BackendResponse is the per-backend outcome; an errored backend
// contributes no hits but never aborts the aggregate search (spec.md §4.4
// "Errors per backend").
type BackendResponse struct {
	Backend      string
	Results      []Result
	ErrorMessage string
}

// Response is the aggregate unified-search result.
type Response struct {
	Results  []Result
	Backends []BackendResponse
	Total    int
}
