package packaging

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/quiltdata/quilt-mcp-server/internal/apperr"
	"github.com/quiltdata/quilt-mcp-server/internal/catalogclient"
)

func TestPrepareMetadataExtractsReadmeContent(t *testing.T) {
	metadata, readme, err := prepareMetadata(map[string]any{
		"description":    "a dataset",
		"readme_content": "# Hi",
	})
	if err != nil {
		t.Fatalf("prepareMetadata: %v", err)
	}
	if readme != "# Hi" {
		t.Errorf("readme = %q", readme)
	}
	if _, ok := metadata["readme_content"]; ok {
		t.Error("readme_content must not survive into stored metadata")
	}
	if _, ok := metadata["readme"]; ok {
		t.Error("readme must not survive into stored metadata")
	}
	if metadata["description"] != "a dataset" {
		t.Errorf("description lost: %v", metadata)
	}
}

func TestPrepareMetadataReadmeContentWinsOverReadme(t *testing.T) {
	_, readme, err := prepareMetadata(map[string]any{
		"readme_content": "first",
		"readme":         "second",
	})
	if err != nil {
		t.Fatalf("prepareMetadata: %v", err)
	}
	if readme != "first" {
		t.Errorf("readme = %q, want first-present-wins per spec.md §4.5 step 2", readme)
	}
}

func TestPrepareMetadataParsesJSONString(t *testing.T) {
	metadata, readme, err := prepareMetadata(`{"description": "x", "readme": "# R"}`)
	if err != nil {
		t.Fatalf("prepareMetadata: %v", err)
	}
	if metadata["description"] != "x" || readme != "# R" {
		t.Errorf("metadata=%v readme=%q", metadata, readme)
	}
}

func TestPrepareMetadataInvalidJSONString(t *testing.T) {
	if _, _, err := prepareMetadata(`{not json`); err == nil {
		t.Fatal("expected validation error for malformed JSON metadata string")
	}
}

func TestOrganizeLogicalKeysFlattenDisambiguatesCollisions(t *testing.T) {
	uris := []s3URI{
		{Bucket: "a", Key: "x/data.csv", Raw: "s3://a/x/data.csv"},
		{Bucket: "a", Key: "y/data.csv", Raw: "s3://a/y/data.csv"},
	}
	keys := organizeLogicalKeys(uris, true)
	if keys["s3://a/x/data.csv"] != "data.csv" {
		t.Errorf("first flatten key = %q", keys["s3://a/x/data.csv"])
	}
	if keys["s3://a/y/data.csv"] != "1_data.csv" {
		t.Errorf("collision key = %q, want 1_data.csv", keys["s3://a/y/data.csv"])
	}
}

func TestOrganizeLogicalKeysSmartFolders(t *testing.T) {
	uris := []s3URI{
		{Bucket: "a", Key: "raw/events.csv", Raw: "s3://a/raw/events.csv"},
		{Bucket: "a", Key: "README.md", Raw: "s3://a/README.md"},
		{Bucket: "a", Key: "config.yaml", Raw: "s3://a/config.yaml"},
		{Bucket: "a", Key: "plot.png", Raw: "s3://a/plot.png"},
	}
	keys := organizeLogicalKeys(uris, false)
	if keys["s3://a/raw/events.csv"] != "data/processed/events.csv" {
		t.Errorf("csv key = %q", keys["s3://a/raw/events.csv"])
	}
	if keys["s3://a/README.md"] != "docs/README.md" {
		t.Errorf("readme key = %q", keys["s3://a/README.md"])
	}
	if keys["s3://a/config.yaml"] != "metadata/config.yaml" {
		t.Errorf("config key = %q", keys["s3://a/config.yaml"])
	}
	if keys["s3://a/plot.png"] != "data/media/plot.png" {
		t.Errorf("png key = %q", keys["s3://a/plot.png"])
	}
}

func TestCreateRejectsEmptyFiles(t *testing.T) {
	p := NewPipeline(nil, nil, nil, "s3://default-registry")
	_, _, err := p.Create(context.Background(), "arn:aws:iam::1:user/x", Request{Name: "team/pkg", Files: nil})
	assertKind(t, err, apperr.Validation)
}

func TestCreateRejectsBadName(t *testing.T) {
	p := NewPipeline(nil, nil, nil, "s3://default-registry")
	_, _, err := p.Create(context.Background(), "arn", Request{Name: "BadName", Files: []string{"s3://b/k"}})
	assertKind(t, err, apperr.Validation)
}

func TestCreateRejectsMalformedS3URI(t *testing.T) {
	p := NewPipeline(nil, nil, nil, "s3://default-registry")
	_, _, err := p.Create(context.Background(), "arn", Request{Name: "team/pkg", Files: []string{"not-an-s3-uri"}})
	assertKind(t, err, apperr.Validation)
}

func TestCreateRejectsBadCopyMode(t *testing.T) {
	p := NewPipeline(nil, nil, nil, "s3://default-registry")
	_, _, err := p.Create(context.Background(), "arn", Request{
		Name: "team/pkg", Files: []string{"s3://b/k"}, CopyMode: "sideways",
	})
	assertKind(t, err, apperr.Validation)
}

// fakeS3Writer records PutObject calls so tests can assert the pipeline
// actually materializes generated artifacts in the registry bucket.
type fakeS3Writer struct {
	puts []fakePut
}

type fakePut struct {
	bucket, key, contentType string
	body                     []byte
}

func (f *fakeS3Writer) PutObject(_ context.Context, bucket, key string, body []byte, contentType string) error {
	f.puts = append(f.puts, fakePut{bucket: bucket, key: key, contentType: contentType, body: body})
	return nil
}

func TestCreateSubmitsRevisionAndStripsReadme(t *testing.T) {
	var captured catalogclient.PackageRevisionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/package_revisions" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		json.NewEncoder(w).Encode(catalogclient.PackageRevisionResponse{TopHash: "abc123"})
	}))
	defer srv.Close()

	catalog := catalogclient.New(srv.URL, "test-token")
	s3 := &fakeS3Writer{}
	p := NewPipeline(catalog, s3, nil, "")

	result, preview, err := p.Create(context.Background(), "arn", Request{
		Name:     "team/pkg",
		Files:    []string{"s3://team-bucket/data.csv"},
		Metadata: map[string]any{"readme_content": "# hi"},
		Registry: "s3://team-bucket",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if preview != nil {
		t.Fatalf("expected no preview on a real submission, got %+v", preview)
	}
	if result.TopHash != "abc123" || result.PackageName != "team/pkg" || result.Registry != "s3://team-bucket" {
		t.Errorf("result = %+v", result)
	}
	if _, ok := captured.Metadata["readme_content"]; ok {
		t.Error("submitted metadata must not carry readme_content")
	}
	if len(captured.S3URIs) != 2 {
		t.Fatalf("submitted s3 uris = %v, want data.csv and the materialized README.md", captured.S3URIs)
	}
	if captured.S3URIs[0] != "s3://team-bucket/data.csv" {
		t.Errorf("submitted s3 uris = %v", captured.S3URIs)
	}
	if captured.S3URIs[1] != "s3://team-bucket/README.md" {
		t.Errorf("README.md was not included in the submitted s3 uris: %v", captured.S3URIs)
	}
	if len(s3.puts) != 1 || s3.puts[0].bucket != "team-bucket" || s3.puts[0].key != "README.md" {
		t.Fatalf("README.md was not actually uploaded to the registry bucket: %+v", s3.puts)
	}
	if string(s3.puts[0].body) != "# hi" {
		t.Errorf("uploaded README body = %q, want %q", s3.puts[0].body, "# hi")
	}
}

func TestCreateDryRunSkipsSubmission(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	catalog := catalogclient.New(srv.URL, "test-token")
	s3 := &fakeS3Writer{}
	p := NewPipeline(catalog, s3, nil, "")

	result, preview, err := p.Create(context.Background(), "arn", Request{
		Name:     "team/pkg",
		Files:    []string{"s3://team-bucket/data.csv"},
		Registry: "s3://team-bucket",
		DryRun:   true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if result != nil {
		t.Fatalf("expected no result in dry-run, got %+v", result)
	}
	if preview == nil || preview.FileCount != 1 {
		t.Fatalf("preview = %+v", preview)
	}
	if called {
		t.Error("dry-run must not call the catalog")
	}
	if len(s3.puts) != 0 {
		t.Error("dry-run must not materialize the README in S3")
	}
}

func TestCreateUsesDefaultRegistryWhenNoneResolved(t *testing.T) {
	var captured catalogclient.PackageRevisionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		json.NewEncoder(w).Encode(catalogclient.PackageRevisionResponse{TopHash: "x"})
	}))
	defer srv.Close()

	catalog := catalogclient.New(srv.URL, "tok")
	p := NewPipeline(catalog, &fakeS3Writer{}, nil, "s3://default-registry")

	result, _, err := p.Create(context.Background(), "arn", Request{
		Name:  "team/pkg",
		Files: []string{"s3://team-bucket/data.csv"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if result.Registry != "s3://default-registry" {
		t.Errorf("registry = %q, want default-registry fallback", result.Registry)
	}
}

func TestCreateAppliesMetadataTemplate(t *testing.T) {
	var captured catalogclient.PackageRevisionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		json.NewEncoder(w).Encode(catalogclient.PackageRevisionResponse{TopHash: "x"})
	}))
	defer srv.Close()

	catalog := catalogclient.New(srv.URL, "tok")
	p := NewPipeline(catalog, &fakeS3Writer{}, nil, "")

	_, _, err := p.Create(context.Background(), "arn", Request{
		Name:     "team/pkg",
		Files:    []string{"s3://team-bucket/data.csv"},
		Registry: "s3://team-bucket",
		Template: "genomics",
		Metadata: map[string]any{"organism": "human"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if captured.Metadata["package_type"] != "genomics" {
		t.Errorf("expected genomics template fields, got %+v", captured.Metadata)
	}
	if captured.Metadata["organism"] != "human" {
		t.Error("user metadata must overlay the template, not be discarded")
	}
}

func TestCreateUnknownTemplateFallsBackToStandard(t *testing.T) {
	var captured catalogclient.PackageRevisionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		json.NewEncoder(w).Encode(catalogclient.PackageRevisionResponse{TopHash: "x"})
	}))
	defer srv.Close()

	catalog := catalogclient.New(srv.URL, "tok")
	p := NewPipeline(catalog, &fakeS3Writer{}, nil, "")

	_, _, err := p.Create(context.Background(), "arn", Request{
		Name:     "team/pkg",
		Files:    []string{"s3://team-bucket/data.csv"},
		Registry: "s3://team-bucket",
		Template: "not-a-real-template",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if captured.Metadata["package_type"] != "data" {
		t.Errorf("expected standard template fallback, got %+v", captured.Metadata)
	}
}

func assertKind(t *testing.T, err error, want apperr.Kind) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	ae, ok := apperr.As(err)
	if !ok {
		t.Fatalf("expected *apperr.Error, got %T: %v", err, err)
	}
	if ae.Kind != want {
		t.Errorf("kind = %v, want %v", ae.Kind, want)
	}
}
