package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/quiltdata/quilt-mcp-server/internal/awssession"
	"github.com/quiltdata/quilt-mcp-server/internal/config"
	"github.com/quiltdata/quilt-mcp-server/internal/jwtauth"
	"github.com/quiltdata/quilt-mcp-server/internal/reqctx"
)

func TestEnumerateBucketsPrefersCatalogBucketConfigs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"bucketConfigs": []map[string]any{{"name": "alpha"}, {"name": "beta"}},
			},
		})
	}))
	defer srv.Close()

	r := &Registry{cfg: &config.Config{CatalogURL: srv.URL}}
	state := &reqctx.State{Auth: &jwtauth.AuthResult{Token: "tok"}}

	buckets, err := r.enumerateBuckets(context.Background(), state)
	if err != nil {
		t.Fatalf("enumerateBuckets: %v", err)
	}
	if len(buckets) != 2 || buckets[0] != "alpha" || buckets[1] != "beta" {
		t.Errorf("buckets = %v, want [alpha beta] from bucketConfigs", buckets)
	}
}

func TestEnumerateBucketsFailsClosedWhenCatalogEmptyAndNoAWSSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"bucketConfigs": []map[string]any{}},
		})
	}))
	defer srv.Close()

	r := &Registry{cfg: &config.Config{CatalogURL: srv.URL}}
	state := &reqctx.State{Auth: &jwtauth.AuthResult{Token: "tok"}, Session: &awssession.Session{}}

	// No usable AWS region/credentials are configured, so the S3
	// ListBuckets fallback errors; enumeration must surface a structured
	// error rather than panic or hang.
	if _, err := r.enumerateBuckets(context.Background(), state); err == nil {
		t.Fatal("expected an error when both bucketConfigs and ListBuckets are unavailable")
	}
}
