package dispatch

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"github.com/quiltdata/quilt-mcp-server/internal/awssession"
	"github.com/quiltdata/quilt-mcp-server/internal/config"
	"github.com/quiltdata/quilt-mcp-server/internal/jwtauth"
	"github.com/quiltdata/quilt-mcp-server/internal/logging"
)

const testSecret = "dispatch-test-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func newTestRegistry() *Registry {
	log := logging.New(false)
	resolver := jwtauth.NewSecretResolver(testSecret, "", "", false, log)
	cfg := &config.Config{
		CatalogURL:      "https://example.quiltdata.com",
		DefaultRegistry: "s3://default-registry",
		ToolPermissions: map[string][]string{
			"package_create": {"quilt:UpdatePackage"},
		},
	}
	authService := jwtauth.NewService(resolver, cfg.ToolPermissions, "test-kid", log)
	sessions := awssession.NewBuilder("us-east-1")
	return New(cfg, authService, sessions, log)
}

func TestDispatchUnknownTool(t *testing.T) {
	r := newTestRegistry()
	header := "Bearer " + signToken(t, jwt.MapClaims{"permissions": []any{}, "buckets": []any{}})

	out := r.Dispatch(context.Background(), "does_not_exist", header, map[string]any{})
	if out["success"] != false {
		t.Fatalf("expected failure envelope, got %v", out)
	}
	if out["error_type"] != "not_found" {
		t.Errorf("error_type = %v, want not_found", out["error_type"])
	}
}

func TestDispatchMissingAuthorizationHeader(t *testing.T) {
	r := newTestRegistry()
	out := r.Dispatch(context.Background(), "workflow_create", "", map[string]any{})
	if out["success"] != false {
		t.Fatalf("expected failure envelope, got %v", out)
	}
	if out["error_type"] != "authentication_error" {
		t.Errorf("error_type = %v, want authentication_error", out["error_type"])
	}
}

func TestDispatchMissingPermission(t *testing.T) {
	r := newTestRegistry()
	header := "Bearer " + signToken(t, jwt.MapClaims{"permissions": []any{}, "buckets": []any{}})

	out := r.Dispatch(context.Background(), "package_create", header, map[string]any{"package_name": "team/data"})
	if out["success"] != false {
		t.Fatalf("expected failure envelope, got %v", out)
	}
	if out["error_type"] != "authorization_error" {
		t.Errorf("error_type = %v, want authorization_error", out["error_type"])
	}
}

func TestDispatchWorkflowLifecycle(t *testing.T) {
	r := newTestRegistry()
	header := "Bearer " + signToken(t, jwt.MapClaims{"permissions": []any{}, "buckets": []any{}})

	created := r.Dispatch(context.Background(), "workflow_create", header, map[string]any{
		"name": "ingest",
		"steps": []any{
			map[string]any{"id": "fetch"},
			map[string]any{"id": "load", "dependencies": []any{"fetch"}},
		},
	})
	if created["success"] != true {
		t.Fatalf("workflow_create failed: %v", created)
	}
	wf, ok := created["workflow"].(map[string]any)
	if !ok {
		t.Fatalf("workflow_create result missing workflow object: %v", created)
	}
	workflowID, _ := wf["id"].(string)
	if workflowID == "" {
		t.Fatalf("workflow_create did not return an id: %v", wf)
	}

	// "load" depends on "fetch", which hasn't started yet.
	blocked := r.Dispatch(context.Background(), "workflow_start_step", header, map[string]any{
		"workflow_id": workflowID,
		"step_id":     "load",
	})
	if blocked["success"] != false {
		t.Fatalf("expected starting an ungated step to fail, got %v", blocked)
	}

	started := r.Dispatch(context.Background(), "workflow_start_step", header, map[string]any{
		"workflow_id": workflowID,
		"step_id":     "fetch",
	})
	if started["success"] != true {
		t.Fatalf("workflow_start_step failed: %v", started)
	}

	completed := r.Dispatch(context.Background(), "workflow_complete_step", header, map[string]any{
		"workflow_id": workflowID,
		"step_id":     "fetch",
	})
	if completed["success"] != true {
		t.Fatalf("workflow_complete_step failed: %v", completed)
	}

	unblocked := r.Dispatch(context.Background(), "workflow_start_step", header, map[string]any{
		"workflow_id": workflowID,
		"step_id":     "load",
	})
	if unblocked["success"] != true {
		t.Fatalf("expected starting a now-eligible step to succeed, got %v", unblocked)
	}
}

func TestDispatchToolsListNotEmpty(t *testing.T) {
	r := newTestRegistry()
	if len(r.Tools()) == 0 {
		t.Fatal("expected at least one registered tool")
	}
}
