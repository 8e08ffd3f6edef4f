package catalogclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/quiltdata/quilt-mcp-server/internal/apperr"
)

func TestDeriveGraphQLHostAppliesRegistrySuffix(t *testing.T) {
	c := New("https://open.quiltdata.com", "tok")
	if c.graphqlURL != "https://open-registry.quiltdata.com/graphql" {
		t.Errorf("graphqlURL = %q", c.graphqlURL)
	}
}

func TestDeriveGraphQLHostLeavesNonQuiltdataHostAlone(t *testing.T) {
	c := New("https://catalog.example.com", "tok")
	if c.graphqlURL != "https://catalog.example.com/graphql" {
		t.Errorf("graphqlURL = %q", c.graphqlURL)
	}
}

func TestHTTPErrorStatusBecomesCatalogError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"nope"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok")
	err := c.Query(context.Background(), "query{x}", nil, nil)
	ae, ok := apperr.As(err)
	if !ok {
		t.Fatalf("expected *apperr.Error, got %v", err)
	}
	if ae.Kind != apperr.Catalog {
		t.Errorf("kind = %v, want catalog_error", ae.Kind)
	}
	if ae.Context["status"] != http.StatusForbidden {
		t.Errorf("status context = %v", ae.Context["status"])
	}
}

func TestGraphQLTopLevelErrorsBecomeCatalogError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"errors": []map[string]string{{"message": "field not found"}},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "tok")
	err := c.Query(context.Background(), "query{x}", nil, nil)
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.Catalog {
		t.Fatalf("expected catalog_error, got %v", err)
	}
}

func TestDecodeUnionOkReturnsPayload(t *testing.T) {
	raw := json.RawMessage(`{"__typename":"User","name":"ada"}`)
	var out struct {
		Name string `json:"name"`
	}
	if err := decodeUnion(raw, &out); err != nil {
		t.Fatalf("decodeUnion: %v", err)
	}
	if out.Name != "ada" {
		t.Errorf("name = %q", out.Name)
	}
}

func TestDecodeUnionInvalidInputBecomesValidationError(t *testing.T) {
	raw := json.RawMessage(`{"__typename":"InvalidInput","errors":[{"name":"email","message":"required"}]}`)
	err := decodeUnion(raw, nil)
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.Validation {
		t.Fatalf("expected validation_error, got %v", err)
	}
}

func TestDecodeUnionOperationErrorBecomesCatalogError(t *testing.T) {
	raw := json.RawMessage(`{"__typename":"OperationError","message":"db unavailable"}`)
	err := decodeUnion(raw, nil)
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.Catalog {
		t.Fatalf("expected catalog_error, got %v", err)
	}
	if ae.Message != "db unavailable" {
		t.Errorf("message = %q", ae.Message)
	}
}

func TestAdminUserCreateDecodesUnion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"adminCreateUser": map[string]any{
					"__typename": "User",
					"name":       "ada",
					"email":      "ada@example.com",
					"isActive":   true,
				},
			},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "tok")
	user, err := c.AdminUserCreate(context.Background(), "ada", "ada@example.com", "ReadOnly")
	if err != nil {
		t.Fatalf("AdminUserCreate: %v", err)
	}
	if user.Name != "ada" || !user.IsActive {
		t.Errorf("user = %+v", user)
	}
}

func TestAdminUserCreateInvalidInput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"adminCreateUser": map[string]any{
					"__typename": "InvalidInput",
					"errors":     []map[string]string{{"name": "email", "message": "already taken"}},
				},
			},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "tok")
	_, err := c.AdminUserCreate(context.Background(), "ada", "dup@example.com", "ReadOnly")
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.Validation {
		t.Fatalf("expected validation_error, got %v", err)
	}
}

func TestAuthorizationHeaderIsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{}})
	}))
	defer srv.Close()

	c := New(srv.URL, "secret-token")
	_ = c.Query(context.Background(), "query{x}", nil, nil)
	if gotAuth != "Bearer secret-token" {
		t.Errorf("Authorization header = %q", gotAuth)
	}
}
