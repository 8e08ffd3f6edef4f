package jwtauth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/quiltdata/quilt-mcp-server/internal/apperr"
	"github.com/quiltdata/quilt-mcp-server/internal/logging"
)

const testSecret = "auth-test-secret"

func newTestService(toolPermissions map[string][]string) *Service {
	resolver := NewSecretResolver(testSecret, "", "", false, logging.New(false))
	return NewService(resolver, toolPermissions, "test-kid", logging.New(false))
}

func sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}

func kindOf(t *testing.T, err error) apperr.Kind {
	t.Helper()
	ae, ok := apperr.As(err)
	if !ok {
		t.Fatalf("expected *apperr.Error, got %T: %v", err, err)
	}
	return ae.Kind
}

func TestAuthenticateHeaderMissingBearerPrefix(t *testing.T) {
	s := newTestService(nil)
	_, err := s.AuthenticateHeader(context.Background(), "not-a-bearer-token")
	if err == nil {
		t.Fatal("expected error for missing Bearer prefix")
	}
	if kindOf(t, err) != apperr.Authentication {
		t.Errorf("kind = %v, want authentication_error", kindOf(t, err))
	}
}

func TestAuthenticateHeaderEmptyToken(t *testing.T) {
	s := newTestService(nil)
	if _, err := s.AuthenticateHeader(context.Background(), "Bearer    "); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestAuthenticateHeaderExpiredToken(t *testing.T) {
	s := newTestService(nil)
	header := "Bearer " + sign(t, jwt.MapClaims{
		"exp": time.Now().Add(-1 * time.Second).Unix(),
	})
	_, err := s.AuthenticateHeader(context.Background(), header)
	if err == nil {
		t.Fatal("expected token_expired error")
	}
	if kindOf(t, err) != apperr.Authentication {
		t.Errorf("kind = %v, want authentication_error", kindOf(t, err))
	}
}

func TestAuthenticateHeaderExpandsExplicitClaims(t *testing.T) {
	s := newTestService(nil)
	header := "Bearer " + sign(t, jwt.MapClaims{
		"permissions": []any{"s3:GetObject", "quilt:BrowsePackages"},
		"buckets":     []any{"prod-*"},
		"roles":       []any{"analyst"},
		"sub":         "user-123",
	})

	result, err := s.AuthenticateHeader(context.Background(), header)
	if err != nil {
		t.Fatalf("AuthenticateHeader: %v", err)
	}
	if len(result.Claims.Permissions) != 2 {
		t.Errorf("permissions = %v", result.Claims.Permissions)
	}
	if result.UserID != "user-123" {
		t.Errorf("user id = %q", result.UserID)
	}
}

func TestAuthenticateHeaderExpandsCompressedClaims(t *testing.T) {
	s := newTestService(nil)
	header := "Bearer " + sign(t, jwt.MapClaims{
		"ec": map[string]any{
			"p": []any{"s3go", "qbp", "custom:thing"},
			"b": []any{"prod-*"},
			"r": []any{"analyst"},
		},
	})

	result, err := s.AuthenticateHeader(context.Background(), header)
	if err != nil {
		t.Fatalf("AuthenticateHeader: %v", err)
	}
	want := map[string]bool{"s3:GetObject": true, "quilt:BrowsePackages": true, "custom:thing": true}
	if len(result.Claims.Permissions) != 3 {
		t.Fatalf("permissions = %v", result.Claims.Permissions)
	}
	for _, p := range result.Claims.Permissions {
		if !want[p] {
			t.Errorf("unexpected expanded permission %q", p)
		}
	}
}

func TestAuthenticateHeaderMalformedCompressedClaimsDegradesEmpty(t *testing.T) {
	s := newTestService(nil)
	header := "Bearer " + sign(t, jwt.MapClaims{"ec": "not-a-map"})

	result, err := s.AuthenticateHeader(context.Background(), header)
	if err != nil {
		t.Fatalf("AuthenticateHeader: %v", err)
	}
	if len(result.Claims.Permissions) != 0 || len(result.Claims.Buckets) != 0 || len(result.Claims.Roles) != 0 {
		t.Errorf("expected empty claim arrays for malformed ec blob, got %+v", result.Claims)
	}
}

func TestAuthorizeToolNoEntryAllowsByDefault(t *testing.T) {
	s := newTestService(map[string][]string{})
	result := &AuthResult{Claims: Claims{}}
	decision := s.AuthorizeTool(result, "unregistered_tool", nil)
	if !decision.Allowed {
		t.Fatalf("expected opt-out allow, got %+v", decision)
	}
}

func TestAuthorizeToolMissingPermissions(t *testing.T) {
	s := newTestService(map[string][]string{"package_create": {"quilt:UpdatePackage"}})
	result := &AuthResult{Claims: Claims{Permissions: []string{"quilt:BrowsePackages"}}}

	decision := s.AuthorizeTool(result, "package_create", nil)
	if decision.Allowed {
		t.Fatal("expected denial")
	}
	if len(decision.MissingPermissions) != 1 || decision.MissingPermissions[0] != "quilt:UpdatePackage" {
		t.Errorf("missing permissions = %v", decision.MissingPermissions)
	}
}

func TestAuthorizeToolBucketWildcard(t *testing.T) {
	s := newTestService(map[string][]string{"s3_get": {}})
	result := &AuthResult{Claims: Claims{Buckets: []string{"prod-*"}}}

	if d := s.AuthorizeTool(result, "s3_get", map[string]any{"bucket": "prod-data"}); !d.Allowed {
		t.Errorf("expected prod-data allowed via wildcard, got %+v", d)
	}
	d := s.AuthorizeTool(result, "s3_get", map[string]any{"bucket": "staging-data"})
	if d.Allowed {
		t.Fatal("expected staging-data denied")
	}
	if len(d.MissingBuckets) != 1 || d.MissingBuckets[0] != "staging-data" {
		t.Errorf("missing buckets = %v", d.MissingBuckets)
	}
}

func TestAuthorizeToolBucketNameArgAlias(t *testing.T) {
	s := newTestService(map[string][]string{"s3_put": {}})
	result := &AuthResult{Claims: Claims{Buckets: []string{"team-bucket"}}}

	d := s.AuthorizeTool(result, "s3_put", map[string]any{"bucket_name": "team-bucket"})
	if !d.Allowed {
		t.Errorf("expected bucket_name arg honored, got %+v", d)
	}
}
