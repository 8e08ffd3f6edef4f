package governance

import (
	"context"
	"testing"

	"github.com/quiltdata/quilt-mcp-server/internal/apperr"
	"github.com/quiltdata/quilt-mcp-server/internal/catalogclient"
)

func TestValidateTabulatorConfigEmptyIsValid(t *testing.T) {
	if err := ValidateTabulatorConfig(""); err != nil {
		t.Errorf("empty config (delete case) should validate, got %v", err)
	}
}

func TestValidateTabulatorConfigRequiresSchemaKey(t *testing.T) {
	err := ValidateTabulatorConfig("columns:\n  - name: x\n")
	if err == nil {
		t.Fatal("expected error for config missing a schema key")
	}
}

func TestValidateTabulatorConfigRejectsMalformedYAML(t *testing.T) {
	err := ValidateTabulatorConfig("schema: [unterminated")
	if err == nil {
		t.Fatal("expected error for malformed YAML")
	}
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.Validation {
		t.Fatalf("expected validation_error, got %v", err)
	}
}

func TestValidateTabulatorConfigAcceptsSchema(t *testing.T) {
	if err := ValidateTabulatorConfig("schema:\n  - name: id\n    type: STRING\n"); err != nil {
		t.Errorf("expected valid config to pass, got %v", err)
	}
}

func TestUserCreateRequiresNameAndEmail(t *testing.T) {
	c := New(nil)
	if _, err := c.UserCreate(context.Background(), "", "a@b.com", "ReadOnly"); err == nil {
		t.Fatal("expected validation error for empty name")
	}
	if _, err := c.UserCreate(context.Background(), "ada", "", "ReadOnly"); err == nil {
		t.Fatal("expected validation error for empty email")
	}
}

func TestPolicyCreateManagedRequiresTitle(t *testing.T) {
	c := New(nil)
	_, err := c.PolicyCreateManaged(context.Background(), "", []catalogclient.PolicyPermission{{Bucket: "b", Level: "READ"}})
	if err == nil {
		t.Fatal("expected validation error for empty title")
	}
}

func TestPolicyCreateManagedRequiresAtLeastOnePermission(t *testing.T) {
	c := New(nil)
	_, err := c.PolicyCreateManaged(context.Background(), "title", nil)
	if err == nil {
		t.Fatal("expected validation error for no permissions")
	}
}

func TestPolicyCreateManagedRejectsInvalidLevel(t *testing.T) {
	c := New(nil)
	_, err := c.PolicyCreateManaged(context.Background(), "title", []catalogclient.PolicyPermission{
		{Bucket: "b", Level: "WRITE_ONLY"},
	})
	if err == nil {
		t.Fatal("expected validation error for invalid level")
	}
}

func TestPolicyCreateUnmanagedRequiresTitleAndARN(t *testing.T) {
	c := New(nil)
	if _, err := c.PolicyCreateUnmanaged(context.Background(), "", "arn:aws:iam::1:policy/x"); err == nil {
		t.Fatal("expected validation error for empty title")
	}
	if _, err := c.PolicyCreateUnmanaged(context.Background(), "title", ""); err == nil {
		t.Fatal("expected validation error for empty arn")
	}
}
