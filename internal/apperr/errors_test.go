package apperr

import (
	"errors"
	"testing"
)

func TestToEnvelopeFlattensContext(t *testing.T) {
	err := New(Authorization, "access denied").With("missing_permissions", []string{"quilt:UpdatePackage"})
	env := ToEnvelope(err)

	if env["success"] != false {
		t.Errorf("success = %v, want false", env["success"])
	}
	if env["error_type"] != Authorization {
		t.Errorf("error_type = %v, want authorization_error", env["error_type"])
	}
	perms, ok := env["missing_permissions"].([]string)
	if !ok || len(perms) != 1 || perms[0] != "quilt:UpdatePackage" {
		t.Errorf("missing_permissions = %v", env["missing_permissions"])
	}
}

func TestToEnvelopeOpaqueErrorBecomesInternal(t *testing.T) {
	env := ToEnvelope(errors.New("boom"))
	if env["error_type"] != Internal {
		t.Errorf("error_type = %v, want internal_error for an unwrapped error", env["error_type"])
	}
	if env["error"] != "boom" {
		t.Errorf("error = %v", env["error"])
	}
}

func TestAsUnwrapsWrappedError(t *testing.T) {
	cause := errors.New("root cause")
	wrapped := Wrap(Catalog, "upstream failed", cause)

	ae, ok := As(wrapped)
	if !ok {
		t.Fatal("expected As to find the *Error")
	}
	if ae.Kind != Catalog {
		t.Errorf("kind = %v, want catalog_error", ae.Kind)
	}
	if !errors.Is(wrapped, cause) {
		t.Error("expected Unwrap chain to reach the cause")
	}
}

func TestAsReturnsFalseForPlainError(t *testing.T) {
	if _, ok := As(errors.New("plain")); ok {
		t.Error("expected As(plain error) to report false")
	}
}
