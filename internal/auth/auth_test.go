package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewStaticAPIKeyValidatorParsesSpec(t *testing.T) {
	validator, err := NewStaticAPIKeyValidator("key-1:alice:query_reader|exporter, key-2:bob:admin")
	if err != nil {
		t.Fatalf("NewStaticAPIKeyValidator() error = %v", err)
	}

	identity, ok := validator.Validate(context.Background(), "key-1")
	if !ok {
		t.Fatal("key-1 should validate")
	}
	if identity.Subject != "alice" {
		t.Fatalf("Subject = %q", identity.Subject)
	}
	if !identity.HasRole(RoleQueryReader) || !identity.HasRole(RoleExporter) {
		t.Fatalf("Roles = %v", identity.Roles)
	}
	if identity.HasRole(RoleAdmin) {
		t.Fatal("alice should not have admin")
	}

	if _, ok := validator.Validate(context.Background(), "unknown"); ok {
		t.Fatal("unknown key should not validate")
	}
}

func TestAdminImpliesEveryRole(t *testing.T) {
	identity := Identity{Subject: "bob", Roles: []string{RoleAdmin}}
	if !identity.HasRole(RoleQueryReader) || !identity.HasRole(RoleExporter) {
		t.Fatal("admin should satisfy every role check")
	}
}

func TestNewStaticAPIKeyValidatorRejectsMalformedSpec(t *testing.T) {
	for _, spec := range []string{"key-only", "key:subject", "key::role", "key:subject:"} {
		if _, err := NewStaticAPIKeyValidator(spec); err == nil {
			t.Errorf("NewStaticAPIKeyValidator(%q) should fail", spec)
		}
	}
}

func TestMiddleware(t *testing.T) {
	validator, err := NewStaticAPIKeyValidator("key-1:alice:query_reader")
	if err != nil {
		t.Fatalf("NewStaticAPIKeyValidator() error = %v", err)
	}
	var seen Identity
	handler := Middleware(nil, validator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/schema", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status without key = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/schema", nil)
	req.Header.Set("X-API-Key", "key-1")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status with key = %d", rec.Code)
	}
	if seen.Subject != "alice" {
		t.Fatalf("identity subject = %q", seen.Subject)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/schema", nil)
	req.Header.Set("Authorization", "Bearer key-1")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status with bearer token = %d", rec.Code)
	}
}
