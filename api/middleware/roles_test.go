package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/shopgrid/catalog-engine/pkg/enums"
	"github.com/shopgrid/catalog-engine/pkg/types"
)

func TestRequireRoleBlocksMismatch(t *testing.T) {
	handler := RequireRole(string(enums.ActorRoleAdmin), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := WithPrincipal(req.Context(), types.Principal{StoreID: uuid.New(), Role: enums.ActorRoleOwner})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req.WithContext(ctx))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestRequireRoleAllowsMatch(t *testing.T) {
	handler := RequireRole(string(enums.ActorRoleAdmin), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := WithPrincipal(req.Context(), types.Principal{StoreID: uuid.New(), Role: enums.ActorRoleAdmin})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req.WithContext(ctx))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}
