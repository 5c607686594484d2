package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tedkulp/cartulary-go/internal/auth"
)

func TestAuthMiddleware_AuthDisabled_DefaultUser(t *testing.T) {
	authSvc := auth.NewService("test-secret", 24*time.Hour)
	mw := AuthMiddleware(authSvc, false)

	var gotUserID string
	var gotSuperuser bool
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = UserIDFromContext(r.Context())
		gotSuperuser = IsSuperuserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/documents", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rr.Code)
	}
	if gotUserID != "dev-user" {
		t.Errorf("user_id: got %q, want %q", gotUserID, "dev-user")
	}
	if !gotSuperuser {
		t.Error("expected dev-mode caller to be treated as superuser")
	}
}

func TestAuthMiddleware_AuthDisabled_ExplicitUserID(t *testing.T) {
	authSvc := auth.NewService("test-secret", 24*time.Hour)
	mw := AuthMiddleware(authSvc, false)

	var gotUserID string
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/documents?user_id=alice", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if gotUserID != "alice" {
		t.Errorf("user_id: got %q, want %q", gotUserID, "alice")
	}
}

func TestAuthMiddleware_AuthEnabled_ValidToken(t *testing.T) {
	authSvc := auth.NewService("test-jwt-secret-32bytes-minimum!", 24*time.Hour)
	mw := AuthMiddleware(authSvc, true)

	tokenStr, err := authSvc.SignToken("user-abc", false)
	if err != nil {
		t.Fatalf("SignToken: %v", err)
	}

	var gotUserID string
	var gotSuperuser bool
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = UserIDFromContext(r.Context())
		gotSuperuser = IsSuperuserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/documents", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected 200, got %d; body: %s", rr.Code, rr.Body.String())
	}
	if gotUserID != "user-abc" {
		t.Errorf("user_id: got %q, want %q", gotUserID, "user-abc")
	}
	if gotSuperuser {
		t.Error("expected non-superuser claim")
	}
}

func TestAuthMiddleware_AuthEnabled_MissingHeader(t *testing.T) {
	authSvc := auth.NewService("test-secret", 24*time.Hour)
	mw := AuthMiddleware(authSvc, true)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/documents", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rr.Code)
	}

	var body map[string]string
	json.NewDecoder(rr.Body).Decode(&body)
	if body["message"] != "missing Authorization header" {
		t.Errorf("message: got %q", body["message"])
	}
}

func TestAuthMiddleware_AuthEnabled_InvalidFormat(t *testing.T) {
	authSvc := auth.NewService("test-secret", 24*time.Hour)
	mw := AuthMiddleware(authSvc, true)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/documents", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rr.Code)
	}
}

func TestAuthMiddleware_AuthEnabled_InvalidToken(t *testing.T) {
	authSvc := auth.NewService("test-secret", 24*time.Hour)
	mw := AuthMiddleware(authSvc, true)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/documents", nil)
	req.Header.Set("Authorization", "Bearer invalid-jwt-token")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rr.Code)
	}
}

func TestAuthMiddleware_AuthEnabled_EmptyBearer(t *testing.T) {
	authSvc := auth.NewService("test-secret", 24*time.Hour)
	mw := AuthMiddleware(authSvc, true)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/documents", nil)
	req.Header.Set("Authorization", "Bearer ")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rr.Code)
	}
}

func TestRequireSuperuser_Allowed(t *testing.T) {
	authSvc := auth.NewService("test-jwt-secret-32bytes-minimum!", 24*time.Hour)
	authMW := AuthMiddleware(authSvc, true)
	suMW := RequireSuperuser()

	tokenStr, _ := authSvc.SignToken("user-1", true)

	handler := authMW(suMW(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest(http.MethodPost, "/v1/admin/action", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected 200, got %d; body: %s", rr.Code, rr.Body.String())
	}
}

func TestRequireSuperuser_Denied(t *testing.T) {
	authSvc := auth.NewService("test-jwt-secret-32bytes-minimum!", 24*time.Hour)
	authMW := AuthMiddleware(authSvc, true)
	suMW := RequireSuperuser()

	tokenStr, _ := authSvc.SignToken("user-1", false)

	handler := authMW(suMW(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	})))

	req := httptest.NewRequest(http.MethodPost, "/v1/admin/action", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rr.Code)
	}
}

func TestContextHelpers_EmptyContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := req.Context()

	if v := UserIDFromContext(ctx); v != "" {
		t.Errorf("UserIDFromContext: got %q, want empty", v)
	}
	if v := IsSuperuserFromContext(ctx); v {
		t.Error("IsSuperuserFromContext: got true, want false")
	}
}
