package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tedkulp/cartulary-go/internal/auth"
)

func TestLoginRequest_Serialization(t *testing.T) {
	req := loginRequest{Email: "admin@test.local", Password: "secret123"}

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded loginRequest
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Email != "admin@test.local" {
		t.Errorf("email: got %q", decoded.Email)
	}
	if decoded.Password != "secret123" {
		t.Errorf("password: got %q", decoded.Password)
	}
}

func TestLoginResponse_Serialization(t *testing.T) {
	resp := loginResponse{Token: "jwt", UserID: "u1", Email: "admin@test.local", IsSuperuser: true}

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	json.Unmarshal(data, &decoded)

	for _, field := range []string{"token", "user_id", "email", "is_superuser"} {
		if _, ok := decoded[field]; !ok {
			t.Errorf("missing required field: %s", field)
		}
	}
}

func TestLogin_InvalidJSON(t *testing.T) {
	authSvc := auth.NewService("test-secret", 24*time.Hour)
	h := NewAuthHandler(nil, authSvc) // nil repo — won't reach DB

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", bytes.NewBufferString("not json"))
	rr := httptest.NewRecorder()
	h.Login(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
	var errResp map[string]string
	json.NewDecoder(rr.Body).Decode(&errResp)
	if errResp["error"] != "bad_request" {
		t.Errorf("error: got %q", errResp["error"])
	}
}

func TestLogin_MissingEmail(t *testing.T) {
	authSvc := auth.NewService("test-secret", 24*time.Hour)
	h := NewAuthHandler(nil, authSvc)

	body, _ := json.Marshal(loginRequest{Email: "", Password: "secret"})
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Login(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}

func TestLogin_MissingPassword(t *testing.T) {
	authSvc := auth.NewService("test-secret", 24*time.Hour)
	h := NewAuthHandler(nil, authSvc)

	body, _ := json.Marshal(loginRequest{Email: "admin@test.local", Password: ""})
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Login(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}

func TestRegister_InvalidJSON(t *testing.T) {
	authSvc := auth.NewService("test-secret", 24*time.Hour)
	h := NewAuthHandler(nil, authSvc)

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/register", bytes.NewBufferString("not json"))
	rr := httptest.NewRecorder()
	h.Register(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}

func TestRegister_MissingFields(t *testing.T) {
	authSvc := auth.NewService("test-secret", 24*time.Hour)
	h := NewAuthHandler(nil, authSvc)

	body, _ := json.Marshal(registerRequest{Email: "new@test.local", Password: ""})
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/register", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Register(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}

func TestRegister_ShortPasswordRejected(t *testing.T) {
	authSvc := auth.NewService("test-secret", 24*time.Hour)
	h := NewAuthHandler(nil, authSvc)

	body, _ := json.Marshal(registerRequest{Email: "new@test.local", Password: "short"})
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/register", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Register(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}

func TestAuthHandler_PasswordHashVerification(t *testing.T) {
	hash, err := auth.HashPassword("admin-password-123")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !auth.CheckPassword(hash, "admin-password-123") {
		t.Error("CheckPassword with correct password should succeed")
	}
	if auth.CheckPassword(hash, "wrong") {
		t.Error("CheckPassword with wrong password should fail")
	}
	if auth.CheckPassword("", "admin-password-123") {
		t.Error("CheckPassword with empty hash should fail")
	}
}

func TestAuthHandler_TokenRoundTrip(t *testing.T) {
	authSvc := auth.NewService("test-jwt-secret-32bytes-minimum!", 24*time.Hour)

	token, err := authSvc.SignToken("user-id", true)
	if err != nil {
		t.Fatalf("SignToken: %v", err)
	}
	claims, err := authSvc.VerifyToken(token)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if claims.UserID != "user-id" {
		t.Errorf("UserID: got %q", claims.UserID)
	}
	if !claims.IsSuperuser {
		t.Error("IsSuperuser: expected true")
	}
}
