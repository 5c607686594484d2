package handler

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/tedkulp/cartulary-go/internal/model"
)

func TestToShareResponse_Serialization(t *testing.T) {
	expires := time.Now().Add(24 * time.Hour)
	byUser := "u-admin"
	share := model.DocumentShare{
		ID:               "s1",
		DocumentID:       "d1",
		SharedWithUserID: "u2",
		SharedByUserID:   &byUser,
		PermissionLevel:  model.PermissionWrite,
		ExpiresAt:        &expires,
	}

	data, err := json.Marshal(toShareResponse(share))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	json.Unmarshal(data, &decoded)

	if decoded["permission_level"] != "write" {
		t.Errorf("permission_level: got %v", decoded["permission_level"])
	}
	if decoded["shared_by_user_id"] != "u-admin" {
		t.Errorf("shared_by_user_id: got %v", decoded["shared_by_user_id"])
	}
}

func TestToShareResponse_OmitsNilExpiry(t *testing.T) {
	share := model.DocumentShare{ID: "s1", DocumentID: "d1", SharedWithUserID: "u2", PermissionLevel: model.PermissionRead}

	data, _ := json.Marshal(toShareResponse(share))
	var decoded map[string]any
	json.Unmarshal(data, &decoded)

	if _, ok := decoded["expires_at"]; ok {
		t.Error("expected expires_at omitted when nil")
	}
	if _, ok := decoded["shared_by_user_id"]; ok {
		t.Error("expected shared_by_user_id omitted when nil")
	}
}
