package access

import (
	"strings"
	"testing"
	"time"

	"github.com/tedkulp/cartulary-go/internal/model"
)

func TestCanAccess_Superuser(t *testing.T) {
	user := model.User{ID: "u1", IsSuperuser: true}
	doc := model.Document{ID: "d1", OwnerID: "someone-else"}
	if !CanAccess(user, doc, model.PermissionAdmin, nil, time.Now()) {
		t.Error("superuser should always have access")
	}
}

func TestCanAccess_Owner(t *testing.T) {
	user := model.User{ID: "u1"}
	doc := model.Document{ID: "d1", OwnerID: "u1"}
	if !CanAccess(user, doc, model.PermissionAdmin, nil, time.Now()) {
		t.Error("owner should always have access")
	}
}

func TestCanAccess_PublicReadOnly(t *testing.T) {
	user := model.User{ID: "u1"}
	doc := model.Document{ID: "d1", OwnerID: "other", IsPublic: true}
	if !CanAccess(user, doc, model.PermissionRead, nil, time.Now()) {
		t.Error("public document should be readable by anyone")
	}
	if CanAccess(user, doc, model.PermissionWrite, nil, time.Now()) {
		t.Error("public flag should not grant write")
	}
}

func TestCanAccess_ShareGrantsAtOrAboveLevel(t *testing.T) {
	user := model.User{ID: "u1"}
	doc := model.Document{ID: "d1", OwnerID: "other"}
	shares := []model.DocumentShare{
		{DocumentID: "d1", SharedWithUserID: "u1", PermissionLevel: model.PermissionWrite},
	}
	if !CanAccess(user, doc, model.PermissionRead, shares, time.Now()) {
		t.Error("write share should satisfy a read check")
	}
	if !CanAccess(user, doc, model.PermissionWrite, shares, time.Now()) {
		t.Error("write share should satisfy a write check")
	}
	if CanAccess(user, doc, model.PermissionAdmin, shares, time.Now()) {
		t.Error("write share should not satisfy an admin check")
	}
}

func TestCanAccess_ExpiredShareDenied(t *testing.T) {
	user := model.User{ID: "u1"}
	doc := model.Document{ID: "d1", OwnerID: "other"}
	past := time.Now().Add(-time.Hour)
	shares := []model.DocumentShare{
		{DocumentID: "d1", SharedWithUserID: "u1", PermissionLevel: model.PermissionAdmin, ExpiresAt: &past},
	}
	if CanAccess(user, doc, model.PermissionRead, shares, time.Now()) {
		t.Error("expired share should not grant access")
	}
}

func TestCanAccess_NoMatchDenied(t *testing.T) {
	user := model.User{ID: "u1"}
	doc := model.Document{ID: "d1", OwnerID: "other"}
	if CanAccess(user, doc, model.PermissionRead, nil, time.Now()) {
		t.Error("unrelated user with no share should be denied")
	}
}

func TestSQLFilter_ReadIncludesPublicClause(t *testing.T) {
	frag := SQLFilter(1, model.PermissionRead)
	if !strings.Contains(frag, "d.is_public") {
		t.Error("read-level filter should reference is_public")
	}
	if !strings.Contains(frag, ">= 1") {
		t.Errorf("expected rank literal 1 in filter, got %q", frag)
	}
}

func TestSQLFilter_WriteExcludesPublicClause(t *testing.T) {
	frag := SQLFilter(1, model.PermissionWrite)
	if strings.Contains(frag, "d.is_public") {
		t.Error("write-level filter should not reference is_public")
	}
	if !strings.Contains(frag, ">= 2") {
		t.Errorf("expected rank literal 2 in filter, got %q", frag)
	}
}
