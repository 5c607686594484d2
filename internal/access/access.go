// Package access implements the access predicate (C12): a single
// first-match-wins rule set realized both as a Go predicate, for
// single-document checks, and as a SQL fragment, so listing queries
// enforce the identical rule set for pagination and counts.
package access

import (
	"fmt"
	"time"

	"github.com/tedkulp/cartulary-go/internal/model"
)

// CanAccess reports whether user may access document at level, applying
// the rules in order: superuser, owner, public+read, then an active
// non-expired share whose granted level meets or exceeds level.
func CanAccess(user model.User, document model.Document, level model.PermissionLevel, shares []model.DocumentShare, now time.Time) bool {
	if user.IsSuperuser {
		return true
	}
	if document.OwnerID == user.ID {
		return true
	}
	if document.IsPublic && level == model.PermissionRead {
		return true
	}
	for _, s := range shares {
		if s.DocumentID != document.ID || s.SharedWithUserID != user.ID {
			continue
		}
		if !s.Active(now) {
			continue
		}
		if s.PermissionLevel.Rank() >= level.Rank() {
			return true
		}
	}
	return false
}

// SQLFilter returns a parenthesized boolean SQL fragment realizing the
// same predicate as CanAccess against a `documents d` row, for use as a
// listing query's WHERE clause. userIDArg is the 1-based placeholder
// index the caller bound to the user's id; level's rank is inlined as a
// literal since it comes from code, not user input. A superuser caller
// should skip calling this and omit the filter entirely.
func SQLFilter(userIDArg int, level model.PermissionLevel) string {
	userArg := fmt.Sprintf("$%d", userIDArg)
	rank := level.Rank()
	isReadLevel := level == model.PermissionRead

	publicClause := "FALSE"
	if isReadLevel {
		publicClause = "d.is_public"
	}

	return fmt.Sprintf(`(
		d.owner_id = %[1]s
		OR %[2]s
		OR EXISTS (
			SELECT 1 FROM document_shares s
			 WHERE s.document_id = d.id AND s.shared_with_user_id = %[1]s
			   AND (s.expires_at IS NULL OR s.expires_at > now())
			   AND (CASE s.permission_level
			          WHEN 'admin' THEN 3
			          WHEN 'write' THEN 2
			          WHEN 'read' THEN 1
			          ELSE 0
			        END) >= %[3]d
		)
	)`, userArg, publicClause, rank)
}
