// Package activity implements the activity-log sink: one row per
// mutating action, written by the HTTP surface's handlers. This is the
// one event hook the core keeps in scope; the UI that reads the log
// back is out of scope.
package activity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Logger writes activity_logs rows.
type Logger struct {
	pool *pgxpool.Pool
}

// New builds a Logger.
func New(pool *pgxpool.Pool) *Logger {
	return &Logger{pool: pool}
}

// Log records one activity. userID, resourceID, ipAddress, and
// userAgent are all optional (pass "" when not applicable); extraData
// may be nil.
func (l *Logger) Log(ctx context.Context, userID, action, resourceType, resourceID, description string, extraData map[string]any, ipAddress, userAgent string) error {
	var extraJSON []byte
	if extraData != nil {
		encoded, err := json.Marshal(extraData)
		if err != nil {
			return fmt.Errorf("marshal extra_data: %w", err)
		}
		extraJSON = encoded
	}

	_, err := l.pool.Exec(ctx, `
		INSERT INTO activity_logs (
			id, user_id, action, resource_type, resource_id, description,
			extra_data, ip_address, user_agent, created_at
		) VALUES ($1, NULLIF($2,''), $3, $4, NULLIF($5,''), $6, $7, NULLIF($8,''), NULLIF($9,''), now())`,
		uuid.NewString(), userID, action, resourceType, resourceID, description,
		extraJSON, ipAddress, userAgent,
	)
	if err != nil {
		return fmt.Errorf("insert activity log: %w", err)
	}
	return nil
}

// Common action names, following the original service's dotted
// "resource.verb" convention (document.upload, document.delete, ...).
const (
	ActionDocumentUpload = "document.upload"
	ActionDocumentDelete = "document.delete"
	ActionDocumentShare  = "document.share"
	ActionUserLogin      = "user.login"
)
