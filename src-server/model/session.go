package model

import (
	"time"

	"github.com/uptrace/bun"
)

type SessionModelPurposeType string

const (
	// for HTTP callers to act as a Discord user
	SESSION_MODEL_PURPOSE_SESSION = SessionModelPurposeType("session")
)

const (
	SESSION_COOKIE_NAME = "session-secret"
	SESSION_LIFETIME    = time.Hour * 24 * 7
)

type Session struct {
	bun.BaseModel `bun:"table:sessions"`

	Secret           string                  `bun:"secret,pk"`                    // required
	Purpose          SessionModelPurposeType `bun:"purpose,notnull,type:varchar"` // required
	UserID           string                  `bun:"user_id,notnull"`              // required
	CreatedAtUnixUTC int64                   `bun:"created_at,notnull"`           // required
}

// Expired reports whether the session is older than SESSION_LIFETIME at now.
func (s *Session) Expired(now time.Time) bool {
	return time.Unix(s.CreatedAtUnixUTC, 0).Add(SESSION_LIFETIME).Before(now)
}
