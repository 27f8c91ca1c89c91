package serializer

import (
	"time"

	"github.com/42-Bangkok/gateway/internal/model"
)

// Session serializes the render of a session.
// Tokens are never rendered.
func Session(m *model.Session, accessTTL, refreshTTL time.Duration) map[string]any {
	return map[string]any{
		"id":                      m.ID,
		"created":                 m.CreatedAt.UTC(),
		"updated":                 m.UpdatedAt.UTC(),
		"user_agent":              m.UserAgent,
		"access_token_expire_at":  m.AccessTokenExpireAt(accessTTL).UTC(),
		"refresh_token_expire_at": m.RefreshTokenExpireAt(refreshTTL).UTC(),
		"current":                 m.Current,
	}
}

// Sessions serializes the render of sessions.
func Sessions(m []*model.Session, accessTTL, refreshTTL time.Duration) []map[string]any {
	sessions := make([]map[string]any, len(m))
	for i, s := range m {
		sessions[i] = Session(s, accessTTL, refreshTTL)
	}
	return sessions
}
