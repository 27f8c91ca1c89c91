package serializer

import "github.com/42-Bangkok/gateway/internal/model"

// CadetMeta serializes the render of a cadet metadata.
func CadetMeta(m *model.CadetMeta) map[string]any {
	return map[string]any{
		"id":      m.ID,
		"login":   m.Login,
		"note":    m.Note,
		"created": m.CreatedAt.UTC(),
		"updated": m.UpdatedAt.UTC(),
	}
}

// Webhook serializes the render of a webhook.
func Webhook(m *model.Webhook) map[string]any {
	return map[string]any{
		"id":          m.ID,
		"name":        m.Name,
		"description": m.Description,
		"url":         m.URL,
		"created":     m.CreatedAt.UTC(),
		"updated":     m.UpdatedAt.UTC(),
	}
}

// Webhooks serializes the render of webhooks.
func Webhooks(m []*model.Webhook) []map[string]any {
	webhooks := make([]map[string]any, len(m))
	for i, w := range m {
		webhooks[i] = Webhook(w)
	}
	return webhooks
}
