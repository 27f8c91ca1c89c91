package serializer

import "github.com/42-Bangkok/gateway/internal/model"

// IntraProfile serializes the render of an Intra profile.
func IntraProfile(m *model.IntraProfile) map[string]any {
	cursus := m.CursusIDs
	if cursus == nil {
		cursus = []int{}
	}

	return map[string]any{
		"id":            m.ID,
		"login":         m.Login,
		"intra_id":      m.IntraID,
		"is_bookmarked": m.IsBookmarked,
		"pool_month":    m.PoolMonth,
		"pool_year":     m.PoolYear,
		"cursus_ids":    cursus,
		"created":       m.CreatedAt.UTC(),
		"updated":       m.UpdatedAt.UTC(),
	}
}

// IntraProfiles serializes the render of Intra profiles.
func IntraProfiles(m []*model.IntraProfile) []map[string]any {
	profiles := make([]map[string]any, len(m))
	for i, p := range m {
		profiles[i] = IntraProfile(p)
	}
	return profiles
}

// IntraProfileData serializes the render of an history snapshot.
func IntraProfileData(m *model.IntraProfileData, login string) map[string]any {
	return map[string]any{
		"id":      m.ID,
		"profile": m.ProfileID,
		"login":   login,
		"data":    m.Data,
		"created": m.CreatedAt.UTC(),
	}
}

// IntraProfileHistory serializes the render of a profile's history.
func IntraProfileHistory(m []*model.IntraProfileData, login string) []map[string]any {
	history := make([]map[string]any, len(m))
	for i, d := range m {
		history[i] = IntraProfileData(d, login)
	}
	return history
}
