package serializer

import "github.com/42-Bangkok/gateway/internal/model"

// DateLayout is the rendering layout of calendar dates.
const DateLayout = "2006-01-02"

// User serializes the render of a user along with its profile.
func User(m *model.User, p *model.Profile) map[string]any {
	if p == nil {
		p = model.NewProfile(m.ID)
	}

	var dob any
	if p.DOB != nil {
		dob = p.DOB.UTC().Format(DateLayout)
	}

	return map[string]any{
		"id":                m.ID,
		"username":          m.Username,
		"email":             m.Email,
		"first_name":        p.FirstName,
		"last_name":         p.LastName,
		"gender":            p.Gender,
		"dob":               dob,
		"time_of_birth":     p.TimeOfBirth,
		"medical_condition": p.MedicalCondition,
		"job_title":         p.JobTitle,
		"created":           m.CreatedAt.UTC(),
		"updated":           m.UpdatedAt.UTC(),
		"user": map[string]any{
			"id":       m.ID,
			"username": m.Username,
			"email":    m.Email,
		},
	}
}
