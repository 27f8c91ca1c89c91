package gateway

import "time"

type (
	// A Session contains the tokens of an opened session.
	Session struct {
		AccessToken       string    `json:"access_token"`
		RefreshToken      string    `json:"refresh_token"`
		AccessExpiration  time.Time `json:"access_expiration"`
		RefreshExpiration time.Time `json:"refresh_expiration"`
	}

	// A SessionInfo describes one of the sessions of the current user.
	SessionInfo struct {
		ID                   string    `json:"id"`
		UserAgent            string    `json:"user_agent"`
		AccessTokenExpireAt  time.Time `json:"access_token_expire_at"`
		RefreshTokenExpireAt time.Time `json:"refresh_token_expire_at"`
		Current              bool      `json:"current"`
		CreatedAt            time.Time `json:"created"`
		UpdatedAt            time.Time `json:"updated"`
	}

	// A User is the account of the current user.
	User struct {
		ID               string    `json:"id"`
		Username         string    `json:"username"`
		Email            string    `json:"email"`
		FirstName        string    `json:"first_name"`
		LastName         string    `json:"last_name"`
		Gender           string    `json:"gender"`
		DOB              *string   `json:"dob"`
		TimeOfBirth      string    `json:"time_of_birth"`
		MedicalCondition string    `json:"medical_condition"`
		JobTitle         string    `json:"job_title"`
		CreatedAt        time.Time `json:"created"`
		UpdatedAt        time.Time `json:"updated"`
	}
)

// Defined returns true if session's fields are defined.
func (s Session) Defined() bool {
	return s.AccessToken != "" && s.RefreshToken != "" &&
		!s.AccessExpiration.IsZero() && !s.RefreshExpiration.IsZero()
}

// AccessExpiredAt returns true if the access token is expired at the given time.
func (s Session) AccessExpiredAt(t time.Time) bool {
	return !s.Defined() || t.After(s.AccessExpiration)
}

// AccessExpired returns true if the access token is expired.
func (s Session) AccessExpired() bool {
	return s.AccessExpiredAt(time.Now())
}

// RefreshExpired returns true if the refresh token is expired.
func (s Session) RefreshExpired() bool {
	return !s.Defined() || time.Now().After(s.RefreshExpiration)
}
