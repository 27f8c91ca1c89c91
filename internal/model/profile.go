package model

import "time"

// Genders accepted by a profile.
const (
	GenderMale      = "m"
	GenderFemale    = "f"
	GenderNonBinary = "n"
	GenderOther     = "o"
	GenderUnknown   = "u"
)

// Genders lists all the accepted genders.
var Genders = []string{GenderMale, GenderFemale, GenderNonBinary, GenderOther, GenderUnknown}

// A Profile represents a database record.
// A user owns at most one profile.
type Profile struct {
	Base `msgpack:",inline" storm:"inline"`

	UserID           string     `msgpack:"user_id"           storm:"unique"`
	FirstName        string     `msgpack:"first_name"`
	LastName         string     `msgpack:"last_name"`
	Gender           string     `msgpack:"gender"`
	DOB              *time.Time `msgpack:"dob"`
	TimeOfBirth      string     `msgpack:"time_of_birth"`
	MedicalCondition string     `msgpack:"medical_condition"`
	JobTitle         string     `msgpack:"job_title"`
}

// NewProfile returns a new profile with default values for the given user.
func NewProfile(userID string) *Profile {
	return &Profile{
		UserID: userID,
		Gender: GenderUnknown,
	}
}
