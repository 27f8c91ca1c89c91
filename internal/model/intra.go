package model

import "encoding/json"

type (
	// An IntraProfile represents a database record.
	// Login is optional but unique when set.
	IntraProfile struct {
		Base `msgpack:",inline" storm:"inline"`

		Login        string `json:"login"         msgpack:"login"         storm:"unique"`
		IntraID      int    `json:"intra_id"      msgpack:"intra_id"      storm:"unique"`
		IsBookmarked bool   `json:"is_bookmarked" msgpack:"is_bookmarked" storm:"index"`
		PoolMonth    string `json:"pool_month"    msgpack:"pool_month"    storm:"index"`
		PoolYear     string `json:"pool_year"     msgpack:"pool_year"     storm:"index"`
		CursusIDs    []int  `json:"cursus_ids"    msgpack:"cursus_ids"`
	}

	// An IntraProfileData represents a database record.
	// It is a historical snapshot of the raw Intra payload of a profile.
	IntraProfileData struct {
		Base `msgpack:",inline" storm:"inline"`

		ProfileID string          `json:"profile" msgpack:"profile_id" storm:"index"`
		Data      json.RawMessage `json:"data"    msgpack:"data"`
	}
)

// NewIntraProfile returns a new profile with default values.
func NewIntraProfile(intraID int) *IntraProfile {
	return &IntraProfile{
		IntraID:   intraID,
		CursusIDs: []int{},
	}
}
