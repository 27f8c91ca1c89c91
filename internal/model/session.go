package model

import (
	"time"
)

const (
	// AccessTokenTTL is the default validity window of an access token (expires_in).
	AccessTokenTTL = 86400 * time.Second
	// RefreshTokenTTL is the default validity window of a refresh token (refresh_token_expires_in).
	RefreshTokenTTL = 525600 * time.Second
)

// A Session represents a database record.
// It pairs a user with its current access/refresh token pair.
type Session struct {
	Base `msgpack:",inline" storm:"inline"`

	UserID                string    `msgpack:"user_id"                  storm:"index"`
	UserAgent             string    `msgpack:"user_agent"`
	AccessToken           string    `msgpack:"access_token"             storm:"unique"`
	AccessTokenCreatedAt  time.Time `msgpack:"access_token_created_at"`
	RefreshToken          string    `msgpack:"refresh_token"            storm:"unique"`
	RefreshTokenCreatedAt time.Time `msgpack:"refresh_token_created_at"`

	// Current is only used for rendering.
	Current bool `msgpack:"-" json:"-"`
}

// AccessTokenExpireAt returns the date after which the access token is expired.
func (s *Session) AccessTokenExpireAt(ttl time.Duration) time.Time {
	return s.AccessTokenCreatedAt.Add(ttl)
}

// RefreshTokenExpireAt returns the date after which the refresh token is expired.
func (s *Session) RefreshTokenExpireAt(ttl time.Duration) time.Time {
	return s.RefreshTokenCreatedAt.Add(ttl)
}
