package model

import (
	"strings"
	"unicode/utf8"
)

const (
	// ProviderFortyTwo is the 42 Intra identity provider.
	ProviderFortyTwo = "42"
	// UsernameMinLength is the minimal number of characters of a username.
	UsernameMinLength = 3
)

// A User represents a database record.
type User struct {
	Base `msgpack:",inline" storm:"inline"`

	Username string `msgpack:"username" storm:"unique"`
	Email    string `msgpack:"email"    storm:"index"`
	Provider string `msgpack:"provider"`
	UID      string `msgpack:"uid"`
	// Identity is the provider/uid pair used for login provisioning.
	Identity string `msgpack:"identity" storm:"unique"`
}

// NewUser returns a new user for the given external identity.
// Short uids are suffixed by the provider so the username honors UsernameMinLength.
func NewUser(provider, uid string) *User {
	username := uid
	if utf8.RuneCountInString(username) < UsernameMinLength {
		username = uid + "-" + strings.ToLower(provider)
	}

	return &User{
		Username: username,
		Provider: provider,
		UID:      uid,
		Identity: Identity(provider, uid),
	}
}

// Identity returns the unique key of an external identity.
func Identity(provider, uid string) string {
	return strings.ToLower(provider) + ":" + uid
}
