package database

import (
	"github.com/42-Bangkok/gateway/internal/model"
	"github.com/pkg/errors"
)

// Supported drivers.
const (
	DriverStorm  = "storm"
	DriverSQLite = "sqlite"
)

type (
	// A Client can interacts with the database.
	Client interface {
		// Save inserts or updates the entry in database with the given model.
		// It fails with an already-exists error when a unique constraint is violated.
		Save(m model.Model) error
		// Delete deletes the entry in database with the given model.
		// Owned records are deleted along (user's sessions & profile, intra profile's history).
		Delete(m model.Model) error
		// Close the database.
		Close() error
		// IsNotFound returns true if err is a not found error.
		IsNotFound(err error) bool
		// IsAlreadyExists returns true if err is a unique constraint violation.
		IsAlreadyExists(err error) bool

		UserInteraction
		ProfileInteraction
		SessionInteraction
		CadetMetaInteraction
		IntraInteraction
		WebhookInteraction
	}

	// An UserInteraction defines all the methods used to interact with a user record.
	UserInteraction interface {
		// FindUser returns the user for the given id (UUID).
		FindUser(id string) (*model.User, error)
		// FindUserByUsername returns the user for the given username.
		FindUserByUsername(username string) (*model.User, error)
		// FindUserByIdentity returns the user for the given provider/uid pair.
		FindUserByIdentity(provider, uid string) (*model.User, error)
	}

	// A ProfileInteraction defines all the methods used to interact with a profile record.
	ProfileInteraction interface {
		// FindProfileByUserID returns the profile of the given user.
		FindProfileByUserID(userID string) (*model.Profile, error)
	}

	// A SessionInteraction defines all the methods used to interact with a session record.
	SessionInteraction interface {
		// FindSession returns the session for the given id (UUID).
		FindSession(id string) (*model.Session, error)
		// FindSessionByUserID returns the session for the given id and user id.
		FindSessionByUserID(id, userID string) (*model.Session, error)
		// FindSessionsByUserID returns all sessions for the given user id.
		FindSessionsByUserID(userID string) ([]*model.Session, error)
		// FindSessionByAccessToken returns the session for the given access token.
		FindSessionByAccessToken(token string) (*model.Session, error)
		// FindSessionByRefreshToken returns the session for the given refresh token.
		FindSessionByRefreshToken(token string) (*model.Session, error)
		// FindSessions returns all the sessions, oldest first.
		FindSessions() ([]*model.Session, error)
	}

	// A CadetMetaInteraction defines all the methods used to interact with a cadet metadata record.
	CadetMetaInteraction interface {
		// FindCadetMetaByLogin returns the cadet metadata for the given login.
		FindCadetMetaByLogin(login string) (*model.CadetMeta, error)
	}

	// An IntraInteraction defines all the methods used to interact with Intra records.
	IntraInteraction interface {
		// FindIntraProfileByLogin returns the profile for the given login.
		FindIntraProfileByLogin(login string) (*model.IntraProfile, error)
		// FindIntraProfileByIntraID returns the profile for the given Intra id.
		FindIntraProfileByIntraID(intraID int) (*model.IntraProfile, error)
		// FindIntraProfiles returns all the profiles matching the given filter, ordered by login.
		FindIntraProfiles(filter IntraProfileFilter) ([]*model.IntraProfile, error)
		// FindIntraProfileData returns the history of a profile, newest first.
		// limit equals to 0 means all snapshots.
		FindIntraProfileData(profileID string, limit int) ([]*model.IntraProfileData, error)
	}

	// A WebhookInteraction defines all the methods used to interact with a webhook record.
	WebhookInteraction interface {
		// FindWebhookByName returns the webhook for the given name.
		FindWebhookByName(name string) (*model.Webhook, error)
		// FindWebhooks returns all the webhooks ordered by name.
		FindWebhooks() ([]*model.Webhook, error)
	}

	// An IntraSnapshot pairs a profile with one of its history entries.
	IntraSnapshot struct {
		Profile *model.IntraProfile
		Data    *model.IntraProfileData
	}

	// An IntraProfileFilter narrows FindIntraProfiles results.
	// Zero values are ignored.
	IntraProfileFilter struct {
		BookmarkedOnly bool
		PoolMonth      string
		PoolYear       string
	}
)

// Options configures Open.
type Options struct {
	Driver string
	Path   string
	// Codec is the storm codec name (msgpack, json, cbor or binc).
	Codec string
}

// Open returns a new database connection for the configured driver.
func Open(opts Options) (Client, error) {
	switch opts.Driver {
	case DriverStorm, "":
		return StormOpen(opts.Path, opts.Codec)
	case DriverSQLite:
		return SQLiteOpen(opts.Path)
	default:
		return nil, errors.Errorf("unsupported database driver: %s", opts.Driver)
	}
}

// LatestIntraProfileData returns the newest snapshot of each profile matching the filter.
// Profiles without history are skipped.
func LatestIntraProfileData(db Client, filter IntraProfileFilter) ([]IntraSnapshot, error) {
	profiles, err := db.FindIntraProfiles(filter)
	if err != nil {
		return nil, errors.Wrap(err, "could not find intra profiles")
	}

	latest := make([]IntraSnapshot, 0, len(profiles))
	for _, profile := range profiles {
		data, err := db.FindIntraProfileData(profile.ID, 1)
		if err != nil {
			return nil, errors.Wrap(err, "could not find intra profile history")
		}
		if len(data) > 0 {
			latest = append(latest, IntraSnapshot{Profile: profile, Data: data[0]})
		}
	}
	return latest, nil
}
