package database

import (
	"time"

	"github.com/42-Bangkok/gateway/internal/model"
	"github.com/42-Bangkok/gateway/pkg/stormcodec"
	"github.com/asdine/storm/v3"
	"github.com/asdine/storm/v3/q"
	"github.com/pkg/errors"
)

type strm struct {
	db  *storm.DB
	now func() time.Time
}

// StormModels lists all the records stored with storm.
var StormModels = []any{
	&model.User{},
	&model.Profile{},
	&model.Session{},
	&model.CadetMeta{},
	&model.IntraProfile{},
	&model.IntraProfileData{},
	&model.Webhook{},
}

func stormDB(database, codecname string) (*storm.DB, error) {
	codec, err := stormcodec.ByName(codecname)
	if err != nil {
		return nil, err
	}

	db, err := storm.Open(database, storm.Codec(codec))
	return db, errors.Wrap(err, "could not get database connection")
}

// StormInit initializes Storm database.
func StormInit(database, codec string) error {
	db, err := stormDB(database, codec)
	if err != nil {
		return err
	}
	defer db.Close()

	for _, m := range StormModels {
		if err := db.Init(m); err != nil {
			return errors.Wrapf(err, "could not init %T index", m)
		}
	}
	return nil
}

// StormReIndex reindex Storm database.
func StormReIndex(database, codec string) error {
	db, err := stormDB(database, codec)
	if err != nil {
		return err
	}
	defer db.Close()

	for _, m := range StormModels {
		if err := db.ReIndex(m); err != nil {
			return errors.Wrapf(err, "could not ReIndex %T", m)
		}
	}
	return nil
}

// StormOpen returns a new Storm database connection.
func StormOpen(database, codec string) (Client, error) {
	db, err := stormDB(database, codec)
	if err != nil {
		return nil, err
	}

	return &strm{
		db:  db,
		now: time.Now,
	}, nil
}

// Save inserts or updates the entry in database with the given model.
func (c *strm) Save(m model.Model) error {
	previous := m.Snapshot()
	m.Touch(c.now())

	if err := c.db.Save(m); err != nil {
		m.Rollback(previous)
		return errors.Wrap(err, "could not save the model")
	}
	return nil
}

// Delete deletes the entry in database with the given model.
func (c *strm) Delete(m model.Model) error {
	tx, err := c.db.Begin(true)
	if err != nil {
		return errors.Wrap(err, "could not begin transaction")
	}
	defer tx.Rollback() // nolint:errcheck

	switch v := m.(type) {
	case *model.User:
		if err = deleteAll(tx, q.Eq("UserID", v.ID), &model.Session{}); err != nil {
			return errors.Wrap(err, "could not delete user's sessions")
		}
		if err = deleteAll(tx, q.Eq("UserID", v.ID), &model.Profile{}); err != nil {
			return errors.Wrap(err, "could not delete user's profile")
		}
	case *model.IntraProfile:
		if err = deleteAll(tx, q.Eq("ProfileID", v.ID), &model.IntraProfileData{}); err != nil {
			return errors.Wrap(err, "could not delete intra profile's history")
		}
	}

	if err = tx.DeleteStruct(m); err != nil {
		return errors.Wrap(err, "could not delete the model")
	}
	return errors.Wrap(tx.Commit(), "could not commit deletion")
}

func deleteAll(tx storm.Node, matcher q.Matcher, kind any) error {
	err := tx.Select(matcher).Delete(kind)
	if err == storm.ErrNotFound {
		return nil
	}
	return err
}

// Close the database.
func (c *strm) Close() error {
	return c.db.Close()
}

// IsNotFound returns true if err is a not found error.
func (c *strm) IsNotFound(err error) bool {
	return errors.Cause(err) == storm.ErrNotFound
}

// IsAlreadyExists returns true if err is a unique constraint violation.
func (c *strm) IsAlreadyExists(err error) bool {
	return errors.Cause(err) == storm.ErrAlreadyExists
}

// FindUser returns the user for the given id (UUID).
func (c *strm) FindUser(id string) (*model.User, error) {
	var user model.User
	if err := c.db.One("ID", id, &user); err != nil {
		return nil, errors.Wrap(err, "find user by id")
	}
	return &user, nil
}

// FindUserByUsername returns the user for the given username.
func (c *strm) FindUserByUsername(username string) (*model.User, error) {
	var user model.User
	if err := c.db.One("Username", username, &user); err != nil {
		return nil, errors.Wrap(err, "find user by username")
	}
	return &user, nil
}

// FindUserByIdentity returns the user for the given provider/uid pair.
func (c *strm) FindUserByIdentity(provider, uid string) (*model.User, error) {
	var user model.User
	if err := c.db.One("Identity", model.Identity(provider, uid), &user); err != nil {
		return nil, errors.Wrap(err, "find user by identity")
	}
	return &user, nil
}

// FindProfileByUserID returns the profile of the given user.
func (c *strm) FindProfileByUserID(userID string) (*model.Profile, error) {
	var profile model.Profile
	if err := c.db.One("UserID", userID, &profile); err != nil {
		return nil, errors.Wrap(err, "find profile by user id")
	}
	return &profile, nil
}

// FindSession returns the session for the given id (UUID).
func (c *strm) FindSession(id string) (*model.Session, error) {
	var session model.Session
	if err := c.db.One("ID", id, &session); err != nil {
		return nil, errors.Wrap(err, "find session by id")
	}
	return &session, nil
}

// FindSessionByUserID returns the session for the given id and user id.
func (c *strm) FindSessionByUserID(id, userID string) (*model.Session, error) {
	var session model.Session
	err := c.db.Select(q.Eq("ID", id), q.Eq("UserID", userID)).First(&session)
	if err != nil {
		return nil, errors.Wrap(err, "find session by id and user id")
	}
	return &session, nil
}

// FindSessionsByUserID returns all the sessions for the given user id.
func (c *strm) FindSessionsByUserID(userID string) ([]*model.Session, error) {
	sessions := make([]*model.Session, 0)
	err := c.db.Select(q.Eq("UserID", userID)).OrderBy("CreatedAt").Find(&sessions)
	if err != nil && !c.IsNotFound(err) {
		return nil, errors.Wrap(err, "could not find sessions by user id")
	}
	return sessions, nil
}

// FindSessionByAccessToken returns the session for the given access token.
func (c *strm) FindSessionByAccessToken(token string) (*model.Session, error) {
	var session model.Session
	if err := c.db.One("AccessToken", token, &session); err != nil {
		return nil, errors.Wrap(err, "find session by access token")
	}
	return &session, nil
}

// FindSessionByRefreshToken returns the session for the given refresh token.
func (c *strm) FindSessionByRefreshToken(token string) (*model.Session, error) {
	var session model.Session
	if err := c.db.One("RefreshToken", token, &session); err != nil {
		return nil, errors.Wrap(err, "find session by refresh token")
	}
	return &session, nil
}

// FindSessions returns all the sessions, oldest first.
func (c *strm) FindSessions() ([]*model.Session, error) {
	sessions := make([]*model.Session, 0)
	err := c.db.Select().OrderBy("CreatedAt").Find(&sessions)
	if err != nil && !c.IsNotFound(err) {
		return nil, errors.Wrap(err, "could not find sessions")
	}
	return sessions, nil
}

// FindCadetMetaByLogin returns the cadet metadata for the given login.
func (c *strm) FindCadetMetaByLogin(login string) (*model.CadetMeta, error) {
	var meta model.CadetMeta
	if err := c.db.One("Login", login, &meta); err != nil {
		return nil, errors.Wrap(err, "find cadet meta by login")
	}
	return &meta, nil
}

// FindIntraProfileByLogin returns the profile for the given login.
func (c *strm) FindIntraProfileByLogin(login string) (*model.IntraProfile, error) {
	var profile model.IntraProfile
	if err := c.db.One("Login", login, &profile); err != nil {
		return nil, errors.Wrap(err, "find intra profile by login")
	}
	return &profile, nil
}

// FindIntraProfileByIntraID returns the profile for the given Intra id.
func (c *strm) FindIntraProfileByIntraID(intraID int) (*model.IntraProfile, error) {
	var profile model.IntraProfile
	if err := c.db.One("IntraID", intraID, &profile); err != nil {
		return nil, errors.Wrap(err, "find intra profile by intra id")
	}
	return &profile, nil
}

// FindIntraProfiles returns all the profiles matching the given filter, ordered by login.
func (c *strm) FindIntraProfiles(filter IntraProfileFilter) ([]*model.IntraProfile, error) {
	var query []q.Matcher
	if filter.BookmarkedOnly {
		query = append(query, q.Eq("IsBookmarked", true))
	}
	if filter.PoolMonth != "" {
		query = append(query, q.Eq("PoolMonth", filter.PoolMonth))
	}
	if filter.PoolYear != "" {
		query = append(query, q.Eq("PoolYear", filter.PoolYear))
	}

	profiles := make([]*model.IntraProfile, 0)
	err := c.db.Select(query...).OrderBy("Login").Find(&profiles)
	if err != nil && !c.IsNotFound(err) {
		return nil, errors.Wrap(err, "could not find intra profiles")
	}
	return profiles, nil
}

// FindIntraProfileData returns the history of a profile, newest first.
// limit equals to 0 means all snapshots.
func (c *strm) FindIntraProfileData(profileID string, limit int) ([]*model.IntraProfileData, error) {
	data := make([]*model.IntraProfileData, 0)
	stmt := c.db.Select(q.Eq("ProfileID", profileID)).OrderBy("CreatedAt").Reverse()
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	err := stmt.Find(&data)
	if err != nil && !c.IsNotFound(err) {
		return nil, errors.Wrap(err, "could not find intra profile history")
	}
	return data, nil
}

// FindWebhookByName returns the webhook for the given name.
func (c *strm) FindWebhookByName(name string) (*model.Webhook, error) {
	var webhook model.Webhook
	if err := c.db.One("Name", name, &webhook); err != nil {
		return nil, errors.Wrap(err, "find webhook by name")
	}
	return &webhook, nil
}

// FindWebhooks returns all the webhooks ordered by name.
func (c *strm) FindWebhooks() ([]*model.Webhook, error) {
	webhooks := make([]*model.Webhook, 0)
	err := c.db.Select().OrderBy("Name").Find(&webhooks)
	if err != nil && !c.IsNotFound(err) {
		return nil, errors.Wrap(err, "could not find webhooks")
	}
	return webhooks, nil
}
