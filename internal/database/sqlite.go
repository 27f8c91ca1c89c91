package database

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/42-Bangkok/gateway/internal/database/migrations"
	"github.com/42-Bangkok/gateway/internal/model"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrNotFound is returned by the SQLite driver when no record matches.
var ErrNotFound = errors.New("not found")

const sqlitePragmas = "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

type sqlt struct {
	db  *sql.DB
	now func() time.Time
}

func sqliteDB(database string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(database), 0o755); err != nil {
		return nil, errors.Wrap(err, "could not create database directory")
	}

	db, err := sql.Open("sqlite", database+sqlitePragmas)
	if err != nil {
		return nil, errors.Wrap(err, "could not get database connection")
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "could not ping database")
	}
	return db, nil
}

func migrate(db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(logrus.StandardLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return errors.Wrap(err, "could not set migration dialect")
	}
	return errors.Wrap(goose.Up(db, "."), "could not apply migrations")
}

// SQLiteMigrate applies all the pending migrations on the given SQLite database.
func SQLiteMigrate(database string) error {
	db, err := sqliteDB(database)
	if err != nil {
		return err
	}
	defer db.Close()

	return migrate(db)
}

// SQLiteOpen returns a new SQLite database connection.
// Pending migrations are applied before returning.
func SQLiteOpen(database string) (Client, error) {
	db, err := sqliteDB(database)
	if err != nil {
		return nil, err
	}

	if err = migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqlt{
		db:  db,
		now: time.Now,
	}, nil
}

// Save inserts or updates the entry in database with the given model.
func (c *sqlt) Save(m model.Model) error {
	previous := m.Snapshot()
	m.Touch(c.now())

	if err := c.upsert(m); err != nil {
		m.Rollback(previous)
		return errors.Wrap(err, "could not save the model")
	}
	return nil
}

func (c *sqlt) upsert(m model.Model) error {
	var err error

	switch v := m.(type) {
	case *model.User:
		_, err = c.db.Exec(`INSERT INTO users (id, created_at, updated_at, username, email, provider, uid, identity)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at, username = excluded.username,
			email = excluded.email, provider = excluded.provider, uid = excluded.uid, identity = excluded.identity`,
			v.ID, nanos(v.CreatedAt), nanos(v.UpdatedAt), nullable(v.Username), v.Email, v.Provider, v.UID, nullable(v.Identity))
	case *model.Profile:
		_, err = c.db.Exec(`INSERT INTO profiles (id, created_at, updated_at, user_id, first_name, last_name, gender, dob,
			time_of_birth, medical_condition, job_title)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at, user_id = excluded.user_id,
			first_name = excluded.first_name, last_name = excluded.last_name, gender = excluded.gender, dob = excluded.dob,
			time_of_birth = excluded.time_of_birth, medical_condition = excluded.medical_condition, job_title = excluded.job_title`,
			v.ID, nanos(v.CreatedAt), nanos(v.UpdatedAt), v.UserID, v.FirstName, v.LastName, v.Gender, nullableTime(v.DOB),
			v.TimeOfBirth, v.MedicalCondition, v.JobTitle)
	case *model.Session:
		_, err = c.db.Exec(`INSERT INTO sessions (id, created_at, updated_at, user_id, user_agent,
			access_token, access_token_created_at, refresh_token, refresh_token_created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at, user_id = excluded.user_id,
			user_agent = excluded.user_agent, access_token = excluded.access_token,
			access_token_created_at = excluded.access_token_created_at, refresh_token = excluded.refresh_token,
			refresh_token_created_at = excluded.refresh_token_created_at`,
			v.ID, nanos(v.CreatedAt), nanos(v.UpdatedAt), v.UserID, v.UserAgent,
			nullable(v.AccessToken), nanos(v.AccessTokenCreatedAt), nullable(v.RefreshToken), nanos(v.RefreshTokenCreatedAt))
	case *model.CadetMeta:
		_, err = c.db.Exec(`INSERT INTO cadet_metas (id, created_at, updated_at, login, note)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at, login = excluded.login, note = excluded.note`,
			v.ID, nanos(v.CreatedAt), nanos(v.UpdatedAt), nullable(v.Login), v.Note)
	case *model.IntraProfile:
		cursus, merr := json.Marshal(v.CursusIDs)
		if merr != nil {
			return errors.Wrap(merr, "could not serialize cursus ids")
		}
		_, err = c.db.Exec(`INSERT INTO intra_profiles (id, created_at, updated_at, login, intra_id, is_bookmarked,
			pool_month, pool_year, cursus_ids)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at, login = excluded.login,
			intra_id = excluded.intra_id, is_bookmarked = excluded.is_bookmarked, pool_month = excluded.pool_month,
			pool_year = excluded.pool_year, cursus_ids = excluded.cursus_ids`,
			v.ID, nanos(v.CreatedAt), nanos(v.UpdatedAt), nullable(v.Login), nullableInt(v.IntraID), v.IsBookmarked,
			v.PoolMonth, v.PoolYear, string(cursus))
	case *model.IntraProfileData:
		data := string(v.Data)
		if data == "" {
			data = "null"
		}
		_, err = c.db.Exec(`INSERT INTO intra_profile_data (id, created_at, updated_at, profile_id, data)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at, profile_id = excluded.profile_id,
			data = excluded.data`,
			v.ID, nanos(v.CreatedAt), nanos(v.UpdatedAt), v.ProfileID, data)
	case *model.Webhook:
		_, err = c.db.Exec(`INSERT INTO webhooks (id, created_at, updated_at, name, description, url)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at, name = excluded.name,
			description = excluded.description, url = excluded.url`,
			v.ID, nanos(v.CreatedAt), nanos(v.UpdatedAt), nullable(v.Name), v.Description, v.URL)
	default:
		return errors.Errorf("unsupported model %T", m)
	}

	return err
}

// Delete deletes the entry in database with the given model.
// Owned records are removed by the foreign keys cascade.
func (c *sqlt) Delete(m model.Model) error {
	var table string
	switch m.(type) {
	case *model.User:
		table = "users"
	case *model.Profile:
		table = "profiles"
	case *model.Session:
		table = "sessions"
	case *model.CadetMeta:
		table = "cadet_metas"
	case *model.IntraProfile:
		table = "intra_profiles"
	case *model.IntraProfileData:
		table = "intra_profile_data"
	case *model.Webhook:
		table = "webhooks"
	default:
		return errors.Errorf("unsupported model %T", m)
	}

	result, err := c.db.Exec("DELETE FROM "+table+" WHERE id = ?", m.GetID())
	if err != nil {
		return errors.Wrap(err, "could not delete the model")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "could not delete the model")
	}
	if n == 0 {
		return errors.Wrap(ErrNotFound, "could not delete the model")
	}
	return nil
}

// Close the database.
func (c *sqlt) Close() error {
	return c.db.Close()
}

// IsNotFound returns true if err is a not found error.
func (c *sqlt) IsNotFound(err error) bool {
	cause := errors.Cause(err)
	return cause == ErrNotFound || cause == sql.ErrNoRows
}

// IsAlreadyExists returns true if err is a unique constraint violation.
func (c *sqlt) IsAlreadyExists(err error) bool {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	return serr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || serr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

//
// Users
//

const userColumns = "id, created_at, updated_at, username, email, provider, uid, identity"

func scanUser(row scanner) (*model.User, error) {
	var user model.User
	var created, updated int64
	var username, identity sql.NullString

	err := row.Scan(&user.ID, &created, &updated, &username, &user.Email, &user.Provider, &user.UID, &identity)
	if err != nil {
		return nil, err
	}
	user.CreatedAt = fromNanos(created)
	user.UpdatedAt = fromNanos(updated)
	user.Username = username.String
	user.Identity = identity.String
	return &user, nil
}

func (c *sqlt) findUser(query string, args ...any) (*model.User, error) {
	return scanUser(c.db.QueryRow("SELECT "+userColumns+" FROM users WHERE "+query, args...))
}

// FindUser returns the user for the given id (UUID).
func (c *sqlt) FindUser(id string) (*model.User, error) {
	user, err := c.findUser("id = ?", id)
	return user, errors.Wrap(err, "find user by id")
}

// FindUserByUsername returns the user for the given username.
func (c *sqlt) FindUserByUsername(username string) (*model.User, error) {
	user, err := c.findUser("username = ?", username)
	return user, errors.Wrap(err, "find user by username")
}

// FindUserByIdentity returns the user for the given provider/uid pair.
func (c *sqlt) FindUserByIdentity(provider, uid string) (*model.User, error) {
	user, err := c.findUser("identity = ?", model.Identity(provider, uid))
	return user, errors.Wrap(err, "find user by identity")
}

//
// Profiles
//

// FindProfileByUserID returns the profile of the given user.
func (c *sqlt) FindProfileByUserID(userID string) (*model.Profile, error) {
	var profile model.Profile
	var created, updated int64
	var dob sql.NullInt64

	err := c.db.QueryRow(`SELECT id, created_at, updated_at, user_id, first_name, last_name, gender, dob,
		time_of_birth, medical_condition, job_title FROM profiles WHERE user_id = ?`, userID).Scan(
		&profile.ID, &created, &updated, &profile.UserID, &profile.FirstName, &profile.LastName, &profile.Gender, &dob,
		&profile.TimeOfBirth, &profile.MedicalCondition, &profile.JobTitle,
	)
	if err != nil {
		return nil, errors.Wrap(err, "find profile by user id")
	}
	profile.CreatedAt = fromNanos(created)
	profile.UpdatedAt = fromNanos(updated)
	if dob.Valid {
		t := time.Unix(0, dob.Int64).UTC()
		profile.DOB = &t
	}
	return &profile, nil
}

//
// Sessions
//

const sessionColumns = "id, created_at, updated_at, user_id, user_agent, access_token, access_token_created_at, " +
	"refresh_token, refresh_token_created_at"

func scanSession(row scanner) (*model.Session, error) {
	var session model.Session
	var created, updated, accessCreated, refreshCreated int64
	var access, refresh sql.NullString

	err := row.Scan(&session.ID, &created, &updated, &session.UserID, &session.UserAgent,
		&access, &accessCreated, &refresh, &refreshCreated)
	if err != nil {
		return nil, err
	}
	session.CreatedAt = fromNanos(created)
	session.UpdatedAt = fromNanos(updated)
	session.AccessToken = access.String
	session.AccessTokenCreatedAt = fromNanos(accessCreated)
	session.RefreshToken = refresh.String
	session.RefreshTokenCreatedAt = fromNanos(refreshCreated)
	return &session, nil
}

func (c *sqlt) findSession(query string, args ...any) (*model.Session, error) {
	return scanSession(c.db.QueryRow("SELECT "+sessionColumns+" FROM sessions WHERE "+query, args...))
}

func (c *sqlt) findSessions(query string, args ...any) ([]*model.Session, error) {
	rows, err := c.db.Query("SELECT "+sessionColumns+" FROM sessions "+query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]*model.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// FindSession returns the session for the given id (UUID).
func (c *sqlt) FindSession(id string) (*model.Session, error) {
	session, err := c.findSession("id = ?", id)
	return session, errors.Wrap(err, "find session by id")
}

// FindSessionByUserID returns the session for the given id and user id.
func (c *sqlt) FindSessionByUserID(id, userID string) (*model.Session, error) {
	session, err := c.findSession("id = ? AND user_id = ?", id, userID)
	return session, errors.Wrap(err, "find session by id and user id")
}

// FindSessionsByUserID returns all the sessions for the given user id.
func (c *sqlt) FindSessionsByUserID(userID string) ([]*model.Session, error) {
	sessions, err := c.findSessions("WHERE user_id = ? ORDER BY created_at", userID)
	return sessions, errors.Wrap(err, "could not find sessions by user id")
}

// FindSessionByAccessToken returns the session for the given access token.
func (c *sqlt) FindSessionByAccessToken(token string) (*model.Session, error) {
	session, err := c.findSession("access_token = ?", token)
	return session, errors.Wrap(err, "find session by access token")
}

// FindSessionByRefreshToken returns the session for the given refresh token.
func (c *sqlt) FindSessionByRefreshToken(token string) (*model.Session, error) {
	session, err := c.findSession("refresh_token = ?", token)
	return session, errors.Wrap(err, "find session by refresh token")
}

// FindSessions returns all the sessions, oldest first.
func (c *sqlt) FindSessions() ([]*model.Session, error) {
	sessions, err := c.findSessions("ORDER BY created_at")
	return sessions, errors.Wrap(err, "could not find sessions")
}

//
// Cadet metadata
//

// FindCadetMetaByLogin returns the cadet metadata for the given login.
func (c *sqlt) FindCadetMetaByLogin(login string) (*model.CadetMeta, error) {
	var meta model.CadetMeta
	var created, updated int64
	var mlogin sql.NullString

	err := c.db.QueryRow("SELECT id, created_at, updated_at, login, note FROM cadet_metas WHERE login = ?", login).
		Scan(&meta.ID, &created, &updated, &mlogin, &meta.Note)
	if err != nil {
		return nil, errors.Wrap(err, "find cadet meta by login")
	}
	meta.CreatedAt = fromNanos(created)
	meta.UpdatedAt = fromNanos(updated)
	meta.Login = mlogin.String
	return &meta, nil
}

//
// Intra
//

const intraProfileColumns = "id, created_at, updated_at, login, intra_id, is_bookmarked, pool_month, pool_year, cursus_ids"

func scanIntraProfile(row scanner) (*model.IntraProfile, error) {
	var profile model.IntraProfile
	var created, updated int64
	var login sql.NullString
	var intraID sql.NullInt64
	var cursus string

	err := row.Scan(&profile.ID, &created, &updated, &login, &intraID, &profile.IsBookmarked,
		&profile.PoolMonth, &profile.PoolYear, &cursus)
	if err != nil {
		return nil, err
	}
	profile.CreatedAt = fromNanos(created)
	profile.UpdatedAt = fromNanos(updated)
	profile.Login = login.String
	profile.IntraID = int(intraID.Int64)
	profile.CursusIDs = []int{}
	if err = json.Unmarshal([]byte(cursus), &profile.CursusIDs); err != nil {
		return nil, errors.Wrap(err, "could not parse cursus ids")
	}
	return &profile, nil
}

// FindIntraProfileByLogin returns the profile for the given login.
func (c *sqlt) FindIntraProfileByLogin(login string) (*model.IntraProfile, error) {
	profile, err := scanIntraProfile(c.db.QueryRow("SELECT "+intraProfileColumns+" FROM intra_profiles WHERE login = ?", login))
	return profile, errors.Wrap(err, "find intra profile by login")
}

// FindIntraProfileByIntraID returns the profile for the given Intra id.
func (c *sqlt) FindIntraProfileByIntraID(intraID int) (*model.IntraProfile, error) {
	profile, err := scanIntraProfile(c.db.QueryRow("SELECT "+intraProfileColumns+" FROM intra_profiles WHERE intra_id = ?", intraID))
	return profile, errors.Wrap(err, "find intra profile by intra id")
}

// FindIntraProfiles returns all the profiles matching the given filter, ordered by login.
func (c *sqlt) FindIntraProfiles(filter IntraProfileFilter) ([]*model.IntraProfile, error) {
	query := "SELECT " + intraProfileColumns + " FROM intra_profiles WHERE 1 = 1"
	var args []any
	if filter.BookmarkedOnly {
		query += " AND is_bookmarked = 1"
	}
	if filter.PoolMonth != "" {
		query += " AND pool_month = ?"
		args = append(args, filter.PoolMonth)
	}
	if filter.PoolYear != "" {
		query += " AND pool_year = ?"
		args = append(args, filter.PoolYear)
	}
	query += " ORDER BY login"

	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "could not find intra profiles")
	}
	defer rows.Close()

	profiles := make([]*model.IntraProfile, 0)
	for rows.Next() {
		profile, err := scanIntraProfile(rows)
		if err != nil {
			return nil, errors.Wrap(err, "could not find intra profiles")
		}
		profiles = append(profiles, profile)
	}
	return profiles, errors.Wrap(rows.Err(), "could not find intra profiles")
}

// FindIntraProfileData returns the history of a profile, newest first.
// limit equals to 0 means all snapshots.
func (c *sqlt) FindIntraProfileData(profileID string, limit int) ([]*model.IntraProfileData, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := c.db.Query(`SELECT id, created_at, updated_at, profile_id, data FROM intra_profile_data
		WHERE profile_id = ? ORDER BY created_at DESC LIMIT ?`, profileID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "could not find intra profile history")
	}
	defer rows.Close()

	history := make([]*model.IntraProfileData, 0)
	for rows.Next() {
		var data model.IntraProfileData
		var created, updated int64
		var raw string

		if err = rows.Scan(&data.ID, &created, &updated, &data.ProfileID, &raw); err != nil {
			return nil, errors.Wrap(err, "could not find intra profile history")
		}
		data.CreatedAt = fromNanos(created)
		data.UpdatedAt = fromNanos(updated)
		data.Data = json.RawMessage(raw)
		history = append(history, &data)
	}
	return history, errors.Wrap(rows.Err(), "could not find intra profile history")
}

//
// Webhooks
//

const webhookColumns = "id, created_at, updated_at, name, description, url"

func scanWebhook(row scanner) (*model.Webhook, error) {
	var webhook model.Webhook
	var created, updated int64
	var name sql.NullString

	if err := row.Scan(&webhook.ID, &created, &updated, &name, &webhook.Description, &webhook.URL); err != nil {
		return nil, err
	}
	webhook.CreatedAt = fromNanos(created)
	webhook.UpdatedAt = fromNanos(updated)
	webhook.Name = name.String
	return &webhook, nil
}

// FindWebhookByName returns the webhook for the given name.
func (c *sqlt) FindWebhookByName(name string) (*model.Webhook, error) {
	webhook, err := scanWebhook(c.db.QueryRow("SELECT "+webhookColumns+" FROM webhooks WHERE name = ?", name))
	return webhook, errors.Wrap(err, "find webhook by name")
}

// FindWebhooks returns all the webhooks ordered by name.
func (c *sqlt) FindWebhooks() ([]*model.Webhook, error) {
	rows, err := c.db.Query("SELECT " + webhookColumns + " FROM webhooks ORDER BY name")
	if err != nil {
		return nil, errors.Wrap(err, "could not find webhooks")
	}
	defer rows.Close()

	webhooks := make([]*model.Webhook, 0)
	for rows.Next() {
		webhook, err := scanWebhook(rows)
		if err != nil {
			return nil, errors.Wrap(err, "could not find webhooks")
		}
		webhooks = append(webhooks, webhook)
	}
	return webhooks, errors.Wrap(rows.Err(), "could not find webhooks")
}

//
// Helpers
//

type scanner interface {
	Scan(dest ...any) error
}

// nullable stores empty unique values as NULL so they never collide.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullableInt(i int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(i), Valid: i != 0}
}

func nullableTime(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func nanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
