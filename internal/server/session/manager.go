package session

import (
	"time"

	"github.com/42-Bangkok/gateway/internal/database"
	"github.com/42-Bangkok/gateway/internal/model"
	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned when no session matches the presented token.
	ErrNotFound = errors.New("session not found")
	// ErrExpired is returned when the session exists but its access token is stale.
	ErrExpired = errors.New("session expired")
)

type (
	// A Manager manages sessions.
	Manager interface {
		// ExpiresIn returns the access token validity window in seconds.
		ExpiresIn() int64
		// RefreshTokenExpiresIn returns the refresh token validity window in seconds.
		RefreshTokenExpiresIn() int64
		// Create issues and persists a new session for the given user.
		Create(user *model.User, userAgent string) (*model.Session, error)
		// Validate looks up the session of an access token.
		// Expiry is not checked.
		Validate(token string) (*model.Session, error)
		// ValidateRefreshToken looks up the session of a refresh token.
		// Expiry is not checked.
		ValidateRefreshToken(token string) (*model.Session, error)
		// IsExpired returns true when the access token is past its window.
		IsExpired(session *model.Session) bool
		// IsRefreshTokenExpired returns true when the refresh token is past its window.
		IsRefreshTokenExpired(session *model.Session) bool
		// Refresh replaces the access token when candidate is the session's valid refresh token.
		// The refresh token itself is kept.
		Refresh(session *model.Session, candidate string) (bool, error)
		// Destroy deletes the session.
		Destroy(session *model.Session) error
		// Authenticate returns the valid session and its owner for the given access token.
		Authenticate(token string) (*model.Session, *model.User, error)
		// Prune deletes all the sessions whose refresh token is expired.
		Prune() (int, error)
	}

	manager struct {
		db database.Client
		// Session params
		accessTokenExpirationTime  time.Duration
		refreshTokenExpirationTime time.Duration
		tokenLength                int
		now                        func() time.Time
	}
)

// NewManager returns a new manager.
// A zero value falls back to the default of the parameter.
func NewManager(db database.Client, accessTokenExpirationTime, refreshTokenExpirationTime time.Duration, tokenLength int) Manager {
	if accessTokenExpirationTime <= 0 {
		accessTokenExpirationTime = model.AccessTokenTTL
	}
	if refreshTokenExpirationTime <= 0 {
		refreshTokenExpirationTime = model.RefreshTokenTTL
	}
	if tokenLength <= 0 {
		tokenLength = DefaultTokenLength
	}

	return &manager{
		db:                         db,
		accessTokenExpirationTime:  accessTokenExpirationTime,
		refreshTokenExpirationTime: refreshTokenExpirationTime,
		tokenLength:                tokenLength,
		now:                        time.Now,
	}
}

func (m *manager) ExpiresIn() int64 {
	return int64(m.accessTokenExpirationTime / time.Second)
}

func (m *manager) RefreshTokenExpiresIn() int64 {
	return int64(m.refreshTokenExpirationTime / time.Second)
}

func (m *manager) Create(user *model.User, userAgent string) (*model.Session, error) {
	session := &model.Session{
		UserID:    user.ID,
		UserAgent: userAgent,
	}

	m.generate(session)
	err := m.db.Save(session)
	if err != nil && m.db.IsAlreadyExists(err) {
		// Token collision, one more try with fresh tokens.
		m.generate(session)
		err = m.db.Save(session)
	}

	if err != nil {
		return nil, errors.Wrap(err, "could not create session")
	}
	return session, nil
}

func (m *manager) generate(session *model.Session) {
	now := m.now().UTC()

	session.RefreshToken = SecureToken(m.tokenLength)
	session.RefreshTokenCreatedAt = now
	session.AccessToken = m.token(session.RefreshToken)
	session.AccessTokenCreatedAt = now
}

// token returns a new token that differs from other.
func (m *manager) token(other string) string {
	for {
		token := SecureToken(m.tokenLength)
		if token != other {
			return token
		}
	}
}

func (m *manager) Validate(token string) (*model.Session, error) {
	if token == "" {
		return nil, ErrNotFound
	}

	session, err := m.db.FindSessionByAccessToken(token)
	if err != nil {
		if m.db.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "could not get access to database")
	}
	return session, nil
}

func (m *manager) ValidateRefreshToken(token string) (*model.Session, error) {
	if token == "" {
		return nil, ErrNotFound
	}

	session, err := m.db.FindSessionByRefreshToken(token)
	if err != nil {
		if m.db.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "could not get access to database")
	}
	return session, nil
}

func (m *manager) IsExpired(session *model.Session) bool {
	return m.now().Sub(session.AccessTokenCreatedAt) > m.accessTokenExpirationTime
}

func (m *manager) IsRefreshTokenExpired(session *model.Session) bool {
	return m.now().Sub(session.RefreshTokenCreatedAt) > m.refreshTokenExpirationTime
}

func (m *manager) Refresh(session *model.Session, candidate string) (bool, error) {
	if candidate == "" || !SecureCompare(candidate, session.RefreshToken) {
		return false, nil
	}
	if m.IsRefreshTokenExpired(session) {
		return false, nil
	}

	token, createdAt := session.AccessToken, session.AccessTokenCreatedAt

	session.AccessToken = m.token(session.RefreshToken)
	session.AccessTokenCreatedAt = m.now().UTC()
	err := m.db.Save(session)
	if err != nil && m.db.IsAlreadyExists(err) {
		session.AccessToken = m.token(session.RefreshToken)
		err = m.db.Save(session)
	}

	if err != nil {
		session.AccessToken, session.AccessTokenCreatedAt = token, createdAt
		return false, errors.Wrap(err, "could not save session after refreshing session")
	}
	return true, nil
}

func (m *manager) Destroy(session *model.Session) error {
	err := m.db.Delete(session)
	if err != nil && !m.db.IsNotFound(err) {
		return errors.Wrap(err, "could not delete session")
	}
	return nil
}

func (m *manager) Authenticate(token string) (*model.Session, *model.User, error) {
	session, err := m.Validate(token)
	if err != nil {
		return nil, nil, err
	}

	if m.IsExpired(session) {
		return nil, nil, ErrExpired
	}

	// Get current_user.
	user, err := m.db.FindUser(session.UserID)
	if err != nil {
		if m.db.IsNotFound(err) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, errors.Wrap(err, "could not get access to database")
	}

	return session, user, nil
}

func (m *manager) Prune() (int, error) {
	sessions, err := m.db.FindSessions()
	if err != nil {
		return 0, errors.Wrap(err, "could not list sessions")
	}

	var n int
	for _, session := range sessions {
		if !m.IsRefreshTokenExpired(session) {
			continue
		}

		if err = m.Destroy(session); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// IsAuthError returns true if err must be rendered as an authentication failure.
func IsAuthError(err error) bool {
	cause := errors.Cause(err)
	return cause == ErrNotFound || cause == ErrExpired
}
