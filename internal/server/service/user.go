package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/42-Bangkok/gateway/internal/apierror"
	"github.com/42-Bangkok/gateway/internal/database"
	"github.com/42-Bangkok/gateway/internal/model"
	"github.com/42-Bangkok/gateway/internal/server/serializer"
	"github.com/42-Bangkok/gateway/internal/server/session"
	"github.com/araddon/dateparse"
	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
)

type (
	// A Render is an arbitrary payload serializable in JSON by the API.
	Render any

	// A UserService handles the account of the users.
	UserService interface {
		// Login provisions the user of an external identity and opens a new session.
		Login(params LoginParams) (Render, error)
		// Me renders the given user along with its profile.
		Me(user *model.User) (Render, error)
		// Update applies the given partial update on the user and its profile.
		Update(user *model.User, params UpdateUserParams) (Render, error)
		// Delete deletes the user, its profile and its sessions.
		Delete(user *model.User) error
	}

	// LoginParams are used to login a user.
	LoginParams struct {
		Params
		UID      string `json:"uid"      validate:"required,max=150"`
		Provider string `json:"provider" validate:"required"`
		Email    string `json:"email"    validate:"omitempty,email"`
	}

	// UpdateUserParams are used to update a user.
	// Nil fields are left untouched.
	UpdateUserParams struct {
		Params
		Username         *string `json:"username"          validate:"omitnil,min=3,max=150"`
		Email            *string `json:"email"             validate:"omitempty,email"`
		FirstName        *string `json:"first_name"        validate:"omitnil,max=150"`
		LastName         *string `json:"last_name"         validate:"omitnil,max=150"`
		Gender           *string `json:"gender"            validate:"omitnil,oneof=m f n o u"`
		DOB              *string `json:"dob"`
		TimeOfBirth      *string `json:"time_of_birth"     validate:"omitempty,timeofday"`
		MedicalCondition *string `json:"medical_condition"`
		JobTitle         *string `json:"job_title"         validate:"omitnil,max=255"`
	}

	userService struct {
		db        database.Client
		sessions  session.Manager
		providers []string
	}
)

// NewUser returns a new UserService accepting logins from the given providers.
func NewUser(db database.Client, sessions session.Manager, providers []string) UserService {
	return &userService{
		db:        db,
		sessions:  sessions,
		providers: providers,
	}
}

func (s *userService) Login(params LoginParams) (Render, error) {
	if !s.supports(params.Provider) {
		return nil, apierror.Validation(fmt.Sprintf("provider must be one of: %s", strings.Join(s.providers, " ")))
	}

	user, err := s.provision(params)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.Create(user, params.UserAgent)
	if err != nil {
		return nil, err
	}

	return M{
		"access_token":             session.AccessToken,
		"expires_in":               s.sessions.ExpiresIn(),
		"refresh_token":            session.RefreshToken,
		"refresh_token_expires_in": s.sessions.RefreshTokenExpiresIn(),
	}, nil
}

func (s *userService) supports(provider string) bool {
	for _, p := range s.providers {
		if strings.EqualFold(p, provider) {
			return true
		}
	}
	return false
}

// provision returns the user of the given identity, creating it along with an empty profile when needed.
func (s *userService) provision(params LoginParams) (*model.User, error) {
	user, err := s.db.FindUserByIdentity(params.Provider, params.UID)
	if err == nil {
		if params.Email != "" && params.Email != user.Email {
			user.Email = params.Email
			if err = s.db.Save(user); err != nil {
				return nil, errors.Wrap(err, "could not persist user")
			}
		}
		return user, nil
	}
	if !s.db.IsNotFound(err) {
		return nil, errors.Wrap(err, "could not get access to database")
	}

	user = model.NewUser(params.Provider, params.UID)
	user.Email = params.Email

	err = s.db.Save(user)
	if err != nil && s.db.IsAlreadyExists(err) {
		// The username is already used by another identity.
		user.Username = fmt.Sprintf("%s-%s", params.UID, uuid.Must(uuid.NewV4()).String()[:8])
		err = s.db.Save(user)
	}
	if err != nil {
		return nil, errors.Wrap(err, "could not persist user")
	}

	if err = s.db.Save(model.NewProfile(user.ID)); err != nil {
		return nil, errors.Wrap(err, "could not persist profile")
	}
	return user, nil
}

func (s *userService) Me(user *model.User) (Render, error) {
	profile, err := s.profile(user)
	if err != nil {
		return nil, err
	}
	return serializer.User(user, profile), nil
}

func (s *userService) Update(user *model.User, params UpdateUserParams) (Render, error) {
	profile, err := s.profile(user)
	if err != nil {
		return nil, err
	}

	// Checks that can not be expressed as struct tags.
	var dob *time.Time
	if params.DOB != nil && *params.DOB != "" {
		t, err := dateparse.ParseIn(*params.DOB, time.UTC)
		if err != nil {
			return nil, apierror.Validation("dob must be a valid date")
		}
		t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		dob = &t
	}

	if params.Username != nil && *params.Username != user.Username {
		u, err := s.db.FindUserByUsername(*params.Username)
		if err != nil && !s.db.IsNotFound(err) {
			return nil, errors.Wrap(err, "could not get access to database")
		}
		if u != nil {
			return nil, apierror.Validation("username already exists")
		}
	}

	s.apply(user, profile, params)
	if params.DOB != nil {
		profile.DOB = dob
	}

	if err = s.db.Save(user); err != nil {
		if s.db.IsAlreadyExists(err) {
			return nil, apierror.Validation("username already exists")
		}
		return nil, errors.Wrap(err, "could not persist user")
	}
	if err = s.db.Save(profile); err != nil {
		return nil, errors.Wrap(err, "could not persist profile")
	}

	return serializer.User(user, profile), nil
}

func (s *userService) Delete(user *model.User) error {
	return errors.Wrap(s.db.Delete(user), "could not delete user")
}

// profile returns the profile of the user or a new one when the user has none.
func (s *userService) profile(user *model.User) (*model.Profile, error) {
	profile, err := s.db.FindProfileByUserID(user.ID)
	if err != nil {
		if s.db.IsNotFound(err) {
			return model.NewProfile(user.ID), nil
		}
		return nil, errors.Wrap(err, "could not get profile")
	}
	return profile, nil
}

// updates given user and profile with given params.
// works like strong_parameter.
func (s *userService) apply(u *model.User, p *model.Profile, params UpdateUserParams) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}

	set(&u.Username, params.Username)
	set(&u.Email, params.Email)
	set(&p.FirstName, params.FirstName)
	set(&p.LastName, params.LastName)
	set(&p.Gender, params.Gender)
	set(&p.TimeOfBirth, params.TimeOfBirth)
	set(&p.MedicalCondition, params.MedicalCondition)
	set(&p.JobTitle, params.JobTitle)
}
