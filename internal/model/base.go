package model

import (
	"time"

	"github.com/gofrs/uuid"
)

type (
	// A Model defines an object that can be stored in database.
	Model interface {
		// GetID returns the model's ID.
		GetID() string
		// GetCreatedAt returns the model's creation date.
		GetCreatedAt() time.Time
		// GetUpdatedAt returns the model's last update date.
		GetUpdatedAt() time.Time
		// Touch applies the persistence rules before a save.
		Touch(now time.Time)
		// Rollback reverts a Touch that has not been persisted.
		Rollback(previous Base)
		// Snapshot returns a copy of the base fields.
		Snapshot() Base
	}

	// A Base contains the fields shared by all persisted entities.
	Base struct {
		ID        string    `json:"id"      msgpack:"id"         storm:"id"`
		CreatedAt time.Time `json:"created" msgpack:"created_at" storm:"index"`
		UpdatedAt time.Time `json:"updated" msgpack:"updated_at" storm:"index"`
	}
)

// GetID returns the model's ID.
func (m *Base) GetID() string {
	return m.ID
}

// GetCreatedAt returns the model's creation date.
func (m *Base) GetCreatedAt() time.Time {
	return m.CreatedAt
}

// GetUpdatedAt returns the model's last update date.
func (m *Base) GetUpdatedAt() time.Time {
	return m.UpdatedAt
}

// IsNew returns true if the model has never been saved.
func (m *Base) IsNew() bool {
	return m.ID == ""
}

// Touch sets ID and CreatedAt on the first save and UpdatedAt on every save.
func (m *Base) Touch(now time.Time) {
	now = now.UTC()
	if m.ID == "" {
		m.ID = uuid.Must(uuid.NewV4()).String()
		m.CreatedAt = now
	}
	m.UpdatedAt = now
}

// Snapshot returns a copy of the base fields.
func (m *Base) Snapshot() Base {
	return *m
}

// Rollback restores base fields captured by Snapshot.
func (m *Base) Rollback(previous Base) {
	*m = previous
}
