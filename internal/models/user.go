package models

import (
	"time"
)

// User lifecycle states. A user is active until soft-deleted (trashed),
// and can be restored or purged from the trash. Purged rows no longer
// exist, so they have no state.
const (
	LifecycleActive  = "active"
	LifecycleTrashed = "trashed"
)

type User struct {
	ID           int64
	Email        string
	Username     string
	PasswordHash string // never serialized outward
	IsAdmin      bool
	Gender       *string // "male" or "female"
	FullName     string
	Photo        *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

// Lifecycle reports the user's soft-delete state.
func (u *User) Lifecycle() string {
	if u.DeletedAt != nil {
		return LifecycleTrashed
	}
	return LifecycleActive
}
