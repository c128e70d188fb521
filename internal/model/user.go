package model

import (
	"context"
	"time"
)

// UserStore defines persistence operations for users.
type UserStore interface {
	GetByID(ctx context.Context, id int64) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, user User) (User, error)
	// Delete soft-deletes the user together with its social account links.
	Delete(ctx context.Context, id int64) error
}

// User is the identity anchor. PasswordHash is nil for accounts created through OAuth only.
type User struct {
	ID           int64
	Email        string
	PasswordHash *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

// RegisterInput carries a local registration request.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}
