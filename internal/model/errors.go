package model

import (
	"errors"
	"fmt"
)

// Kind classifies errors surfaced by the service layer.
type Kind int

const (
	KindInternal Kind = iota
	KindAuth
	KindSecurity
	KindConflict
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindSecurity:
		return "security"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "validation"
	default:
		return "internal"
	}
}

var (
	ErrNotFound             = errors.New("not found")
	ErrDuplicate            = errors.New("duplicate key")
	ErrRefreshTokenMissing  = errors.New("refresh token missing")
	ErrRefreshTokenInvalid  = errors.New("invalid refresh token")
	ErrRefreshTokenExpired  = errors.New("refresh token expired, please log in again")
	ErrRefreshTokenReused   = errors.New("refresh token reuse detected, all sessions revoked")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrTooManyAttempts      = errors.New("too many login attempts, try again later")
	ErrEmailTaken           = errors.New("email is already taken")
	ErrProviderAccountTaken = errors.New("provider account is already linked")
	ErrOAuthEmailMissing    = errors.New("provider did not return an email address")
	ErrUserNotFound         = errors.New("user not found")
	ErrUnknownProvider      = errors.New("unknown oauth provider")
	ErrInvalidAccessToken   = errors.New("invalid access token")
)

// Error is a typed service error.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, err error) error {
	return &Error{Kind: kind, Err: err}
}

func NewAuthError(err error) error       { return newError(KindAuth, err) }
func NewSecurityError(err error) error   { return newError(KindSecurity, err) }
func NewConflictError(err error) error   { return newError(KindConflict, err) }
func NewValidationError(err error) error { return newError(KindValidation, err) }

// NewValidationErrorf formats a validation error message.
func NewValidationErrorf(format string, args ...any) error {
	return newError(KindValidation, fmt.Errorf(format, args...))
}

// KindOf returns the kind of the outermost typed error in the chain.
func KindOf(err error) Kind {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	return KindInternal
}
