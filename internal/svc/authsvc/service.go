package authsvc

import (
	"context"
	"errors"
	"time"
)

var (
	ErrValidation         = errors.New("validation error")
	ErrEmailTaken         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
)

// Service register users and issue bearer token sessions.
type Service interface {
	Register(ctx context.Context, in InputRegister) (out OutRegister, err error)
	Login(ctx context.Context, in InputLogin) (out OutLogin, err error)
	Logout(ctx context.Context, in InputLogout) (out OutLogout, err error)

	// Authenticate returns the session of token, ErrUnauthenticated when token is unknown or expired.
	Authenticate(ctx context.Context, in InputAuthenticate) (out OutAuthenticate, err error)
}

// User is user data which is safe to be shown, without password hash.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Session is what stored in cache for each issued token.
type Session struct {
	User     User      `json:"user"`
	IssuedAt time.Time `json:"issuedAt"`
	ExpireAt time.Time `json:"expireAt"`
}

type InputRegister struct {
	Email    string `validate:"required,email"`
	Name     string `validate:"notblank"`
	Password string `validate:"required,min=6"`
}

type OutRegister struct {
	User User
}

type InputLogin struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

type OutLogin struct {
	Token   string
	Session Session
}

type InputLogout struct {
	Token string `validate:"required"`
}

type OutLogout struct{}

type InputAuthenticate struct {
	Token string `validate:"required"`
}

type OutAuthenticate struct {
	Session Session
}
