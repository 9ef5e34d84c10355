package session

import (
	"context"
	"errors"

	"github.com/visionqc/visionqc/pkg/models"
)

// ErrInvalidCredentials is returned when an email/password pair is rejected.
var ErrInvalidCredentials = errors.New("invalid email or password")

// Authenticator checks a credential pair and returns the matching user.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (models.User, error)
}

// Credential is one accepted email/password pair.
type Credential struct {
	Email    string
	Password string
	User     models.User
}

// StaticAuthenticator accepts a fixed list of plaintext credentials. It is a
// placeholder for a real identity provider.
type StaticAuthenticator struct {
	Credentials []Credential
}

// Authenticate implements Authenticator.
func (a StaticAuthenticator) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	if err := ctx.Err(); err != nil {
		return models.User{}, err
	}
	for _, c := range a.Credentials {
		if c.Email == email && c.Password == password {
			return c.User, nil
		}
	}
	return models.User{}, ErrInvalidCredentials
}

// DefaultAuthenticator returns the demo administrator credential.
func DefaultAuthenticator() StaticAuthenticator {
	return StaticAuthenticator{Credentials: []Credential{{
		Email:    "admin@example.com",
		Password: "admin123",
		User: models.User{
			Email:    "admin@example.com",
			Role:     models.RoleAdmin,
			Username: "系统管理员",
		},
	}}}
}
