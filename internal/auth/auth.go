// Package auth provides manager login credentials and where they come from.
//
// It does not talk to the manager; the session decides how credentials are
// presented on the wire.
package auth

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

var (
	ErrMissingCredentials = errors.New("auth: missing required authentication values: username and password are required")
	ErrMissingEnv         = errors.New("auth: credential environment variable not set")
)

// Credentials are a manager username and password.
type Credentials struct {
	Username string
	Password string
}

// Validate rejects an empty username or password. Values are not trimmed.
func (c Credentials) Validate() error {
	if c.Username == "" || c.Password == "" {
		return ErrMissingCredentials
	}
	return nil
}

// String never includes the password.
func (c Credentials) String() string {
	if c.Password == "" {
		return fmt.Sprintf("%s (no password)", c.Username)
	}
	return fmt.Sprintf("%s (password set)", c.Username)
}

// Source resolves credentials when a session connects.
type Source interface {
	Credentials() (Credentials, error)
}

// Static is a fixed credential pair.
type Static Credentials

func (s Static) Credentials() (Credentials, error) {
	return Credentials(s), nil
}

// FuncSource adapts a function into a Source.
type FuncSource func() (Credentials, error)

func (f FuncSource) Credentials() (Credentials, error) {
	return f()
}

// Env reads the password from the named environment variable. An empty
// variable name yields Static credentials with the given password.
type Env struct {
	Username    string
	Password    string
	PasswordEnv string
}

func (e Env) Credentials() (Credentials, error) {
	name := strings.TrimSpace(e.PasswordEnv)
	if name == "" {
		return Credentials{Username: e.Username, Password: e.Password}, nil
	}
	password, ok := os.LookupEnv(name)
	if !ok {
		return Credentials{}, fmt.Errorf("%w: %s", ErrMissingEnv, name)
	}
	return Credentials{Username: e.Username, Password: password}, nil
}
