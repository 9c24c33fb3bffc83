package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/go-playground/validator/v10"
)

// Environment variables consulted by CredentialsFromEnv.
const (
	EnvEmail    = "LINKEDIN_EMAIL"
	EnvPassword = "LINKEDIN_PASSWORD"
)

const redacted = "[redacted]"

// Credentials are the account identifier and secret used to log in.
// They are never logged: both String and LogValue redact them.
type Credentials struct {
	Email    string `validate:"required"`
	Password string `validate:"required"`
}

// CredentialsFromEnv reads credentials from LINKEDIN_EMAIL and LINKEDIN_PASSWORD.
func CredentialsFromEnv() Credentials {
	return Credentials{
		Email:    os.Getenv(EnvEmail),
		Password: os.Getenv(EnvPassword),
	}
}

// Or returns c with any empty field taken from other.
func (c Credentials) Or(other Credentials) Credentials {
	if c.Email == "" {
		c.Email = other.Email
	}
	if c.Password == "" {
		c.Password = other.Password
	}
	return c
}

// Validate checks that both fields are present.
func (c Credentials) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("credentials required: set --email/--password or %s/%s", EnvEmail, EnvPassword)
	}
	return nil
}

func (c Credentials) String() string {
	return redacted
}

// LogValue implements slog.LogValuer.
func (c Credentials) LogValue() slog.Value {
	return slog.StringValue(redacted)
}
