package session

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
)

const (
	TextCodeNotAuthenticated = "NOT_AUTHENTICATED"
	TextCodeProfileNotFound  = "PROFILE_NOT_FOUND"
	TextCodeTokenExpired     = "TOKEN_EXPIRED"
	TextCodeTokenMalformed   = "TOKEN_MALFORMED"
	TextCodeEmptyPassword    = "EMPTY_PASSWORD"
	TextCodePasswordTooShort = "PASSWORD_TOO_SHORT"
	TextCodeInvalidCreds     = "INVALID_CREDENTIALS"
)

// ErrNotAuthenticated is returned by mutations that require a signed-in user.
var ErrNotAuthenticated = goerrors.New("not authenticated", goerrors.CategoryAuth).
	WithTextCode(TextCodeNotAuthenticated).
	WithCode(goerrors.CodeUnauthorized)

// ErrProfileNotFound marks the one error class the cache compensates for.
var ErrProfileNotFound = goerrors.New("profile not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeProfileNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrTokenExpired is returned when validating a token past its expiry.
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed is returned for tokens we cannot parse.
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrNoEmptyString rejects empty passwords before hashing.
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(goerrors.CodeBadRequest)

// ErrPasswordTooShort is the local validation failure for short passwords.
// The message is user-facing and surfaced verbatim by forms.
var ErrPasswordTooShort = goerrors.New("Password must be at least 6 characters long", goerrors.CategoryValidation).
	WithTextCode(TextCodePasswordTooShort).
	WithCode(goerrors.CodeBadRequest)

// ErrMismatchedHashAndPassword is returned for credential mismatches. We keep
// it deliberately indistinct from "no such user" so sign-in cannot be used to
// enumerate accounts.
var ErrMismatchedHashAndPassword = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(goerrors.CodeUnauthorized)

// IsProfileNotFound reports whether err is the recognized "row missing"
// class that triggers auto-provisioning. Anything else propagates uncached.
func IsProfileNotFound(err error) bool {
	if err == nil {
		return false
	}

	if repository.IsRecordNotFound(err) {
		return true
	}

	return goerrors.IsNotFound(err)
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
