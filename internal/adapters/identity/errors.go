package identity

import "errors"

// Error is an identity failure carrying a stable code and a user-facing message.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Code + ": " + e.Message }

var (
	// ErrInvalidEmail is returned when the email address does not parse.
	ErrInvalidEmail = &Error{Code: "invalid_email", Message: "Please enter a valid email address."}
	// ErrEmailInUse is returned when an account already uses the email.
	ErrEmailInUse = &Error{Code: "email_in_use", Message: "This email address is already in use."}
	// ErrWeakPassword is returned for passwords shorter than MinPasswordLength.
	ErrWeakPassword = &Error{Code: "weak_password", Message: "Password should be at least 6 characters long."}
	// ErrPasswordTooLong is returned for passwords bcrypt cannot hash.
	ErrPasswordTooLong = &Error{Code: "weak_password", Message: "Password must be at most 72 characters long."}
	// ErrInvalidCredentials is returned when login fails for any reason the client may see.
	ErrInvalidCredentials = &Error{Code: "invalid_credentials", Message: "Invalid email or password."}
	// ErrInvalidToken is returned for malformed, forged or non-access tokens.
	ErrInvalidToken = &Error{Code: "invalid_token", Message: "Your session is invalid. Please log in again."}
	// ErrExpiredToken is returned when the token is past its expiry.
	ErrExpiredToken = &Error{Code: "expired_token", Message: "Your session has expired. Please log in again."}
)

var (
	// ErrUserNotFound is returned by the repository for unknown users.
	ErrUserNotFound = errors.New("user not found")
	// ErrMissingSecret is returned when tokens cannot be signed.
	ErrMissingSecret = errors.New("identity: jwt secret is empty")
)
