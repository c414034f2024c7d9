package twitter

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Sentinel auth failures, decided from the HTTP status at the client
// boundary so callers never inspect response shapes themselves.
var (
	// ErrInvalidCredentials means the key/secret or token/secret pair is
	// wrong (HTTP 401).
	ErrInvalidCredentials = errors.New("twitter: invalid credentials, check the API key/secret and access token/secret")

	// ErrInsufficientPermissions means the app is not set up for
	// read-write access, uses the wrong auth type, or is missing a
	// callback URL (HTTP 403).
	ErrInsufficientPermissions = errors.New("twitter: insufficient permissions, enable read-write access with OAuth 1.0a user context in the app settings")
)

// RateLimit carries the platform's x-rate-limit-* response headers.
type RateLimit struct {
	Limit     int
	Remaining int
	Reset     time.Time
}

func (r RateLimit) String() string {
	if r.Limit == 0 && r.Reset.IsZero() {
		return "unknown"
	}
	return strconv.Itoa(r.Remaining) + "/" + strconv.Itoa(r.Limit) + " resets " + r.Reset.Format(time.RFC3339)
}

// RateLimitError is an HTTP 429: the caller should back off until Reset.
type RateLimitError struct {
	RateLimit RateLimit
}

func (e *RateLimitError) Error() string {
	return "twitter: rate limited (" + e.RateLimit.String() + ")"
}

// RemoteError is every other upstream failure, kept rich enough for
// observability: status, the platform's error code/title/detail, and
// whatever rate-limit metadata came with the response.
type RemoteError struct {
	StatusCode int
	Code       int
	Title      string
	Detail     string
	RateLimit  RateLimit
}

func (e *RemoteError) Error() string {
	msg := fmt.Sprintf("twitter: remote error (status %d", e.StatusCode)
	if e.Code != 0 {
		msg += fmt.Sprintf(", code %d", e.Code)
	}
	msg += ")"
	if e.Title != "" {
		msg += ": " + e.Title
	}
	if e.Detail != "" && e.Detail != e.Title {
		msg += ": " + e.Detail
	}
	return msg
}
