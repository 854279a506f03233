// Package service talks to the feed synchronisation service.
package service

import (
	"context"
	"errors"

	"github.com/klauern/feedsync/internal/model"
)

// Credentials identify the account on the service.
type Credentials struct {
	Email    string
	Password string
}

// IsZero reports whether no account is configured.
func (c Credentials) IsZero() bool {
	return c.Email == "" && c.Password == ""
}

// Client is the service surface the synchronisation engine consumes.
type Client interface {
	// FetchSnapshot downloads the account's guide/feed tree.
	FetchSnapshot(ctx context.Context, creds Credentials) (*model.Hierarchy, error)
	// PushSnapshot replaces the account's tree and returns the user id.
	PushSnapshot(ctx context.Context, creds Credentials, doc *model.Document) (string, error)
	// GetPreferences returns the stored preferences keyed "<category>.<key>".
	GetPreferences(ctx context.Context, creds Credentials) (map[string][]byte, error)
	// PutPreferences stores the preferences.
	PutPreferences(ctx context.Context, creds Credentials, prefs map[string][]byte) error
	// PingGuide notifies the service that a published guide changed.
	PingGuide(ctx context.Context, userID, guideTitle string) error
}

// Error is a service-level failure. Message is meant for the user when
// Cause is nil; with a cause the message is only a summary for logs.
type Error struct {
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// ErrNotFound is returned for an account or guide the service does not know.
var ErrNotFound = errors.New("not found")
