package core

import (
	"context"
	"time"
)

// Session is the handle returned to a client after sign-in.
type Session struct {
	ID        string
	Token     string
	ExpiresAt time.Time
}

// SessionIssuer creates a session for a signed-in user. The transport layer
// attaches the result to its response.
type SessionIssuer interface {
	IssueSession(ctx context.Context, user *User, wallet *WalletAddress) (Session, error)
}

// NameProfile is the human-readable identity resolved for an address.
type NameProfile struct {
	Name   string
	Avatar string
}

// NameLookupFunc resolves a display name and avatar for an address (for
// example via ENS). Failures are ignored and the address is used as name.
type NameLookupFunc func(ctx context.Context, address string) (NameProfile, error)
