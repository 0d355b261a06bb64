package interfaces

import "context"

// TokenSource supplies bearer tokens for the upstream API
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	// Refresh is called once after the upstream rejects a token
	Refresh(ctx context.Context) (string, error)
}
