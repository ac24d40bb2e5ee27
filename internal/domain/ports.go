package domain

import "context"

// DocumentStore is the gateway to the hosted document database.
type DocumentStore interface {
	// Create stores doc; an empty doc.ID is assigned. Returns the stored id.
	Create(ctx context.Context, collection string, doc Document) (string, error)
	Get(ctx context.Context, collection, id string) (Document, error)
	// Update merges patch into the body. Last write wins.
	Update(ctx context.Context, collection, id string, patch Patch) error
	Query(ctx context.Context, collection string, q DocQuery) ([]Document, error)
	// Subscribe delivers the current result set of q now and after every
	// change to the collection until the returned CancelFunc is called or ctx ends.
	Subscribe(ctx context.Context, collection string, q DocQuery, fn func([]Document)) (CancelFunc, error)
}

// AuthGateway issues and persists credentials.
type AuthGateway interface {
	SignUp(ctx context.Context, email, password string, p Profile) (User, Session, error)
	SignIn(ctx context.Context, email, password string) (User, Session, error)
	SignOut(ctx context.Context, token string) error
	ResetPassword(ctx context.Context, email string) error
	CompletePasswordReset(ctx context.Context, email, token, newPassword string) error
	// OnAuthStateChange registers fn for every sign-in, sign-up and sign-out.
	OnAuthStateChange(fn func(AuthEvent)) CancelFunc
	// StoredSession returns nil, nil when the token has no live session.
	StoredSession(ctx context.Context, token string) (*Session, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// Mailer delivers transactional email.
type Mailer interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}
