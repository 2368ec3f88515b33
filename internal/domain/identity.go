package domain

import "github.com/google/uuid"

// ErrNoIdentity is returned when a request carries neither a session token
// nor an authenticated user id. The presentation layer is expected to
// guarantee one of them before calling into the core.
var ErrNoIdentity = &Error{Code: EUNAUTHORIZED, Message: "No session or user identity supplied"}

// Identity is the single explicit identity-and-intent value passed into each
// cart operation. It carries an anonymous session token and, once the caller
// has authenticated, a user id. When both are present the user id wins for
// cart resolution.
type Identity struct {
	UserID       uuid.NullUUID
	SessionToken string
}

// Authenticated reports whether the identity carries a user id.
func (id Identity) Authenticated() bool {
	return id.UserID.Valid
}

// Usable reports whether the identity can own a cart at all.
func (id Identity) Usable() bool {
	return id.UserID.Valid || id.SessionToken != ""
}

// UserIdentity builds an authenticated identity.
func UserIdentity(userID uuid.UUID) Identity {
	return Identity{UserID: uuid.NullUUID{UUID: userID, Valid: true}}
}

// SessionIdentity builds an anonymous identity.
func SessionIdentity(token string) Identity {
	return Identity{SessionToken: token}
}
