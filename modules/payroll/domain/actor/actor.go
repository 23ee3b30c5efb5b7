// Package actor models the caller identity handed to the payroll engine.
//
// An Actor is resolved once at the API boundary by an authenticator and
// passed inward as an opaque value. Its fields are unexported so core code
// cannot fabricate an identity from a bare string.
package actor

import "github.com/google/uuid"

type Actor struct {
	id         uuid.UUID
	privileged bool
}

type Option func(*Actor)

// WithPrivilege marks the actor as holding elevated rights, e.g. deleting
// approved configuration.
func WithPrivilege() Option {
	return func(a *Actor) { a.privileged = true }
}

// Authenticated builds an actor for a verified user id. Boundary code calls
// this after authentication succeeds; uuid.Nil yields the anonymous actor.
func Authenticated(id uuid.UUID, opts ...Option) Actor {
	if id == uuid.Nil {
		return Actor{}
	}
	a := Actor{id: id}
	for _, opt := range opts {
		opt(&a)
	}
	return a
}

// Anonymous is the zero actor.
func Anonymous() Actor { return Actor{} }

func (a Actor) ID() uuid.UUID { return a.id }

func (a Actor) IsAnonymous() bool { return a.id == uuid.Nil }

func (a Actor) Privileged() bool { return !a.IsAnonymous() && a.privileged }

// Ref returns a pointer to the id, or nil for the anonymous actor.
func (a Actor) Ref() *uuid.UUID {
	if a.IsAnonymous() {
		return nil
	}
	id := a.id
	return &id
}

func (a Actor) String() string {
	if a.IsAnonymous() {
		return "anonymous"
	}
	return a.id.String()
}
