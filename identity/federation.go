package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"workshop-backend/domain"
	"workshop-backend/session"
)

// State is a step of the federated login state machine.
type State int

const (
	SigningIn State = iota
	Creating
	SignedIn
	Failed
)

func (s State) String() string {
	switch s {
	case SigningIn:
		return "signing_in"
	case Creating:
		return "creating"
	case SignedIn:
		return "signed_in"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool { return s == SignedIn || s == Failed }

// NewAccount is what the directory needs to provision a synthetic account.
type NewAccount struct {
	Email    string
	Password string
	Phone    string
	Provider string
	Subject  string
	Metadata map[string]any
}

// Directory is the password identity store the state machine drives.
//
// SignIn must return domain.ErrUserNotFound for unknown emails, and Create
// must return domain.ErrAlreadyRegistered when the email is taken.
type Directory interface {
	SignIn(ctx context.Context, email, password string) (*session.Session, error)
	Create(ctx context.Context, acct NewAccount) error
}

// Profile carries the optional attributes stored when an account is created.
type Profile struct {
	Phone    string
	Metadata map[string]any
}

// LoginError is the terminal failure of a federated login.
type LoginError struct {
	From State
	Err  error
}

func (e *LoginError) Error() string {
	return fmt.Sprintf("federated login failed while %s: %v", e.From, e.Err)
}

func (e *LoginError) Unwrap() error { return e.Err }

// Transition computes the next state after an attempt in `from` finished with err.
// created records whether an account creation was already attempted in this login.
func Transition(from State, err error, created bool) State {
	switch from {
	case SigningIn:
		switch {
		case err == nil:
			return SignedIn
		case errors.Is(err, domain.ErrUserNotFound) && !created:
			return Creating
		default:
			return Failed
		}
	case Creating:
		// Losing the creation race to a concurrent login is not an error:
		// the winner's account has the same derived credentials.
		if err == nil || errors.Is(err, domain.ErrAlreadyRegistered) {
			return SigningIn
		}
		return Failed
	default:
		return from
	}
}

// Federator signs a derived identity in, creating the account on first use.
type Federator struct {
	dir Directory
}

// NewFederator creates a Federator backed by dir.
func NewFederator(dir Directory) *Federator {
	return &Federator{dir: dir}
}

// Login runs SigningIn → (Creating → SigningIn) → SignedIn | Failed.
func (f *Federator) Login(ctx context.Context, id FederatedIdentity, profile Profile) (*session.Session, error) {
	var (
		state   = SigningIn
		created bool
		sess    *session.Session
		err     error
	)
	logger := log.With().Str("provider", id.Provider).Str("email", id.Email).Logger()

	for !state.Terminal() {
		from := state
		switch state {
		case SigningIn:
			sess, err = f.dir.SignIn(ctx, id.Email, id.Password)
		case Creating:
			created = true
			err = f.dir.Create(ctx, NewAccount{
				Email:    id.Email,
				Password: id.Password,
				Phone:    profile.Phone,
				Provider: id.Provider,
				Subject:  id.Subject,
				Metadata: profile.Metadata,
			})
		}
		state = Transition(from, err, created)
		logger.Debug().Stringer("from", from).Stringer("to", state).AnErr("cause", err).Msg("federated login transition")

		if state == Failed {
			return nil, &LoginError{From: from, Err: err}
		}
	}
	return sess, nil
}
