package session

import (
	"context"
	"fmt"

	"github.com/bwise1/forest_places/internal/http/placesapi"
	"github.com/bwise1/forest_places/internal/model"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// AuthorizationError means the action needs a (new) sign in.
type AuthorizationError struct {
	Reason         string
	Reauthenticate bool
	Err            error
}

func (e *AuthorizationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authorization required: %s: %v", e.Reason, e.Err)
	}
	return "authorization required: " + e.Reason
}

func (e *AuthorizationError) Unwrap() error {
	return e.Err
}

// Gate checks for a session before mutating actions.
type Gate struct {
	store *Store
}

func NewGate(store *Store) *Gate {
	return &Gate{store: store}
}

// RequireSession returns the active session or an *AuthorizationError. It
// never performs a network call.
func (g *Gate) RequireSession() (model.Session, error) {
	sess, ok := g.store.Current()
	if !ok {
		return model.Session{}, &AuthorizationError{Reason: "sign in to continue"}
	}
	return sess, nil
}

// CheckMutation inspects the error of a call. A 401 or 403 from a mutating
// call clears the session and is returned as an *AuthorizationError asking
// for re-authentication. Read failures and other errors pass through.
func (g *Gate) CheckMutation(ctx context.Context, err error) error {
	var apiErr *placesapi.APIError
	if !errors.As(err, &apiErr) || !apiErr.AuthFailure() || !apiErr.Mutating() {
		return err
	}

	if clearErr := g.store.Clear(ctx); clearErr != nil {
		log.Error().Err(clearErr).Msg("clear rejected session")
	}
	log.Warn().Int("status", apiErr.Status).Str("path", apiErr.Path).Msg("session rejected, sign in again")
	return &AuthorizationError{Reason: "session expired, sign in again", Reauthenticate: true, Err: err}
}
