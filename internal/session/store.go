// Package session keeps the signed-in user's credential and gates mutating
// actions on it.
package session

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/bwise1/forest_places/internal/db"
	"github.com/bwise1/forest_places/internal/model"
	"github.com/golang-jwt/jwt"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// StorageKey names the single persisted entry holding the session.
const StorageKey = "auth-storage"

// Persister is the durable side of the store.
type Persister interface {
	GetJSON(ctx context.Context, key string, v interface{}) error
	PutJSON(ctx context.Context, key string, v interface{}) error
	Delete(ctx context.Context, key string) error
}

type persistedState struct {
	State   model.Session `json:"state"`
	Version int           `json:"version"`
}

type Store struct {
	db  Persister
	now func() time.Time

	mu      sync.RWMutex
	current *model.Session
	expiry  time.Time
	onClear []func()
}

func NewStore(p Persister) *Store {
	return &Store{db: p, now: time.Now}
}

// Hydrate loads the persisted session, if any.
func (s *Store) Hydrate(ctx context.Context) error {
	var st persistedState
	err := s.db.GetJSON(ctx, StorageKey, &st)
	if errors.Is(err, db.ErrNotFound) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "load session")
	}
	if !st.State.Valid() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sess := st.State
	s.current = &sess
	s.expiry = tokenExpiry(sess.Token)
	return nil
}

// SignIn builds a session from an auth response and persists it.
func (s *Store) SignIn(ctx context.Context, resp *model.AuthResponse) (model.Session, error) {
	if resp == nil || resp.AccessToken == "" {
		return model.Session{}, errors.New("auth response carries no access token")
	}
	sess := sessionFromResponse(resp)

	if err := s.db.PutJSON(ctx, StorageKey, persistedState{State: sess}); err != nil {
		return model.Session{}, errors.Wrap(err, "persist session")
	}

	s.mu.Lock()
	s.current = &sess
	s.expiry = tokenExpiry(sess.Token)
	s.mu.Unlock()

	log.Info().Int64("user_id", sess.UserID).Str("email", sess.Email).Msg("signed in")
	return sess, nil
}

// Current returns the active session. An expired token counts as absent.
func (s *Store) Current() (model.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil || !s.current.Valid() {
		return model.Session{}, false
	}
	if !s.expiry.IsZero() && !s.now().Before(s.expiry) {
		return model.Session{}, false
	}
	return *s.current, true
}

// Token returns the bearer token of the active session or "".
func (s *Store) Token() string {
	sess, ok := s.Current()
	if !ok {
		return ""
	}
	return sess.Token
}

// Clear signs out: the in-memory session and the persisted entry are removed
// and OnClear callbacks run.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.current = nil
	s.expiry = time.Time{}
	callbacks := append([]func(){}, s.onClear...)
	s.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
	if err := s.db.Delete(ctx, StorageKey); err != nil {
		return errors.Wrap(err, "delete session")
	}
	return nil
}

// OnClear registers fn to run whenever the session is cleared.
func (s *Store) OnClear(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onClear = append(s.onClear, fn)
}

func sessionFromResponse(resp *model.AuthResponse) model.Session {
	sess := model.Session{
		Token:        resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		UserID:       resp.UserID,
		Username:     resp.Username,
		Email:        resp.Email,
		Role:         resp.Role,
	}

	claims := unverifiedClaims(resp.AccessToken)
	if claims == nil {
		return sess
	}
	if sess.UserID == 0 {
		sess.UserID = int64Claim(claims, "userId", "user_id", "id")
	}
	if sess.Username == "" {
		sess.Username, _ = claims["username"].(string)
	}
	if sess.Email == "" {
		sess.Email, _ = claims["sub"].(string)
	}
	if sess.Role == "" {
		sess.Role, _ = claims["role"].(string)
	}
	return sess
}

// unverifiedClaims decodes a JWT without checking its signature. The server
// remains the authority; the client only reads identity and expiry hints.
// Opaque tokens yield nil.
func unverifiedClaims(token string) jwt.MapClaims {
	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return nil
	}
	return claims
}

func tokenExpiry(token string) time.Time {
	claims := unverifiedClaims(token)
	if claims == nil {
		return time.Time{}
	}
	switch exp := claims["exp"].(type) {
	case float64:
		return time.Unix(int64(exp), 0)
	case string:
		if n, err := strconv.ParseInt(exp, 10, 64); err == nil {
			return time.Unix(n, 0)
		}
	}
	return time.Time{}
}

func int64Claim(claims jwt.MapClaims, names ...string) int64 {
	for _, name := range names {
		switch v := claims[name].(type) {
		case float64:
			return int64(v)
		case string:
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				return n
			}
		}
	}
	return 0
}
