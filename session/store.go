// Package session owns the authenticated-user lifecycle: the current user
// record and its bearer token, kept in memory and in durable storage.
//
// The token and the user are always set and cleared together.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"bakery-storefront/client"
	"bakery-storefront/metrics"
	"bakery-storefront/models"
	"bakery-storefront/storage"
)

// Durable storage keys.
const (
	UserKey  = "user"
	TokenKey = "token"
)

// errTokenChanged drops a refresh whose token was replaced while the request
// was in flight.
var errTokenChanged = errors.New("session: token changed during refresh")

type API interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body, out any) error
}

// Result is what login and signup hand back to the caller for rendering.
type Result struct {
	OK    bool
	Error string
}

// Store holds the session. It is safe for concurrent use but does not
// serialize concurrent logins; the last one to finish wins.
type Store struct {
	api API
	kv  storage.Store

	// writeMu orders durable writes with the in-memory swap that follows.
	writeMu sync.Mutex

	mu    sync.RWMutex
	user  *models.User
	token string

	startOnce sync.Once
	started   chan struct{}
	listeners []func(*models.User)
}

// New seeds the session synchronously from kv. A missing or malformed user
// record yields no identity; the token is kept so Start can recover it.
func New(ctx context.Context, api API, kv storage.Store) *Store {
	s := &Store{api: api, kv: kv, started: make(chan struct{})}

	if raw, err := kv.Get(ctx, TokenKey); err == nil {
		s.token = string(raw)
	} else if !errors.Is(err, storage.ErrNotFound) {
		log.Printf("Failed to read stored token: %v", err)
	}

	if raw, err := kv.Get(ctx, UserKey); err == nil {
		var u models.User
		if err := json.Unmarshal(raw, &u); err != nil {
			log.Printf("Discarding malformed stored user record: %v", err)
		} else {
			s.user = &u
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		log.Printf("Failed to read stored user: %v", err)
	}

	if s.token == "" && s.user != nil {
		// an identity without a credential is not a session
		s.user = nil
		if err := kv.Delete(ctx, UserKey); err != nil {
			log.Printf("Failed to drop orphaned user record: %v", err)
		}
	}
	return s
}

// Start runs the one startup refresh: when a token was recovered without an
// identity, FetchMe is attempted once in the background. The returned channel
// is closed when startup work is done. Later calls return the same channel.
func (s *Store) Start(ctx context.Context) <-chan struct{} {
	s.startOnce.Do(func() {
		s.mu.RLock()
		needsRefresh := s.token != "" && s.user == nil
		s.mu.RUnlock()

		if !needsRefresh {
			close(s.started)
			return
		}
		go func() {
			defer close(s.started)
			s.FetchMe(ctx)
		}()
	})
	return s.started
}

// OnChange registers fn to be called with the new identity (nil on logout)
// whenever it changes.
func (s *Store) OnChange(fn func(*models.User)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *Store) Login(ctx context.Context, email, password string) Result {
	return s.authenticate(ctx, "login", "/auth/login", email, password, "Login failed")
}

func (s *Store) Signup(ctx context.Context, email, password string) Result {
	return s.authenticate(ctx, "signup", "/auth/signup", email, password, "Signup failed")
}

func (s *Store) authenticate(ctx context.Context, op, path, email, password, fallback string) Result {
	var resp models.AuthResponse
	err := s.api.Post(ctx, path, models.Credentials{Email: email, Password: password}, &resp)
	if err == nil && (resp.User == nil || resp.Token == "") {
		err = errors.New("incomplete auth response")
	}
	if err == nil {
		err = s.setAuth(ctx, resp.User, resp.Token)
	}
	metrics.RecordOperation(op, err)
	if err != nil {
		return Result{Error: client.Message(err, fallback)}
	}
	return Result{OK: true}
}

// FetchMe refreshes the identity for the held token. Without a token it is a
// no-op. A failure clears the session, which is the only automatic logout;
// a login or logout that replaced the token meanwhile is left alone.
func (s *Store) FetchMe(ctx context.Context) *models.User {
	token := s.Token()
	if token == "" {
		return nil
	}

	var u models.User
	err := s.api.Get(ctx, "/auth/me", &u)
	if err == nil {
		err = s.setUser(ctx, token, &u)
	}
	metrics.RecordOperation("fetch_me", err)
	switch {
	case errors.Is(err, errTokenChanged):
		return s.User()
	case err != nil:
		if err := s.clearIf(ctx, func(held string) bool { return held == token }); err != nil {
			log.Printf("Failed to clear rejected session: %v", err)
		}
		return nil
	}
	return s.User()
}

// ClearAuth wipes the in-memory and durable session. It is idempotent. The
// in-memory session is dropped even when the durable delete fails; the
// returned error means a stale token may still be on disk.
func (s *Store) ClearAuth(ctx context.Context) error {
	return s.clearIf(ctx, func(string) bool { return true })
}

func (s *Store) clearIf(ctx context.Context, match func(token string) bool) error {
	s.writeMu.Lock()
	s.mu.RLock()
	held := s.token
	s.mu.RUnlock()
	if !match(held) {
		s.writeMu.Unlock()
		return nil
	}

	err := s.kv.Delete(ctx, UserKey, TokenKey)
	s.mu.Lock()
	changed := s.user != nil || s.token != ""
	s.user = nil
	s.token = ""
	listeners := s.listeners
	s.mu.Unlock()
	s.writeMu.Unlock()

	if changed {
		notify(listeners, nil)
	}
	if err != nil {
		return fmt.Errorf("session: clear stored session: %w", err)
	}
	return nil
}

func (s *Store) setAuth(ctx context.Context, u *models.User, token string) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	if err := s.kv.Put(ctx,
		storage.Entry{Key: UserKey, Value: raw},
		storage.Entry{Key: TokenKey, Value: []byte(token)},
	); err != nil {
		// never leave half a session on disk
		_ = s.kv.Delete(ctx, UserKey, TokenKey)
		s.writeMu.Unlock()
		return err
	}
	s.mu.Lock()
	s.user = u
	s.token = token
	listeners := s.listeners
	s.mu.Unlock()
	s.writeMu.Unlock()

	notify(listeners, copyUser(u))
	return nil
}

// setUser installs u for token, unless the session moved on to another
// token (or none) since the refresh started.
func (s *Store) setUser(ctx context.Context, token string, u *models.User) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	if s.Token() != token {
		s.writeMu.Unlock()
		return errTokenChanged
	}
	if err := s.kv.Put(ctx, storage.Entry{Key: UserKey, Value: raw}); err != nil {
		s.writeMu.Unlock()
		return err
	}
	s.mu.Lock()
	s.user = u
	listeners := s.listeners
	s.mu.Unlock()
	s.writeMu.Unlock()

	notify(listeners, copyUser(u))
	return nil
}

// Token implements client.TokenSource.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the current identity, or nil.
func (s *Store) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyUser(s.user)
}

func (s *Store) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

// IsAdmin gates visibility of the admin views. It is not an authorization
// boundary: the API re-checks every admin request.
func (s *Store) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.IsAdmin()
}

func copyUser(u *models.User) *models.User {
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}

func notify(listeners []func(*models.User), u *models.User) {
	for _, fn := range listeners {
		fn(u)
	}
}
