package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/and161185/clear/internal/model"
	"github.com/and161185/clear/internal/session"
)

// AuthAPI is the part of the remote client used by the auth store.
type AuthAPI interface {
	Login(ctx context.Context, creds model.Credentials) (*model.Session, error)
	Register(ctx context.Context, creds model.Credentials) (*model.Session, error)
	UpdateTheme(ctx context.Context, theme int) error
	SendCode(ctx context.Context, email string) (string, error)
	CheckCode(ctx context.Context, email, code string) error
	UserStatus(ctx context.Context) (model.UserStatus, error)
}

// AuthStore holds the current identity. It is either Anonymous (no session) or Authenticated.
type AuthStore interface {
	// Load restores the persisted session; absent or invalid content leaves the store Anonymous.
	Load() error
	// Session returns a copy of the current session or nil.
	Session() *model.Session
	// Token returns the bearer token of the current session.
	Token() (string, bool)
	// IsAuthenticated reports whether a session is present.
	IsAuthenticated() bool
	// Login authenticates and persists the session.
	Login(ctx context.Context, creds model.Credentials) error
	// Register creates an account and persists its session.
	Register(ctx context.Context, creds model.Credentials) error
	// Logout drops the session and its persisted entry without a network call.
	Logout() error
	// SetTheme stores the preferred theme remotely and in the session.
	SetTheme(ctx context.Context, theme int) error
	// Status returns the global done/undone counts.
	Status(ctx context.Context) (model.UserStatus, error)
	// SendCode requests an email verification code.
	SendCode(ctx context.Context, email string) (string, error)
	// CheckCode verifies an email verification code.
	CheckCode(ctx context.Context, email, code string) error
}

type AuthStoreImpl struct {
	api   AuthAPI
	store session.Store
	n     Notifier
	log   *zap.Logger

	mu      sync.RWMutex
	session *model.Session
}

var _ AuthStore = (*AuthStoreImpl)(nil)

// NewAuthStore constructs an Anonymous store; call Load to restore a persisted session.
func NewAuthStore(api AuthAPI, store session.Store, n Notifier, log *zap.Logger) *AuthStoreImpl {
	if n == nil {
		n = nopNotifier{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthStoreImpl{api: api, store: store, n: n, log: log}
}

// Load reads the persisted entry. Only I/O failures are reported; the store stays Anonymous then.
func (s *AuthStoreImpl) Load() error {
	sess, err := s.store.Load()
	if err != nil {
		s.log.Warn("load session", zap.Error(err))
		return fmt.Errorf("load session: %w", err)
	}
	s.mu.Lock()
	s.session = sess
	s.mu.Unlock()
	return nil
}

func (s *AuthStoreImpl) Session() *model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return nil
	}
	cp := *s.session
	return &cp
}

func (s *AuthStoreImpl) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil || s.session.Token == "" {
		return "", false
	}
	return s.session.Token, true
}

func (s *AuthStoreImpl) IsAuthenticated() bool {
	return s.Session() != nil
}

// Login authenticates. On failure the store keeps its state and the error is returned as is.
func (s *AuthStoreImpl) Login(ctx context.Context, creds model.Credentials) error {
	sess, err := s.api.Login(ctx, creds)
	if err != nil {
		return err
	}
	return s.establish(sess, "Login successful")
}

// Register creates an account and signs in with it.
func (s *AuthStoreImpl) Register(ctx context.Context, creds model.Credentials) error {
	sess, err := s.api.Register(ctx, creds)
	if err != nil {
		return err
	}
	return s.establish(sess, "Registration successful")
}

// establish persists sess first; the store stays Anonymous when that fails.
func (s *AuthStoreImpl) establish(sess *model.Session, msg string) error {
	if err := s.store.Save(sess); err != nil {
		s.log.Warn("persist session", zap.Error(err))
		return fmt.Errorf("persist session: %w", err)
	}
	s.mu.Lock()
	s.session = sess
	s.mu.Unlock()
	s.n.Show(msg, model.SeveritySuccess, 0)
	s.log.Debug("session established", zap.String("username", sess.Username))
	return nil
}

// Logout always ends Anonymous; the error only reports a failed removal of the persisted entry.
func (s *AuthStoreImpl) Logout() error {
	s.mu.Lock()
	s.session = nil
	s.mu.Unlock()
	if err := s.store.Clear(); err != nil {
		s.log.Warn("clear session", zap.Error(err))
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (s *AuthStoreImpl) SetTheme(ctx context.Context, theme int) error {
	if !s.IsAuthenticated() {
		return nil
	}
	if err := s.api.UpdateTheme(ctx, theme); err != nil {
		return err
	}
	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return nil
	}
	s.session.Theme = model.Flex(strconv.Itoa(theme))
	cp := *s.session
	s.mu.Unlock()
	if err := s.store.Save(&cp); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

func (s *AuthStoreImpl) Status(ctx context.Context) (model.UserStatus, error) {
	if !s.IsAuthenticated() {
		return model.UserStatus{}, nil
	}
	return s.api.UserStatus(ctx)
}

func (s *AuthStoreImpl) SendCode(ctx context.Context, email string) (string, error) {
	if !s.IsAuthenticated() {
		return "", nil
	}
	return s.api.SendCode(ctx, email)
}

func (s *AuthStoreImpl) CheckCode(ctx context.Context, email, code string) error {
	if !s.IsAuthenticated() {
		return nil
	}
	return s.api.CheckCode(ctx, email, code)
}
