// Package session implements account registration, login and the
// server-side session lifecycle, including the idle timeout.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/passvault/passvault/internal/auth"
	"github.com/passvault/passvault/internal/clock"
	"github.com/passvault/passvault/internal/metrics"
	"github.com/passvault/passvault/internal/model"
	"github.com/passvault/passvault/internal/repository"
)

// DefaultTimeout is the idle period after which a session is discarded.
const DefaultTimeout = 30 * time.Minute

// Authentication errors returned by Authenticate.
var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrSessionExpired   = errors.New("session expired")
)

// UserStore is the account persistence the manager depends on.
// Lookups return repository.ErrUserNotFound when nothing matches.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) (int64, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UsernameTaken(ctx context.Context, username string, excludeID int64) (bool, error)
	EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error)
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id int64, hash string, at time.Time) error
	UpdateProfile(ctx context.Context, id int64, username, email string, at time.Time) error
}

// PasswordHasher hashes and verifies account passwords.
type PasswordHasher interface {
	HashPassword(password string) (string, error)
	VerifyPassword(password, hash string) bool
}

// Result is the outcome of an account operation. Validation and
// credential failures are reported here with Success false; only
// infrastructure failures are returned as errors.
type Result struct {
	Success     bool
	Message     string
	RequireAuth bool
	User        *model.UserInfo
	// Token is set when a new session was established.
	Token string
}

func failure(msg string) *Result {
	return &Result{Message: msg}
}

func notAuthenticated() *Result {
	return &Result{Message: MsgNotAuthenticated, RequireAuth: true}
}

// Options configures a Manager. Zero values select defaults.
type Options struct {
	Timeout time.Duration
	Clock   clock.Clock
	Logger  *slog.Logger
	Metrics metrics.Recorder
}

// Manager owns account and session operations.
type Manager struct {
	users    UserStore
	sessions Store
	hasher   PasswordHasher
	clock    clock.Clock
	timeout  time.Duration
	logger   *slog.Logger
	metrics  metrics.Recorder

	// dummyHash is verified against when a login names an unknown
	// account so both failure paths cost one bcrypt comparison.
	dummyHash string
}

// NewManager creates a session manager.
func NewManager(users UserStore, sessions Store, hasher PasswordHasher, opts Options) *Manager {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNoop()
	}

	dummy, err := hasher.HashPassword("passvault-unknown-account")
	if err != nil {
		opts.Logger.Warn("failed to prepare dummy password hash", slog.Any("error", err))
	}

	return &Manager{
		users:     users,
		sessions:  sessions,
		hasher:    hasher,
		clock:     opts.Clock,
		timeout:   opts.Timeout,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		dummyHash: dummy,
	}
}

// Timeout returns the idle timeout.
func (m *Manager) Timeout() time.Duration {
	return m.timeout
}

// Register creates an account and logs it in.
func (m *Manager) Register(ctx context.Context, username, email, password string) (*Result, error) {
	username = strings.TrimSpace(username)
	email = normalizeEmail(email)

	if msg := validateUsername(username); msg != "" {
		return failure(msg), nil
	}
	if !isValidEmail(email) {
		return failure(MsgInvalidEmail), nil
	}
	if msg := validatePassword(password, MsgPasswordTooShort, MsgPasswordTooLong); msg != "" {
		return failure(msg), nil
	}

	taken, err := m.users.UsernameTaken(ctx, username, 0)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if taken {
		return failure(MsgUsernameTaken), nil
	}
	taken, err = m.users.EmailTaken(ctx, email, 0)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return failure(MsgEmailRegistered), nil
	}

	hash, err := m.hasher.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    m.clock.Now(),
	}
	id, err := m.users.CreateUser(ctx, user)
	if err != nil {
		// A concurrent registration won the race for the same name.
		switch {
		case errors.Is(err, repository.ErrUsernameExists):
			return failure(MsgUsernameTaken), nil
		case errors.Is(err, repository.ErrEmailExists):
			return failure(MsgEmailRegistered), nil
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	user.ID = id

	m.metrics.IncRegistration()
	m.logger.InfoContext(ctx, "account registered", slog.Int64("user_id", id))

	return m.establish(ctx, user, MsgAccountCreated)
}

// Login authenticates by username or email and establishes a session.
// Every failure yields the same message.
func (m *Manager) Login(ctx context.Context, identifier, password string) (*Result, error) {
	identifier = strings.TrimSpace(identifier)

	var (
		user *model.User
		err  error
	)
	if isValidEmail(identifier) {
		user, err = m.users.GetUserByEmail(ctx, strings.ToLower(identifier))
	} else {
		user, err = m.users.GetUserByUsername(ctx, identifier)
	}
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("look up user: %w", err)
	}

	if user == nil {
		m.hasher.VerifyPassword(password, m.dummyHash)
		return m.loginFailed(ctx, "unknown_account"), nil
	}
	if !m.hasher.VerifyPassword(password, user.PasswordHash) {
		return m.loginFailed(ctx, "wrong_password"), nil
	}

	now := m.clock.Now()
	if err := m.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		m.logger.WarnContext(ctx, "failed to record last login",
			slog.Int64("user_id", user.ID),
			slog.Any("error", err),
		)
	}
	user.LastLogin = &now

	m.metrics.IncLogin(metrics.LoginSuccess)
	return m.establish(ctx, user, MsgLoginSuccessful)
}

func (m *Manager) loginFailed(ctx context.Context, reason string) *Result {
	m.metrics.IncLogin(metrics.LoginFailed)
	m.logger.WarnContext(ctx, "login failed", slog.String("reason", reason))
	return failure(MsgInvalidCredentials)
}

// establish issues a token and stores a fresh session for user.
func (m *Manager) establish(ctx context.Context, user *model.User, msg string) (*Result, error) {
	tok, err := auth.GenerateSessionToken()
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}

	now := m.clock.Now()
	sess := &model.Session{
		ID:            tok.ID,
		UserID:        user.ID,
		Username:      user.Username,
		Email:         user.Email,
		Authenticated: true,
		CreatedAt:     now,
		LastActivity:  now,
	}
	if err := m.sessions.Put(ctx, tok.Key, sess); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	return &Result{
		Success: true,
		Message: msg,
		User:    user.Info(),
		Token:   tok.Plaintext,
	}, nil
}

// Logout discards the session. Unknown or empty tokens are a no-op.
func (m *Manager) Logout(ctx context.Context, token string) error {
	if !auth.ValidateTokenFormat(token) {
		return nil
	}
	if err := m.sessions.Delete(ctx, auth.StoreKey(token)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Authenticate returns the live session for token and refreshes its
// activity time. A session idle for longer than the timeout is deleted
// and ErrSessionExpired is returned.
func (m *Manager) Authenticate(ctx context.Context, token string) (*model.Session, error) {
	if !auth.ValidateTokenFormat(token) {
		return nil, ErrNotAuthenticated
	}

	key := auth.StoreKey(token)
	sess, err := m.sessions.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess == nil {
		return nil, ErrNotAuthenticated
	}

	now := m.clock.Now()
	if sess.Expired(now, m.timeout) {
		if err := m.sessions.Delete(ctx, key); err != nil {
			m.logger.WarnContext(ctx, "failed to delete expired session",
				slog.String("session_id", sess.ID),
				slog.Any("error", err),
			)
		}
		m.metrics.IncSessionExpired()
		return nil, ErrSessionExpired
	}
	if !sess.Authenticated {
		return nil, ErrNotAuthenticated
	}

	sess.LastActivity = now
	if err := m.sessions.Put(ctx, key, sess); err != nil {
		return nil, fmt.Errorf("refresh session: %w", err)
	}
	return sess, nil
}

// IsAuthenticationError reports whether err means the caller simply has
// no valid session.
func IsAuthenticationError(err error) bool {
	return errors.Is(err, ErrNotAuthenticated) || errors.Is(err, ErrSessionExpired)
}

// CurrentUser returns the identity behind token, or nil when there is no
// valid session.
func (m *Manager) CurrentUser(ctx context.Context, token string) (*model.UserInfo, error) {
	sess, err := m.Authenticate(ctx, token)
	if err != nil {
		if IsAuthenticationError(err) {
			return nil, nil
		}
		return nil, err
	}
	return sess.Info(), nil
}

// ChangePassword replaces the account password after re-verifying the
// current one. The session stays valid.
func (m *Manager) ChangePassword(ctx context.Context, token, currentPassword, newPassword string) (*Result, error) {
	sess, err := m.Authenticate(ctx, token)
	if err != nil {
		if IsAuthenticationError(err) {
			return notAuthenticated(), nil
		}
		return nil, err
	}

	if msg := validatePassword(newPassword, MsgNewPasswordTooShort, MsgNewPasswordTooLong); msg != "" {
		return failure(msg), nil
	}

	user, err := m.users.GetUserByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return failure(MsgCurrentPasswordBad), nil
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !m.hasher.VerifyPassword(currentPassword, user.PasswordHash) {
		m.logger.WarnContext(ctx, "password change rejected",
			slog.Int64("user_id", user.ID),
			slog.String("reason", "wrong_current_password"),
		)
		return failure(MsgCurrentPasswordBad), nil
	}

	if err := m.setPassword(ctx, user.ID, newPassword); err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "password changed", slog.Int64("user_id", user.ID))
	return &Result{Success: true, Message: MsgPasswordChanged, User: sess.Info()}, nil
}

// UpdateProfile changes the username and email of the session's account
// and keeps the stored session in step.
func (m *Manager) UpdateProfile(ctx context.Context, token, username, email string) (*Result, error) {
	sess, err := m.Authenticate(ctx, token)
	if err != nil {
		if IsAuthenticationError(err) {
			return notAuthenticated(), nil
		}
		return nil, err
	}

	username = strings.TrimSpace(username)
	email = normalizeEmail(email)

	if msg := validateUsername(username); msg != "" {
		return failure(msg), nil
	}
	if !isValidEmail(email) {
		return failure(MsgInvalidEmail), nil
	}

	taken, err := m.users.UsernameTaken(ctx, username, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if taken {
		return failure(MsgUsernameTaken), nil
	}
	taken, err = m.users.EmailTaken(ctx, email, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return failure(MsgEmailInUse), nil
	}

	if err := m.users.UpdateProfile(ctx, sess.UserID, username, email, m.clock.Now()); err != nil {
		switch {
		case errors.Is(err, repository.ErrUsernameExists):
			return failure(MsgUsernameTaken), nil
		case errors.Is(err, repository.ErrEmailExists):
			return failure(MsgEmailInUse), nil
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}

	sess.Username = username
	sess.Email = email
	if err := m.sessions.Put(ctx, auth.StoreKey(token), sess); err != nil {
		return nil, fmt.Errorf("refresh session: %w", err)
	}

	return &Result{Success: true, Message: MsgProfileUpdated, User: sess.Info()}, nil
}

// ResetPassword sets a new password for username without the current
// one. It is an operator action and is never exposed over HTTP.
func (m *Manager) ResetPassword(ctx context.Context, username, newPassword string) (*Result, error) {
	if msg := validatePassword(newPassword, MsgNewPasswordTooShort, MsgNewPasswordTooLong); msg != "" {
		return failure(msg), nil
	}

	user, err := m.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return failure(MsgUserNotFound), nil
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	if err := m.setPassword(ctx, user.ID, newPassword); err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "password reset by operator", slog.Int64("user_id", user.ID))
	return &Result{Success: true, Message: MsgPasswordChanged, User: user.Info()}, nil
}

func (m *Manager) setPassword(ctx context.Context, userID int64, password string) error {
	hash, err := m.hasher.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := m.users.UpdatePasswordHash(ctx, userID, hash, m.clock.Now()); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}
