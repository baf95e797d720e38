package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// SessionConfig holds the security settings the Service needs.
type SessionConfig struct {
	Secret            string
	AccessTTL         time.Duration
	RefreshTTL        time.Duration
	MaxAttempts       int
	LockoutDuration   time.Duration
	PasswordMinLength int
}

// Session is the result of a login or refresh.
type Session struct {
	User             *User     `json:"user"`
	SessionID        string    `json:"session_id"`
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// LockedError reports an account locked until a given time.
type LockedError struct {
	Until time.Time
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("%s until %s", ErrAccountLocked, e.Until.Format(time.RFC3339))
}

// Unwrap lets errors.Is match ErrAccountLocked.
func (e *LockedError) Unwrap() error { return ErrAccountLocked }

// Service runs the credential, session and password flows on top of the
// user and token repositories.
type Service struct {
	users     UserRepository
	tokens    TokenRepository
	apiTokens APITokenRepository
	hasher    Hasher
	cfg       SessionConfig
	logger    *slog.Logger
	now       func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// NewService wires the auth flows. apiTokens may be nil to disable
// integration-token authentication.
func NewService(users UserRepository, tokens TokenRepository, apiTokens APITokenRepository,
	hasher Hasher, cfg SessionConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:     users,
		tokens:    tokens,
		apiTokens: apiTokens,
		hasher:    hasher,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Login checks credentials and opens a new session.
//
// Unknown usernames still pay for a hash verification so response timing
// does not reveal which accounts exist. Consecutive failures lock the
// account; a successful login with an outdated hash re-hashes the password.
func (s *Service) Login(ctx context.Context, username, password, deviceInfo string) (*Session, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, ErrUserNotFound) {
		VerifyPassword(password, s.dummy()) //nolint:errcheck // timing equaliser only
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	if user.IsLocked(s.now()) {
		return nil, &LockedError{Until: *user.LockedUntil}
	}

	ok, err := VerifyPassword(password, user.PasswordHash)
	if err != nil {
		s.logger.Warn("unreadable password hash", "user_id", user.ID, "error", err)
	}
	if !ok {
		until, lockErr := s.users.RecordLoginFailure(ctx, user.ID, s.cfg.MaxAttempts, s.cfg.LockoutDuration)
		if lockErr != nil {
			return nil, lockErr
		}
		if until != nil {
			s.logger.Warn("account locked after repeated login failures",
				"user_id", user.ID, "locked_until", until.Format(time.RFC3339))
		}
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrUserInactive
	}

	if s.hasher.NeedsRehash(user.PasswordHash) {
		s.migrateHash(ctx, user, password)
	}

	if err := s.users.RecordLoginSuccess(ctx, user.ID); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	user.LastLoginAt = &now
	user.FailedLoginCount = 0
	user.LockedUntil = nil

	return s.IssueSession(ctx, user, deviceInfo)
}

// migrateHash replaces a legacy or weaker hash. Failure is logged, not fatal.
func (s *Service) migrateHash(ctx context.Context, user *User, password string) {
	newHash, err := s.hasher.Hash(password)
	if err == nil {
		err = s.users.UpdatePassword(ctx, user.ID, newHash)
	}
	if err != nil {
		s.logger.Warn("password hash migration failed", "user_id", user.ID, "error", err)
		return
	}
	user.PasswordHash = newHash
	s.logger.Info("password hash migrated", "user_id", user.ID, "algorithm", s.algorithm())
}

func (s *Service) algorithm() string {
	if s.hasher.Algorithm == "" {
		return AlgorithmArgon2id
	}
	return s.hasher.Algorithm
}

// IssueSession starts a new refresh-token family for user and signs an
// access token bound to it.
func (s *Service) IssueSession(ctx context.Context, user *User, deviceInfo string) (*Session, error) {
	raw, err := GenerateRefreshToken()
	if err != nil {
		return nil, err
	}
	rt := &RefreshToken{
		UserID:     user.ID,
		TokenHash:  HashToken(raw),
		DeviceInfo: deviceInfo,
		ExpiresAt:  s.now().Add(s.cfg.RefreshTTL),
	}
	if err := s.tokens.Create(ctx, rt); err != nil {
		return nil, err
	}
	return s.finishSession(user, rt, raw)
}

func (s *Service) finishSession(user *User, rt *RefreshToken, raw string) (*Session, error) {
	access, err := GenerateAccessToken(user, rt.FamilyID, s.cfg.Secret, s.cfg.AccessTTL)
	if err != nil {
		return nil, err
	}
	ttl := s.cfg.AccessTTL
	if ttl <= 0 {
		ttl = defaultAccessTTL
	}
	return &Session{
		User:             user,
		SessionID:        rt.FamilyID,
		AccessToken:      access,
		RefreshToken:     raw,
		AccessExpiresAt:  s.now().Add(ttl),
		RefreshExpiresAt: rt.ExpiresAt,
	}, nil
}

// Refresh consumes a refresh token and returns a rotated session.
// Presenting a token that was already used revokes the whole session
// and returns ErrTokenReuse.
func (s *Service) Refresh(ctx context.Context, rawToken, deviceInfo string) (*Session, error) {
	if rawToken == "" {
		return nil, ErrTokenInvalid
	}
	old, err := s.tokens.GetByTokenHash(ctx, HashToken(rawToken))
	if err != nil {
		return nil, err
	}

	if old.Revoked {
		if err := s.tokens.RevokeFamily(ctx, old.FamilyID); err != nil {
			return nil, err
		}
		s.logger.Warn("refresh token reuse detected, session revoked",
			"user_id", old.UserID, "session_id", old.FamilyID)
		return nil, ErrTokenReuse
	}
	if !s.now().Before(old.ExpiresAt) {
		return nil, ErrTokenExpired
	}

	user, err := s.users.GetByID(ctx, old.UserID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		if err := s.tokens.RevokeFamily(ctx, old.FamilyID); err != nil {
			return nil, err
		}
		return nil, ErrUserInactive
	}

	raw, err := GenerateRefreshToken()
	if err != nil {
		return nil, err
	}
	if deviceInfo == "" {
		deviceInfo = old.DeviceInfo
	}
	next := &RefreshToken{
		UserID:     user.ID,
		TokenHash:  HashToken(raw),
		DeviceInfo: deviceInfo,
		ExpiresAt:  s.now().Add(s.cfg.RefreshTTL),
	}
	if err := s.tokens.RotateRefreshToken(ctx, old.ID, next); err != nil {
		if errors.Is(err, ErrTokenReuse) {
			s.logger.Warn("concurrent refresh token reuse, session revoked",
				"user_id", old.UserID, "session_id", old.FamilyID)
		}
		return nil, err
	}
	return s.finishSession(user, next, raw)
}

// Logout revokes the session the refresh token belongs to. Unknown tokens
// are ignored so logout is idempotent.
func (s *Service) Logout(ctx context.Context, rawToken string) error {
	if rawToken == "" {
		return nil
	}
	rt, err := s.tokens.GetByTokenHash(ctx, HashToken(rawToken))
	if errors.Is(err, ErrTokenInvalid) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.tokens.RevokeFamily(ctx, rt.FamilyID)
}

// LogoutSession revokes a session by id on behalf of its owner.
func (s *Service) LogoutSession(ctx context.Context, userID, sessionID string) error {
	return s.tokens.RevokeFamilyForUser(ctx, userID, sessionID)
}

// Sessions lists the live sessions of a user.
func (s *Service) Sessions(ctx context.Context, userID string) ([]RefreshToken, error) {
	return s.tokens.ListActiveByUser(ctx, userID)
}

// NewPasswordHash validates a password against the policy and hashes it.
func (s *Service) NewPasswordHash(password string) (string, error) {
	if err := ValidatePassword(password, s.cfg.PasswordMinLength); err != nil {
		return "", err
	}
	return s.hasher.Hash(password)
}

// ChangePassword verifies the current password, stores the new one and
// revokes every session of the user. Callers that keep the user signed in
// should IssueSession afterwards.
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	ok, err := VerifyPassword(current, user.PasswordHash)
	if err != nil || !ok {
		return ErrInvalidCredentials
	}
	if current == next {
		return fmt.Errorf("%w: new password must differ from the current one", ErrWeakPassword)
	}
	return s.SetPassword(ctx, userID, next)
}

// SetPassword replaces a password without checking the old one (admin
// reset) and revokes all sessions.
func (s *Service) SetPassword(ctx context.Context, userID, password string) error {
	hash, err := s.NewPasswordHash(password)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}
	return s.tokens.RevokeAllForUser(ctx, userID)
}

// AuthenticateAccess checks a parsed access token against current state:
// the user must still exist and be active, and the session (refresh family)
// must not have been logged out or revoked. The returned user carries the
// current role and department, which take precedence over the claims.
func (s *Service) AuthenticateAccess(ctx context.Context, claims *CustomClaims) (*User, error) {
	if claims.SessionID == "" {
		return nil, ErrTokenInvalid
	}
	user, err := s.users.GetByID(ctx, claims.Subject)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrTokenInvalid
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	active, err := s.tokens.FamilyActive(ctx, user.ID, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, ErrTokenRevoked
	}
	return user, nil
}

// AuthenticateAPIToken resolves an integration token to its active owner.
func (s *Service) AuthenticateAPIToken(ctx context.Context, raw string) (*User, *APIToken, error) {
	if s.apiTokens == nil || !IsAPIToken(raw) {
		return nil, nil, ErrTokenInvalid
	}
	tok, err := s.apiTokens.GetByTokenHash(ctx, HashToken(raw))
	if err != nil {
		return nil, nil, err
	}
	user, err := s.users.GetByID(ctx, tok.UserID)
	if err != nil {
		return nil, nil, err
	}
	if !user.IsActive {
		return nil, nil, ErrUserInactive
	}
	if err := s.apiTokens.TouchLastUsed(ctx, tok.ID); err != nil {
		s.logger.Debug("api token last-use update failed", "token_id", tok.ID, "error", err)
	}
	return user, tok, nil
}

// CreateAPIToken issues an integration token for userID. The raw value is
// returned once and never stored.
func (s *Service) CreateAPIToken(ctx context.Context, userID, name string, ttl time.Duration) (string, *APIToken, error) {
	if s.apiTokens == nil {
		return "", nil, errors.New("api tokens are not enabled")
	}
	raw, err := GenerateAPIToken()
	if err != nil {
		return "", nil, err
	}
	tok := &APIToken{UserID: userID, Name: name, TokenHash: HashToken(raw)}
	if ttl > 0 {
		exp := s.now().Add(ttl).UTC().Truncate(time.Second)
		tok.ExpiresAt = &exp
	}
	if err := s.apiTokens.Create(ctx, tok); err != nil {
		return "", nil, err
	}
	return raw, tok, nil
}

// ListAPITokens returns the integration tokens owned by userID.
func (s *Service) ListAPITokens(ctx context.Context, userID string) ([]APIToken, error) {
	if s.apiTokens == nil {
		return []APIToken{}, nil
	}
	return s.apiTokens.ListByUser(ctx, userID)
}

// RevokeAPIToken disables one of userID's integration tokens.
func (s *Service) RevokeAPIToken(ctx context.Context, userID, id string) error {
	if s.apiTokens == nil {
		return ErrTokenNotFound
	}
	return s.apiTokens.Revoke(ctx, userID, id)
}

// PurgeExpired deletes expired refresh tokens.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	return s.tokens.DeleteExpired(ctx)
}

// dummy returns a valid hash used to equalise timing for unknown users.
func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("pmdesk-timing-equaliser-0")
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}
