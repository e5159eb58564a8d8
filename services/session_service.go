package services

import (
	"chat-inbox/contract"
	"chat-inbox/domain"
	"chat-inbox/errors"
	"context"
	"fmt"
	"log/slog"
)

type ISessionService interface {
	SignIn(ctx context.Context, email, password string) (domain.User, error)
	SignOut(ctx context.Context) error
	CurrentUser(ctx context.Context) (domain.User, error)
	NavTitle(ctx context.Context) (string, error)
}

type SessionService struct {
	log      *slog.Logger
	auth     contract.AuthBackend
	profiles contract.ProfileStore
}

func NewSessionService(log *slog.Logger, auth contract.AuthBackend, profiles contract.ProfileStore) ISessionService {
	return &SessionService{log: log, auth: auth, profiles: profiles}
}

func (s *SessionService) SignIn(ctx context.Context, email, password string) (domain.User, error) {
	uid, err := s.auth.SignIn(ctx, email, password)
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: %w", errors.ErrAuth, err)
	}
	return s.load(ctx, uid)
}

// SignOut ends the session. Backend failures are returned, the caller
// shows the login screen either way.
func (s *SessionService) SignOut(ctx context.Context) error {
	if err := s.auth.SignOut(ctx); err != nil {
		s.log.Warn("Sign out failed", "error", err)
		return fmt.Errorf("%w: %w", errors.ErrAuth, err)
	}
	return nil
}

func (s *SessionService) CurrentUser(ctx context.Context) (domain.User, error) {
	uid, ok := s.auth.CurrentUserID()
	if !ok {
		return domain.User{}, errors.ErrNotSignedIn
	}
	return s.load(ctx, uid)
}

// NavTitle is the display name of the signed-in user.
func (s *SessionService) NavTitle(ctx context.Context) (string, error) {
	user, err := s.CurrentUser(ctx)
	if err != nil {
		return "", err
	}
	return user.Name, nil
}

func (s *SessionService) load(ctx context.Context, uid string) (domain.User, error) {
	fields, err := s.profiles.Read(ctx, uid)
	if err != nil {
		return domain.User{}, fmt.Errorf("reading profile of %s: %w", uid, err)
	}
	return fields.ToUser(uid), nil
}
