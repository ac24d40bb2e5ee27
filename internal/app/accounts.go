package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"staybook/internal/domain"
)

// AccountService fronts the auth gateway with form validation and owns the
// user profile documents.
type AccountService struct {
	auth  domain.AuthGateway
	store domain.DocumentStore
	now   func() time.Time
}

func NewAccountService(a domain.AuthGateway, s domain.DocumentStore) *AccountService {
	return &AccountService{auth: a, store: s, now: utcNow}
}

func (s *AccountService) WithClock(now func() time.Time) *AccountService {
	s.now = now
	return s
}

func (s *AccountService) SignUp(ctx context.Context, f domain.SignUpForm) (domain.User, domain.Session, error) {
	if err := domain.ValidateSignUp(f); err != nil {
		return domain.User{}, domain.Session{}, err
	}
	return s.auth.SignUp(ctx, f.Email, f.Password, domain.Profile{
		FirstName: f.FirstName,
		LastName:  f.LastName,
		Phone:     f.Phone,
	})
}

func (s *AccountService) SignIn(ctx context.Context, email, password string) (domain.User, domain.Session, error) {
	return s.auth.SignIn(ctx, email, password)
}

func (s *AccountService) SignOut(ctx context.Context, sess domain.Session) error {
	return s.auth.SignOut(ctx, sess.Token)
}

// ResetPassword always succeeds for unknown addresses so callers cannot probe
// which emails are registered.
func (s *AccountService) ResetPassword(ctx context.Context, email string) error {
	err := s.auth.ResetPassword(ctx, email)
	var ae *domain.AuthError
	if errors.As(err, &ae) && ae.Code == domain.AuthUserNotFound {
		log.Debug().Msg("password reset requested for unknown email")
		return nil
	}
	return err
}

func (s *AccountService) CompletePasswordReset(ctx context.Context, email, token, newPassword string) error {
	return s.auth.CompletePasswordReset(ctx, email, token, newPassword)
}

// Authenticate resolves a bearer token into a live session.
func (s *AccountService) Authenticate(ctx context.Context, token string) (domain.Session, error) {
	if token == "" {
		return domain.Session{}, domain.ErrUnauthenticated
	}
	sess, err := s.auth.StoredSession(ctx, token)
	if err != nil {
		return domain.Session{}, err
	}
	if sess == nil || sess.Expired(s.now()) {
		return domain.Session{}, domain.ErrUnauthenticated
	}
	return *sess, nil
}

func (s *AccountService) GetProfile(ctx context.Context, userID string) (domain.User, error) {
	doc, err := s.store.Get(ctx, domain.CollectionUsers, userID)
	if err != nil {
		return domain.User{}, domain.StoreFailure("get profile", err)
	}
	return decodeOne[domain.User](doc)
}

// UpdateDisplayName trims name and rejects it when empty.
func (s *AccountService) UpdateDisplayName(ctx context.Context, sess domain.Session, name string) (domain.User, error) {
	name, err := domain.ValidateDisplayName(name)
	if err != nil {
		return domain.User{}, err
	}
	now := s.now()
	if err := s.store.Update(ctx, domain.CollectionUsers, sess.UserID, domain.Patch{"displayName": name, "updatedAt": now}); err != nil {
		return domain.User{}, domain.StoreFailure("update display name", err)
	}
	log.Info().Str("user_id", sess.UserID).Msg("display name updated")
	return s.GetProfile(ctx, sess.UserID)
}
