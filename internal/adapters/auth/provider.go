// Package auth is a self-hosted implementation of the session/auth gateway.
// Credentials and profiles live in the document store; sessions are signed
// tokens that stay valid only while the session store still holds them.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"staybook/internal/adapters/observability"
	"staybook/internal/domain"
)

type SessionStore interface {
	Save(ctx context.Context, s domain.Session) error
	Load(ctx context.Context, token string) (*domain.Session, error)
	Delete(ctx context.Context, token string) error
}

type Config struct {
	Secret            []byte
	SessionTTL        time.Duration
	ResetTTL          time.Duration
	AttemptsPerMinute int
}

// credential is the stored login record. One per email.
type credential struct {
	ID             string     `json:"id"`
	UserID         string     `json:"userId"`
	Email          string     `json:"email"`
	PasswordHash   string     `json:"passwordHash"`
	ResetTokenHash string     `json:"resetTokenHash,omitempty"`
	ResetExpiresAt *time.Time `json:"resetExpiresAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

type claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

type Provider struct {
	store    domain.DocumentStore
	sessions SessionStore
	mailer   domain.Mailer
	cfg      Config
	validate *validator.Validate
	throttle *throttle
	now      func() time.Time

	mu        sync.Mutex
	observers map[uuid.UUID]func(domain.AuthEvent)
}

func New(store domain.DocumentStore, sessions SessionStore, mailer domain.Mailer, cfg Config) (*Provider, error) {
	if len(cfg.Secret) < 16 {
		return nil, errors.New("auth: secret must be at least 16 bytes")
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * 24 * time.Hour
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = time.Hour
	}
	if cfg.AttemptsPerMinute <= 0 {
		cfg.AttemptsPerMinute = 5
	}
	return &Provider{
		store:     store,
		sessions:  sessions,
		mailer:    mailer,
		cfg:       cfg,
		validate:  validator.New(),
		throttle:  newThrottle(cfg.AttemptsPerMinute),
		now:       func() time.Time { return time.Now().UTC() },
		observers: map[uuid.UUID]func(domain.AuthEvent){},
	}, nil
}

// WithClock replaces the clock; tests use it to expire sessions.
func (p *Provider) WithClock(now func() time.Time) *Provider {
	p.now = now
	return p
}

func (p *Provider) SignUp(ctx context.Context, email, password string, prof domain.Profile) (u domain.User, s domain.Session, err error) {
	defer func() { observability.ObserveAuth("signup", err) }()

	email = normalizeEmail(email)
	if p.validate.Var(email, "required,email") != nil {
		return u, s, domain.NewAuthError(domain.AuthInvalidEmail, "Invalid email address.")
	}
	if len(password) < domain.MinPasswordLen {
		return u, s, domain.NewAuthError(domain.AuthWeakPassword, "Password should be at least 6 characters.")
	}
	existing, err := p.findCredential(ctx, email)
	if err != nil {
		return u, s, err
	}
	if existing != nil {
		return u, s, domain.NewAuthError(domain.AuthEmailInUse, "This email is already registered.")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return u, s, fmt.Errorf("hash password: %w", err)
	}
	now := p.now()
	u = domain.User{
		ID:          uuid.NewString(),
		Email:       email,
		DisplayName: prof.DisplayName(),
		Phone:       strings.TrimSpace(prof.Phone),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := p.put(ctx, domain.CollectionUsers, u.ID, now, u); err != nil {
		return domain.User{}, s, err
	}
	cred := credential{ID: uuid.NewString(), UserID: u.ID, Email: email, PasswordHash: string(hash), CreatedAt: now}
	if err := p.put(ctx, domain.CollectionCredentials, cred.ID, now, cred); err != nil {
		return domain.User{}, s, err
	}

	s, err = p.openSession(ctx, u)
	if err != nil {
		return domain.User{}, domain.Session{}, err
	}
	log.Info().Str("user_id", u.ID).Msg("user signed up")
	return u, s, nil
}

func (p *Provider) SignIn(ctx context.Context, email, password string) (u domain.User, s domain.Session, err error) {
	defer func() { observability.ObserveAuth("signin", err) }()

	email = normalizeEmail(email)
	if p.validate.Var(email, "required,email") != nil {
		return u, s, domain.NewAuthError(domain.AuthInvalidEmail, "Invalid email address.")
	}
	if !p.throttle.allow(email) {
		return u, s, domain.NewAuthError(domain.AuthTooManyRequests, "Too many attempts. Please try again later.")
	}
	cred, err := p.findCredential(ctx, email)
	if err != nil {
		return u, s, err
	}
	if cred == nil {
		return u, s, domain.NewAuthError(domain.AuthUserNotFound, "No account found with this email.")
	}
	if bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)) != nil {
		return u, s, domain.NewAuthError(domain.AuthWrongPassword, "Incorrect password.")
	}

	doc, err := p.store.Get(ctx, domain.CollectionUsers, cred.UserID)
	if err != nil {
		return u, s, domain.StoreFailure("get user", err)
	}
	if err := doc.Decode(&u); err != nil {
		return domain.User{}, s, err
	}
	s, err = p.openSession(ctx, u)
	if err != nil {
		return domain.User{}, domain.Session{}, err
	}
	return u, s, nil
}

func (p *Provider) SignOut(ctx context.Context, token string) (err error) {
	defer func() { observability.ObserveAuth("signout", err) }()

	sess, err := p.sessions.Load(ctx, token)
	if err != nil {
		return domain.StoreFailure("load session", err)
	}
	if sess == nil {
		return nil
	}
	if err := p.sessions.Delete(ctx, token); err != nil {
		return domain.StoreFailure("delete session", err)
	}
	p.notify(domain.AuthEvent{UserID: sess.UserID})
	return nil
}

// ResetPassword stores a one-time reset token and mails it to the account owner.
func (p *Provider) ResetPassword(ctx context.Context, email string) (err error) {
	defer func() { observability.ObserveAuth("reset", err) }()

	email = normalizeEmail(email)
	if p.validate.Var(email, "required,email") != nil {
		return domain.NewAuthError(domain.AuthInvalidEmail, "Invalid email address.")
	}
	cred, err := p.findCredential(ctx, email)
	if err != nil {
		return err
	}
	if cred == nil {
		return domain.NewAuthError(domain.AuthUserNotFound, "No account found with this email.")
	}
	token := uuid.NewString()
	expires := p.now().Add(p.cfg.ResetTTL)
	if err := p.store.Update(ctx, domain.CollectionCredentials, cred.ID, domain.Patch{
		"resetTokenHash": hashToken(token),
		"resetExpiresAt": expires,
	}); err != nil {
		return domain.StoreFailure("store reset token", err)
	}
	if err := p.mailer.SendPasswordReset(ctx, email, token); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}
	return nil
}

// CompletePasswordReset sets a new password when token matches the last reset request.
func (p *Provider) CompletePasswordReset(ctx context.Context, email, token, newPassword string) (err error) {
	defer func() { observability.ObserveAuth("reset_complete", err) }()

	if len(newPassword) < domain.MinPasswordLen {
		return domain.NewAuthError(domain.AuthWeakPassword, "Password should be at least 6 characters.")
	}
	cred, err := p.findCredential(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}
	if cred == nil {
		return domain.NewAuthError(domain.AuthUserNotFound, "No account found with this email.")
	}
	if cred.ResetTokenHash == "" || cred.ResetTokenHash != hashToken(token) ||
		cred.ResetExpiresAt == nil || !p.now().Before(*cred.ResetExpiresAt) {
		return domain.NewAuthError(domain.AuthSessionExpired, "This reset link is invalid or has expired.")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return domain.StoreFailure("update password", p.store.Update(ctx, domain.CollectionCredentials, cred.ID, domain.Patch{
		"passwordHash":   string(hash),
		"resetTokenHash": "",
		"resetExpiresAt": nil,
	}))
}

func (p *Provider) OnAuthStateChange(fn func(domain.AuthEvent)) domain.CancelFunc {
	key := uuid.New()
	p.mu.Lock()
	p.observers[key] = fn
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		delete(p.observers, key)
		p.mu.Unlock()
	}
}

func (p *Provider) StoredSession(ctx context.Context, token string) (*domain.Session, error) {
	if token == "" {
		return nil, nil
	}
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		return p.cfg.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(p.now))
	if err != nil {
		return nil, nil
	}
	sess, err := p.sessions.Load(ctx, token)
	if err != nil {
		return nil, domain.StoreFailure("load session", err)
	}
	if sess == nil || sess.UserID != c.Subject || sess.Expired(p.now()) {
		return nil, nil
	}
	return sess, nil
}

func (p *Provider) openSession(ctx context.Context, u domain.User) (domain.Session, error) {
	now := p.now()
	exp := now.Add(p.cfg.SessionTTL)
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: u.Email,
		Name:  u.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}).SignedString(p.cfg.Secret)
	if err != nil {
		return domain.Session{}, fmt.Errorf("sign session: %w", err)
	}
	s := domain.Session{Token: tok, UserID: u.ID, Email: u.Email, DisplayName: u.DisplayName, ExpiresAt: exp}
	if err := p.sessions.Save(ctx, s); err != nil {
		return domain.Session{}, domain.StoreFailure("save session", err)
	}
	p.notify(domain.AuthEvent{UserID: u.ID, Session: &s})
	return s, nil
}

func (p *Provider) notify(ev domain.AuthEvent) {
	p.mu.Lock()
	fns := make([]func(domain.AuthEvent), 0, len(p.observers))
	for _, fn := range p.observers {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (p *Provider) findCredential(ctx context.Context, email string) (*credential, error) {
	docs, err := p.store.Query(ctx, domain.CollectionCredentials, domain.DocQuery{
		Where: []domain.Filter{{Field: "email", Value: email}},
		Desc:  true,
		Limit: 1,
	})
	if err != nil {
		return nil, domain.StoreFailure("find credential", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	var c credential
	if err := docs[0].Decode(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (p *Provider) put(ctx context.Context, collection, id string, at time.Time, v any) error {
	doc, err := domain.NewDocument(id, at, v)
	if err != nil {
		return err
	}
	_, err = p.store.Create(ctx, collection, doc)
	return domain.StoreFailure("create "+collection, err)
}

func normalizeEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }

func hashToken(t string) string {
	sum := sha256.Sum256([]byte(t))
	return hex.EncodeToString(sum[:])
}
