package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"merchantdash/internal/auth"
	"merchantdash/internal/identity"
	"merchantdash/internal/rbac"
)

// Identity is the signed-in user. It is handed out by value.
type Identity struct {
	UserID string    `json:"userId"`
	Email  string    `json:"email"`
	Role   rbac.Role `json:"role"`
}

type Mode int

const (
	ModeLogin Mode = iota
	ModeRegister
)

// ParseMode accepts "login" and "register"; anything else is login.
func ParseMode(value string) Mode {
	if strings.EqualFold(strings.TrimSpace(value), "register") {
		return ModeRegister
	}
	return ModeLogin
}

// Provider is the external identity provider.
type Provider interface {
	SignUp(ctx context.Context, email, password string) (identity.SignUpResult, error)
	SignInWithPassword(ctx context.Context, email, password string) (identity.Session, error)
	Refresh(ctx context.Context, refreshToken string) (identity.Session, error)
	SignOut(ctx context.Context, accessToken string) error
}

// Provisioner creates the default resources of a newly registered user.
type Provisioner interface {
	InitProducts(ctx context.Context, userID string) error
}

type Options struct {
	SessionName string
	TTL         time.Duration
	JWTSecret   string
}

// Gate resolves and owns the current identity.
type Gate struct {
	provider    Provider
	provisioner Provisioner
	store       Store
	name        string
	ttl         time.Duration
	secret      []byte

	mu      sync.Mutex
	current *Identity
	record  *Record
}

func NewGate(provider Provider, provisioner Provisioner, store Store, opts Options) *Gate {
	if store == nil {
		store = NewMemoryStore()
	}
	name := opts.SessionName
	if name == "" {
		name = "default"
	}
	return &Gate{
		provider:    provider,
		provisioner: provisioner,
		store:       store,
		name:        name,
		ttl:         opts.TTL,
		secret:      []byte(opts.JWTSecret),
	}
}

// Current returns a copy of the signed-in identity, or nil.
func (g *Gate) Current() *Identity {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current == nil {
		return nil
	}
	id := *g.current
	return &id
}

// Resolve restores a previously established session. (nil, nil) means
// nobody is signed in.
func (g *Gate) Resolve(ctx context.Context) (*Identity, error) {
	rec, err := g.store.Load(ctx, g.name)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	id, err := g.identityFromToken(rec.AccessToken)
	if errors.Is(err, auth.ErrExpiredToken) && rec.RefreshToken != "" {
		session, refreshErr := g.provider.Refresh(ctx, rec.RefreshToken)
		if refreshErr != nil {
			log.Printf("session: refresh failed, discarding stored session: %v", refreshErr)
			g.discard(ctx)
			return nil, nil
		}
		return g.establish(ctx, session)
	}
	if err != nil {
		log.Printf("session: stored token unusable, discarding: %v", err)
		g.discard(ctx)
		return nil, nil
	}

	g.mu.Lock()
	g.current = &id
	g.record = &rec
	g.mu.Unlock()
	cp := id
	return &cp, nil
}

// SignIn validates input locally, then logs in or registers.
func (g *Gate) SignIn(ctx context.Context, email, password string, mode Mode) (Identity, error) {
	email = strings.TrimSpace(email)
	if err := validateCredentials(email, password); err != nil {
		return Identity{}, err
	}
	if mode == ModeRegister {
		return g.register(ctx, email, password)
	}

	session, err := g.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		return Identity{}, signInError(err)
	}
	id, err := g.establish(ctx, session)
	if err != nil {
		return Identity{}, err
	}
	return *id, nil
}

func (g *Gate) register(ctx context.Context, email, password string) (Identity, error) {
	res, err := g.provider.SignUp(ctx, email, password)
	if err != nil {
		return Identity{}, signUpError(err)
	}
	if res.User == nil {
		return Identity{}, &AuthError{Kind: ConfirmationRequired, Message: "check your email to verify the account"}
	}
	// A user without identities is GoTrue's answer for an address that is
	// already registered, verified or not.
	if !res.User.IsNew() {
		return Identity{}, &AuthError{Kind: AlreadyRegistered, Message: "email already registered, please log in"}
	}

	if g.provisioner != nil {
		if err := g.provisioner.InitProducts(ctx, res.User.ID); err != nil {
			return Identity{}, &AuthError{Kind: Unknown, Message: "account created but default products could not be provisioned", Err: err}
		}
	}

	if res.Session != nil {
		id, err := g.establish(ctx, *res.Session)
		if err != nil {
			return Identity{}, err
		}
		return *id, nil
	}

	// Confirmation pending: usable for this process, nothing to persist.
	id := Identity{UserID: res.User.ID, Email: res.User.Email, Role: rbac.Normalize("")}
	if id.Email == "" {
		id.Email = email
	}
	g.mu.Lock()
	g.current = &id
	g.record = nil
	g.mu.Unlock()
	return id, nil
}

// SignOut is a full teardown of the session: provider logout, stored
// record removal, and the in-memory identity.
func (g *Gate) SignOut(ctx context.Context) error {
	g.mu.Lock()
	rec := g.record
	g.current = nil
	g.record = nil
	g.mu.Unlock()

	if rec != nil && rec.AccessToken != "" {
		if err := g.provider.SignOut(ctx, rec.AccessToken); err != nil {
			log.Printf("session: provider sign out failed: %v", err)
		}
	}
	if err := g.store.Delete(ctx, g.name); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (g *Gate) establish(ctx context.Context, session identity.Session) (*Identity, error) {
	id, err := g.identityFromToken(session.AccessToken)
	if err != nil {
		return nil, &AuthError{Kind: Unknown, Message: "provider returned an unusable token", Err: err}
	}
	if id.Email == "" {
		id.Email = session.User.Email
	}

	rec := Record{
		UserID:       id.UserID,
		Email:        id.Email,
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		ExpiresAt:    session.ExpiresAt,
	}
	if err := g.store.Save(ctx, g.name, rec, g.ttl); err != nil {
		log.Printf("session: persist failed, session will not survive restart: %v", err)
	}

	g.mu.Lock()
	g.current = &id
	g.record = &rec
	g.mu.Unlock()
	cp := id
	return &cp, nil
}

func (g *Gate) identityFromToken(token string) (Identity, error) {
	claims, err := auth.ParseToken(g.secret, token)
	if err != nil {
		return Identity{}, err
	}
	return Identity{
		UserID: claims.Subject,
		Email:  claims.Email,
		Role:   rbac.Normalize(claims.AppRole()),
	}, nil
}

func (g *Gate) discard(ctx context.Context) {
	if err := g.store.Delete(ctx, g.name); err != nil {
		log.Printf("session: delete stale session: %v", err)
	}
}
