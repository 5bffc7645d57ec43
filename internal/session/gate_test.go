package session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"merchantdash/internal/auth"
	"merchantdash/internal/identity"
	"merchantdash/internal/rbac"
)

const testSecret = "test-secret"

type fakeProvider struct {
	signUpFn  func(context.Context, string, string) (identity.SignUpResult, error)
	signInFn  func(context.Context, string, string) (identity.Session, error)
	refreshFn func(context.Context, string) (identity.Session, error)
	signOutFn func(context.Context, string) error
	calls     int
}

func (f *fakeProvider) SignUp(ctx context.Context, email, password string) (identity.SignUpResult, error) {
	f.calls++
	if f.signUpFn != nil {
		return f.signUpFn(ctx, email, password)
	}
	return identity.SignUpResult{}, nil
}
func (f *fakeProvider) SignInWithPassword(ctx context.Context, email, password string) (identity.Session, error) {
	f.calls++
	if f.signInFn != nil {
		return f.signInFn(ctx, email, password)
	}
	return identity.Session{}, errors.New("not configured")
}
func (f *fakeProvider) Refresh(ctx context.Context, refreshToken string) (identity.Session, error) {
	f.calls++
	if f.refreshFn != nil {
		return f.refreshFn(ctx, refreshToken)
	}
	return identity.Session{}, errors.New("not configured")
}
func (f *fakeProvider) SignOut(ctx context.Context, accessToken string) error {
	f.calls++
	if f.signOutFn != nil {
		return f.signOutFn(ctx, accessToken)
	}
	return nil
}

type fakeProvisioner struct {
	userIDs []string
	err     error
}

func (f *fakeProvisioner) InitProducts(_ context.Context, userID string) error {
	f.userIDs = append(f.userIDs, userID)
	return f.err
}

func issue(t *testing.T, sub, email string, exp time.Time) string {
	t.Helper()
	token, err := auth.IssueToken([]byte(testSecret), auth.Claims{
		Email: email,
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func newTestGate(p *fakeProvider, prov *fakeProvisioner, store Store) *Gate {
	var provisioner Provisioner
	if prov != nil {
		provisioner = prov
	}
	return NewGate(p, provisioner, store, Options{SessionName: "test", TTL: time.Hour, JWTSecret: testSecret})
}

func TestSignInValidationNeverCallsNetwork(t *testing.T) {
	cases := []struct {
		email, password string
		invalid         bool
	}{
		{"owner@toko.com", "12345", true},
		{"owner@toko.com", "", true},
		{"owner.toko.com", "123456", true},
		{"", "abcdefgh", true},
		{"owner@toko.com", "123456", false},
		{"@", "abcdef", false},
		{"owner@toko.com", "ééé", true},
		{"owner@toko.com", "🔥🔥🔥🔥🔥", true},
		{"owner@toko.com", "kopiéé", false},
	}

	for _, tc := range cases {
		for _, mode := range []Mode{ModeLogin, ModeRegister} {
			p := &fakeProvider{}
			prov := &fakeProvisioner{}
			gate := newTestGate(p, prov, NewMemoryStore())

			_, err := gate.SignIn(context.Background(), tc.email, tc.password, mode)
			var ve *ValidationError
			isValidation := errors.As(err, &ve)
			if isValidation != tc.invalid {
				t.Fatalf("SignIn(%q, %q, %d) validation = %v, want %v (err=%v)", tc.email, tc.password, mode, isValidation, tc.invalid, err)
			}
			if tc.invalid && (p.calls != 0 || len(prov.userIDs) != 0) {
				t.Fatalf("expected no network calls for invalid input, got provider=%d provision=%d", p.calls, len(prov.userIDs))
			}
		}
	}
}

func TestRegisterNewAccountProvisionsOnce(t *testing.T) {
	token := issue(t, "user-1", "owner@toko.com", time.Now().Add(time.Hour))
	p := &fakeProvider{
		signUpFn: func(context.Context, string, string) (identity.SignUpResult, error) {
			user := identity.User{ID: "user-1", Email: "owner@toko.com", Identities: []json.RawMessage{json.RawMessage(`{}`)}}
			return identity.SignUpResult{User: &user, Session: &identity.Session{AccessToken: token, RefreshToken: "rt", User: user}}, nil
		},
	}
	prov := &fakeProvisioner{}
	store := NewMemoryStore()
	gate := newTestGate(p, prov, store)

	id, err := gate.SignIn(context.Background(), "owner@toko.com", "secret1", ModeRegister)
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if id.UserID != "user-1" || id.Email != "owner@toko.com" || id.Role != rbac.RoleMerchant {
		t.Fatalf("unexpected identity %+v", id)
	}
	if len(prov.userIDs) != 1 || prov.userIDs[0] != "user-1" {
		t.Fatalf("expected one provisioning call for user-1, got %v", prov.userIDs)
	}
	if _, err := store.Load(context.Background(), "test"); err != nil {
		t.Fatalf("expected session persisted: %v", err)
	}
	if gate.Current() == nil {
		t.Fatal("expected current identity")
	}
}

func TestRegisterDuplicateIsAlreadyRegistered(t *testing.T) {
	cases := map[string]func(context.Context, string, string) (identity.SignUpResult, error){
		"provider error": func(context.Context, string, string) (identity.SignUpResult, error) {
			return identity.SignUpResult{}, &identity.ProviderError{Status: 422, Code: "user_already_exists", Message: "User already registered"}
		},
		"status 400": func(context.Context, string, string) (identity.SignUpResult, error) {
			return identity.SignUpResult{}, &identity.ProviderError{Status: 400, Message: "bad request"}
		},
		"obfuscated unverified duplicate": func(context.Context, string, string) (identity.SignUpResult, error) {
			return identity.SignUpResult{User: &identity.User{ID: "fake", Email: "owner@toko.com"}}, nil
		},
	}

	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			prov := &fakeProvisioner{}
			gate := newTestGate(&fakeProvider{signUpFn: fn}, prov, NewMemoryStore())

			_, err := gate.SignIn(context.Background(), "owner@toko.com", "secret1", ModeRegister)
			if !IsAuthKind(err, AlreadyRegistered) {
				t.Fatalf("expected AlreadyRegistered, got %v", err)
			}
			if len(prov.userIDs) != 0 {
				t.Fatalf("expected no provisioning, got %v", prov.userIDs)
			}
			if gate.Current() != nil {
				t.Fatal("expected no identity")
			}
		})
	}
}

func TestRegisterWithoutUserNeedsConfirmation(t *testing.T) {
	gate := newTestGate(&fakeProvider{}, &fakeProvisioner{}, NewMemoryStore())
	_, err := gate.SignIn(context.Background(), "owner@toko.com", "secret1", ModeRegister)
	if !IsAuthKind(err, ConfirmationRequired) {
		t.Fatalf("expected ConfirmationRequired, got %v", err)
	}
}

func TestRegisterPendingConfirmationStillSignsIn(t *testing.T) {
	p := &fakeProvider{
		signUpFn: func(context.Context, string, string) (identity.SignUpResult, error) {
			return identity.SignUpResult{User: &identity.User{ID: "user-9", Identities: []json.RawMessage{json.RawMessage(`{}`)}}}, nil
		},
	}
	prov := &fakeProvisioner{}
	store := NewMemoryStore()
	gate := newTestGate(p, prov, store)

	id, err := gate.SignIn(context.Background(), "new@toko.com", "secret1", ModeRegister)
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if id.UserID != "user-9" || id.Email != "new@toko.com" {
		t.Fatalf("unexpected identity %+v", id)
	}
	if len(prov.userIDs) != 1 {
		t.Fatalf("expected provisioning, got %v", prov.userIDs)
	}
	if _, err := store.Load(context.Background(), "test"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected nothing persisted without a session, got %v", err)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	p := &fakeProvider{
		signInFn: func(context.Context, string, string) (identity.Session, error) {
			return identity.Session{}, &identity.ProviderError{Status: 400, Code: "invalid_grant", Message: "Invalid login credentials"}
		},
	}
	gate := newTestGate(p, nil, NewMemoryStore())

	_, err := gate.SignIn(context.Background(), "owner@toko.com", "wrongpw", ModeLogin)
	if !IsAuthKind(err, InvalidCredentials) {
		t.Fatalf("expected InvalidCredentials, got %v", err)
	}
}

func TestLoginUnknownFailure(t *testing.T) {
	p := &fakeProvider{
		signInFn: func(context.Context, string, string) (identity.Session, error) {
			return identity.Session{}, errors.New("connection refused")
		},
	}
	gate := newTestGate(p, nil, NewMemoryStore())

	_, err := gate.SignIn(context.Background(), "owner@toko.com", "secret1", ModeLogin)
	if !IsAuthKind(err, Unknown) {
		t.Fatalf("expected Unknown, got %v", err)
	}
}

func TestLoginThenResolveRestoresSession(t *testing.T) {
	token := issue(t, "user-1", "owner@toko.com", time.Now().Add(time.Hour))
	p := &fakeProvider{
		signInFn: func(context.Context, string, string) (identity.Session, error) {
			return identity.Session{AccessToken: token, RefreshToken: "rt"}, nil
		},
	}
	store := NewMemoryStore()
	if _, err := newTestGate(p, nil, store).SignIn(context.Background(), "owner@toko.com", "secret1", ModeLogin); err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}

	restarted := newTestGate(&fakeProvider{}, nil, store)
	id, err := restarted.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if id == nil || id.UserID != "user-1" {
		t.Fatalf("expected restored user-1, got %+v", id)
	}
	if restarted.Current() == nil {
		t.Fatal("expected current identity after resolve")
	}
}

func TestResolveWithoutSession(t *testing.T) {
	gate := newTestGate(&fakeProvider{}, nil, NewMemoryStore())
	id, err := gate.Resolve(context.Background())
	if err != nil || id != nil {
		t.Fatalf("expected (nil, nil), got (%+v, %v)", id, err)
	}
}

func TestResolveRefreshesExpiredToken(t *testing.T) {
	store := NewMemoryStore()
	expired := issue(t, "user-1", "owner@toko.com", time.Now().Add(-time.Minute))
	fresh := issue(t, "user-1", "owner@toko.com", time.Now().Add(time.Hour))
	if err := store.Save(context.Background(), "test", Record{UserID: "user-1", AccessToken: expired, RefreshToken: "rt-old"}, time.Hour); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	var usedRefresh string
	p := &fakeProvider{
		refreshFn: func(_ context.Context, rt string) (identity.Session, error) {
			usedRefresh = rt
			return identity.Session{AccessToken: fresh, RefreshToken: "rt-new"}, nil
		},
	}
	gate := newTestGate(p, nil, store)

	id, err := gate.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if id == nil || id.UserID != "user-1" {
		t.Fatalf("expected user-1, got %+v", id)
	}
	if usedRefresh != "rt-old" {
		t.Fatalf("expected refresh with rt-old, got %q", usedRefresh)
	}
	rec, err := store.Load(context.Background(), "test")
	if err != nil || rec.RefreshToken != "rt-new" {
		t.Fatalf("expected rotated refresh token, got %+v (%v)", rec, err)
	}
}

func TestResolveDiscardsWhenRefreshFails(t *testing.T) {
	store := NewMemoryStore()
	expired := issue(t, "user-1", "owner@toko.com", time.Now().Add(-time.Minute))
	_ = store.Save(context.Background(), "test", Record{AccessToken: expired, RefreshToken: "rt"}, time.Hour)

	gate := newTestGate(&fakeProvider{}, nil, store)
	id, err := gate.Resolve(context.Background())
	if err != nil || id != nil {
		t.Fatalf("expected (nil, nil), got (%+v, %v)", id, err)
	}
	if _, err := store.Load(context.Background(), "test"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected stale session removed, got %v", err)
	}
}

func TestSignOutTearsDown(t *testing.T) {
	token := issue(t, "user-1", "owner@toko.com", time.Now().Add(time.Hour))
	var signedOut string
	p := &fakeProvider{
		signInFn: func(context.Context, string, string) (identity.Session, error) {
			return identity.Session{AccessToken: token, RefreshToken: "rt"}, nil
		},
		signOutFn: func(_ context.Context, at string) error {
			signedOut = at
			return errors.New("provider down")
		},
	}
	store := NewMemoryStore()
	gate := newTestGate(p, nil, store)
	if _, err := gate.SignIn(context.Background(), "owner@toko.com", "secret1", ModeLogin); err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}

	if err := gate.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut() error = %v", err)
	}
	if signedOut != token {
		t.Fatalf("expected provider sign out with access token")
	}
	if gate.Current() != nil {
		t.Fatal("expected identity cleared")
	}
	if _, err := store.Load(context.Background(), "test"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected stored session removed, got %v", err)
	}
}

func TestParseMode(t *testing.T) {
	if ParseMode("Register") != ModeRegister || ParseMode("login") != ModeLogin || ParseMode("") != ModeLogin {
		t.Fatal("unexpected ParseMode result")
	}
}
