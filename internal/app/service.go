package app

import (
	"context"
	"log"
	"sync"
	"time"

	"merchantdash/internal/dashboard"
	"merchantdash/internal/location"
	"merchantdash/internal/session"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Gate            *session.Gate
	Locator         location.Resolver
	LocationTimeout time.Duration
	Syncer          *dashboard.Syncer
	Commands        *dashboard.Commands
	// SessionStore is pinged by the readiness check when it supports it.
	SessionStore session.Store
}

// Service owns the dashboard lifecycle for the one signed-in merchant:
// session restore, the single location attempt, and every sync.
type Service struct {
	gate       *session.Gate
	locator    location.Resolver
	locTimeout time.Duration
	syncer     *dashboard.Syncer
	commands   *dashboard.Commands
	store      *dashboard.Store
	sessions   pinger

	mu    sync.Mutex
	coord *location.Coordinate
}

func New(deps Deps) *Service {
	s := &Service{
		gate:       deps.Gate,
		locator:    deps.Locator,
		locTimeout: deps.LocationTimeout,
		syncer:     deps.Syncer,
		commands:   deps.Commands,
		store:      deps.Syncer.Store(),
	}
	if p, ok := deps.SessionStore.(pinger); ok {
		s.sessions = p
	}
	return s
}

// Start restores a persisted session and, when one exists, runs the first sync.
func (s *Service) Start(ctx context.Context) error {
	id, err := s.gate.Resolve(ctx)
	if err != nil {
		return err
	}
	if id == nil {
		log.Printf("app: no stored session, waiting for sign in")
		return nil
	}
	return s.initialize(ctx, *id)
}

func (s *Service) initialize(ctx context.Context, id session.Identity) error {
	coord := location.Resolve(ctx, s.locator, s.locTimeout)
	s.mu.Lock()
	s.coord = coord
	s.mu.Unlock()

	_, err := s.syncer.Sync(ctx, id, coord)
	return err
}

// SignInResult carries the identity and, separately, the outcome of the
// first sync. A failed sync does not undo the sign in.
type SignInResult struct {
	Identity session.Identity
	SyncErr  error
}

// SignIn establishes an identity and starts a fresh dashboard for it.
func (s *Service) SignIn(ctx context.Context, email, password string, mode session.Mode) (SignInResult, error) {
	id, err := s.gate.SignIn(ctx, email, password, mode)
	if err != nil {
		return SignInResult{}, err
	}
	s.store.Reset()
	res := SignInResult{Identity: id}
	if err := s.initialize(ctx, id); err != nil {
		log.Printf("app: initial sync for %s failed: %v", id.UserID, err)
		res.SyncErr = err
	}
	return res, nil
}

// SignOut tears down the identity and every piece of dashboard state.
func (s *Service) SignOut(ctx context.Context) error {
	err := s.gate.SignOut(ctx)
	s.store.Reset()
	s.mu.Lock()
	s.coord = nil
	s.mu.Unlock()
	return err
}

func (s *Service) Identity() *session.Identity {
	return s.gate.Current()
}

// Snapshot returns the snapshot on display and whether a sync is in flight.
func (s *Service) Snapshot() (*dashboard.Snapshot, bool, error) {
	if s.gate.Current() == nil {
		return nil, false, ErrNotSignedIn
	}
	loading := s.store.Loading()
	snap, ok := s.store.Current()
	if !ok {
		return nil, loading, nil
	}
	return &snap, loading, nil
}

func (s *Service) Sync(ctx context.Context) (dashboard.Snapshot, error) {
	id, coord, err := s.active()
	if err != nil {
		return dashboard.Snapshot{}, err
	}
	return s.syncer.Sync(ctx, id, coord)
}

func (s *Service) RecordSale(ctx context.Context, in dashboard.SaleInput) error {
	id, coord, err := s.active()
	if err != nil {
		return err
	}
	return s.commands.RecordSale(ctx, id, coord, in)
}

func (s *Service) Restock(ctx context.Context, in dashboard.RestockInput) error {
	id, coord, err := s.active()
	if err != nil {
		return err
	}
	return s.commands.Restock(ctx, id, coord, in)
}

func (s *Service) Retrain(ctx context.Context, confirm dashboard.Confirmer) (dashboard.RetrainResult, error) {
	id, coord, err := s.active()
	if err != nil {
		return dashboard.RetrainResult{}, err
	}
	return s.commands.Retrain(ctx, id, coord, confirm)
}

// Ping checks the session store when it is a networked one.
func (s *Service) Ping(ctx context.Context) error {
	if s.sessions == nil {
		return nil
	}
	return s.sessions.Ping(ctx)
}

func (s *Service) active() (session.Identity, *location.Coordinate, error) {
	id := s.gate.Current()
	if id == nil {
		return session.Identity{}, nil, ErrNotSignedIn
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return *id, s.coord, nil
}
