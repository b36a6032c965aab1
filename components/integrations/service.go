package integrations

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/dashboardai/dashboardai/pkg/backend"
)

var (
	ErrInvalidAccount  = errors.New("integrations: invalid account")
	ErrAccountNotFound = errors.New("integrations: account not found")
)

// Telemetry records integration events.
type Telemetry interface {
	Record(ctx context.Context, event string, payload map[string]any)
}

type noopTelemetry struct{}

func (noopTelemetry) Record(context.Context, string, map[string]any) {}

// Options configures a Service.
type Options struct {
	Client    backend.AccountsClient
	Logger    *zap.Logger
	Telemetry Telemetry
	Now       func() time.Time
}

// Snapshot is the cached account list and when it was loaded.
type Snapshot struct {
	Accounts  []ConnectedAccount `json:"accounts"`
	LoadedAt  time.Time          `json:"loaded_at"`
	Populated bool               `json:"populated"`
}

// Service reads and writes connected accounts through the backend.
type Service struct {
	client    backend.AccountsClient
	validate  *validator.Validate
	logger    *zap.Logger
	telemetry Telemetry
	now       func() time.Time

	mu       sync.RWMutex
	snapshot Snapshot
}

// NewService builds a Service. A client is required.
func NewService(opts Options) (*Service, error) {
	if opts.Client == nil {
		return nil, errors.New("integrations: backend client is required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Telemetry == nil {
		opts.Telemetry = noopTelemetry{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		client:    opts.Client,
		validate:  validator.New(),
		logger:    opts.Logger,
		telemetry: opts.Telemetry,
		now:       opts.Now,
	}, nil
}

// List loads every account and refreshes the snapshot. A malformed backend
// response yields an empty list.
func (s *Service) List(ctx context.Context) ([]ConnectedAccount, error) {
	raw, err := s.client.ListAccounts(ctx)
	if err != nil {
		if !errors.Is(err, backend.ErrUnexpectedShape) {
			return nil, err
		}
		s.logger.Warn("accounts response malformed, using empty list", zap.Error(err))
		raw = nil
	}
	accounts := mapAccounts(raw)
	s.mu.Lock()
	s.snapshot = Snapshot{Accounts: accounts, LoadedAt: s.now(), Populated: true}
	s.mu.Unlock()
	return copyAccounts(accounts), nil
}

// Refresh reloads the snapshot.
func (s *Service) Refresh(ctx context.Context) error {
	_, err := s.List(ctx)
	if err == nil {
		s.telemetry.Record(ctx, "integrations.refresh", map[string]any{"accounts": len(s.Snapshot().Accounts)})
	}
	return err
}

// Snapshot returns a copy of the cached read model.
func (s *Service) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.snapshot
	snap.Accounts = copyAccounts(snap.Accounts)
	return snap
}

// Create validates in, creates the account and reloads the list.
func (s *Service) Create(ctx context.Context, in ConnectInput) ([]ConnectedAccount, error) {
	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidAccount, verrs.Error())
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidAccount, err)
	}
	if err := s.client.CreateAccount(ctx, in.toBackend()); err != nil {
		return nil, err
	}
	s.logger.Info("account created", zap.String("platform", string(in.Platform)), zap.String("external_id", in.AccountExternalID))
	s.telemetry.Record(ctx, "integrations.create", map[string]any{"platform": string(in.Platform)})
	return s.List(ctx)
}

// SetActive toggles the account's active flag.
func (s *Service) SetActive(ctx context.Context, id int, active bool) error {
	if id <= 0 {
		return fmt.Errorf("%w: id must be positive", ErrInvalidAccount)
	}
	if err := s.client.SetAccountActive(ctx, id, active); err != nil {
		return err
	}
	s.mu.Lock()
	for i := range s.snapshot.Accounts {
		if s.snapshot.Accounts[i].ID == id {
			s.snapshot.Accounts[i].IsActive = active
		}
	}
	s.mu.Unlock()
	s.telemetry.Record(ctx, "integrations.active", map[string]any{"id": id, "active": active})
	return nil
}

// Delete removes the account.
func (s *Service) Delete(ctx context.Context, id int) error {
	if id <= 0 {
		return fmt.Errorf("%w: id must be positive", ErrInvalidAccount)
	}
	if err := s.client.DeleteAccount(ctx, id); err != nil {
		return err
	}
	s.mu.Lock()
	kept := s.snapshot.Accounts[:0]
	for _, account := range s.snapshot.Accounts {
		if account.ID != id {
			kept = append(kept, account)
		}
	}
	s.snapshot.Accounts = kept
	s.mu.Unlock()
	s.telemetry.Record(ctx, "integrations.delete", map[string]any{"id": id})
	return nil
}

// Users lists users who completed the Facebook flow.
func (s *Service) Users(ctx context.Context) ([]User, error) {
	raw, err := s.client.ListUsers(ctx)
	if err != nil {
		if !errors.Is(err, backend.ErrUnexpectedShape) {
			return nil, err
		}
		s.logger.Warn("users response malformed, using empty list", zap.Error(err))
	}
	users := make([]User, 0, len(raw))
	for _, u := range raw {
		users = append(users, User{FacebookID: u.FacebookID, Username: u.Username, Email: u.Email})
	}
	return users, nil
}

// AccountsForUser lists the accounts imported by one Facebook user.
func (s *Service) AccountsForUser(ctx context.Context, facebookID string) ([]ConnectedAccount, error) {
	if facebookID == "" {
		return nil, fmt.Errorf("%w: facebook id is required", ErrInvalidAccount)
	}
	raw, err := s.client.AccountsByFacebookUser(ctx, facebookID)
	if err != nil {
		if !errors.Is(err, backend.ErrUnexpectedShape) {
			return nil, err
		}
		s.logger.Warn("user accounts response malformed, using empty list", zap.String("facebook_id", facebookID), zap.Error(err))
	}
	return mapAccounts(raw), nil
}

// Find returns the cached account with id.
func (s *Service) Find(id int) (ConnectedAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, account := range s.snapshot.Accounts {
		if account.ID == id {
			return account, nil
		}
	}
	return ConnectedAccount{}, ErrAccountNotFound
}

func mapAccounts(raw []backend.Account) []ConnectedAccount {
	out := make([]ConnectedAccount, 0, len(raw))
	for _, a := range raw {
		out = append(out, FromBackend(a))
	}
	return out
}

func copyAccounts(in []ConnectedAccount) []ConnectedAccount {
	if in == nil {
		return []ConnectedAccount{}
	}
	out := make([]ConnectedAccount, len(in))
	copy(out, in)
	return out
}
