// Package service implements the sandbox's business rules on top of a
// store.Store: org bootstrap, operator login, agents, and the ACP job
// lifecycle with phase and role enforcement. State changes are audited and
// dispatched to webhooks.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/agentwallet/agentwallet-go/internal/sandbox/audit"
	"github.com/agentwallet/agentwallet-go/internal/sandbox/auth"
	"github.com/agentwallet/agentwallet-go/internal/sandbox/model"
	"github.com/agentwallet/agentwallet-go/internal/sandbox/store"
)

// Errors returned by Service. Handlers map them to HTTP statuses.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrForbiddenRole      = errors.New("forbidden role")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Service contains the sandbox business logic.
type Service struct {
	store    store.Store
	hasher   *auth.KeyHasher
	sessions *auth.SessionIssuer // nil = operator login disabled
	logger   *zap.Logger
	now      func() time.Time

	ledger     audit.Ledger
	dispatcher Dispatcher
}

// New creates a Service. sessions may be nil to disable operator login.
func New(st store.Store, hasher *auth.KeyHasher, sessions *auth.SessionIssuer, logger *zap.Logger) *Service {
	return &Service{
		store:    st,
		hasher:   hasher,
		sessions: sessions,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// notFound translates store.ErrNotFound into ErrNotFound naming the record.
func notFound(err error, what string, id uuid.UUID) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s %s", ErrNotFound, what, id)
	}
	return err
}

// Operator is the email and password of a dashboard user to seed.
type Operator struct {
	Email    string
	Password string
}

// BootstrapParams describes an org to seed at startup.
type BootstrapParams struct {
	OrgName   string
	APIKeys   []string
	Operators []Operator
}

// Bootstrap creates an org with its API keys and operators. Operators whose
// email is already registered are skipped.
func (s *Service) Bootstrap(ctx context.Context, p BootstrapParams) (*model.Org, error) {
	if strings.TrimSpace(p.OrgName) == "" {
		return nil, invalid("org name is required")
	}
	org, err := s.existingOrg(ctx, p)
	if err != nil {
		return nil, err
	}
	if org == nil {
		org = &model.Org{ID: uuid.New(), Name: p.OrgName, CreatedAt: s.now()}
		if err := s.store.CreateOrg(ctx, org); err != nil {
			return nil, fmt.Errorf("create org: %w", err)
		}
	}

	for _, key := range p.APIKeys {
		if key == "" {
			continue
		}
		if err := s.store.PutAPIKey(ctx, org.ID, s.hasher.Hash(key)); err != nil {
			return nil, fmt.Errorf("register api key: %w", err)
		}
	}

	for _, op := range p.Operators {
		hash, err := bcrypt.GenerateFromPassword([]byte(op.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		err = s.store.CreateOperator(ctx, &model.Operator{
			ID:           uuid.New(),
			OrgID:        org.ID,
			Email:        op.Email,
			PasswordHash: string(hash),
			CreatedAt:    s.now(),
		})
		if errors.Is(err, store.ErrConflict) {
			s.logger.Warn("operator already exists, skipping", zap.String("email", op.Email))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create operator: %w", err)
		}
	}

	s.logger.Info("org bootstrapped",
		zap.String("org_id", org.ID.String()),
		zap.String("name", org.Name),
		zap.Int("api_keys", len(p.APIKeys)),
		zap.Int("operators", len(p.Operators)),
	)
	return org, nil
}

// existingOrg returns the org one of p's API keys already belongs to, so a
// restart against a persistent store keeps its data.
func (s *Service) existingOrg(ctx context.Context, p BootstrapParams) (*model.Org, error) {
	for _, key := range p.APIKeys {
		if key == "" {
			continue
		}
		id, err := s.store.OrgForAPIKey(ctx, s.hasher.Hash(key))
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("look up api key: %w", err)
		}
		s.logger.Info("reusing existing org", zap.String("org_id", id.String()))
		return &model.Org{ID: id, Name: p.OrgName}, nil
	}
	return nil, nil
}

// Session is the result of a successful Login.
type Session struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	OrgID       string `json:"org_id"`
}

// Login checks an operator's password and issues a session token.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	if s.sessions == nil {
		return nil, fmt.Errorf("%w: operator login is disabled", ErrInvalidCredentials)
	}
	op, err := s.store.OperatorByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	tok, err := s.sessions.Issue(op.ID, op.OrgID, op.Email)
	if err != nil {
		return nil, err
	}
	return &Session{AccessToken: tok, TokenType: "bearer", OrgID: op.OrgID.String()}, nil
}
