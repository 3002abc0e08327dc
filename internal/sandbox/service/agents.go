package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/agentwallet/agentwallet-go/internal/sandbox/auth"
	"github.com/agentwallet/agentwallet-go/internal/sandbox/model"
)

// CreateAgentInput is the payload for CreateAgent.
type CreateAgentInput struct {
	Name         string         `json:"name"`
	Description  *string        `json:"description"`
	Capabilities []string       `json:"capabilities"`
	IsPublic     bool           `json:"is_public"`
	Metadata     map[string]any `json:"metadata"`
}

// CreateAgent registers an agent in orgID.
func (s *Service) CreateAgent(ctx context.Context, orgID uuid.UUID, in CreateAgentInput) (*model.Agent, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("name is required")
	}
	if len(name) > 255 {
		return nil, invalid("name must be at most 255 characters")
	}
	now := s.now()
	a := &model.Agent{
		ID:           uuid.New(),
		OrgID:        orgID,
		Name:         name,
		Description:  in.Description,
		Capabilities: in.Capabilities,
		IsPublic:     in.IsPublic,
		Status:       model.AgentStatusActive,
		Metadata:     in.Metadata,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if a.Capabilities == nil {
		a.Capabilities = []string{}
	}
	if a.Metadata == nil {
		a.Metadata = map[string]any{}
	}
	if err := s.store.CreateAgent(ctx, a); err != nil {
		return nil, err
	}
	s.emit(ctx, orgID, model.EventAgentCreated, "agent", a.ID, auth.CallerFrom(ctx), a)
	return a, nil
}

// GetAgent returns an agent of orgID.
func (s *Service) GetAgent(ctx context.Context, orgID, id uuid.UUID) (*model.Agent, error) {
	a, err := s.store.GetAgent(ctx, orgID, id)
	if err != nil {
		return nil, notFound(err, "agent", id)
	}
	return a, nil
}

// ListAgents returns a page of orgID's agents and the unpaged total.
func (s *Service) ListAgents(ctx context.Context, orgID uuid.UUID, status string, limit, offset int) ([]*model.Agent, int, error) {
	st := model.AgentStatus(status)
	if st != "" && !st.Valid() {
		return nil, 0, invalid("unknown status %q", status)
	}
	return s.store.ListAgents(ctx, orgID, st, limit, offset)
}

// AgentPatch holds the fields UpdateAgent changes; nil means unchanged.
type AgentPatch struct {
	Name         *string        `json:"name"`
	Description  *string        `json:"description"`
	Capabilities []string       `json:"capabilities"`
	IsPublic     *bool          `json:"is_public"`
	Metadata     map[string]any `json:"metadata"`
	Status       *string        `json:"status"`
}

// UpdateAgent applies p to an agent of orgID.
func (s *Service) UpdateAgent(ctx context.Context, orgID, id uuid.UUID, p AgentPatch) (*model.Agent, error) {
	a, err := s.GetAgent(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return nil, invalid("name must not be empty")
		}
		a.Name = name
	}
	if p.Description != nil {
		a.Description = p.Description
	}
	if p.Capabilities != nil {
		a.Capabilities = p.Capabilities
	}
	if p.IsPublic != nil {
		a.IsPublic = *p.IsPublic
	}
	if p.Metadata != nil {
		a.Metadata = p.Metadata
	}
	if p.Status != nil {
		st := model.AgentStatus(*p.Status)
		if !st.Valid() {
			return nil, invalid("unknown status %q", *p.Status)
		}
		a.Status = st
	}
	a.UpdatedAt = s.now()
	if err := s.store.UpdateAgent(ctx, a); err != nil {
		return nil, notFound(err, "agent", id)
	}
	s.emit(ctx, orgID, model.EventAgentUpdated, "agent", a.ID, auth.CallerFrom(ctx), a)
	return a, nil
}
