package service

import (
	"context"
	"strings"

	"github.com/spec-kit/repair-desk/internal/domain"
	"github.com/spec-kit/repair-desk/internal/repository"
	apperrors "github.com/spec-kit/repair-desk/pkg/util/errorutil"
)

// EngineerService manages the engineer roster.
type EngineerService struct {
	engineers             repository.EngineerRepository
	defaultCommissionRate float64
}

// EngineerInput carries create and update fields. Nil fields are left unchanged on update.
type EngineerInput struct {
	Name           *string
	Phone          *string
	CommissionRate *float64
}

// NewEngineerService constructs the service.
func NewEngineerService(engineers repository.EngineerRepository, defaultCommissionRate float64) *EngineerService {
	return &EngineerService{engineers: engineers, defaultCommissionRate: defaultCommissionRate}
}

// List returns engineers newest first, or alphabetically when sortByName is set.
func (s *EngineerService) List(ctx context.Context, sortByName bool) ([]domain.Engineer, error) {
	order := repository.EngineerOrderNewest
	if sortByName {
		order = repository.EngineerOrderName
	}
	return s.engineers.List(ctx, order)
}

// Get returns one engineer.
func (s *EngineerService) Get(ctx context.Context, id string) (*domain.Engineer, error) {
	engineer, err := s.engineers.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "engineer", id)
	}
	return engineer, nil
}

// Create adds an engineer. The name is required; the commission rate
// defaults to the configured rate.
func (s *EngineerService) Create(ctx context.Context, input EngineerInput) (*domain.Engineer, error) {
	name := ""
	if input.Name != nil {
		name = strings.TrimSpace(*input.Name)
	}
	if name == "" {
		return nil, apperrors.NewValidationError("engineer name is required", map[string]any{"field": "name"})
	}
	rate := s.defaultCommissionRate
	if input.CommissionRate != nil {
		rate = *input.CommissionRate
	}
	if err := validateRate(rate); err != nil {
		return nil, err
	}

	engineer := &domain.Engineer{
		Name:           name,
		Phone:          trimmedOrNil(input.Phone),
		CommissionRate: rate,
	}
	if err := s.engineers.Create(ctx, engineer); err != nil {
		return nil, err
	}
	return engineer, nil
}

// Update applies the non-nil fields of input.
func (s *EngineerService) Update(ctx context.Context, id string, input EngineerInput) (*domain.Engineer, error) {
	engineer, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewValidationError("engineer name is required", map[string]any{"field": "name"})
		}
		engineer.Name = name
	}
	if input.Phone != nil {
		engineer.Phone = trimmedOrNil(input.Phone)
	}
	if input.CommissionRate != nil {
		if err := validateRate(*input.CommissionRate); err != nil {
			return nil, err
		}
		engineer.CommissionRate = *input.CommissionRate
	}
	if err := s.engineers.Update(ctx, engineer); err != nil {
		return nil, notFoundOr(err, "engineer", id)
	}
	return engineer, nil
}

// Delete removes an engineer. Tickets assigned to them become unassigned.
func (s *EngineerService) Delete(ctx context.Context, id string) error {
	return notFoundOr(s.engineers.Delete(ctx, id), "engineer", id)
}

func validateRate(rate float64) error {
	if rate < 0 || rate > 100 {
		return apperrors.NewValidationError("commission rate must be between 0 and 100", map[string]any{"field": "commission_rate"})
	}
	return nil
}

func notFoundOr(err error, resource, id string) error {
	if err == nil {
		return nil
	}
	if apperrors.IsNotFound(err) {
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	}
	return err
}
