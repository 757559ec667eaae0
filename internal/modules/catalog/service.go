package catalog

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"institut/internal/domain"
	"institut/internal/repository"
)

type Service struct {
	repo *repository.ServiceRepository
}

func NewService(repo *repository.ServiceRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) ListActive(ctx context.Context) ([]domain.Service, error) {
	return s.repo.ListActive(ctx)
}

func (s *Service) GetByID(ctx context.Context, id int64) (*domain.Service, error) {
	svc, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func (s *Service) Create(ctx context.Context, req CreateServiceRequest) (*domain.Service, error) {
	if req.Price < 0 {
		return nil, ErrInvalidPrice
	}
	kind := domain.ServiceKind(req.Kind)
	if kind != domain.ServiceIndividual && kind != domain.ServicePackage {
		return nil, ErrInvalidKind
	}

	svc := domain.Service{
		Name:            req.Name,
		Description:     req.Description,
		Price:           req.Price,
		Kind:            kind,
		DurationMinutes: req.DurationMinutes,
		IsActive:        true,
	}
	if err := s.repo.Create(ctx, &svc); err != nil {
		return nil, err
	}
	return &svc, nil
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateServiceRequest) (*domain.Service, error) {
	svc, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		svc.Name = *req.Name
	}
	if req.Description != nil {
		svc.Description = *req.Description
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return nil, ErrInvalidPrice
		}
		svc.Price = *req.Price
	}
	if req.DurationMinutes != nil {
		svc.DurationMinutes = *req.DurationMinutes
	}
	if req.IsActive != nil {
		svc.IsActive = *req.IsActive
	}

	if err := s.repo.Save(ctx, svc); err != nil {
		return nil, err
	}
	return svc, nil
}
