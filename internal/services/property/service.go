// Package property manages agent listings.
package property

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "estatehub/internal/errors"
	"estatehub/internal/models"
	"estatehub/internal/repositories"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Service interface {
	Create(ctx context.Context, agentID uint, in CreateInput) (*models.Property, error)
	Get(ctx context.Context, id uint) (*models.Property, error)
	List(ctx context.Context, q Query) (*Page, error)
}

type CreateInput struct {
	Title       string          `json:"title" validate:"required,min=3,max=200"`
	Description string          `json:"description" validate:"max=5000"`
	Location    string          `json:"location" validate:"required,max=200"`
	Price       decimal.Decimal `json:"price" validate:"gt=0"`
}

type Query struct {
	AgentID  uint
	Location string
	Status   string
	Page     int
	Limit    int
}

type Page struct {
	Items []models.Property `json:"items"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

type service struct {
	properties repositories.PropertyRepository
	logger     *zap.Logger
}

func NewService(properties repositories.PropertyRepository, logger *zap.Logger) Service {
	if properties == nil {
		panic("property repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{properties: properties, logger: logger.Named("property")}
}

func (s *service) Create(ctx context.Context, agentID uint, in CreateInput) (*models.Property, error) {
	if !in.Price.IsPositive() {
		return nil, apperrors.ErrInvalidInput.WithMessage("price must be greater than zero")
	}
	p := &models.Property{
		AgentID:     agentID,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Location:    strings.TrimSpace(in.Location),
		Price:       in.Price.Round(2),
		Status:      models.PropertyStatusActive,
	}
	if err := s.properties.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create property: %w", err)
	}
	s.logger.Info("property listed", zap.Uint("property_id", p.ID), zap.Uint("agent_id", agentID))
	return p, nil
}

func (s *service) Get(ctx context.Context, id uint) (*models.Property, error) {
	p, err := s.properties.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrPropertyNotFound) {
			return nil, apperrors.ErrPropertyNotFound
		}
		return nil, fmt.Errorf("failed to load property: %w", err)
	}
	return p, nil
}

func (s *service) List(ctx context.Context, q Query) (*Page, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 || q.Limit > 100 {
		q.Limit = 20
	}
	items, total, err := s.properties.List(ctx, repositories.PropertyFilter{
		AgentID:  q.AgentID,
		Location: strings.TrimSpace(q.Location),
		Status:   q.Status,
		Limit:    q.Limit,
		Offset:   (q.Page - 1) * q.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	if items == nil {
		items = []models.Property{}
	}
	return &Page{Items: items, Total: total, Page: q.Page, Limit: q.Limit}, nil
}
