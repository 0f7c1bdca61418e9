// Package repository provides data access interfaces and GORM implementations
// for airwave entities.
package repository

import (
	"context"

	"github.com/jmylchreest/airwave/internal/models"
)

// ChannelRepository manages channel persistence.
type ChannelRepository interface {
	Create(ctx context.Context, channel *models.Channel) error
	GetByID(ctx context.Context, id models.ULID) (*models.Channel, error)
	GetByName(ctx context.Context, name string) (*models.Channel, error)
	GetAll(ctx context.Context) ([]*models.Channel, error)
	GetEnabled(ctx context.Context) ([]*models.Channel, error)
	Update(ctx context.Context, channel *models.Channel) error
	Delete(ctx context.Context, id models.ULID) error
}

// PlanRepository manages plan persistence, including zones and programs.
type PlanRepository interface {
	Create(ctx context.Context, plan *models.Plan) error
	GetByID(ctx context.Context, id models.ULID) (*models.Plan, error)
	GetForChannel(ctx context.Context, channelID models.ULID) ([]*models.Plan, error)
	GetActiveForChannel(ctx context.Context, channelID models.ULID) (*models.Plan, error)
	SetActive(ctx context.Context, planID models.ULID, active bool) error
	Update(ctx context.Context, plan *models.Plan) error
	Delete(ctx context.Context, id models.ULID) error
}
