package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/jmylchreest/airwave/internal/models"
)

// planRepo implements PlanRepository using GORM.
type planRepo struct {
	db *gorm.DB
}

// NewPlanRepository creates a new PlanRepository.
func NewPlanRepository(db *gorm.DB) PlanRepository {
	return &planRepo{db: db}
}

// Create creates a new plan with any nested zones and programs.
func (r *planRepo) Create(ctx context.Context, plan *models.Plan) error {
	if err := r.db.WithContext(ctx).Create(plan).Error; err != nil {
		return fmt.Errorf("creating plan: %w", err)
	}
	return nil
}

// GetByID retrieves a plan with its zones and programs. Returns nil when not found.
func (r *planRepo) GetByID(ctx context.Context, id models.ULID) (*models.Plan, error) {
	var plan models.Plan
	err := r.db.WithContext(ctx).
		Preload("Zones").
		Preload("Programs").
		Where("id = ?", id).
		First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting plan by ID: %w", err)
	}
	return &plan, nil
}

// GetForChannel retrieves all plans for a channel, highest priority first.
func (r *planRepo) GetForChannel(ctx context.Context, channelID models.ULID) ([]*models.Plan, error) {
	var plans []*models.Plan
	err := r.db.WithContext(ctx).
		Where("channel_id = ?", channelID).
		Order("priority DESC, name ASC").
		Find(&plans).Error
	if err != nil {
		return nil, fmt.Errorf("getting plans for channel: %w", err)
	}
	return plans, nil
}

// GetActiveForChannel retrieves the channel's active plan with programs
// preloaded. Returns nil when no plan is active.
func (r *planRepo) GetActiveForChannel(ctx context.Context, channelID models.ULID) (*models.Plan, error) {
	var plan models.Plan
	err := r.db.WithContext(ctx).
		Preload("Zones").
		Preload("Programs").
		Where("channel_id = ? AND is_active = ?", channelID, true).
		Order("priority DESC").
		First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting active plan for channel: %w", err)
	}
	return &plan, nil
}

// SetActive flips a plan's active flag.
func (r *planRepo) SetActive(ctx context.Context, planID models.ULID, active bool) error {
	err := r.db.WithContext(ctx).
		Model(&models.Plan{}).
		Where("id = ?", planID).
		Update("is_active", active).Error
	if err != nil {
		return fmt.Errorf("setting plan active state: %w", err)
	}
	return nil
}

// Update updates an existing plan.
func (r *planRepo) Update(ctx context.Context, plan *models.Plan) error {
	if err := r.db.WithContext(ctx).Save(plan).Error; err != nil {
		return fmt.Errorf("updating plan: %w", err)
	}
	return nil
}

// Delete hard-deletes a plan and its zones and programs.
func (r *planRepo) Delete(ctx context.Context, id models.ULID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("plan_id = ?", id).Delete(&models.Zone{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("plan_id = ?", id).Delete(&models.Program{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Where("id = ?", id).Delete(&models.Plan{}).Error
	})
	if err != nil {
		return fmt.Errorf("deleting plan: %w", err)
	}
	return nil
}
