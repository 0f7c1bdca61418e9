package models

import (
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// cronParser validates plan activation expressions (standard 5-field cron).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Plan is a prioritized programming plan for a channel.
//
// A plan is eligible while its date range covers the current broadcast day;
// among eligible plans the highest priority wins. CronExpression, when set,
// gates activation to the expression's windows (evaluated by the plan sync
// loop).
type Plan struct {
	BaseModel

	// ChannelID is the foreign key to the owning channel.
	ChannelID ULID `gorm:"type:varchar(26);not null;index" json:"channel_id"`

	// Name is the operator-facing plan name.
	Name string `gorm:"not null;size:255" json:"name"`

	// Priority orders competing eligible plans; higher wins.
	Priority int `gorm:"not null;default:0" json:"priority"`

	// IsActive marks the plan as the channel's current plan.
	IsActive bool `gorm:"not null;default:false;index" json:"is_active"`

	// StartDate and EndDate bound the plan's eligibility (inclusive).
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`

	// CronExpression optionally gates activation windows.
	CronExpression string `gorm:"size:255" json:"cron_expression,omitempty"`

	// Zones and Programs belong to the plan.
	Zones    []Zone    `gorm:"foreignKey:PlanID" json:"zones,omitempty"`
	Programs []Program `gorm:"foreignKey:PlanID" json:"programs,omitempty"`
}

// TableName returns the table name for Plan.
func (Plan) TableName() string {
	return "plans"
}

// Validate performs basic validation on the plan.
func (p *Plan) Validate() error {
	if p.ChannelID.IsZero() {
		return ErrChannelIDRequired
	}
	if p.Name == "" {
		return ErrNameRequired
	}
	if p.StartDate != nil && p.EndDate != nil && p.EndDate.Before(*p.StartDate) {
		return ErrInvalidTimeRange
	}
	if p.CronExpression != "" {
		if _, err := cronParser.Parse(p.CronExpression); err != nil {
			return ErrInvalidCron
		}
	}
	return nil
}

// CoversDate reports whether the plan's date range includes the given day.
func (p *Plan) CoversDate(day time.Time) bool {
	if p.StartDate != nil && day.Before(p.StartDate.Truncate(24*time.Hour)) {
		return false
	}
	if p.EndDate != nil && day.After(p.EndDate.Add(24*time.Hour)) {
		return false
	}
	return true
}

// BeforeCreate is a GORM hook that validates the plan and generates a ULID.
func (p *Plan) BeforeCreate(tx *gorm.DB) error {
	if err := p.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return p.Validate()
}
