package models

import (
	"gorm.io/gorm"
)

// ContentType classifies what a program slot plays.
type ContentType string

// Recognized content types.
const (
	ContentTypeProgram ContentType = "program"
	ContentTypeFiller  ContentType = "filler"
)

// EpisodePolicy controls episode selection for serial content.
type EpisodePolicy string

// Recognized episode policies.
const (
	EpisodePolicySequential EpisodePolicy = "sequential"
	EpisodePolicyShuffle    EpisodePolicy = "shuffle"
)

// Program is a scheduled slot within a plan: a piece of content anchored at
// a time of day with a fixed duration.
type Program struct {
	BaseModel

	// PlanID is the foreign key to the owning plan.
	PlanID ULID `gorm:"type:varchar(26);not null;index" json:"plan_id"`

	// StartTime is the "HH:MM" slot anchor within the broadcast day.
	StartTime string `gorm:"size:5;not null" json:"start_time"`

	// DurationMin is the slot length in minutes.
	DurationMin int `gorm:"not null" json:"duration_min"`

	// ContentType is "program" or "filler".
	ContentType ContentType `gorm:"size:32;not null;default:'program'" json:"content_type"`

	// ContentRef is the asset path or series reference to play.
	ContentRef string `gorm:"size:2048;not null" json:"content_ref"`

	// EpisodePolicy selects episodes for serial content.
	EpisodePolicy EpisodePolicy `gorm:"size:32;default:'sequential'" json:"episode_policy,omitempty"`
}

// TableName returns the table name for Program.
func (Program) TableName() string {
	return "programs"
}

// Validate performs basic validation on the program.
func (p *Program) Validate() error {
	if p.PlanID.IsZero() {
		return ErrPlanIDRequired
	}
	if p.ContentRef == "" {
		return ErrContentRefRequired
	}
	if p.DurationMin <= 0 {
		return ErrInvalidDuration
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the program and generates a ULID.
func (p *Program) BeforeCreate(tx *gorm.DB) error {
	if err := p.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return p.Validate()
}
