package models

import (
	"strings"

	"gorm.io/gorm"
)

// Weekday names accepted in zone day filters.
var validDayFilters = map[string]bool{
	"mon": true, "tue": true, "wed": true, "thu": true,
	"fri": true, "sat": true, "sun": true,
}

// Zone is a named daypart within a plan (e.g. "morning", "primetime").
// Zones carry no playout behavior of their own; the schedule provider uses
// them to pick program material for a time of day.
type Zone struct {
	BaseModel

	// PlanID is the foreign key to the owning plan.
	PlanID ULID `gorm:"type:varchar(26);not null;index" json:"plan_id"`

	// Name is the operator-facing zone name.
	Name string `gorm:"not null;size:255" json:"name"`

	// StartTime and EndTime are "HH:MM" bounds within the broadcast day.
	StartTime string `gorm:"size:5;not null" json:"start_time"`
	EndTime   string `gorm:"size:5;not null" json:"end_time"`

	// DayFilters is a comma-separated list of lowercase weekday
	// abbreviations ("mon,tue,fri"). Empty means every day.
	DayFilters string `gorm:"size:64" json:"day_filters,omitempty"`

	// Enabled controls whether the zone participates in scheduling.
	Enabled *bool `gorm:"default:true" json:"enabled"`
}

// TableName returns the table name for Zone.
func (Zone) TableName() string {
	return "zones"
}

// IsEnabled reports whether the zone is enabled, defaulting to true.
func (z *Zone) IsEnabled() bool {
	return z.Enabled == nil || *z.Enabled
}

// Days returns the parsed day filter list; empty means every day.
func (z *Zone) Days() []string {
	if z.DayFilters == "" {
		return nil
	}
	parts := strings.Split(z.DayFilters, ",")
	days := make([]string, 0, len(parts))
	for _, p := range parts {
		if d := strings.TrimSpace(strings.ToLower(p)); d != "" {
			days = append(days, d)
		}
	}
	return days
}

// Validate performs basic validation on the zone.
func (z *Zone) Validate() error {
	if z.PlanID.IsZero() {
		return ErrPlanIDRequired
	}
	if z.Name == "" {
		return ErrNameRequired
	}
	for _, d := range z.Days() {
		if !validDayFilters[d] {
			return ErrInvalidDayFilter
		}
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the zone and generates a ULID.
func (z *Zone) BeforeCreate(tx *gorm.DB) error {
	if err := z.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return z.Validate()
}
