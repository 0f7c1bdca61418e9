package models

import (
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"
)

// Valid grid block sizes in minutes.
var validGridBlocks = map[int]bool{15: true, 30: true, 60: true}

// Channel represents a logical broadcast channel with its scheduling grid.
//
// The grid divides each hour into fixed blocks; every playout boundary for
// the channel falls on a block offset. BroadcastDayStart anchors the
// programming day and must be minute-aligned to the grid with seconds = 00.
type Channel struct {
	BaseModel

	// Name is the channel identifier used in URLs and playlists.
	Name string `gorm:"not null;size:255;uniqueIndex" json:"name"`

	// DisplayName is the human-readable channel name.
	DisplayName string `gorm:"size:512" json:"display_name,omitempty"`

	// GridBlockMinutes is the schedule grid block size: 15, 30 or 60.
	GridBlockMinutes int `gorm:"not null;default:30" json:"grid_block_minutes"`

	// GridOffsetMinutes shifts the grid from the top of the hour.
	// Must be divisible by GridBlockMinutes.
	GridOffsetMinutes int `gorm:"not null;default:0" json:"grid_offset_minutes"`

	// BroadcastDayStart is the "HH:MM" anchor of the programming day.
	BroadcastDayStart string `gorm:"size:5;not null;default:'06:00'" json:"broadcast_day_start"`

	// Timezone is the IANA zone the channel schedules against.
	Timezone string `gorm:"size:64;not null;default:'UTC'" json:"timezone"`

	// Enabled controls whether the channel is listed and tunable.
	Enabled *bool `gorm:"default:true" json:"enabled"`

	// Plans is the relationship to the channel's playout plans.
	Plans []Plan `gorm:"foreignKey:ChannelID" json:"plans,omitempty"`
}

// TableName returns the table name for Channel.
func (Channel) TableName() string {
	return "channels"
}

// IsEnabled reports whether the channel is enabled, defaulting to true.
func (c *Channel) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// DayStartMinutes parses BroadcastDayStart into minutes after midnight.
func (c *Channel) DayStartMinutes() (int, error) {
	hh, mm, ok := strings.Cut(c.BroadcastDayStart, ":")
	if !ok || len(hh) != 2 || len(mm) != 2 {
		return 0, ErrInvalidDayStart
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, ErrInvalidDayStart
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, ErrInvalidDayStart
	}
	return h*60 + m, nil
}

// Validate enforces the grid invariants.
func (c *Channel) Validate() error {
	if c.Name == "" {
		return ErrNameRequired
	}
	if !validGridBlocks[c.GridBlockMinutes] {
		return fmt.Errorf("%w: got %d", ErrInvalidGridBlock, c.GridBlockMinutes)
	}
	if c.GridOffsetMinutes < 0 || c.GridOffsetMinutes >= 60 || c.GridOffsetMinutes%c.GridBlockMinutes != 0 {
		return fmt.Errorf("%w: offset %d, block %d", ErrInvalidGridOffset, c.GridOffsetMinutes, c.GridBlockMinutes)
	}
	dayStart, err := c.DayStartMinutes()
	if err != nil {
		return err
	}
	if dayStart%c.GridBlockMinutes != 0 {
		return fmt.Errorf("%w: %s is not on the %d-minute grid", ErrInvalidDayStart, c.BroadcastDayStart, c.GridBlockMinutes)
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the channel and generates a ULID.
func (c *Channel) BeforeCreate(tx *gorm.DB) error {
	if err := c.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return c.Validate()
}

// BeforeUpdate re-validates the grid invariants on update.
func (c *Channel) BeforeUpdate(tx *gorm.DB) error {
	return c.Validate()
}
