package models

import (
	"errors"
)

// Common validation errors for models.
var (
	// ErrNameRequired indicates a required name field is empty.
	ErrNameRequired = errors.New("name is required")

	// ErrChannelIDRequired indicates a required channel ID field is zero.
	ErrChannelIDRequired = errors.New("channel_id is required")

	// ErrPlanIDRequired indicates a required plan ID field is zero.
	ErrPlanIDRequired = errors.New("plan_id is required")

	// ErrInvalidGridBlock indicates a grid block size outside {15, 30, 60}.
	ErrInvalidGridBlock = errors.New("grid block size must be 15, 30 or 60 minutes")

	// ErrInvalidGridOffset indicates a grid offset not divisible by the block size.
	ErrInvalidGridOffset = errors.New("grid offset must be divisible by the grid block size")

	// ErrInvalidDayStart indicates a broadcast day start not aligned to the grid.
	ErrInvalidDayStart = errors.New("broadcast day start must be HH:MM with the minute on a grid offset")

	// ErrInvalidTimeRange indicates end time is before start time.
	ErrInvalidTimeRange = errors.New("end time must be after start time")

	// ErrInvalidCron indicates an unparseable cron expression.
	ErrInvalidCron = errors.New("invalid cron expression")

	// ErrContentRefRequired indicates a program without a content reference.
	ErrContentRefRequired = errors.New("content_ref is required")

	// ErrInvalidDuration indicates a non-positive program duration.
	ErrInvalidDuration = errors.New("duration must be positive")

	// ErrInvalidDayFilter indicates an unrecognized weekday abbreviation.
	ErrInvalidDayFilter = errors.New("day filters must be mon..sun abbreviations")
)
