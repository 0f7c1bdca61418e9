package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannel_TableName(t *testing.T) {
	assert.Equal(t, "channels", Channel{}.TableName())
}

func TestChannel_Validate(t *testing.T) {
	valid := func() Channel {
		return Channel{
			Name:              "one",
			GridBlockMinutes:  30,
			GridOffsetMinutes: 0,
			BroadcastDayStart: "06:00",
			Timezone:          "UTC",
		}
	}

	t.Run("valid", func(t *testing.T) {
		c := valid()
		require.NoError(t, c.Validate())
	})

	t.Run("missing name", func(t *testing.T) {
		c := valid()
		c.Name = ""
		assert.ErrorIs(t, c.Validate(), ErrNameRequired)
	})

	t.Run("invalid block size", func(t *testing.T) {
		c := valid()
		c.GridBlockMinutes = 20
		assert.ErrorIs(t, c.Validate(), ErrInvalidGridBlock)
	})

	t.Run("offset not on grid", func(t *testing.T) {
		c := valid()
		c.GridOffsetMinutes = 10
		assert.ErrorIs(t, c.Validate(), ErrInvalidGridOffset)
	})

	t.Run("day start off grid", func(t *testing.T) {
		c := valid()
		c.BroadcastDayStart = "06:10"
		assert.ErrorIs(t, c.Validate(), ErrInvalidDayStart)
	})

	t.Run("day start malformed", func(t *testing.T) {
		c := valid()
		c.BroadcastDayStart = "6am"
		assert.ErrorIs(t, c.Validate(), ErrInvalidDayStart)
	})

	t.Run("quarter-hour grid", func(t *testing.T) {
		c := valid()
		c.GridBlockMinutes = 15
		c.GridOffsetMinutes = 45
		c.BroadcastDayStart = "05:45"
		require.NoError(t, c.Validate())
	})
}

func TestChannel_DayStartMinutes(t *testing.T) {
	c := Channel{BroadcastDayStart: "06:30"}
	m, err := c.DayStartMinutes()
	require.NoError(t, err)
	assert.Equal(t, 390, m)

	c.BroadcastDayStart = "24:00"
	_, err = c.DayStartMinutes()
	assert.ErrorIs(t, err, ErrInvalidDayStart)
}

func TestChannel_IsEnabled(t *testing.T) {
	c := Channel{}
	assert.True(t, c.IsEnabled())

	off := false
	c.Enabled = &off
	assert.False(t, c.IsEnabled())
}
