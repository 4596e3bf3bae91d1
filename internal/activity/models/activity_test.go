package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luckdraw/pkg/domain"
	dErrors "luckdraw/pkg/domain-errors"
)

func validArgs() (string, string, time.Time, int, int, time.Time) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return "Spring Meetup", "Join us for the draw", now.Add(24 * time.Hour), 5, 100, now
}

func TestNewActivityValidation(t *testing.T) {
	title, content, deadline, winners, max, now := validArgs()
	creator := domain.PrincipalID{}

	t.Run("accepts valid input", func(t *testing.T) {
		a, err := NewActivity(domain.NewActivityID(), creator, title, content, deadline, winners, max, now)
		require.NoError(t, err)
		assert.Equal(t, "Spring Meetup", a.Title)
		assert.False(t, a.IsPublished)
		assert.Equal(t, now, a.CreatedAt)
	})

	tests := []struct {
		name   string
		mutate func(*string, *string, *int, *int)
	}{
		{"empty title", func(title *string, _ *string, _ *int, _ *int) { *title = "  " }},
		{"title too long", func(title *string, _ *string, _ *int, _ *int) { *title = strings.Repeat("x", TitleMaxLen+1) }},
		{"empty content", func(_ *string, content *string, _ *int, _ *int) { *content = "" }},
		{"zero winners", func(_ *string, _ *string, winners *int, _ *int) { *winners = 0 }},
		{"too many winners", func(_ *string, _ *string, winners *int, _ *int) { *winners = WinnersCountMax + 1 }},
		{"zero capacity", func(_ *string, _ *string, _ *int, max *int) { *max = 0 }},
		{"capacity over bound", func(_ *string, _ *string, _ *int, max *int) { *max = MaxRegistrantsMax + 1 }},
		{"capacity below winners", func(_ *string, _ *string, winners *int, max *int) { *winners = 10; *max = 9 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			title, content, deadline, winners, max, now := validArgs()
			tc.mutate(&title, &content, &winners, &max)
			_, err := NewActivity(domain.NewActivityID(), creator, title, content, deadline, winners, max, now)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}
}

func TestIsOpenBoundary(t *testing.T) {
	title, content, deadline, winners, max, now := validArgs()
	a, err := NewActivity(domain.NewActivityID(), domain.PrincipalID{}, title, content, deadline, winners, max, now)
	require.NoError(t, err)

	assert.True(t, a.IsOpen(deadline.Add(-time.Nanosecond)))
	// The deadline instant itself is already closed.
	assert.False(t, a.IsOpen(deadline))
	assert.False(t, a.IsOpen(deadline.Add(time.Nanosecond)))
}

func TestApplyRevalidates(t *testing.T) {
	title, content, deadline, winners, max, now := validArgs()
	a, err := NewActivity(domain.NewActivityID(), domain.PrincipalID{}, title, content, deadline, winners, max, now)
	require.NoError(t, err)

	t.Run("partial update keeps other fields", func(t *testing.T) {
		later := now.Add(time.Hour)
		newTitle := "  Renamed  "
		req := &UpdateActivityRequest{Title: &newTitle}
		req.Normalize()
		require.NoError(t, a.Apply(req, later))
		assert.Equal(t, "Renamed", a.Title)
		assert.Equal(t, content, a.Content)
		assert.Equal(t, later, a.UpdatedAt)
	})

	t.Run("update cannot break the winners bound", func(t *testing.T) {
		badMax := a.WinnersCount - 1
		err := a.Apply(&UpdateActivityRequest{MaxRegistrants: &badMax}, now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("deadline can move into the past", func(t *testing.T) {
		past := now.Add(-time.Hour)
		require.NoError(t, a.Apply(&UpdateActivityRequest{Deadline: &past}, now))
		assert.False(t, a.IsOpen(now))
	})
}
