package models

import (
	"strings"
	"time"
	"unicode/utf8"

	"luckdraw/pkg/domain"
	dErrors "luckdraw/pkg/domain-errors"
)

// Field bounds for an activity.
const (
	TitleMaxLen       = 50
	WinnersCountMin   = 1
	WinnersCountMax   = 1000
	MaxRegistrantsMin = 1
	MaxRegistrantsMax = 10000
)

// Activity is an event offering limited slots, resolved by lottery.
//
// Invariants:
//   - Title is non-empty and at most 50 characters
//   - Content is non-empty
//   - 1 <= WinnersCount <= 1000
//   - 1 <= MaxRegistrants <= 10000 and MaxRegistrants >= WinnersCount
//
// Open/Closed is derived from Deadline, never stored: an activity is Open
// while now is before Deadline and Closed afterwards. Draws are only legal
// on a Closed activity; registrations only on an Open, published one.
//
// RegistrationCount is a denormalized back-reference maintained best-effort
// by the admission service. Capacity decisions never read it; they use a
// count query against the registrations store.
type Activity struct {
	ID                domain.ActivityID  `json:"id"`
	Title             string             `json:"title"`
	Content           string             `json:"content"`
	Deadline          time.Time          `json:"deadline"`
	WinnersCount      int                `json:"winners_count"`
	MaxRegistrants    int                `json:"max_registrants"`
	IsPublished       bool               `json:"is_published"`
	CreatorID         domain.PrincipalID `json:"creator_id"`
	RegistrationCount int                `json:"registration_count"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// IsOpen reports whether registration is still possible at the given instant.
func (a *Activity) IsOpen(now time.Time) bool {
	return now.Before(a.Deadline)
}

// NewActivity constructs a validated activity owned by creator.
func NewActivity(id domain.ActivityID, creator domain.PrincipalID, title, content string, deadline time.Time, winnersCount, maxRegistrants int, now time.Time) (*Activity, error) {
	a := &Activity{
		ID:             id,
		Title:          strings.TrimSpace(title),
		Content:        strings.TrimSpace(content),
		Deadline:       deadline,
		WinnersCount:   winnersCount,
		MaxRegistrants: maxRegistrants,
		CreatorID:      creator,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Activity) validate() error {
	if a.Title == "" {
		return dErrors.New(dErrors.CodeValidation, "title must not be empty")
	}
	if utf8.RuneCountInString(a.Title) > TitleMaxLen {
		return dErrors.Newf(dErrors.CodeValidation, "title must be at most %d characters", TitleMaxLen)
	}
	if a.Content == "" {
		return dErrors.New(dErrors.CodeValidation, "content must not be empty")
	}
	if a.Deadline.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "deadline is required")
	}
	if a.WinnersCount < WinnersCountMin || a.WinnersCount > WinnersCountMax {
		return dErrors.Newf(dErrors.CodeValidation, "winners_count must be between %d and %d", WinnersCountMin, WinnersCountMax)
	}
	if a.MaxRegistrants < MaxRegistrantsMin || a.MaxRegistrants > MaxRegistrantsMax {
		return dErrors.Newf(dErrors.CodeValidation, "max_registrants must be between %d and %d", MaxRegistrantsMin, MaxRegistrantsMax)
	}
	if a.MaxRegistrants < a.WinnersCount {
		return dErrors.New(dErrors.CodeValidation, "max_registrants must be at least winners_count")
	}
	return nil
}

// UpdateActivityRequest carries mutable fields; nil means unchanged.
type UpdateActivityRequest struct {
	Title          *string    `json:"title"`
	Content        *string    `json:"content"`
	Deadline       *time.Time `json:"deadline"`
	WinnersCount   *int       `json:"winners_count"`
	MaxRegistrants *int       `json:"max_registrants"`
}

// Normalize trims whitespace on textual fields.
func (r *UpdateActivityRequest) Normalize() {
	if r.Title != nil {
		t := strings.TrimSpace(*r.Title)
		r.Title = &t
	}
	if r.Content != nil {
		c := strings.TrimSpace(*r.Content)
		r.Content = &c
	}
}

// Apply re-validates the full invariant set against the merged result before
// touching the receiver, so a rejected update leaves the activity unchanged.
func (a *Activity) Apply(r *UpdateActivityRequest, now time.Time) error {
	updated := *a
	if r.Title != nil {
		updated.Title = *r.Title
	}
	if r.Content != nil {
		updated.Content = *r.Content
	}
	if r.Deadline != nil {
		updated.Deadline = *r.Deadline
	}
	if r.WinnersCount != nil {
		updated.WinnersCount = *r.WinnersCount
	}
	if r.MaxRegistrants != nil {
		updated.MaxRegistrants = *r.MaxRegistrants
	}
	if err := updated.validate(); err != nil {
		return err
	}
	updated.UpdatedAt = now
	*a = updated
	return nil
}
