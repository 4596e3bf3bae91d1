package models

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"luckdraw/pkg/domain"
	dErrors "luckdraw/pkg/domain-errors"
)

// Field bounds for a registration.
const (
	NameMinLen = 2
	NameMaxLen = 20
)

// phonePattern matches mainland mobile numbers: 11 digits, 1[3-9] prefix.
var phonePattern = regexp.MustCompile(`^1[3-9][0-9]{9}$`)

// Rejection reasons produced by admission control. The HTTP layer forwards
// them verbatim so clients can tell a full activity from a duplicate phone.
const (
	ReasonNotPublished          dErrors.Reason = "not_published"
	ReasonRegistrationClosed    dErrors.Reason = "registration_closed"
	ReasonDuplicateRegistration dErrors.Reason = "duplicate_registration"
	ReasonRegistrationFull      dErrors.Reason = "registration_full"
)

// Registration is one user's entry into an activity's lottery pool.
//
// Invariants:
//   - Name is 2-20 characters
//   - Phone matches ^1[3-9][0-9]{9}$
//   - (ActivityID, Phone) is unique; the store enforces this authoritatively
//
// IsWinner is the only field mutated after creation, exclusively by the
// draw engine.
type Registration struct {
	ID         domain.RegistrationID `json:"id"`
	ActivityID domain.ActivityID     `json:"activity_id"`
	Name       string                `json:"name"`
	Phone      string                `json:"phone"`
	IsWinner   bool                  `json:"is_winner"`
	ClientIP   string                `json:"-"`
	Device     string                `json:"-"`
	CreatedAt  time.Time             `json:"created_at"`
}

// NewRegistration constructs a validated registration.
func NewRegistration(id domain.RegistrationID, activityID domain.ActivityID, name, phone string, now time.Time) (*Registration, error) {
	name = strings.TrimSpace(name)
	phone = strings.TrimSpace(phone)
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if err := ValidatePhone(phone); err != nil {
		return nil, err
	}
	return &Registration{
		ID:         id,
		ActivityID: activityID,
		Name:       name,
		Phone:      phone,
		CreatedAt:  now,
	}, nil
}

// ValidateName enforces the 2-20 character bound.
func ValidateName(name string) error {
	n := utf8.RuneCountInString(name)
	if n < NameMinLen || n > NameMaxLen {
		return dErrors.Newf(dErrors.CodeValidation, "name must be between %d and %d characters", NameMinLen, NameMaxLen)
	}
	return nil
}

// ValidatePhone enforces the 11-digit mobile number format.
func ValidatePhone(phone string) error {
	if !phonePattern.MatchString(phone) {
		return dErrors.New(dErrors.CodeValidation, "phone must be a valid 11-digit mobile number")
	}
	return nil
}

// Winner is the projection returned from a draw: enough to publish results
// without exposing full phone numbers.
type Winner struct {
	ID    domain.RegistrationID `json:"id"`
	Name  string                `json:"name"`
	Phone string                `json:"phone"`
}

// MaskedPhone hides the middle digits for public winner lists.
func (w Winner) MaskedPhone() string {
	if len(w.Phone) != 11 {
		return w.Phone
	}
	return w.Phone[:3] + "****" + w.Phone[7:]
}
