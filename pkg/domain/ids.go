package domain

import (
	"database/sql/driver"

	"github.com/google/uuid"

	dErrors "luckdraw/pkg/domain-errors"
)

// Typed IDs keep activity, registration, and principal identifiers from being
// swapped at call sites. Conversions to uuid.UUID are explicit.
type (
	ActivityID     uuid.UUID
	RegistrationID uuid.UUID
	PrincipalID    uuid.UUID
)

func (id ActivityID) String() string     { return uuid.UUID(id).String() }
func (id RegistrationID) String() string { return uuid.UUID(id).String() }
func (id PrincipalID) String() string    { return uuid.UUID(id).String() }

func (id ActivityID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id RegistrationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id PrincipalID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// Defined types do not inherit the uuid.UUID text and sql interfaces, so the
// delegation below keeps the ids usable in JSON payloads and store scans.

func (id ActivityID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id RegistrationID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id PrincipalID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }

func (id *ActivityID) UnmarshalText(data []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(data)
}

func (id *RegistrationID) UnmarshalText(data []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(data)
}

func (id *PrincipalID) UnmarshalText(data []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(data)
}

func (id ActivityID) Value() (driver.Value, error)     { return id.String(), nil }
func (id RegistrationID) Value() (driver.Value, error) { return id.String(), nil }
func (id PrincipalID) Value() (driver.Value, error)    { return id.String(), nil }

func (id *ActivityID) Scan(src any) error     { return (*uuid.UUID)(id).Scan(src) }
func (id *RegistrationID) Scan(src any) error { return (*uuid.UUID)(id).Scan(src) }
func (id *PrincipalID) Scan(src any) error    { return (*uuid.UUID)(id).Scan(src) }

// NewActivityID returns a fresh random activity id.
func NewActivityID() ActivityID { return ActivityID(uuid.New()) }

// NewRegistrationID returns a fresh random registration id.
func NewRegistrationID() RegistrationID { return RegistrationID(uuid.New()) }

// ParseActivityID validates an activity id received at a trust boundary.
func ParseActivityID(s string) (ActivityID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return ActivityID{}, err
	}
	return ActivityID(u), nil
}

// ParseRegistrationID validates a registration id received at a trust boundary.
func ParseRegistrationID(s string) (RegistrationID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return RegistrationID{}, err
	}
	return RegistrationID(u), nil
}

// ParsePrincipalID validates a principal id received from the identity layer.
func ParsePrincipalID(s string) (PrincipalID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return PrincipalID{}, err
	}
	return PrincipalID(u), nil
}

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "id must not be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "id must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "id must not be the nil UUID")
	}
	return u, nil
}
