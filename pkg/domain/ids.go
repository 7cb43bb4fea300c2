// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "etatcivil/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing a DeclarationID where a CertificateID is expected.
type (
	UserID         uuid.UUID
	DeclarationID  uuid.UUID
	CertificateID  uuid.UUID
	NotificationID uuid.UUID
	OfficeID       uuid.UUID
	HospitalID     uuid.UUID
)

// Parse functions - use at trust boundaries (handlers, API inputs).

func ParseUserID(s string) (UserID, error) {
	id, err := parseUUID(s, "user ID")
	return UserID(id), err
}

func ParseDeclarationID(s string) (DeclarationID, error) {
	id, err := parseUUID(s, "declaration ID")
	return DeclarationID(id), err
}

func ParseCertificateID(s string) (CertificateID, error) {
	id, err := parseUUID(s, "certificate ID")
	return CertificateID(id), err
}

func ParseNotificationID(s string) (NotificationID, error) {
	id, err := parseUUID(s, "notification ID")
	return NotificationID(id), err
}

func ParseOfficeID(s string) (OfficeID, error) {
	id, err := parseUUID(s, "office ID")
	return OfficeID(id), err
}

func ParseHospitalID(s string) (HospitalID, error) {
	id, err := parseUUID(s, "hospital ID")
	return HospitalID(id), err
}

// String methods - for logging and debugging.

func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id DeclarationID) String() string  { return uuid.UUID(id).String() }
func (id CertificateID) String() string  { return uuid.UUID(id).String() }
func (id NotificationID) String() string { return uuid.UUID(id).String() }
func (id OfficeID) String() string       { return uuid.UUID(id).String() }
func (id HospitalID) String() string     { return uuid.UUID(id).String() }

// IsNil checks - used for service-layer validation.

func (id UserID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id DeclarationID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id CertificateID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id NotificationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id OfficeID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id HospitalID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }

// parseUUID is the shared validation logic.
// Nil UUIDs are allowed here; services check IsNil() so store lookups can
// return proper "not found" errors.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "invalid "+label+" format")
	}
	return id, nil
}
