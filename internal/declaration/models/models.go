package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	id "etatcivil/pkg/domain"
)

// DateLayout is the civil date format used for birth and issue dates.
const DateLayout = "2006-01-02"

type Sex string

const (
	SexMale   Sex = "M"
	SexFemale Sex = "F"
)

type Child struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Sex         Sex    `json:"sex"`
	BirthDate   string `json:"birth_date"`
	BirthTime   string `json:"birth_time,omitempty"`
	BirthPlace  string `json:"birth_place"`
	WeightGrams *int   `json:"weight_grams,omitempty"`
	HeightCm    *int   `json:"height_cm,omitempty"`
}

type Parent struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Profession  string `json:"profession,omitempty"`
	Nationality string `json:"nationality,omitempty"`
}

type Parents struct {
	Father Parent `json:"father"`
	Mother Parent `json:"mother"`
}

// Registry holds the administrative references, opaque to the workflow.
type Registry struct {
	Region     string `json:"region,omitempty"`
	Department string `json:"department,omitempty"`
	Commune    string `json:"commune,omitempty"`
}

// Delivery is the certificate-of-delivery metadata the hospital confirms or rejects.
type Delivery struct {
	Number          string `json:"number,omitempty"`
	IssuedOn        string `json:"issued_on,omitempty"`
	Authentic       *bool  `json:"authentic,omitempty"`
	RejectionReason string `json:"rejection_reason,omitempty"`
}

// Declaration is one birth-registration case.
type Declaration struct {
	ID       id.DeclarationID
	OwnerID  id.UserID
	OfficeID id.OfficeID
	Status   Status

	Child    Child
	Parents  Parents
	Facility Facility
	Registry Registry
	Delivery Delivery

	AssignedHospitalID *id.HospitalID
	VerifyingAgentID   *id.UserID
	// RejectionReason is the mairie's reason; the hospital's lives on Delivery.
	RejectionReason string
	CertificateID   *id.CertificateID

	CreatedAt        time.Time
	SentToMairieAt   time.Time
	SentToHospitalAt *time.Time
	RejectedAt       *time.Time
	ValidatedAt      *time.Time
	ArchivedAt       *time.Time
	UpdatedAt        time.Time
}

// Transition is one entry of the status history. The creation entry has an empty From.
type Transition struct {
	From    Status
	To      Status
	ActorID id.UserID
	At      time.Time
	Reason  string
}

// CreateInput carries the facts a parent submits.
type CreateInput struct {
	OfficeID id.OfficeID
	Child    Child
	Parents  Parents
	Facility Facility
	Registry Registry
	Delivery Delivery
}

func (in CreateInput) Validate() error {
	if in.OfficeID.IsNil() {
		return errors.New("office_id is required")
	}
	if strings.TrimSpace(in.Child.FirstName) == "" || strings.TrimSpace(in.Child.LastName) == "" {
		return errors.New("child first_name and last_name are required")
	}
	if in.Child.Sex != SexMale && in.Child.Sex != SexFemale {
		return errors.New("child sex must be M or F")
	}
	if _, err := time.Parse(DateLayout, in.Child.BirthDate); err != nil {
		return errors.New("child birth_date must be YYYY-MM-DD")
	}
	if in.Child.BirthTime != "" {
		if _, err := time.Parse("15:04", in.Child.BirthTime); err != nil {
			return errors.New("child birth_time must be HH:MM")
		}
	}
	if in.Child.WeightGrams != nil && *in.Child.WeightGrams <= 0 {
		return errors.New("child weight_grams must be positive")
	}
	if in.Child.HeightCm != nil && *in.Child.HeightCm <= 0 {
		return errors.New("child height_cm must be positive")
	}
	if strings.TrimSpace(in.Parents.Father.LastName) == "" || strings.TrimSpace(in.Parents.Mother.LastName) == "" {
		return errors.New("father and mother last_name are required")
	}
	if in.Delivery.IssuedOn != "" {
		if _, err := time.Parse(DateLayout, in.Delivery.IssuedOn); err != nil {
			return errors.New("delivery issued_on must be YYYY-MM-DD")
		}
	}
	return in.Facility.Validate()
}

// NewDeclaration builds a submitted declaration owned by owner.
func NewDeclaration(owner id.UserID, in CreateInput, now time.Time) *Declaration {
	delivery := in.Delivery
	delivery.Authentic = nil
	delivery.RejectionReason = ""
	return &Declaration{
		ID:             id.DeclarationID(uuid.New()),
		OwnerID:        owner,
		OfficeID:       in.OfficeID,
		Status:         StatusSubmittedToMairie,
		Child:          in.Child,
		Parents:        in.Parents,
		Facility:       in.Facility,
		Registry:       in.Registry,
		Delivery:       delivery,
		CreatedAt:      now,
		SentToMairieAt: now,
		UpdatedAt:      now,
	}
}

// DuplicateKey is the approximate identity used to refuse repeated submissions:
// child names, birth date and both parents' last names, case-folded.
// Distinct births can collide and typos evade it.
func (d *Declaration) DuplicateKey() string {
	return DuplicateKeyOf(d.Child, d.Parents)
}

func DuplicateKeyOf(child Child, parents Parents) string {
	parts := []string{
		child.FirstName,
		child.LastName,
		child.BirthDate,
		parents.Father.LastName,
		parents.Mother.LastName,
	}
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.Join(strings.Fields(p), " "))
	}
	return strings.Join(parts, "|")
}

// Clone returns a deep copy so stores never share mutable state with callers.
func (d *Declaration) Clone() *Declaration {
	cp := *d
	cp.Child.WeightGrams = clonePtr(d.Child.WeightGrams)
	cp.Child.HeightCm = clonePtr(d.Child.HeightCm)
	cp.Delivery.Authentic = clonePtr(d.Delivery.Authentic)
	cp.AssignedHospitalID = clonePtr(d.AssignedHospitalID)
	cp.VerifyingAgentID = clonePtr(d.VerifyingAgentID)
	cp.CertificateID = clonePtr(d.CertificateID)
	cp.SentToHospitalAt = clonePtr(d.SentToHospitalAt)
	cp.RejectedAt = clonePtr(d.RejectedAt)
	cp.ValidatedAt = clonePtr(d.ValidatedAt)
	cp.ArchivedAt = clonePtr(d.ArchivedAt)
	return &cp
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// ListFilter narrows List. Zero fields do not filter.
type ListFilter struct {
	OwnerID    *id.UserID
	OfficeID   *id.OfficeID
	HospitalID *id.HospitalID
	Statuses   []Status
}

// Matches applies the filter in memory.
func (f ListFilter) Matches(d *Declaration) bool {
	if f.OwnerID != nil && d.OwnerID != *f.OwnerID {
		return false
	}
	if f.OfficeID != nil && d.OfficeID != *f.OfficeID {
		return false
	}
	if f.HospitalID != nil && (d.AssignedHospitalID == nil || *d.AssignedHospitalID != *f.HospitalID) {
		return false
	}
	if len(f.Statuses) > 0 {
		for _, s := range f.Statuses {
			if d.Status == s {
				return true
			}
		}
		return false
	}
	return true
}
