package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	declarationmodels "etatcivil/internal/declaration/models"
	id "etatcivil/pkg/domain"
)

// Certificate is the issued Acte de Naissance. Numbers and snapshot never
// change after issuance; only the attached document may be regenerated.
type Certificate struct {
	ID            id.CertificateID
	DeclarationID id.DeclarationID
	OfficeID      id.OfficeID
	OwnerID       id.UserID

	Year           int
	Sequence       int64
	RegistryNumber string
	ActNumber      string
	Stamp          string
	Seal           string

	Snapshot  Snapshot
	UnitPrice int64
	Document  Document

	IssuedBy id.UserID
	IssuedAt time.Time
}

// Document points at the rendered act in the blob store.
type Document struct {
	Ref         string     `json:"ref,omitempty"`
	ContentType string     `json:"content_type,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

func (d Document) Attached() bool { return d.Ref != "" }

// Snapshot copies the certificate-bearing facts at issuance. It holds plain
// values so later edits to the declaration cannot reach it.
type Snapshot struct {
	ChildFirstName string `json:"child_first_name"`
	ChildLastName  string `json:"child_last_name"`
	Sex            string `json:"sex"`
	BirthDate      string `json:"birth_date"`
	BirthTime      string `json:"birth_time,omitempty"`
	BirthPlace     string `json:"birth_place"`

	FatherFirstName   string `json:"father_first_name"`
	FatherLastName    string `json:"father_last_name"`
	FatherProfession  string `json:"father_profession,omitempty"`
	FatherNationality string `json:"father_nationality,omitempty"`
	MotherFirstName   string `json:"mother_first_name"`
	MotherLastName    string `json:"mother_last_name"`
	MotherProfession  string `json:"mother_profession,omitempty"`
	MotherNationality string `json:"mother_nationality,omitempty"`

	OfficeName string `json:"office_name"`
	Region     string `json:"region,omitempty"`
	Department string `json:"department,omitempty"`
	Commune    string `json:"commune,omitempty"`
}

// SnapshotOf copies the facts of d issued by officeName.
func SnapshotOf(d *declarationmodels.Declaration, officeName string) Snapshot {
	return Snapshot{
		ChildFirstName:    d.Child.FirstName,
		ChildLastName:     d.Child.LastName,
		Sex:               string(d.Child.Sex),
		BirthDate:         d.Child.BirthDate,
		BirthTime:         d.Child.BirthTime,
		BirthPlace:        d.Child.BirthPlace,
		FatherFirstName:   d.Parents.Father.FirstName,
		FatherLastName:    d.Parents.Father.LastName,
		FatherProfession:  d.Parents.Father.Profession,
		FatherNationality: d.Parents.Father.Nationality,
		MotherFirstName:   d.Parents.Mother.FirstName,
		MotherLastName:    d.Parents.Mother.LastName,
		MotherProfession:  d.Parents.Mother.Profession,
		MotherNationality: d.Parents.Mother.Nationality,
		OfficeName:        officeName,
		Region:            d.Registry.Region,
		Department:        d.Registry.Department,
		Commune:           d.Registry.Commune,
	}
}

// OfficeCode is the upper-cased last four characters of the office ID.
func OfficeCode(officeID id.OfficeID) string {
	s := uuid.UUID(officeID).String()
	return strings.ToUpper(s[len(s)-4:])
}

// RegistryNumber formats {code}-{year}-{sequence:06d}.
func RegistryNumber(officeID id.OfficeID, year int, sequence int64) string {
	return fmt.Sprintf("%s-%d-%06d", OfficeCode(officeID), year, sequence)
}

// ActNumber formats ACT-{code}-{year}-{sequence:06d} from the same sequence value.
func ActNumber(officeID id.OfficeID, year int, sequence int64) string {
	return "ACT-" + RegistryNumber(officeID, year, sequence)
}

func (c *Certificate) Clone() *Certificate {
	if c == nil {
		return nil
	}
	cp := *c
	if c.Document.UpdatedAt != nil {
		t := *c.Document.UpdatedAt
		cp.Document.UpdatedAt = &t
	}
	return &cp
}
