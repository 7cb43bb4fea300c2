package testutil

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	declarationmodels "etatcivil/internal/declaration/models"
	id "etatcivil/pkg/domain"
)

// TestIDs provides pre-generated IDs for deterministic test data.
// Office 1 ends in 9e1f, so its registry code is "9E1F".
var TestIDs = struct {
	OfficeID1   id.OfficeID
	OfficeID2   id.OfficeID
	HospitalID1 id.HospitalID
	ParentID1   id.UserID
	ParentID2   id.UserID
	MairieID1   id.UserID
	HospitalAg1 id.UserID
}{
	OfficeID1:   id.OfficeID(uuid.MustParse("0f000000-0000-0000-0000-000000009e1f")),
	OfficeID2:   id.OfficeID(uuid.MustParse("0f000000-0000-0000-0000-00000000a002")),
	HospitalID1: id.HospitalID(uuid.MustParse("40000000-0000-0000-0000-000000000001")),
	ParentID1:   id.UserID(uuid.MustParse("11111111-1111-1111-1111-111111111111")),
	ParentID2:   id.UserID(uuid.MustParse("22222222-2222-2222-2222-222222222222")),
	MairieID1:   id.UserID(uuid.MustParse("33333333-3333-3333-3333-333333333333")),
	HospitalAg1: id.UserID(uuid.MustParse("44444444-4444-4444-4444-444444444444")),
}

// DeclarationBuilder provides a fluent interface for building declarations
// already sitting in a given status.
type DeclarationBuilder struct {
	owner  id.UserID
	input  declarationmodels.CreateInput
	status declarationmodels.Status
	at     time.Time
	cert   *id.CertificateID
}

// NewDeclarationBuilder creates a submitted declaration with unique child
// names per seed so the duplicate guard never trips in tests.
func NewDeclarationBuilder(seed int) *DeclarationBuilder {
	return &DeclarationBuilder{
		owner: TestIDs.ParentID1,
		input: declarationmodels.CreateInput{
			OfficeID: TestIDs.OfficeID1,
			Child: declarationmodels.Child{
				FirstName:  fmt.Sprintf("Aminata-%d", seed),
				LastName:   "Sow",
				Sex:        declarationmodels.SexFemale,
				BirthDate:  "2025-05-20",
				BirthPlace: "Dakar",
			},
			Parents: declarationmodels.Parents{
				Father: declarationmodels.Parent{FirstName: "Ousmane", LastName: "Sow", Profession: "Pecheur"},
				Mother: declarationmodels.Parent{FirstName: "Mariama", LastName: "Ba"},
			},
			Facility: declarationmodels.RegisteredFacility(TestIDs.HospitalID1),
			Registry: declarationmodels.Registry{Region: "Dakar", Commune: "Plateau"},
		},
		status: declarationmodels.StatusSubmittedToMairie,
		at:     time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC),
	}
}

func (b *DeclarationBuilder) WithOwner(owner id.UserID) *DeclarationBuilder {
	b.owner = owner
	return b
}

func (b *DeclarationBuilder) WithOffice(officeID id.OfficeID) *DeclarationBuilder {
	b.input.OfficeID = officeID
	return b
}

func (b *DeclarationBuilder) WithStatus(status declarationmodels.Status) *DeclarationBuilder {
	b.status = status
	return b
}

func (b *DeclarationBuilder) WithCertificate(certificateID id.CertificateID) *DeclarationBuilder {
	b.cert = &certificateID
	return b
}

func (b *DeclarationBuilder) At(t time.Time) *DeclarationBuilder {
	b.at = t
	return b
}

// Build returns the declaration and the creation transition stores expect.
func (b *DeclarationBuilder) Build() (*declarationmodels.Declaration, declarationmodels.Transition) {
	d := declarationmodels.NewDeclaration(b.owner, b.input, b.at)
	d.Status = b.status
	d.CertificateID = b.cert
	return d, declarationmodels.Transition{To: declarationmodels.StatusSubmittedToMairie, ActorID: b.owner, At: b.at}
}
