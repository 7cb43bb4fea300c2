package handler

import (
	"errors"
	"strings"

	"etatcivil/internal/declaration/models"
	id "etatcivil/pkg/domain"
	"etatcivil/pkg/platform/validation"
)

// CreateDeclarationRequest is the body of POST /declarations.
type CreateDeclarationRequest struct {
	OfficeID string          `json:"office_id"`
	Child    models.Child    `json:"child"`
	Parents  models.Parents  `json:"parents"`
	Facility models.Facility `json:"facility"`
	Registry models.Registry `json:"registry"`
	Delivery DeliveryRequest `json:"delivery"`

	officeID id.OfficeID
}

// DeliveryRequest omits the verification outcome, which only hospitals record.
type DeliveryRequest struct {
	Number   string `json:"number"`
	IssuedOn string `json:"issued_on"`
}

func (r *CreateDeclarationRequest) Normalize() {
	r.OfficeID = strings.TrimSpace(r.OfficeID)
	r.Child.FirstName = strings.TrimSpace(r.Child.FirstName)
	r.Child.LastName = strings.TrimSpace(r.Child.LastName)
	r.Child.Sex = models.Sex(strings.ToUpper(strings.TrimSpace(string(r.Child.Sex))))
	r.Child.BirthDate = strings.TrimSpace(r.Child.BirthDate)
	r.Child.BirthTime = strings.TrimSpace(r.Child.BirthTime)
	r.Child.BirthPlace = strings.TrimSpace(r.Child.BirthPlace)
	normalizeParent(&r.Parents.Father)
	normalizeParent(&r.Parents.Mother)
	r.Delivery.Number = strings.TrimSpace(r.Delivery.Number)
	r.Delivery.IssuedOn = strings.TrimSpace(r.Delivery.IssuedOn)
}

func normalizeParent(p *models.Parent) {
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	p.Profession = strings.TrimSpace(p.Profession)
	p.Nationality = strings.TrimSpace(p.Nationality)
}

// Validate checks the wire shape; business field rules run in the service.
func (r *CreateDeclarationRequest) Validate() error {
	officeID, err := id.ParseOfficeID(r.OfficeID)
	if err != nil {
		return err
	}
	if officeID.IsNil() {
		return errors.New("office_id is required")
	}
	if err := validation.CheckLengths(validation.MaxNameLength,
		validation.Field{Name: "child.first_name", Value: r.Child.FirstName},
		validation.Field{Name: "child.last_name", Value: r.Child.LastName},
		validation.Field{Name: "father.first_name", Value: r.Parents.Father.FirstName},
		validation.Field{Name: "father.last_name", Value: r.Parents.Father.LastName},
		validation.Field{Name: "father.profession", Value: r.Parents.Father.Profession},
		validation.Field{Name: "mother.first_name", Value: r.Parents.Mother.FirstName},
		validation.Field{Name: "mother.last_name", Value: r.Parents.Mother.LastName},
		validation.Field{Name: "mother.profession", Value: r.Parents.Mother.Profession},
	); err != nil {
		return err
	}
	if err := validation.CheckStringLength("child.birth_place", r.Child.BirthPlace, validation.MaxPlaceLength); err != nil {
		return err
	}
	r.officeID = officeID
	return nil
}

func (r *CreateDeclarationRequest) ToInput() models.CreateInput {
	return models.CreateInput{
		OfficeID: r.officeID,
		Child:    r.Child,
		Parents:  r.Parents,
		Facility: r.Facility,
		Registry: r.Registry,
		Delivery: models.Delivery{Number: r.Delivery.Number, IssuedOn: r.Delivery.IssuedOn},
	}
}

type SendToHospitalRequest struct {
	HospitalID string `json:"hospital_id"`

	hospitalID *id.HospitalID
}

func (r *SendToHospitalRequest) Normalize() {
	r.HospitalID = strings.TrimSpace(r.HospitalID)
}

func (r *SendToHospitalRequest) Validate() error {
	if r.HospitalID == "" {
		return nil
	}
	hospitalID, err := id.ParseHospitalID(r.HospitalID)
	if err != nil {
		return err
	}
	r.hospitalID = &hospitalID
	return nil
}

// ReasonRequest is the body of both rejection endpoints.
type ReasonRequest struct {
	Reason string `json:"reason"`
}

func (r *ReasonRequest) Normalize() {
	r.Reason = strings.TrimSpace(r.Reason)
}

func (r *ReasonRequest) Validate() error {
	if r.Reason == "" {
		return errors.New("reason is required")
	}
	return validation.CheckStringLength("reason", r.Reason, validation.MaxReasonLength)
}
