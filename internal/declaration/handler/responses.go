package handler

import (
	"time"

	"etatcivil/internal/declaration/models"
)

type DeclarationResponse struct {
	ID       string          `json:"id"`
	OwnerID  string          `json:"owner_id"`
	OfficeID string          `json:"office_id"`
	Status   models.Status   `json:"status"`
	Child    models.Child    `json:"child"`
	Parents  models.Parents  `json:"parents"`
	Facility models.Facility `json:"facility"`
	Registry models.Registry `json:"registry"`
	Delivery models.Delivery `json:"delivery"`

	AssignedHospitalID string `json:"assigned_hospital_id,omitempty"`
	VerifyingAgentID   string `json:"verifying_agent_id,omitempty"`
	RejectionReason    string `json:"rejection_reason,omitempty"`
	CertificateID      string `json:"certificate_id,omitempty"`

	CreatedAt        time.Time  `json:"created_at"`
	SentToMairieAt   time.Time  `json:"sent_to_mairie_at"`
	SentToHospitalAt *time.Time `json:"sent_to_hospital_at,omitempty"`
	RejectedAt       *time.Time `json:"rejected_at,omitempty"`
	ValidatedAt      *time.Time `json:"validated_at,omitempty"`
	ArchivedAt       *time.Time `json:"archived_at,omitempty"`
	UpdatedAt        time.Time  `json:"updated_at"`

	History []TransitionResponse `json:"history,omitempty"`
}

type TransitionResponse struct {
	From    models.Status `json:"from,omitempty"`
	To      models.Status `json:"to"`
	ActorID string        `json:"actor_id"`
	At      time.Time     `json:"at"`
	Reason  string        `json:"reason,omitempty"`
}

type ListResponse struct {
	Declarations []DeclarationResponse `json:"declarations"`
}

func toResponse(d *models.Declaration, history []models.Transition) DeclarationResponse {
	resp := DeclarationResponse{
		ID:               d.ID.String(),
		OwnerID:          d.OwnerID.String(),
		OfficeID:         d.OfficeID.String(),
		Status:           d.Status,
		Child:            d.Child,
		Parents:          d.Parents,
		Facility:         d.Facility,
		Registry:         d.Registry,
		Delivery:         d.Delivery,
		RejectionReason:  d.RejectionReason,
		CreatedAt:        d.CreatedAt,
		SentToMairieAt:   d.SentToMairieAt,
		SentToHospitalAt: d.SentToHospitalAt,
		RejectedAt:       d.RejectedAt,
		ValidatedAt:      d.ValidatedAt,
		ArchivedAt:       d.ArchivedAt,
		UpdatedAt:        d.UpdatedAt,
	}
	if d.AssignedHospitalID != nil {
		resp.AssignedHospitalID = d.AssignedHospitalID.String()
	}
	if d.VerifyingAgentID != nil {
		resp.VerifyingAgentID = d.VerifyingAgentID.String()
	}
	if d.CertificateID != nil {
		resp.CertificateID = d.CertificateID.String()
	}
	for _, t := range history {
		resp.History = append(resp.History, TransitionResponse{
			From:    t.From,
			To:      t.To,
			ActorID: t.ActorID.String(),
			At:      t.At,
			Reason:  t.Reason,
		})
	}
	return resp
}

func toListResponse(list []*models.Declaration) ListResponse {
	out := ListResponse{Declarations: make([]DeclarationResponse, 0, len(list))}
	for _, d := range list {
		out.Declarations = append(out.Declarations, toResponse(d, nil))
	}
	return out
}
