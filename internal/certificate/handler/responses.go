package handler

import (
	"time"

	"etatcivil/internal/certificate/models"
)

type CertificateResponse struct {
	ID             string             `json:"id"`
	DeclarationID  string             `json:"declaration_id"`
	OfficeID       string             `json:"office_id"`
	RegistryNumber string             `json:"registry_number"`
	ActNumber      string             `json:"act_number"`
	Year           int                `json:"year"`
	Sequence       int64              `json:"sequence"`
	Stamp          string             `json:"stamp"`
	Seal           string             `json:"seal"`
	UnitPrice      int64              `json:"unit_price"`
	Snapshot       models.Snapshot    `json:"snapshot"`
	Document       *models.Document   `json:"document,omitempty"`
	IssuedBy       string             `json:"issued_by"`
	IssuedAt       time.Time          `json:"issued_at"`
	Downloads      []DownloadResponse `json:"downloads"`
	Totals         models.Totals      `json:"totals"`
}

type DownloadResponse struct {
	Reference string     `json:"reference"`
	Copies    int        `json:"copies"`
	Amount    int64      `json:"amount"`
	Channel   string     `json:"channel"`
	Status    string     `json:"status"`
	Released  bool       `json:"released"`
	CreatedAt time.Time  `json:"created_at"`
	SettledAt *time.Time `json:"settled_at,omitempty"`
}

type PaymentCallbackResponse struct {
	Reference string `json:"reference"`
	Outcome   string `json:"outcome"`
}

func toCertificateResponse(v *models.View) CertificateResponse {
	c := v.Certificate
	resp := CertificateResponse{
		ID:             c.ID.String(),
		DeclarationID:  c.DeclarationID.String(),
		OfficeID:       c.OfficeID.String(),
		RegistryNumber: c.RegistryNumber,
		ActNumber:      c.ActNumber,
		Year:           c.Year,
		Sequence:       c.Sequence,
		Stamp:          c.Stamp,
		Seal:           c.Seal,
		UnitPrice:      c.UnitPrice,
		Snapshot:       c.Snapshot,
		IssuedBy:       c.IssuedBy.String(),
		IssuedAt:       c.IssuedAt,
		Downloads:      make([]DownloadResponse, 0, len(v.Downloads)),
		Totals:         v.Totals,
	}
	if c.Document.Attached() {
		doc := c.Document
		resp.Document = &doc
	}
	for _, e := range v.Downloads {
		resp.Downloads = append(resp.Downloads, toDownloadResponse(e))
	}
	return resp
}

func toDownloadResponse(e *models.DownloadEntry) DownloadResponse {
	return DownloadResponse{
		Reference: e.Reference,
		Copies:    e.Copies,
		Amount:    e.Amount,
		Channel:   e.Channel,
		Status:    string(e.Status),
		Released:  e.Released,
		CreatedAt: e.CreatedAt,
		SettledAt: e.SettledAt,
	}
}
