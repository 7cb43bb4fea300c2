package models

import (
	"time"

	"github.com/google/uuid"

	id "etatcivil/pkg/domain"
)

// Type categorizes a notification for clients and metrics.
type Type string

const (
	TypeDeclarationSubmitted  Type = "declaration_submitted"
	TypeDeclarationToHospital Type = "declaration_sent_to_hospital"
	TypeDeclarationRejected   Type = "declaration_rejected"
	TypeCertificateVerified   Type = "certificate_verified"
	TypeCertificateRejected   Type = "certificate_rejected"
	TypeDeclarationValidated  Type = "declaration_validated"
	TypeDeclarationArchived   Type = "declaration_archived"
	TypeCertificateIssued     Type = "certificate_issued"
	TypeDownloadReady         Type = "download_ready"
	TypePaymentFailed         Type = "payment_failed"
)

// Notification is one message addressed to one user.
type Notification struct {
	ID            id.NotificationID
	RecipientID   id.UserID
	Type          Type
	Title         string
	Body          string
	DeclarationID *id.DeclarationID
	Read          bool
	ReadAt        *time.Time
	CreatedAt     time.Time
}

// Message is the recipient-independent content of a notification.
type Message struct {
	Type          Type
	Title         string
	Body          string
	DeclarationID *id.DeclarationID
}

// New builds an unread notification for recipient.
func New(recipient id.UserID, msg Message, now time.Time) *Notification {
	return &Notification{
		ID:            id.NotificationID(uuid.New()),
		RecipientID:   recipient,
		Type:          msg.Type,
		Title:         msg.Title,
		Body:          msg.Body,
		DeclarationID: msg.DeclarationID,
		CreatedAt:     now,
	}
}

// MarkRead flags the notification read. It reports false and keeps the
// original ReadAt when the notification was already read.
func (n *Notification) MarkRead(at time.Time) bool {
	if n.Read {
		return false
	}
	n.Read = true
	n.ReadAt = &at
	return true
}
