package handler

import (
	"time"

	"etatcivil/internal/notification/models"
)

type NotificationResponse struct {
	ID            string      `json:"id"`
	Type          models.Type `json:"type"`
	Title         string      `json:"title"`
	Body          string      `json:"body"`
	DeclarationID string      `json:"declaration_id,omitempty"`
	Read          bool        `json:"read"`
	ReadAt        *time.Time  `json:"read_at,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}

type ListResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
}

// CountResponse carries the unread count, or how many records mark-all changed.
type CountResponse struct {
	Count int64 `json:"count"`
}

func toResponse(n *models.Notification) NotificationResponse {
	resp := NotificationResponse{
		ID:        n.ID.String(),
		Type:      n.Type,
		Title:     n.Title,
		Body:      n.Body,
		Read:      n.Read,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
	if n.DeclarationID != nil {
		resp.DeclarationID = n.DeclarationID.String()
	}
	return resp
}

func toListResponse(list []*models.Notification) ListResponse {
	out := ListResponse{Notifications: make([]NotificationResponse, 0, len(list))}
	for _, n := range list {
		out.Notifications = append(out.Notifications, toResponse(n))
	}
	return out
}
