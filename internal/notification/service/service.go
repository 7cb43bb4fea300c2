package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"etatcivil/internal/notification/metrics"
	"etatcivil/internal/notification/models"
	id "etatcivil/pkg/domain"
	dErrors "etatcivil/pkg/domain-errors"
	"etatcivil/pkg/platform/sentinel"
	"etatcivil/pkg/requestcontext"
)

// Store defines the persistence interface for notifications.
// Error Contract:
//   - FindByID and MarkRead return sentinel.ErrNotFound when no record exists
//   - MarkRead leaves an already-read record untouched and returns it
type Store interface {
	Save(ctx context.Context, n *models.Notification) error
	FindByID(ctx context.Context, notificationID id.NotificationID) (*models.Notification, error)
	ListByRecipient(ctx context.Context, recipient id.UserID, unreadOnly bool) ([]*models.Notification, error)
	MarkRead(ctx context.Context, notificationID id.NotificationID, at time.Time) (*models.Notification, error)
	MarkAllRead(ctx context.Context, recipient id.UserID, at time.Time) (int64, error)
	CountUnread(ctx context.Context, recipient id.UserID) (int64, error)
}

// UserDirectory answers whether a recipient exists.
type UserDirectory interface {
	UserExists(ctx context.Context, userID id.UserID) (bool, error)
}

const defaultFanoutLimit = 8

type Option func(*Service)

// Service creates notifications and tracks their read state.
type Service struct {
	store       Store
	users       UserDirectory
	audience    *AudienceResolver
	metrics     *metrics.Metrics
	logger      *slog.Logger
	fanoutLimit int
}

func New(store Store, users UserDirectory, audience *AudienceResolver, opts ...Option) *Service {
	s := &Service{
		store:       store,
		users:       users,
		audience:    audience,
		logger:      slog.Default(),
		fanoutLimit: defaultFanoutLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithFanoutLimit bounds concurrent deliveries in one fan-out.
func WithFanoutLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.fanoutLimit = n
		}
	}
}

// Notify creates one unread notification for recipient. It fails only when
// the recipient does not exist or the store is unavailable.
func (s *Service) Notify(ctx context.Context, recipient id.UserID, msg models.Message) (*models.Notification, error) {
	exists, err := s.users.UserExists(ctx, recipient)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up recipient")
	}
	if !exists {
		return nil, dErrors.New(dErrors.CodeNotFound, "recipient not found")
	}

	n := models.New(recipient, msg, requestcontext.Now(ctx))
	if err := s.store.Save(ctx, n); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save notification")
	}
	if s.metrics != nil {
		s.metrics.IncCreated(string(msg.Type))
	}
	return n, nil
}

// List returns the caller's notifications, newest first.
func (s *Service) List(ctx context.Context, userID id.UserID, unreadOnly bool) ([]*models.Notification, error) {
	list, err := s.store.ListByRecipient(ctx, userID, unreadOnly)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list notifications")
	}
	return list, nil
}

func (s *Service) UnreadCount(ctx context.Context, userID id.UserID) (int64, error) {
	count, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count notifications")
	}
	return count, nil
}

// MarkRead marks a notification read on behalf of its recipient.
// Repeating the call is a no-op and keeps the first read time.
func (s *Service) MarkRead(ctx context.Context, notificationID id.NotificationID, by id.UserID) (*models.Notification, error) {
	n, err := s.store.FindByID(ctx, notificationID)
	if err != nil {
		return nil, translateStoreErr(err, "failed to load notification")
	}
	if n.RecipientID != by {
		return nil, dErrors.New(dErrors.CodeForbidden, "notification belongs to another user")
	}
	if n.Read {
		return n, nil
	}
	n, err = s.store.MarkRead(ctx, notificationID, requestcontext.Now(ctx))
	if err != nil {
		return nil, translateStoreErr(err, "failed to mark notification read")
	}
	return n, nil
}

// MarkAllRead marks every unread notification of the caller and returns how many changed.
func (s *Service) MarkAllRead(ctx context.Context, by id.UserID) (int64, error) {
	count, err := s.store.MarkAllRead(ctx, by, requestcontext.Now(ctx))
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark notifications read")
	}
	return count, nil
}

func translateStoreErr(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "notification not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
