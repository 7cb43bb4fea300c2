package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"etatcivil/internal/notification/models"
	id "etatcivil/pkg/domain"
	"etatcivil/pkg/platform/sentinel"
)

// PostgresStore persists notifications in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const notificationColumns = `id, recipient_id, type, title, body, declaration_id, read, read_at, created_at`

func (s *PostgresStore) Save(ctx context.Context, n *models.Notification) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET read = EXCLUDED.read, read_at = EXCLUDED.read_at
	`, uuid.UUID(n.ID), uuid.UUID(n.RecipientID), string(n.Type), n.Title, n.Body,
		nullableDeclarationID(n.DeclarationID), n.Read, n.ReadAt, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("save notification: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, notificationID id.NotificationID) (*models.Notification, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, uuid.UUID(notificationID))
	n, err := scanNotification(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find notification: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) ListByRecipient(ctx context.Context, recipient id.UserID, unreadOnly bool) ([]*models.Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE recipient_id = $1 AND (NOT $2::boolean OR NOT read)
		ORDER BY created_at DESC, id DESC
	`, uuid.UUID(recipient), unreadOnly)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	out := []*models.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead only touches unread rows so read_at keeps its first value.
func (s *PostgresStore) MarkRead(ctx context.Context, notificationID id.NotificationID, at time.Time) (*models.Notification, error) {
	if _, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET read = TRUE, read_at = $2 WHERE id = $1 AND NOT read
	`, uuid.UUID(notificationID), at); err != nil {
		return nil, fmt.Errorf("mark notification read: %w", err)
	}
	return s.FindByID(ctx, notificationID)
}

func (s *PostgresStore) MarkAllRead(ctx context.Context, recipient id.UserID, at time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET read = TRUE, read_at = $2 WHERE recipient_id = $1 AND NOT read
	`, uuid.UUID(recipient), at)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return res.RowsAffected()
}

func (s *PostgresStore) CountUnread(ctx context.Context, recipient id.UserID) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND NOT read
	`, uuid.UUID(recipient)).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNotification(row scanner) (*models.Notification, error) {
	var (
		n             models.Notification
		nid, rcp      uuid.UUID
		typ           string
		declarationID uuid.NullUUID
		readAt        sql.NullTime
	)
	if err := row.Scan(&nid, &rcp, &typ, &n.Title, &n.Body, &declarationID, &n.Read, &readAt, &n.CreatedAt); err != nil {
		return nil, err
	}
	n.ID = id.NotificationID(nid)
	n.RecipientID = id.UserID(rcp)
	n.Type = models.Type(typ)
	if declarationID.Valid {
		did := id.DeclarationID(declarationID.UUID)
		n.DeclarationID = &did
	}
	if readAt.Valid {
		t := readAt.Time
		n.ReadAt = &t
	}
	return &n, nil
}

func nullableDeclarationID(did *id.DeclarationID) any {
	if did == nil {
		return nil
	}
	return uuid.UUID(*did)
}
