package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"etatcivil/internal/certificate/models"
	"etatcivil/internal/platform/database"
	id "etatcivil/pkg/domain"
	"etatcivil/pkg/platform/sentinel"
)

// PostgresStore persists certificates and the download ledger in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
	tx *sql.Tx
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func NewPostgresTx(tx *sql.Tx) *PostgresStore {
	return &PostgresStore{tx: tx}
}

func (s *PostgresStore) execer() database.Execer {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

const certificateColumns = `id, declaration_id, office_id, owner_id, year, sequence, registry_number, act_number,
	stamp, seal, snapshot, unit_price, document_ref, document_content_type, document_updated_at, issued_by, issued_at`

func (s *PostgresStore) Create(ctx context.Context, c *models.Certificate) error {
	snapshot, err := json.Marshal(c.Snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	_, err = s.execer().ExecContext(ctx, `
		INSERT INTO certificates (`+certificateColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`,
		uuid.UUID(c.ID), uuid.UUID(c.DeclarationID), uuid.UUID(c.OfficeID), uuid.UUID(c.OwnerID),
		c.Year, c.Sequence, c.RegistryNumber, c.ActNumber, c.Stamp, c.Seal, snapshot, c.UnitPrice,
		c.Document.Ref, c.Document.ContentType, c.Document.UpdatedAt, uuid.UUID(c.IssuedBy), c.IssuedAt,
	)
	if database.IsUniqueViolation(err, "") {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert certificate: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, certificateID id.CertificateID) (*models.Certificate, error) {
	return s.findOne(ctx, `SELECT `+certificateColumns+` FROM certificates WHERE id = $1`, uuid.UUID(certificateID))
}

func (s *PostgresStore) FindByDeclaration(ctx context.Context, declarationID id.DeclarationID) (*models.Certificate, error) {
	return s.findOne(ctx, `SELECT `+certificateColumns+` FROM certificates WHERE declaration_id = $1`, uuid.UUID(declarationID))
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg uuid.UUID) (*models.Certificate, error) {
	c, err := scanCertificate(s.execer().QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find certificate: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) UpdateDocument(ctx context.Context, certificateID id.CertificateID, doc models.Document) error {
	res, err := s.execer().ExecContext(ctx, `
		UPDATE certificates SET document_ref = $2, document_content_type = $3, document_updated_at = $4
		WHERE id = $1
	`, uuid.UUID(certificateID), doc.Ref, doc.ContentType, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update certificate document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

const downloadColumns = `reference, certificate_id, requested_by, copies, amount, channel, status, released, file_ref, created_at, settled_at`

func (s *PostgresStore) AppendDownload(ctx context.Context, e *models.DownloadEntry) error {
	_, err := s.execer().ExecContext(ctx, `
		INSERT INTO download_entries (`+downloadColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		e.Reference, uuid.UUID(e.CertificateID), uuid.UUID(e.RequestedBy), e.Copies, e.Amount, e.Channel,
		string(e.Status), e.Released, e.FileRef, e.CreatedAt, e.SettledAt,
	)
	switch {
	case database.IsUniqueViolation(err, ""):
		return sentinel.ErrConflict
	case database.IsForeignKeyViolation(err):
		return sentinel.ErrNotFound
	case err != nil:
		return fmt.Errorf("insert download entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindDownload(ctx context.Context, reference string) (*models.DownloadEntry, error) {
	e, err := scanDownload(s.execer().QueryRowContext(ctx,
		`SELECT `+downloadColumns+` FROM download_entries WHERE reference = $1`, reference))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find download entry: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) ListDownloads(ctx context.Context, certificateID id.CertificateID) ([]*models.DownloadEntry, error) {
	rows, err := s.execer().QueryContext(ctx,
		`SELECT `+downloadColumns+` FROM download_entries WHERE certificate_id = $1 ORDER BY created_at, reference`,
		uuid.UUID(certificateID))
	if err != nil {
		return nil, fmt.Errorf("list download entries: %w", err)
	}
	defer rows.Close()

	out := make([]*models.DownloadEntry, 0)
	for rows.Next() {
		e, err := scanDownload(rows)
		if err != nil {
			return nil, fmt.Errorf("scan download entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SettleDownload is a conditional update on status = 'pending'; losers see ErrInvalidState.
func (s *PostgresStore) SettleDownload(ctx context.Context, reference string, st models.Settlement) (*models.DownloadEntry, error) {
	e, err := scanDownload(s.execer().QueryRowContext(ctx, `
		UPDATE download_entries SET status = $2, released = $3, file_ref = $4, settled_at = $5
		WHERE reference = $1 AND status = 'pending'
		RETURNING `+downloadColumns,
		reference, string(st.Status), st.Released(), st.FileRef, st.At))
	if errors.Is(err, sql.ErrNoRows) {
		if _, findErr := s.FindDownload(ctx, reference); findErr != nil {
			return nil, findErr
		}
		return nil, sentinel.ErrInvalidState
	}
	if err != nil {
		return nil, fmt.Errorf("settle download entry: %w", err)
	}
	return e, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCertificate(row scanner) (*models.Certificate, error) {
	var (
		c                           models.Certificate
		cid, did, office, owner, by uuid.UUID
		snapshot                    []byte
		docUpdated                  sql.NullTime
	)
	if err := row.Scan(
		&cid, &did, &office, &owner, &c.Year, &c.Sequence, &c.RegistryNumber, &c.ActNumber,
		&c.Stamp, &c.Seal, &snapshot, &c.UnitPrice, &c.Document.Ref, &c.Document.ContentType, &docUpdated,
		&by, &c.IssuedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(snapshot, &c.Snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	c.ID, c.DeclarationID = id.CertificateID(cid), id.DeclarationID(did)
	c.OfficeID, c.OwnerID, c.IssuedBy = id.OfficeID(office), id.UserID(owner), id.UserID(by)
	if docUpdated.Valid {
		t := docUpdated.Time
		c.Document.UpdatedAt = &t
	}
	return &c, nil
}

func scanDownload(row scanner) (*models.DownloadEntry, error) {
	var (
		e         models.DownloadEntry
		cid, by   uuid.UUID
		status    string
		settledAt sql.NullTime
	)
	if err := row.Scan(
		&e.Reference, &cid, &by, &e.Copies, &e.Amount, &e.Channel, &status, &e.Released, &e.FileRef,
		&e.CreatedAt, &settledAt,
	); err != nil {
		return nil, err
	}
	e.CertificateID, e.RequestedBy = id.CertificateID(cid), id.UserID(by)
	e.Status = models.DownloadStatus(status)
	if settledAt.Valid {
		t := settledAt.Time
		e.SettledAt = &t
	}
	return &e, nil
}
