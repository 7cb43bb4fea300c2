package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"etatcivil/internal/declaration/models"
	"etatcivil/internal/platform/database"
	id "etatcivil/pkg/domain"
	"etatcivil/pkg/platform/sentinel"
)

const duplicateKeyConstraint = "declarations_duplicate_key_key"

// PostgresStore persists declarations in PostgreSQL. Bind it to a transaction
// with NewPostgresTx so that FindForUpdate row locks cover the whole workflow step.
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

const declarationColumns = `id, owner_id, office_id, status, child, parents, facility, registry, delivery,
	assigned_hospital_id, verifying_agent_id, rejection_reason, certificate_id,
	created_at, sent_to_mairie_at, sent_to_hospital_at, rejected_at, validated_at, archived_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, d *models.Declaration, created models.Transition) error {
	docs, err := marshalDocuments(d)
	if err != nil {
		return err
	}
	_, err = s.execer().ExecContext(ctx, `
		INSERT INTO declarations (`+declarationColumns+`, duplicate_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`,
		uuid.UUID(d.ID), uuid.UUID(d.OwnerID), uuid.UUID(d.OfficeID), string(d.Status),
		docs.child, docs.parents, docs.facility, docs.registry, docs.delivery,
		nullUUID(d.AssignedHospitalID), nullUUID(d.VerifyingAgentID), d.RejectionReason, nullUUID(d.CertificateID),
		d.CreatedAt, d.SentToMairieAt, d.SentToHospitalAt, d.RejectedAt, d.ValidatedAt, d.ArchivedAt, d.UpdatedAt,
		d.DuplicateKey(),
	)
	if database.IsUniqueViolation(err, duplicateKeyConstraint) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert declaration: %w", err)
	}
	return s.appendTransition(ctx, d.ID, created)
}

func (s *PostgresStore) FindByID(ctx context.Context, declarationID id.DeclarationID) (*models.Declaration, error) {
	return s.find(ctx, `SELECT `+declarationColumns+` FROM declarations WHERE id = $1`, declarationID)
}

// FindForUpdate locks the row until the surrounding transaction ends.
func (s *PostgresStore) FindForUpdate(ctx context.Context, declarationID id.DeclarationID) (*models.Declaration, error) {
	return s.find(ctx, `SELECT `+declarationColumns+` FROM declarations WHERE id = $1 FOR UPDATE`, declarationID)
}

func (s *PostgresStore) find(ctx context.Context, query string, declarationID id.DeclarationID) (*models.Declaration, error) {
	d, err := scanDeclaration(s.execer().QueryRowContext(ctx, query, uuid.UUID(declarationID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find declaration: %w", err)
	}
	return d, nil
}

func (s *PostgresStore) List(ctx context.Context, filter models.ListFilter) ([]*models.Declaration, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.OwnerID != nil {
		add("owner_id = $%d", uuid.UUID(*filter.OwnerID))
	}
	if filter.OfficeID != nil {
		add("office_id = $%d", uuid.UUID(*filter.OfficeID))
	}
	if filter.HospitalID != nil {
		add("assigned_hospital_id = $%d", uuid.UUID(*filter.HospitalID))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		add("status = ANY($%d)", statuses)
	}

	query := `SELECT ` + declarationColumns + ` FROM declarations`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.execer().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list declarations: %w", err)
	}
	defer rows.Close()

	out := []*models.Declaration{}
	for rows.Next() {
		d, err := scanDeclaration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan declaration: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *PostgresStore) History(ctx context.Context, declarationID id.DeclarationID) ([]models.Transition, error) {
	rows, err := s.execer().QueryContext(ctx, `
		SELECT from_status, to_status, actor_id, reason, at
		FROM declaration_transitions WHERE declaration_id = $1 ORDER BY id
	`, uuid.UUID(declarationID))
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	defer rows.Close()

	var out []models.Transition
	for rows.Next() {
		var (
			t        models.Transition
			from, to string
			actor    uuid.UUID
		)
		if err := rows.Scan(&from, &to, &actor, &t.Reason, &t.At); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		t.From, t.To, t.ActorID = models.Status(from), models.Status(to), id.UserID(actor)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return out, nil
}

func (s *PostgresStore) ApplyTransition(ctx context.Context, d *models.Declaration, t models.Transition) error {
	delivery, err := json.Marshal(d.Delivery)
	if err != nil {
		return fmt.Errorf("marshal delivery: %w", err)
	}
	res, err := s.execer().ExecContext(ctx, `
		UPDATE declarations SET
			status = $2, delivery = $3, assigned_hospital_id = $4, verifying_agent_id = $5,
			rejection_reason = $6, sent_to_hospital_at = $7, rejected_at = $8,
			validated_at = $9, archived_at = $10, updated_at = $11
		WHERE id = $1
	`, uuid.UUID(d.ID), string(d.Status), delivery, nullUUID(d.AssignedHospitalID), nullUUID(d.VerifyingAgentID),
		d.RejectionReason, d.SentToHospitalAt, d.RejectedAt, d.ValidatedAt, d.ArchivedAt, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update declaration: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return s.appendTransition(ctx, d.ID, t)
}

func (s *PostgresStore) LinkCertificate(ctx context.Context, declarationID id.DeclarationID, certificateID id.CertificateID, at time.Time) error {
	res, err := s.execer().ExecContext(ctx, `
		UPDATE declarations SET certificate_id = $2, updated_at = $3
		WHERE id = $1 AND certificate_id IS NULL
	`, uuid.UUID(declarationID), uuid.UUID(certificateID), at)
	if err != nil {
		return fmt.Errorf("link certificate: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	if _, err := s.FindByID(ctx, declarationID); err != nil {
		return err
	}
	return sentinel.ErrAlreadyUsed
}

func (s *PostgresStore) appendTransition(ctx context.Context, declarationID id.DeclarationID, t models.Transition) error {
	_, err := s.execer().ExecContext(ctx, `
		INSERT INTO declaration_transitions (declaration_id, from_status, to_status, actor_id, reason, at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.UUID(declarationID), string(t.From), string(t.To), uuid.UUID(t.ActorID), t.Reason, t.At)
	if err != nil {
		return fmt.Errorf("insert transition: %w", err)
	}
	return nil
}

type documents struct {
	child, parents, facility, registry, delivery []byte
}

func marshalDocuments(d *models.Declaration) (documents, error) {
	var (
		docs documents
		err  error
	)
	for _, m := range []struct {
		dst *[]byte
		v   any
	}{
		{&docs.child, d.Child},
		{&docs.parents, d.Parents},
		{&docs.facility, d.Facility},
		{&docs.registry, d.Registry},
		{&docs.delivery, d.Delivery},
	} {
		if *m.dst, err = json.Marshal(m.v); err != nil {
			return documents{}, fmt.Errorf("marshal declaration: %w", err)
		}
	}
	return docs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDeclaration(row scanner) (*models.Declaration, error) {
	var (
		d                                          models.Declaration
		did, owner, office                         uuid.UUID
		status                                     string
		docs                                       documents
		hospital, agent, certificate               uuid.NullUUID
		sentToHospital, rejected, validated, archv sql.NullTime
	)
	if err := row.Scan(
		&did, &owner, &office, &status,
		&docs.child, &docs.parents, &docs.facility, &docs.registry, &docs.delivery,
		&hospital, &agent, &d.RejectionReason, &certificate,
		&d.CreatedAt, &d.SentToMairieAt, &sentToHospital, &rejected, &validated, &archv, &d.UpdatedAt,
	); err != nil {
		return nil, err
	}

	for _, m := range []struct {
		src []byte
		dst any
	}{
		{docs.child, &d.Child},
		{docs.parents, &d.Parents},
		{docs.facility, &d.Facility},
		{docs.registry, &d.Registry},
		{docs.delivery, &d.Delivery},
	} {
		if err := json.Unmarshal(m.src, m.dst); err != nil {
			return nil, fmt.Errorf("unmarshal declaration: %w", err)
		}
	}

	d.ID, d.OwnerID, d.OfficeID = id.DeclarationID(did), id.UserID(owner), id.OfficeID(office)
	d.Status = models.Status(status)
	if hospital.Valid {
		v := id.HospitalID(hospital.UUID)
		d.AssignedHospitalID = &v
	}
	if agent.Valid {
		v := id.UserID(agent.UUID)
		d.VerifyingAgentID = &v
	}
	if certificate.Valid {
		v := id.CertificateID(certificate.UUID)
		d.CertificateID = &v
	}
	d.SentToHospitalAt = nullTime(sentToHospital)
	d.RejectedAt = nullTime(rejected)
	d.ValidatedAt = nullTime(validated)
	d.ArchivedAt = nullTime(archv)
	return &d, nil
}

// nullUUID converts an optional typed ID into a driver value.
func nullUUID[T ~[16]byte](v *T) any {
	if v == nil {
		return nil
	}
	return uuid.UUID(*v)
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
