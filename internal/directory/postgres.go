package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	id "etatcivil/pkg/domain"
	"etatcivil/pkg/platform/sentinel"
)

// Postgres reads the directory tables.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) FindOffice(ctx context.Context, officeID id.OfficeID) (*Office, error) {
	var (
		o   Office
		oid uuid.UUID
	)
	err := p.db.QueryRowContext(ctx, `SELECT id, name, short_code FROM offices WHERE id = $1`, uuid.UUID(officeID)).
		Scan(&oid, &o.Name, &o.ShortCode)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find office: %w", err)
	}
	o.ID = id.OfficeID(oid)
	return &o, nil
}

func (p *Postgres) FindHospital(ctx context.Context, hospitalID id.HospitalID) (*Hospital, error) {
	var (
		h        Hospital
		hid      uuid.UUID
		officeID uuid.NullUUID
	)
	err := p.db.QueryRowContext(ctx, `SELECT id, name, office_id FROM hospitals WHERE id = $1`, uuid.UUID(hospitalID)).
		Scan(&hid, &h.Name, &officeID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find hospital: %w", err)
	}
	h.ID = id.HospitalID(hid)
	if officeID.Valid {
		h.OfficeID = id.OfficeID(officeID.UUID)
	}
	return &h, nil
}

func (p *Postgres) AgentsAffiliatedWith(ctx context.Context, role id.Role, orgID uuid.UUID) ([]id.UserID, error) {
	if orgID == uuid.Nil {
		return nil, nil
	}
	return p.queryAgents(ctx, `
		SELECT user_id FROM agents
		WHERE verified AND role = $1 AND organization_id = $2
		ORDER BY user_id
	`, string(role), orgID)
}

func (p *Postgres) AgentsByRole(ctx context.Context, role id.Role) ([]id.UserID, error) {
	return p.queryAgents(ctx, `
		SELECT user_id FROM agents
		WHERE verified AND role = $1
		ORDER BY user_id
	`, string(role))
}

func (p *Postgres) Affiliation(ctx context.Context, userID id.UserID) (uuid.UUID, bool, error) {
	var orgID uuid.NullUUID
	err := p.db.QueryRowContext(ctx, `SELECT organization_id FROM agents WHERE user_id = $1`, uuid.UUID(userID)).Scan(&orgID)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("find affiliation: %w", err)
	}
	return orgID.UUID, orgID.Valid, nil
}

func (p *Postgres) UserExists(ctx context.Context, userID id.UserID) (bool, error) {
	var exists bool
	if err := p.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, uuid.UUID(userID)).Scan(&exists); err != nil {
		return false, fmt.Errorf("check user: %w", err)
	}
	return exists, nil
}

func (p *Postgres) queryAgents(ctx context.Context, query string, args ...any) ([]id.UserID, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var out []id.UserID
	for rows.Next() {
		var uid uuid.UUID
		if err := rows.Scan(&uid); err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		out = append(out, id.UserID(uid))
	}
	return out, rows.Err()
}

var _ Directory = (*Postgres)(nil)
