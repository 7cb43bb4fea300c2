//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"etatcivil/internal/declaration/models"
	"etatcivil/internal/declaration/store"
	id "etatcivil/pkg/domain"
	"etatcivil/pkg/platform/sentinel"
	"etatcivil/pkg/testutil/containers"
)

type PostgresDeclarationStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresDeclarationStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresDeclarationStoreSuite))
}

func (s *PostgresDeclarationStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresDeclarationStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateModuleTables(context.Background()))
}

func (s *PostgresDeclarationStoreSuite) newDeclaration(first string, at time.Time) (*models.Declaration, models.Transition) {
	weight := 3200
	in := models.CreateInput{
		OfficeID: id.OfficeID(uuid.New()),
		Child:    models.Child{FirstName: first, LastName: "Ba", Sex: models.SexMale, BirthDate: "2025-04-02", WeightGrams: &weight},
		Parents: models.Parents{
			Father: models.Parent{LastName: "Ba"},
			Mother: models.Parent{LastName: "Sy"},
		},
		Facility: models.OtherFacilityAt(models.OtherFacility{Name: "Poste de sante", Type: "poste", Address: "Podor"}),
	}
	owner := id.UserID(uuid.New())
	d := models.NewDeclaration(owner, in, at)
	return d, models.Transition{To: models.StatusSubmittedToMairie, ActorID: owner, At: at}
}

func (s *PostgresDeclarationStoreSuite) TestCreateRoundTripAndDuplicate() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	d, created := s.newDeclaration("Ali", now)
	s.Require().NoError(s.store.Create(ctx, d, created))

	got, err := s.store.FindByID(ctx, d.ID)
	s.Require().NoError(err)
	s.Equal(d.Child, got.Child)
	other, ok := got.Facility.Other()
	s.True(ok)
	s.Equal("Podor", other.Address)
	s.True(now.Equal(got.CreatedAt))

	dup, dupCreated := s.newDeclaration("ALI ", now)
	dup.Parents = d.Parents
	s.ErrorIs(s.store.Create(ctx, dup, dupCreated), sentinel.ErrConflict)

	_, err = s.store.FindByID(ctx, id.DeclarationID(uuid.New()))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresDeclarationStoreSuite) TestTransitionsAndFilters() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	d, created := s.newDeclaration("Coumba", now)
	s.Require().NoError(s.store.Create(ctx, d, created))
	later, laterCreated := s.newDeclaration("Demba", now.Add(time.Minute))
	s.Require().NoError(s.store.Create(ctx, later, laterCreated))

	hospital := id.HospitalID(uuid.New())
	sentAt := now.Add(time.Hour)
	d.Status = models.StatusPendingHospitalVerification
	d.AssignedHospitalID = &hospital
	d.SentToHospitalAt = &sentAt
	d.UpdatedAt = sentAt
	s.Require().NoError(s.store.ApplyTransition(ctx, d, models.Transition{
		From: models.StatusSubmittedToMairie, To: d.Status, ActorID: id.UserID(uuid.New()), At: sentAt,
	}))

	history, err := s.store.History(ctx, d.ID)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal(models.StatusSubmittedToMairie, history[0].To)
	s.Equal(models.StatusPendingHospitalVerification, history[1].To)

	queue, err := s.store.List(ctx, models.ListFilter{
		HospitalID: &hospital,
		Statuses:   []models.Status{models.StatusPendingHospitalVerification},
	})
	s.Require().NoError(err)
	s.Require().Len(queue, 1)
	s.Equal(d.ID, queue[0].ID)

	all, err := s.store.List(ctx, models.ListFilter{})
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal(later.ID, all[0].ID)
}

func (s *PostgresDeclarationStoreSuite) TestLinkCertificateOnce() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	d, created := s.newDeclaration("Fode", now)
	s.Require().NoError(s.store.Create(ctx, d, created))

	s.Require().NoError(s.store.LinkCertificate(ctx, d.ID, id.CertificateID(uuid.New()), now))
	s.ErrorIs(s.store.LinkCertificate(ctx, d.ID, id.CertificateID(uuid.New()), now), sentinel.ErrAlreadyUsed)
	s.ErrorIs(s.store.LinkCertificate(ctx, id.DeclarationID(uuid.New()), id.CertificateID(uuid.New()), now), sentinel.ErrNotFound)
}

func (s *PostgresDeclarationStoreSuite) TestFindForUpdateInsideTx() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	d, created := s.newDeclaration("Penda", now)
	s.Require().NoError(s.store.Create(ctx, d, created))

	tx, err := s.postgres.DB.BeginTx(ctx, nil)
	s.Require().NoError(err)
	defer func() { _ = tx.Rollback() }()

	locked, err := store.NewPostgresTx(tx).FindForUpdate(ctx, d.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusSubmittedToMairie, locked.Status)
	s.Require().NoError(tx.Commit())
}
