package seeder

import (
	"log/slog"

	"github.com/google/uuid"

	"etatcivil/internal/directory"
	id "etatcivil/pkg/domain"
)

// DirectoryWriter is the seedable side of the in-memory directory.
type DirectoryWriter interface {
	AddOffice(o directory.Office)
	AddHospital(h directory.Hospital)
	AddUser(userID id.UserID, role id.Role)
	AddAgent(userID id.UserID, role id.Role, orgID uuid.UUID, verified bool)
}

// Demo identities are fixed so cmd/tokengen can mint tokens for them.
var (
	DemoOfficePlateau   = id.OfficeID(uuid.MustParse("0f0c0000-0000-4000-8000-00000000a1b2"))
	DemoOfficeMedina    = id.OfficeID(uuid.MustParse("0f0c0000-0000-4000-8000-00000000c3d4"))
	DemoHospitalPrincip = id.HospitalID(uuid.MustParse("40500000-0000-4000-8000-000000000001"))
	DemoHospitalFann    = id.HospitalID(uuid.MustParse("40500000-0000-4000-8000-000000000002"))

	DemoParent        = id.UserID(uuid.MustParse("a0000000-0000-4000-8000-000000000001"))
	DemoMairieAgent   = id.UserID(uuid.MustParse("b0000000-0000-4000-8000-000000000001"))
	DemoHospitalAgent = id.UserID(uuid.MustParse("c0000000-0000-4000-8000-000000000001"))
)

// Seeder populates the in-memory directory with demo data
type Seeder struct {
	dir    DirectoryWriter
	logger *slog.Logger
}

// New creates a new seeder
func New(dir DirectoryWriter, logger *slog.Logger) *Seeder {
	return &Seeder{dir: dir, logger: logger}
}

// SeedAll populates offices, hospitals, parents and agents.
func (s *Seeder) SeedAll() {
	s.logger.Info("seeding demo directory...")

	offices := s.seedOffices()
	hospitals := s.seedHospitals()
	users := s.seedUsers()

	s.logger.Info("demo directory seeded",
		"offices", offices,
		"hospitals", hospitals,
		"users", users,
	)
}

func (s *Seeder) seedOffices() int {
	offices := []directory.Office{
		{ID: DemoOfficePlateau, Name: "Mairie de Dakar-Plateau", ShortCode: "A1B2"},
		{ID: DemoOfficeMedina, Name: "Mairie de la Medina", ShortCode: "C3D4"},
	}
	for _, o := range offices {
		s.dir.AddOffice(o)
	}
	return len(offices)
}

func (s *Seeder) seedHospitals() int {
	hospitals := []directory.Hospital{
		{ID: DemoHospitalPrincip, Name: "Hopital Principal", OfficeID: DemoOfficePlateau},
		{ID: DemoHospitalFann, Name: "CHU de Fann", OfficeID: DemoOfficeMedina},
	}
	for _, h := range hospitals {
		s.dir.AddHospital(h)
	}
	return len(hospitals)
}

func (s *Seeder) seedUsers() int {
	s.dir.AddUser(DemoParent, id.RoleParent)

	agents := []struct {
		userID   id.UserID
		role     id.Role
		orgID    uuid.UUID
		verified bool
	}{
		{DemoMairieAgent, id.RoleMairie, uuid.UUID(DemoOfficePlateau), true},
		{id.UserID(uuid.MustParse("b0000000-0000-4000-8000-000000000002")), id.RoleMairie, uuid.UUID(DemoOfficeMedina), true},
		{id.UserID(uuid.MustParse("b0000000-0000-4000-8000-000000000003")), id.RoleMairie, uuid.UUID(DemoOfficeMedina), false},
		{DemoHospitalAgent, id.RoleHospital, uuid.UUID(DemoHospitalPrincip), true},
		{id.UserID(uuid.MustParse("c0000000-0000-4000-8000-000000000002")), id.RoleHospital, uuid.Nil, true},
	}
	for _, a := range agents {
		s.dir.AddAgent(a.userID, a.role, a.orgID, a.verified)
	}
	return len(agents) + 1
}
