package seeder

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"etatcivil/internal/certificate/models"
	"etatcivil/internal/directory"
	id "etatcivil/pkg/domain"
)

func TestSeedAllPopulatesDirectory(t *testing.T) {
	ctx := context.Background()
	dir := directory.NewMemory()
	New(dir, slog.New(slog.NewTextHandler(io.Discard, nil))).SeedAll()

	office, err := dir.FindOffice(ctx, DemoOfficePlateau)
	require.NoError(t, err)
	assert.Equal(t, models.OfficeCode(DemoOfficePlateau), office.ShortCode)

	hospital, err := dir.FindHospital(ctx, DemoHospitalPrincip)
	require.NoError(t, err)
	assert.Equal(t, DemoOfficePlateau, hospital.OfficeID)

	exists, err := dir.UserExists(ctx, DemoParent)
	require.NoError(t, err)
	assert.True(t, exists)

	org, ok, err := dir.Affiliation(ctx, DemoMairieAgent)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uuid.UUID(DemoOfficePlateau), org)
}

func TestSeededAgentsCoverBothAudienceTiers(t *testing.T) {
	ctx := context.Background()
	dir := directory.NewMemory()
	New(dir, slog.New(slog.NewTextHandler(io.Discard, nil))).SeedAll()

	medina, err := dir.AgentsAffiliatedWith(ctx, id.RoleMairie, uuid.UUID(DemoOfficeMedina))
	require.NoError(t, err)
	assert.Len(t, medina, 1, "the unverified medina agent is excluded")

	fann, err := dir.AgentsAffiliatedWith(ctx, id.RoleHospital, uuid.UUID(DemoHospitalFann))
	require.NoError(t, err)
	assert.Empty(t, fann)

	all, err := dir.AgentsByRole(ctx, id.RoleHospital)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
