package directory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "etatcivil/pkg/domain"
	"etatcivil/pkg/platform/sentinel"
)

func TestMemoryLookups(t *testing.T) {
	ctx := context.Background()
	dir := NewMemory()
	office := Office{ID: id.OfficeID(uuid.New()), Name: "Mairie de Dakar-Plateau", ShortCode: "DKP"}
	dir.AddOffice(office)

	got, err := dir.FindOffice(ctx, office.ID)
	require.NoError(t, err)
	assert.Equal(t, office, *got)

	_, err = dir.FindOffice(ctx, id.OfficeID(uuid.New()))
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	_, err = dir.FindHospital(ctx, id.HospitalID(uuid.New()))
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestMemoryAgents(t *testing.T) {
	ctx := context.Background()
	dir := NewMemory()
	officeID := uuid.New()

	affiliated := id.UserID(uuid.New())
	unverified := id.UserID(uuid.New())
	elsewhere := id.UserID(uuid.New())
	unaffiliated := id.UserID(uuid.New())
	dir.AddAgent(affiliated, id.RoleMairie, officeID, true)
	dir.AddAgent(unverified, id.RoleMairie, officeID, false)
	dir.AddAgent(elsewhere, id.RoleMairie, uuid.New(), true)
	dir.AddAgent(unaffiliated, id.RoleMairie, uuid.Nil, true)

	t.Run("affiliated excludes unverified and other offices", func(t *testing.T) {
		agents, err := dir.AgentsAffiliatedWith(ctx, id.RoleMairie, officeID)
		require.NoError(t, err)
		assert.Equal(t, []id.UserID{affiliated}, agents)
	})

	t.Run("by role includes every verified agent", func(t *testing.T) {
		agents, err := dir.AgentsByRole(ctx, id.RoleMairie)
		require.NoError(t, err)
		assert.ElementsMatch(t, []id.UserID{affiliated, elsewhere, unaffiliated}, agents)
	})

	t.Run("nil org never matches", func(t *testing.T) {
		agents, err := dir.AgentsAffiliatedWith(ctx, id.RoleMairie, uuid.Nil)
		require.NoError(t, err)
		assert.Empty(t, agents)
	})

	t.Run("affiliation", func(t *testing.T) {
		org, ok, err := dir.Affiliation(ctx, affiliated)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, officeID, org)

		_, ok, err = dir.Affiliation(ctx, unaffiliated)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("user exists", func(t *testing.T) {
		ok, err := dir.UserExists(ctx, affiliated)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = dir.UserExists(ctx, id.UserID(uuid.New()))
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
