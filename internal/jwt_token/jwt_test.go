package jwttoken

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "etatcivil/pkg/domain"
	dErrors "etatcivil/pkg/domain-errors"
	"etatcivil/pkg/requestcontext"
)

var actor = id.Actor{UserID: id.UserID(uuid.New()), Role: id.RoleMairie}

var jwtService = NewJWTService("test-signing-key", "etatcivil-test", time.Hour)

func Test_GenerateToken(t *testing.T) {
	token, err := jwtService.GenerateToken(context.Background(), actor)
	require.NoError(t, err)

	claims, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, actor.UserID.String(), claims.Subject)
	assert.Equal(t, "mairie", claims.Role)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func Test_GenerateToken_RejectsUnknownRole(t *testing.T) {
	_, err := jwtService.GenerateToken(context.Background(), id.Actor{UserID: actor.UserID, Role: "admin"})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = jwtService.GenerateToken(context.Background(), id.Actor{Role: id.RoleParent})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := jwtService.ValidateToken("invalid-token-string")
	require.ErrorContains(t, err, "invalid token")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	past := requestcontext.WithTime(context.Background(), time.Now().Add(-2*time.Hour))
	token, err := jwtService.GenerateToken(past, actor)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.ErrorContains(t, err, "token expired")
}

func Test_ValidateToken_WrongKeyOrIssuer(t *testing.T) {
	other := NewJWTService("another-key", "etatcivil-test", time.Hour)
	token, err := other.GenerateToken(context.Background(), actor)
	require.NoError(t, err)
	_, err = jwtService.ValidateToken(token)
	require.ErrorContains(t, err, "invalid token")

	foreign := NewJWTService("test-signing-key", "someone-else", time.Hour)
	token, err = foreign.GenerateToken(context.Background(), actor)
	require.NoError(t, err)
	_, err = jwtService.ValidateToken(token)
	require.ErrorContains(t, err, "invalid token issuer")
}

func Test_ValidateToken_RejectsOtherAlgorithms(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, IdentityClaims{
		Role: "mairie",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.UserID.String(),
			Issuer:    "etatcivil-test",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(signed)
	require.Error(t, err)
}

func Test_AdapterMapsClaims(t *testing.T) {
	token, err := jwtService.GenerateToken(context.Background(), actor)
	require.NoError(t, err)

	claims, err := NewJWTServiceAdapter(jwtService).ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, actor.UserID.String(), claims.UserID)
	assert.Equal(t, "mairie", claims.Role)
}
