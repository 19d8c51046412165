package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/orderdesk-backend/pkg/config"
	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "orderdesk",
		ExpirationMinutes: 30,
	}
}

func TestMintAndParseOperatorToken(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintOperatorToken(cfg, time.Now().UTC(), OperatorTokenPayload{
		Subject: "ops-7",
		Name:    "Nadia",
		Role:    enums.OperatorRoleOperator,
	})
	require.NoError(t, err)

	claims, err := ParseOperatorToken(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, "ops-7", claims.Actor())
	assert.Equal(t, "Nadia", claims.Name)
	assert.Equal(t, enums.OperatorRoleOperator, claims.Role)
	assert.NotEmpty(t, claims.ID)
}

func TestParseOperatorTokenRejects(t *testing.T) {
	cfg := testJWTConfig()
	now := time.Now().UTC()

	expired, err := MintOperatorToken(cfg, now.Add(-2*time.Hour), OperatorTokenPayload{Subject: "ops-1", Role: enums.OperatorRoleAdmin})
	require.NoError(t, err)
	_, err = ParseOperatorToken(cfg, expired)
	assert.Error(t, err, "expired token")

	valid, err := MintOperatorToken(cfg, now, OperatorTokenPayload{Subject: "ops-1", Role: enums.OperatorRoleAdmin})
	require.NoError(t, err)

	wrongSecret := cfg
	wrongSecret.Secret = "other"
	_, err = ParseOperatorToken(wrongSecret, valid)
	assert.Error(t, err, "wrong secret")

	wrongIssuer := cfg
	wrongIssuer.Issuer = "someone-else"
	_, err = ParseOperatorToken(wrongIssuer, valid)
	assert.Error(t, err, "wrong issuer")

	_, err = ParseOperatorToken(cfg, "not-a-token")
	assert.Error(t, err)
}

func TestMintOperatorTokenValidatesPayload(t *testing.T) {
	cfg := testJWTConfig()
	_, err := MintOperatorToken(cfg, time.Now(), OperatorTokenPayload{Role: enums.OperatorRoleAdmin})
	assert.Error(t, err, "missing subject")

	_, err = MintOperatorToken(cfg, time.Now(), OperatorTokenPayload{Subject: "x", Role: "customer"})
	assert.Error(t, err, "bad role")

	cfg.ExpirationMinutes = 0
	_, err = MintOperatorToken(cfg, time.Now(), OperatorTokenPayload{Subject: "x", Role: enums.OperatorRoleAdmin})
	assert.Error(t, err, "no ttl")
}
