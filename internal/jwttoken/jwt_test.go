package jwttoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "formgate/pkg/domain-errors"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := New("test-signing-key", "formgate")

	t.Run("round trip preserves claims", func(t *testing.T) {
		token, err := svc.Generate(42, "admin", time.Hour)
		require.NoError(t, err)

		claims, err := svc.Validate(token)
		require.NoError(t, err)
		assert.Equal(t, int64(42), claims.AccountID)
		assert.Equal(t, "admin", claims.Role)
		assert.Equal(t, "formgate", claims.Issuer)
	})

	t.Run("expired token is unauthorized", func(t *testing.T) {
		token, err := svc.Generate(42, "admin", -time.Minute)
		require.NoError(t, err)

		_, err = svc.Validate(token)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
		assert.Contains(t, err.Error(), "expired")
	})

	t.Run("wrong signing key is rejected", func(t *testing.T) {
		other := New("different-key", "formgate")
		token, err := other.Generate(42, "admin", time.Hour)
		require.NoError(t, err)

		_, err = svc.Validate(token)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("garbage is rejected", func(t *testing.T) {
		_, err := svc.Validate("not.a.token")
		assert.Error(t, err)
	})
}
