package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHash_RoundTrip(t *testing.T) {
	for _, pw := range []string{"password123", "p@ssw0rd!@#$%^&*()", "short"} {
		hash, err := GetHash(pw)
		require.NoError(t, err)
		assert.NotEqual(t, pw, hash)
		assert.NoError(t, CompareHash(hash, pw))
	}
}

func TestCompareHash(t *testing.T) {
	hash, err := GetHash("correct_password")
	require.NoError(t, err)

	tests := []struct {
		name     string
		hash     string
		password string
		wantErr  error
	}{
		{name: "wrong password", hash: hash, password: "wrong_password", wantErr: ErrMismatch},
		{name: "empty password", hash: hash, password: "", wantErr: ErrMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, CompareHash(tt.hash, tt.password), tt.wantErr)
		})
	}

	t.Run("broken hash", func(t *testing.T) {
		err := CompareHash("not-a-bcrypt-hash", "whatever")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrMismatch)
	})
}

func TestGetHash_Salted(t *testing.T) {
	h1, err := GetHash("same")
	require.NoError(t, err)
	h2, err := GetHash("same")
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}
