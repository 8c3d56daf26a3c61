package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		errMsg   string
		wantErr  bool
	}{
		{
			name:     "successful hash",
			password: "rahasia123",
		},
		{
			name:     "empty password",
			password: "",
			wantErr:  true,
			errMsg:   "password cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := HashPassword(tt.password)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				assert.Empty(t, hash)
				return
			}

			require.NoError(t, err)
			assert.NotEqual(t, tt.password, hash)
			assert.NoError(t, VerifyPassword(tt.password, hash))
		})
	}
}

func TestHashPassword_Salted(t *testing.T) {
	h1, err := HashPassword("rahasia123")
	require.NoError(t, err)
	h2, err := HashPassword("rahasia123")
	require.NoError(t, err)

	// bcrypt использует случайную соль
	assert.NotEqual(t, h1, h2)
}

func TestVerifyPassword(t *testing.T) {
	hash, err := HashPassword("rahasia123")
	require.NoError(t, err)

	tests := []struct {
		wantErr  error
		name     string
		password string
		hash     string
		anyErr   bool
	}{
		{name: "correct password", password: "rahasia123", hash: hash},
		{name: "wrong password", password: "salah", hash: hash, wantErr: ErrPasswordMismatch},
		{name: "empty hash", password: "rahasia123", hash: "", anyErr: true},
		{name: "malformed hash", password: "rahasia123", hash: "not-a-bcrypt-hash", anyErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifyPassword(tt.password, tt.hash)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.anyErr:
				require.Error(t, err)
				assert.NotErrorIs(t, err, ErrPasswordMismatch)
			default:
				assert.NoError(t, err)
			}
		})
	}
}
