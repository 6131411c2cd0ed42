package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"valid", "Str0ng!pass", false},
		{"too short", "S1!a", true},
		{"no uppercase", "str0ng!pass", true},
		{"no lowercase", "STR0NG!PASS", true},
		{"no digit", "Strong!pass", true},
		{"no symbol", "Str0ngpass", true},
		{"denylisted", "password", true},
		{"denylisted case-insensitive", "Password123", false}, // not on list verbatim
		{"common weak", "letmein", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				require.Error(t, err)
				var weak *WeakSecretError
				assert.ErrorAs(t, err, &weak)
				assert.NotEmpty(t, weak.Reasons)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePasswordCollectsAllReasons(t *testing.T) {
	err := ValidatePassword("abc")
	var weak *WeakSecretError
	require.ErrorAs(t, err, &weak)
	// short, no upper, no digit, no symbol
	assert.Len(t, weak.Reasons, 4)
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("Str0ng!pass")
	require.NoError(t, err)
	assert.NotContains(t, hash, "Str0ng!pass")

	assert.NoError(t, CheckPassword(hash, "Str0ng!pass"))
	assert.ErrorIs(t, CheckPassword(hash, "wrong-secret"), ErrAuthFailed)
}

func TestCheckPasswordDoesNotDistinguishUnknownAccount(t *testing.T) {
	hash, err := HashPassword("Str0ng!pass")
	require.NoError(t, err)

	wrongSecret := CheckPassword(hash, "wrong-secret")
	unknownAccount := CheckPassword("", "wrong-secret")

	// Both paths collapse to the same generic failure.
	assert.ErrorIs(t, wrongSecret, ErrAuthFailed)
	assert.ErrorIs(t, unknownAccount, ErrAuthFailed)
	assert.Equal(t, wrongSecret, unknownAccount)
}
