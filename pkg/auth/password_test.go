package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zipfood/reset-api/pkg/auth"
)

func TestHashAndComparePassword(t *testing.T) {
	hash, err := auth.HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	assert.NoError(t, auth.ComparePassword(hash, "correct horse"))
	assert.Error(t, auth.ComparePassword(hash, "wrong horse"))
}

func TestHashPassword_RejectsEmpty(t *testing.T) {
	_, err := auth.HashPassword("")
	assert.Error(t, err)
}

func TestValidatePassword(t *testing.T) {
	assert.Error(t, auth.ValidatePassword("12345"))
	assert.NoError(t, auth.ValidatePassword("123456"))
	assert.Error(t, auth.ValidatePassword(string(make([]byte, 129))))
}
