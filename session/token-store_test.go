package session_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sontara444/taskmanager-client/session"
)

func Test_FileTokenStore_Persists_Token_Across_Instances(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "token")
	store := session.NewFileTokenStore(path)
	assert.Empty(t, store.Token())

	require.NoError(t, store.Save("abc.def.ghi"))
	assert.Equal(t, "abc.def.ghi", store.Token())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	assert.Equal(t, "abc.def.ghi", session.NewFileTokenStore(path).Token())
}

func Test_FileTokenStore_Clear_Removes_File(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "token")
	store := session.NewFileTokenStore(path)
	require.NoError(t, store.Save("tok"))

	require.NoError(t, store.Clear())
	assert.Empty(t, store.Token())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, store.Clear(), "clearing twice is fine")
}

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, session.Claims{
		UserID:           "u1",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)},
	})
	s, err := token.SignedString([]byte("any"))
	require.NoError(t, err)
	return s
}

func Test_Expired_Reads_Exp_Claim_Without_Verifying(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, session.Expired(signed(t, now.Add(-time.Second)), now))
	assert.True(t, session.Expired(signed(t, now), now))
	assert.False(t, session.Expired(signed(t, now.Add(time.Hour)), now))
	assert.False(t, session.Expired("opaque", now), "non-JWT tokens never expire locally")

	claims, err := session.ParseClaims(signed(t, now))
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
}
