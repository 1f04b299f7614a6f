package subsonic

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"testing"

	"lms/internal/catalog"
	"lms/internal/ids"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPepper = "unit-test-pepper"

func openAuthStore(t *testing.T) *catalog.Store {
	t.Helper()
	store, err := catalog.Open(catalog.Options{Path: ":memory:", Debug: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedUser(t *testing.T, store *catalog.Store, loginName, password string) ids.Id[ids.UserKind] {
	t.Helper()
	hash, err := EncryptPassword(testPepper, password)
	require.NoError(t, err)

	var userID ids.Id[ids.UserKind]
	sess, release, err := store.Pool().Borrow(context.Background())
	require.NoError(t, err)
	defer release()
	require.NoError(t, sess.WriteTransaction(context.Background(), func(tx *catalog.Tx) error {
		u := &catalog.User{LoginName: loginName, PasswordHash: hash, Type: catalog.UserRegular}
		if err := catalog.CreateUser(tx, u); err != nil {
			return err
		}
		userID = u.ID
		return nil
	}))
	return userID
}

func resolve(t *testing.T, store *catalog.Store, creds Credentials) (ids.Id[ids.UserKind], AuthOutcome) {
	t.Helper()
	cfg := AuthConfig{Pepper: testPepper, SupportPasswordAuth: true}

	var userID ids.Id[ids.UserKind]
	var outcome AuthOutcome
	sess, release, err := store.Pool().Borrow(context.Background())
	require.NoError(t, err)
	defer release()
	require.NoError(t, sess.ReadTransaction(context.Background(), func(tx *catalog.Tx) error {
		id, out, err := ResolveCredentials(context.Background(), tx, cfg, creds)
		userID, outcome = id, out
		return err
	}))
	return userID, outcome
}

func TestPasswordEncryptionRoundTrip(t *testing.T) {
	stored, err := EncryptPassword(testPepper, "opensesame")
	require.NoError(t, err)
	assert.NotEqual(t, "opensesame", stored)

	plain, err := DecryptPassword(testPepper, stored)
	require.NoError(t, err)
	assert.Equal(t, "opensesame", plain)

	_, err = DecryptPassword("wrong-pepper", stored)
	assert.Error(t, err)
}

func TestResolveCredentialsPassword(t *testing.T) {
	store := openAuthStore(t)
	wantID := seedUser(t, store, "alice", "opensesame")

	gotID, outcome := resolve(t, store, Credentials{Username: "alice", Password: "opensesame"})
	assert.Equal(t, AuthOK, outcome)
	assert.Equal(t, wantID, gotID)

	_, outcome = resolve(t, store, Credentials{Username: "alice", Password: "wrong"})
	assert.Equal(t, AuthWrongUsernameOrPassword, outcome)

	_, outcome = resolve(t, store, Credentials{Username: "nobody", Password: "opensesame"})
	assert.Equal(t, AuthWrongUsernameOrPassword, outcome)
}

func TestResolveCredentialsToken(t *testing.T) {
	store := openAuthStore(t)
	wantID := seedUser(t, store, "alice", "opensesame")

	salt := "c19b2d"
	sum := md5.Sum([]byte("opensesame" + salt))
	token := hex.EncodeToString(sum[:])

	gotID, outcome := resolve(t, store, Credentials{Username: "alice", Token: token, Salt: salt})
	assert.Equal(t, AuthOK, outcome)
	assert.Equal(t, wantID, gotID)

	_, outcome = resolve(t, store, Credentials{Username: "alice", Token: token, Salt: "different"})
	assert.Equal(t, AuthWrongUsernameOrPassword, outcome)
}

func TestResolveCredentialsRefusesConflictingMechanisms(t *testing.T) {
	store := openAuthStore(t)
	seedUser(t, store, "alice", "opensesame")

	_, outcome := resolve(t, store, Credentials{Username: "alice", Password: "opensesame", Token: "ab", Salt: "cd"})
	assert.Equal(t, AuthConflictingMechanisms, outcome)

	_, outcome = resolve(t, store, Credentials{})
	assert.Equal(t, AuthMechanismNotSupported, outcome)
}

func TestResolveCredentialsAPIKey(t *testing.T) {
	store := openAuthStore(t)
	wantID := seedUser(t, store, "alice", "opensesame")

	key, err := IssueAPIKey(testPepper, "alice")
	require.NoError(t, err)

	gotID, outcome := resolve(t, store, Credentials{APIKey: key})
	assert.Equal(t, AuthOK, outcome)
	assert.Equal(t, wantID, gotID)

	_, outcome = resolve(t, store, Credentials{APIKey: "not-a-key"})
	assert.Equal(t, AuthInvalidAPIKey, outcome)

	strangerKey, err := IssueAPIKey(testPepper, "nobody")
	require.NoError(t, err)
	_, outcome = resolve(t, store, Credentials{APIKey: strangerKey})
	assert.Equal(t, AuthInvalidAPIKey, outcome)

	wrongPepperKey, err := IssueAPIKey("other-pepper", "alice")
	require.NoError(t, err)
	_, outcome = resolve(t, store, Credentials{APIKey: wrongPepperKey})
	assert.Equal(t, AuthInvalidAPIKey, outcome)

	// An api key names its own user; passing u alongside it is refused.
	_, outcome = resolve(t, store, Credentials{Username: "alice", APIKey: key})
	assert.Equal(t, AuthConflictingMechanisms, outcome)
}
