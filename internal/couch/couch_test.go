package couch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/tractdb/tractdb-server/internal/errors"
)

func TestDatabaseName(t *testing.T) {
	assert.Equal(t, "tractdb_family1", DatabaseName("family1"))
	assert.Equal(t, "tractdb_family1", DatabaseName("Family1"))
}

func TestUserName(t *testing.T) {
	assert.Equal(t, "tractdb_user_family1", UserName("family1"))
	assert.Equal(t, "tractdb_user_family1", UserName("FAMILY1"))
}

func TestAccountFromDatabase(t *testing.T) {
	t.Run("inverts DatabaseName", func(t *testing.T) {
		assert.Equal(t, "family1", AccountFromDatabase("tractdb_family1"))
	})

	t.Run("ignores non-account databases", func(t *testing.T) {
		assert.Equal(t, "", AccountFromDatabase("_users"))
		assert.Equal(t, "", AccountFromDatabase("other_db"))
	})

	t.Run("keeps accounts named like credential prefixes", func(t *testing.T) {
		assert.Equal(t, "user_x", AccountFromDatabase("tractdb_user_x"))
		assert.Equal(t, "temp_y", AccountFromDatabase("tractdb_temp_y"))
	})
}

func TestSessionUserAccount(t *testing.T) {
	assert.Equal(t, "family1", sessionUserAccount("tractdb_temp_family1_a1b2c3d4"))
	assert.Equal(t, "", sessionUserAccount("tractdb_temp_"))
	assert.Equal(t, "", sessionUserAccount("unrelated"))
}

func TestUserDocID(t *testing.T) {
	assert.Equal(t, "org.couchdb.user:tractdb_user_family1", userDocID("tractdb_user_family1"))
}

func TestMapError(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, mapError(nil, "document"))
	})

	t.Run("unknown errors map to upstream", func(t *testing.T) {
		err := mapError(errors.New("connection refused"), "document")
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeUpstream))
	})
}
