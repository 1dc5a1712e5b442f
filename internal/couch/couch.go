package couch

import (
	"fmt"
	"net/http"
	"strings"

	kivik "github.com/go-kivik/kivik/v4"
	couchdb "github.com/go-kivik/kivik/v4/couchdb"

	apperrors "github.com/tractdb/tractdb-server/internal/errors"
)

const (
	dbPrefix       = "tractdb_"
	userPrefix     = "tractdb_user_"
	tempUserPrefix = "tractdb_temp_"
	usersDB        = "_users"
	userDocPrefix  = "org.couchdb.user:"
)

// DatabaseName returns the isolated database backing an account.
func DatabaseName(account string) string {
	return dbPrefix + strings.ToLower(account)
}

// UserName returns the CouchDB user owning an account database.
func UserName(account string) string {
	return userPrefix + strings.ToLower(account)
}

// AccountFromDatabase is the inverse of DatabaseName, or "" if the
// database is not an account database. Owner and session users exist
// only as _users documents, never as databases, so every tractdb_
// database belongs to an account, including accounts whose names start
// with user_ or temp_.
func AccountFromDatabase(dbName string) string {
	if !strings.HasPrefix(dbName, dbPrefix) {
		return ""
	}
	return strings.TrimPrefix(dbName, dbPrefix)
}

func userDocID(name string) string {
	return userDocPrefix + name
}

func dial(couchURL, user, password string) (*kivik.Client, error) {
	client, err := kivik.New("couch", couchURL, couchdb.BasicAuth(user, password))
	if err != nil {
		return nil, fmt.Errorf("dial couchdb: %w", err)
	}
	return client, nil
}

// mapError translates a CouchDB error into the service taxonomy. The
// backing store is the arbiter of conflicts: a 409 from it is surfaced
// as-is, never retried.
func mapError(err error, resource string) error {
	if err == nil {
		return nil
	}
	switch kivik.HTTPStatus(err) {
	case http.StatusNotFound:
		return apperrors.NotFound(resource).WithCause(err)
	case http.StatusConflict, http.StatusPreconditionFailed:
		return apperrors.Conflict(fmt.Sprintf("%s revision conflict or already exists", resource)).WithCause(err)
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperrors.AuthenticationFailed().WithCause(err)
	default:
		return apperrors.Upstream("couchdb", err)
	}
}

func isNotFound(err error) bool {
	return kivik.HTTPStatus(err) == http.StatusNotFound
}
