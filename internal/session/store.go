package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/tractdb/tractdb-server/internal/errors"
	"github.com/tractdb/tractdb-server/internal/model"
	"github.com/tractdb/tractdb-server/internal/util"
)

const (
	sessionKeyPrefix   = "session:"
	couchUserKeyPrefix = "couchuser:"
)

// Store keeps session state server-side in redis. Tokens handed to
// clients are never stored directly; keys are derived via HMAC with the
// session secret. The couchuser:* keys mirror each session's minted
// CouchDB user so the credential sweeper can tell live credentials from
// orphaned ones.
type Store struct {
	client *redis.Client
	secret string
	ttl    time.Duration
}

func NewStore(client *redis.Client, secret string, ttl time.Duration) *Store {
	return &Store{client: client, secret: secret, ttl: ttl}
}

// Create mints a session token for the given state and stores the state
// under the hashed token with the configured TTL.
func (s *Store) Create(ctx context.Context, data model.SessionData) (token string, err error) {
	token, err = util.GenerateToken()
	if err != nil {
		return "", apperrors.Internal("generate session token").WithCause(err)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return "", apperrors.Internal("encode session").WithCause(err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(token), raw, s.ttl)
	pipe.Set(ctx, couchUserKey(data.CouchUser), data.Account, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", apperrors.Internal("store session").WithCause(err)
	}
	return token, nil
}

// Get resolves a session token. A missing or expired session is a
// NoSession error, not an authentication failure.
func (s *Store) Get(ctx context.Context, token string) (*model.SessionData, error) {
	raw, err := s.client.Get(ctx, s.key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.NoSession()
	}
	if err != nil {
		return nil, apperrors.Internal("load session").WithCause(err)
	}

	var data model.SessionData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, apperrors.Internal("decode session").WithCause(err)
	}
	return &data, nil
}

// Delete invalidates a session. Returns the state that was stored so the
// caller can revoke the minted credential. GETDEL claims the session
// atomically: of two concurrent logouts, exactly one gets the state and
// revokes the credential, the other sees NoSession.
func (s *Store) Delete(ctx context.Context, token string) (*model.SessionData, error) {
	raw, err := s.client.GetDel(ctx, s.key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.NoSession()
	}
	if err != nil {
		return nil, apperrors.Internal("delete session").WithCause(err)
	}

	var data model.SessionData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, apperrors.Internal("decode session").WithCause(err)
	}

	if err := s.client.Del(ctx, couchUserKey(data.CouchUser)).Err(); err != nil {
		return nil, apperrors.Internal("delete session").WithCause(err)
	}
	return &data, nil
}

// CouchUserLive reports whether a minted CouchDB user still belongs to a
// live session.
func (s *Store) CouchUserLive(ctx context.Context, couchUser string) (bool, error) {
	_, err := s.client.Get(ctx, couchUserKey(couchUser)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) key(token string) string {
	return sessionKeyPrefix + util.HmacSHA256(s.secret, token)
}

func couchUserKey(couchUser string) string {
	return fmt.Sprintf("%s%s", couchUserKeyPrefix, couchUser)
}
