package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tractdb/tractdb-server/internal/couch"
	apperrors "github.com/tractdb/tractdb-server/internal/errors"
	"github.com/tractdb/tractdb-server/internal/model"
	"github.com/tractdb/tractdb-server/internal/session"
)

// AuthService owns the login/logout lifecycle. It is the only component
// besides account management that holds the privileged Provisioner; what
// it hands out to the rest of a request is a session with scoped,
// freshly minted backing-store credentials.
type AuthService struct {
	couchURL    string
	provisioner *couch.Provisioner
	sessions    *session.Store
}

func NewAuthService(couchURL string, provisioner *couch.Provisioner, sessions *session.Store) *AuthService {
	return &AuthService{
		couchURL:    couchURL,
		provisioner: provisioner,
		sessions:    sessions,
	}
}

// Login verifies the account password against the backing store, mints a
// scoped database credential and stores it server-side. The returned
// token is the only thing the client ever holds. Failures do not reveal
// whether the account exists.
func (s *AuthService) Login(ctx context.Context, account, password string) (string, error) {
	if account == "" || password == "" {
		return "", apperrors.AuthenticationFailed()
	}

	if err := s.provisioner.VerifyPassword(ctx, account, password); err != nil {
		return "", apperrors.AuthenticationFailed()
	}

	couchUser, couchPassword, err := s.provisioner.MintSessionUser(ctx, account)
	if err != nil {
		return "", err
	}

	token, err := s.sessions.Create(ctx, model.SessionData{
		Account:       account,
		CouchUser:     couchUser,
		CouchPassword: couchPassword,
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		// Do not leave a live credential behind a session that was
		// never established.
		if revokeErr := s.provisioner.DeleteSessionUser(ctx, couchUser); revokeErr != nil {
			log.Error().Err(revokeErr).Str("couchUser", couchUser).Msg("failed to revoke minted credential")
		}
		return "", err
	}

	return token, nil
}

// Logout invalidates the session and revokes its minted credential.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	data, err := s.sessions.Delete(ctx, token)
	if err != nil {
		return err
	}
	if err := s.provisioner.DeleteSessionUser(ctx, data.CouchUser); err != nil {
		log.Error().Err(err).Str("couchUser", data.CouchUser).Msg("failed to revoke minted credential")
	}
	return nil
}

// Resolve looks up the session for a token.
func (s *AuthService) Resolve(ctx context.Context, token string) (*model.SessionData, error) {
	return s.sessions.Get(ctx, token)
}

// StoreFor opens the document gateway for a session's account using the
// credentials minted at login. Credentials are never re-derived here.
func (s *AuthService) StoreFor(data *model.SessionData) (couch.Store, error) {
	return couch.DialStore(s.couchURL, data.CouchUser, data.CouchPassword, data.Account)
}
