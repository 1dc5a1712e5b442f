package service

import (
	"context"

	"github.com/tractdb/tractdb-server/internal/couch"
	apperrors "github.com/tractdb/tractdb-server/internal/errors"
)

// AccountService is the provisioning surface: account CRUD and roles.
// Deleting an account cascades to its database and all its credentials.
type AccountService struct {
	provisioner *couch.Provisioner
}

func NewAccountService(provisioner *couch.Provisioner) *AccountService {
	return &AccountService{provisioner: provisioner}
}

func (s *AccountService) Create(ctx context.Context, account, password string) error {
	if account == "" {
		return apperrors.ValidationError("account is required")
	}
	if password == "" {
		return apperrors.ValidationError("password is required")
	}
	return s.provisioner.CreateAccount(ctx, account, password)
}

func (s *AccountService) List(ctx context.Context) ([]string, error) {
	return s.provisioner.ListAccounts(ctx)
}

func (s *AccountService) Delete(ctx context.Context, account string) error {
	return s.provisioner.DeleteAccount(ctx, account)
}

func (s *AccountService) ListRoles(ctx context.Context, account string) ([]string, error) {
	return s.provisioner.ListRoles(ctx, account)
}

func (s *AccountService) AddRole(ctx context.Context, account, role string) error {
	if role == "" {
		return apperrors.ValidationError("role is required")
	}
	return s.provisioner.AddRole(ctx, account, role)
}

func (s *AccountService) RemoveRole(ctx context.Context, account, role string) error {
	return s.provisioner.RemoveRole(ctx, account, role)
}
