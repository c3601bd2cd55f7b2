package services

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/accounthub/internal/common"
	"github.com/dmitrijs2005/accounthub/internal/dbx"
	"github.com/dmitrijs2005/accounthub/internal/server/models"
	"github.com/dmitrijs2005/accounthub/internal/server/uploads"
	"golang.org/x/crypto/bcrypt"
)

// RegisterInput carries a registration form. Avatar is required; CoverImage
// is optional.
type RegisterInput struct {
	FullName   string
	Username   string
	Email      string
	Password   string
	Avatar     *uploads.Artifact
	CoverImage *uploads.Artifact
}

// Register creates an account. Staged files are always released; files that
// reached the media store are removed again if the account is not created.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*models.PublicAccount, error) {
	defer s.uploads.Discard(in.Avatar)
	defer s.uploads.Discard(in.CoverImage)

	acc := &models.Account{
		FullName: strings.TrimSpace(in.FullName),
		Username: normalize(in.Username),
		Email:    normalize(in.Email),
	}
	if acc.FullName == "" || acc.Username == "" || acc.Email == "" || strings.TrimSpace(in.Password) == "" {
		return nil, invalid("all fields are required")
	}

	hash, err := s.hashPassword(ctx, in.Password)
	if err != nil {
		return nil, err
	}
	acc.PasswordHash = hash

	repo := s.repomanager.Accounts(s.db)

	_, err = repo.FindByUsernameOrEmail(ctx, acc.Username, acc.Email)
	switch {
	case err == nil:
		return nil, common.ErrDuplicateAccount
	case !errors.Is(err, common.ErrorNotFound):
		return nil, s.internal(ctx, "registration lookup failed", err)
	}

	if in.Avatar == nil {
		return nil, common.ErrUploadRequired
	}

	avatar := s.uploads.Commit(ctx, in.Avatar)
	if avatar == nil {
		return nil, common.ErrUploadFailed
	}
	acc.Avatar = avatar.URL

	if cover := s.uploads.Commit(ctx, in.CoverImage); cover != nil {
		acc.CoverImage = cover.URL
	}

	created, err := repo.Create(ctx, acc)
	if err != nil {
		s.uploads.Rollback(ctx, acc.Avatar)
		if acc.CoverImage != "" {
			s.uploads.Rollback(ctx, acc.CoverImage)
		}
		return nil, s.accountError(ctx, "create account", err, common.ErrorInternal)
	}

	s.logger.Info(ctx, "account registered", "account_id", created.ID, "username", created.Username)
	return created.Public(), nil
}

func (s *AccountService) hashPassword(ctx context.Context, plain string) (string, error) {
	hash, err := s.hasher.Hash(plain)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", invalid("password is too long")
		}
		return "", s.internal(ctx, "hash password", err)
	}
	return hash, nil
}

// ChangePassword replaces the password after checking the current one.
// Existing sessions are left alone.
func (s *AccountService) ChangePassword(ctx context.Context, accountID, oldPassword, newPassword string) error {
	if strings.TrimSpace(newPassword) == "" {
		return invalid("new password is required")
	}

	repo := s.repomanager.Accounts(s.db)

	acc, err := repo.FindByID(ctx, accountID)
	if err != nil {
		return s.accountError(ctx, "change password lookup failed", err, common.ErrAccountNotFound)
	}

	if !s.hasher.Verify(oldPassword, acc.PasswordHash) {
		return common.ErrInvalidCredentials
	}

	hash, err := s.hashPassword(ctx, newPassword)
	if err != nil {
		return err
	}

	if err := repo.UpdatePasswordHash(ctx, accountID, hash); err != nil {
		return s.accountError(ctx, "store password", err, common.ErrAccountNotFound)
	}
	return nil
}

// UpdateDetails changes the full name and email of an account.
func (s *AccountService) UpdateDetails(ctx context.Context, accountID, fullName, email string) (*models.PublicAccount, error) {
	fullName, email = strings.TrimSpace(fullName), normalize(email)
	if fullName == "" || email == "" {
		return nil, invalid("all fields are required")
	}

	acc, err := s.repomanager.Accounts(s.db).UpdateFields(ctx, accountID, models.AccountUpdate{
		FullName: &fullName,
		Email:    &email,
	})
	if err != nil {
		return nil, s.accountError(ctx, "update account", err, common.ErrAccountNotFound)
	}
	return acc.Public(), nil
}

// UpdateAvatar replaces the avatar. The previous file is removed from the
// media store once the new reference is saved.
func (s *AccountService) UpdateAvatar(ctx context.Context, accountID string, a *uploads.Artifact) (*models.PublicAccount, error) {
	return s.replaceMedia(ctx, accountID, a, func(acc *models.Account) *string { return &acc.Avatar },
		func(url *string) models.AccountUpdate { return models.AccountUpdate{Avatar: url} })
}

// UpdateCoverImage replaces the cover image the same way UpdateAvatar does.
func (s *AccountService) UpdateCoverImage(ctx context.Context, accountID string, a *uploads.Artifact) (*models.PublicAccount, error) {
	return s.replaceMedia(ctx, accountID, a, func(acc *models.Account) *string { return &acc.CoverImage },
		func(url *string) models.AccountUpdate { return models.AccountUpdate{CoverImage: url} })
}

func (s *AccountService) replaceMedia(ctx context.Context, accountID string, a *uploads.Artifact,
	field func(*models.Account) *string, update func(*string) models.AccountUpdate) (*models.PublicAccount, error) {

	if a == nil {
		return nil, common.ErrUploadRequired
	}

	obj := s.uploads.Commit(ctx, a)
	if obj == nil {
		return nil, common.ErrUploadFailed
	}

	var (
		previous string
		updated  *models.Account
	)
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Accounts(tx)

		current, err := repo.LockByID(ctx, accountID)
		if err != nil {
			return err
		}
		previous = *field(current)

		url := obj.URL
		updated, err = repo.UpdateFields(ctx, accountID, update(&url))
		return err
	})
	if err != nil {
		s.uploads.Rollback(ctx, obj.URL)
		return nil, s.accountError(ctx, "replace media", err, common.ErrAccountNotFound)
	}

	if previous != "" && previous != obj.URL {
		if !s.uploads.Rollback(ctx, previous) {
			s.logger.Debug(ctx, "previous media not removed", "url", previous)
		}
	}

	return updated.Public(), nil
}
