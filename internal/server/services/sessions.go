package services

import (
	"context"
	"crypto/subtle"
	"errors"

	"github.com/dmitrijs2005/accounthub/internal/common"
	"github.com/dmitrijs2005/accounthub/internal/server/auth"
	"github.com/dmitrijs2005/accounthub/internal/server/metrics"
	"github.com/dmitrijs2005/accounthub/internal/server/models"
)

// Login authenticates by username or email. When both are given the
// username match wins. On success the new refresh token becomes the only
// valid one for the account.
func (s *AccountService) Login(ctx context.Context, username, email, password string) (*models.Session, error) {
	username, email = normalize(username), normalize(email)
	if username == "" && email == "" {
		return nil, invalid("username or email is required")
	}

	repo := s.repomanager.Accounts(s.db)

	acc, err := repo.FindByUsernameOrEmail(ctx, username, email)
	if err != nil {
		s.metrics.Login(metrics.ResultFailure)
		return nil, s.accountError(ctx, "login lookup failed", err, common.ErrAccountNotFound)
	}

	if !s.hasher.Verify(password, acc.PasswordHash) {
		s.metrics.Login(metrics.ResultFailure)
		return nil, common.ErrInvalidCredentials
	}

	pair, err := s.issuer.IssuePair(acc)
	if err != nil {
		return nil, s.internal(ctx, "issue tokens", err)
	}

	if err := repo.UpdateRefreshToken(ctx, acc.ID, pair.RefreshToken); err != nil {
		return nil, s.internal(ctx, "store refresh token", err)
	}

	s.metrics.Login(metrics.ResultSuccess)
	s.logger.Info(ctx, "account logged in", "account_id", acc.ID)

	return &models.Session{TokenPair: *pair, Account: acc.Public()}, nil
}

// Refresh rotates the presented refresh token. A token that is validly signed
// but no longer the stored one has already been rotated or revoked.
func (s *AccountService) Refresh(ctx context.Context, presented string) (*models.TokenPair, error) {
	if presented == "" {
		return nil, common.ErrUnauthenticated
	}

	claims, err := s.issuer.Verify(presented, auth.RefreshToken)
	if err != nil {
		s.metrics.Refresh(metrics.ResultFailure)
		return nil, err
	}

	repo := s.repomanager.Accounts(s.db)

	acc, err := repo.FindByID(ctx, claims.AccountID())
	if err != nil {
		s.metrics.Refresh(metrics.ResultFailure)
		return nil, s.accountError(ctx, "refresh lookup failed", err, common.ErrInvalidToken)
	}

	if subtle.ConstantTimeCompare([]byte(presented), []byte(acc.RefreshToken)) != 1 {
		s.metrics.Refresh(metrics.ResultReused)
		s.logger.Warn(ctx, "stale refresh token presented", "account_id", acc.ID)
		return nil, common.ErrRefreshTokenReused
	}

	pair, err := s.issuer.IssuePair(acc)
	if err != nil {
		return nil, s.internal(ctx, "issue tokens", err)
	}

	swapped, err := repo.SwapRefreshToken(ctx, acc.ID, presented, pair.RefreshToken)
	if err != nil {
		return nil, s.internal(ctx, "rotate refresh token", err)
	}
	if !swapped {
		// a concurrent refresh with the same token got there first
		s.metrics.Refresh(metrics.ResultReused)
		return nil, common.ErrRefreshTokenReused
	}

	s.metrics.Refresh(metrics.ResultSuccess)
	return pair, nil
}

// Logout revokes the stored refresh token. Repeating it is harmless.
func (s *AccountService) Logout(ctx context.Context, accountID string) error {
	if err := s.repomanager.Accounts(s.db).UpdateRefreshToken(ctx, accountID, ""); err != nil {
		return s.internal(ctx, "revoke refresh token", err)
	}
	s.logger.Info(ctx, "account logged out", "account_id", accountID)
	return nil
}

// Authenticate resolves an access token to the account it was issued for.
func (s *AccountService) Authenticate(ctx context.Context, accessToken string) (*models.PublicAccount, error) {
	if accessToken == "" {
		return nil, common.ErrUnauthenticated
	}

	claims, err := s.issuer.Verify(accessToken, auth.AccessToken)
	if err != nil {
		return nil, err
	}

	acc, err := s.repomanager.Accounts(s.db).FindByID(ctx, claims.AccountID())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, s.internal(ctx, "authenticate lookup failed", err)
	}

	return acc.Public(), nil
}
