// Package services contains server-side business logic. AccountService owns
// the credential and session lifecycle of an account: registration, login,
// token rotation, logout and profile changes, including the media files that
// hang off a profile.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/accounthub/internal/common"
	"github.com/dmitrijs2005/accounthub/internal/logging"
	"github.com/dmitrijs2005/accounthub/internal/server/auth"
	"github.com/dmitrijs2005/accounthub/internal/server/config"
	"github.com/dmitrijs2005/accounthub/internal/server/metrics"
	"github.com/dmitrijs2005/accounthub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/accounthub/internal/server/uploads"
)

type AccountService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      *auth.PasswordHasher
	issuer      *auth.Issuer
	uploads     *uploads.Manager
	logger      logging.Logger
	metrics     *metrics.Metrics
}

// Option tweaks an AccountService at construction time.
type Option func(*serviceOptions)

type serviceOptions struct {
	issuerOpts []auth.IssuerOption
}

// WithTokenClock makes the token issuer read time from now.
func WithTokenClock(now func() time.Time) Option {
	return func(o *serviceOptions) {
		o.issuerOpts = append(o.issuerOpts, auth.WithClock(now))
	}
}

func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config,
	up *uploads.Manager, logger logging.Logger, mt *metrics.Metrics, opts ...Option) *AccountService {

	var o serviceOptions
	for _, fn := range opts {
		fn(&o)
	}

	issuer := auth.NewIssuer(
		auth.KeyConfig{Secret: []byte(cfg.AccessTokenSecret), TTL: cfg.AccessTokenValidityDuration},
		auth.KeyConfig{Secret: []byte(cfg.RefreshTokenSecret), TTL: cfg.RefreshTokenValidityDuration},
		o.issuerOpts...,
	)

	return &AccountService{
		db:          db,
		repomanager: m,
		hasher:      auth.NewPasswordHasher(cfg.BcryptCost),
		issuer:      issuer,
		uploads:     up,
		logger:      logger.With("module", "accounts"),
		metrics:     mt,
	}
}

// internal logs err and hides it behind common.ErrorInternal.
func (s *AccountService) internal(ctx context.Context, msg string, err error) error {
	s.logger.Error(ctx, msg, "error", err)
	return common.ErrorInternal
}

// accountError maps repository lookups that found nothing to notFound and
// passes taxonomy errors through. Anything else is internal.
func (s *AccountService) accountError(ctx context.Context, msg string, err error, notFound error) error {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return notFound
	case errors.Is(err, common.ErrDuplicateAccount):
		return common.ErrDuplicateAccount
	default:
		return s.internal(ctx, msg, err)
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", common.ErrValidation, fmt.Sprintf(format, args...))
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
