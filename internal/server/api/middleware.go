package api

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/accounthub/internal/common"
	"github.com/dmitrijs2005/accounthub/internal/server/models"
	"github.com/labstack/echo/v4"
)

type ctxKey string

const accountKey ctxKey = "account"

// AccountFromContext returns the account attached by the auth gate.
func AccountFromContext(ctx context.Context) (*models.PublicAccount, bool) {
	acc, ok := ctx.Value(accountKey).(*models.PublicAccount)
	return acc, ok && acc != nil
}

// accessToken reads the access token from the cookie, falling back to an
// Authorization header. The Bearer scheme is matched case-insensitively.
func accessToken(c echo.Context) string {
	if ck, err := c.Cookie(common.AccessTokenCookieName); err == nil && ck.Value != "" {
		return ck.Value
	}
	h := strings.TrimSpace(c.Request().Header.Get(common.AuthorizationHeaderName))
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func (s *HTTPServer) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()

		acc, err := s.accounts.Authenticate(req.Context(), accessToken(c))
		if err != nil {
			return err
		}

		c.SetRequest(req.WithContext(context.WithValue(req.Context(), accountKey, acc)))
		c.Set(string(accountKey), acc)
		return next(c)
	}
}

func currentAccount(c echo.Context) (*models.PublicAccount, error) {
	acc, ok := AccountFromContext(c.Request().Context())
	if !ok {
		return nil, common.ErrUnauthenticated
	}
	return acc, nil
}
