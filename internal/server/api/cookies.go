package api

import (
	"net/http"

	"github.com/dmitrijs2005/accounthub/internal/common"
	"github.com/dmitrijs2005/accounthub/internal/server/models"
	"github.com/labstack/echo/v4"
)

func (s *HTTPServer) cookie(name, value string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}

func (s *HTTPServer) setSessionCookies(c echo.Context, pair *models.TokenPair) {
	c.SetCookie(s.cookie(common.AccessTokenCookieName, pair.AccessToken))
	c.SetCookie(s.cookie(common.RefreshTokenCookieName, pair.RefreshToken))
}

func (s *HTTPServer) clearSessionCookies(c echo.Context) {
	for _, name := range []string{common.AccessTokenCookieName, common.RefreshTokenCookieName} {
		ck := s.cookie(name, "")
		ck.MaxAge = -1
		c.SetCookie(ck)
	}
}
