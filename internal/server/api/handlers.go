package api

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/dmitrijs2005/accounthub/internal/common"
	"github.com/dmitrijs2005/accounthub/internal/server/models"
	"github.com/dmitrijs2005/accounthub/internal/server/services"
	"github.com/dmitrijs2005/accounthub/internal/server/uploads"
	"github.com/labstack/echo/v4"
)

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type updateAccountRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return fmt.Errorf("%w: malformed request body", common.ErrValidation)
	}
	return nil
}

// formFile returns the named part, or nil when the client did not send it.
func formFile(c echo.Context, field string) (*multipart.FileHeader, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %s: %v", common.ErrValidation, field, err)
	}
	return fh, nil
}

func (s *HTTPServer) stageField(c echo.Context, field string) (*uploads.Artifact, error) {
	fh, err := formFile(c, field)
	if err != nil {
		return nil, err
	}
	a, err := s.stager.Stage(fh)
	if err != nil {
		return nil, fmt.Errorf("stage %s: %w", field, err)
	}
	return a, nil
}

func cleanupMultipart(c echo.Context) {
	if f := c.Request().MultipartForm; f != nil {
		_ = f.RemoveAll()
	}
}

func (s *HTTPServer) register(c echo.Context) error {
	defer cleanupMultipart(c)

	avatar, err := s.stageField(c, "avatar")
	if err != nil {
		return err
	}
	cover, err := s.stageField(c, "coverImage")
	if err != nil {
		s.stager.Discard(avatar)
		return err
	}

	acc, err := s.accounts.Register(c.Request().Context(), services.RegisterInput{
		FullName:   c.FormValue("fullName"),
		Username:   c.FormValue("username"),
		Email:      c.FormValue("email"),
		Password:   c.FormValue("password"),
		Avatar:     avatar,
		CoverImage: cover,
	})
	if err != nil {
		return err
	}

	return respond(c, http.StatusCreated, acc, "User registered successfully")
}

func (s *HTTPServer) login(c echo.Context) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	session, err := s.accounts.Login(c.Request().Context(), req.Username, req.Email, req.Password)
	if err != nil {
		return err
	}

	s.setSessionCookies(c, &session.TokenPair)
	return respond(c, http.StatusOK, session, "User logged in successfully")
}

func (s *HTTPServer) refreshToken(c echo.Context) error {
	var token string
	if ck, err := c.Cookie(common.RefreshTokenCookieName); err == nil {
		token = ck.Value
	}
	if token == "" {
		var req refreshRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		token = req.RefreshToken
	}

	pair, err := s.accounts.Refresh(c.Request().Context(), token)
	if err != nil {
		return err
	}

	s.setSessionCookies(c, pair)
	return respond(c, http.StatusOK, pair, "Access token refreshed")
}

func (s *HTTPServer) logout(c echo.Context) error {
	acc, err := currentAccount(c)
	if err != nil {
		return err
	}

	if err := s.accounts.Logout(c.Request().Context(), acc.ID); err != nil {
		return err
	}

	s.clearSessionCookies(c)
	return respond(c, http.StatusOK, struct{}{}, "User logged out")
}

func (s *HTTPServer) changePassword(c echo.Context) error {
	acc, err := currentAccount(c)
	if err != nil {
		return err
	}

	var req changePasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := s.accounts.ChangePassword(c.Request().Context(), acc.ID, req.OldPassword, req.NewPassword); err != nil {
		return err
	}
	return respond(c, http.StatusOK, struct{}{}, "Password changed successfully")
}

func (s *HTTPServer) currentUser(c echo.Context) error {
	acc, err := currentAccount(c)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, acc, "User fetched successfully")
}

func (s *HTTPServer) updateAccount(c echo.Context) error {
	acc, err := currentAccount(c)
	if err != nil {
		return err
	}

	var req updateAccountRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	updated, err := s.accounts.UpdateDetails(c.Request().Context(), acc.ID, req.FullName, req.Email)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, updated, "Account details updated successfully")
}

func (s *HTTPServer) updateAvatar(c echo.Context) error {
	return s.replaceMedia(c, "avatar", s.accounts.UpdateAvatar, "Avatar image updated successfully")
}

func (s *HTTPServer) updateCoverImage(c echo.Context) error {
	return s.replaceMedia(c, "coverImage", s.accounts.UpdateCoverImage, "Cover image updated successfully")
}

type mediaUpdater func(ctx context.Context, accountID string, a *uploads.Artifact) (*models.PublicAccount, error)

func (s *HTTPServer) replaceMedia(c echo.Context, field string, update mediaUpdater, message string) error {
	defer cleanupMultipart(c)

	acc, err := currentAccount(c)
	if err != nil {
		return err
	}

	a, err := s.stageField(c, field)
	if err != nil {
		return err
	}
	if a == nil {
		return common.ErrUploadRequired
	}

	updated, err := update(c.Request().Context(), acc.ID, a)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, updated, message)
}
