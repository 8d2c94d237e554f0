package httpapi

import (
	"context"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clipstream/clipstream/internal/common"
	"github.com/clipstream/clipstream/internal/filex"
	"github.com/clipstream/clipstream/internal/server/models"
)

// Cookie names for the two bearer artifacts. Both are HttpOnly and Secure:
// never readable by client-side script, never sent over plaintext transport.
const (
	accessTokenCookie  = "accessToken"
	refreshTokenCookie = "refreshToken"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Fullname string `json:"fullname"`
}

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
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
}

func (s *Server) registerRoutes() {
	s.engine.GET("/ping", s.handlePing)

	users := s.engine.Group("/api/v1/users")
	users.POST("/register", s.handleRegister)
	users.POST("/login", s.handleLogin)
	users.POST("/refresh-token", s.handleRefresh)

	authed := users.Group("", s.requireAuth())
	authed.POST("/logout", s.handleLogout)
	authed.POST("/change-password", s.handleChangePassword)
	authed.GET("/current-user", s.handleCurrentUser)
	authed.PATCH("/update-account", s.handleUpdateAccount)
	authed.PATCH("/avatar", s.handleUpdateAvatar)
	authed.PATCH("/cover-image", s.handleUpdateCoverImage)
}

func (s *Server) handlePing(c *gin.Context) {
	respond(c, http.StatusOK, gin.H{"status": "OK"}, "pong")
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, common.NewError(common.ErrValidation, "invalid request body"))
		return
	}

	account, err := s.service.Register(c.Request.Context(), req.Username, req.Email, req.Password, req.Fullname)
	if err != nil {
		s.respondError(c, err)
		return
	}

	respond(c, http.StatusCreated, gin.H{"user": account}, "User registered successfully")
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, common.NewError(common.ErrValidation, "invalid request body"))
		return
	}

	identifier := req.Username
	if identifier == "" {
		identifier = req.Email
	}

	res, err := s.service.Login(c.Request.Context(), identifier, req.Password)
	if err != nil {
		s.respondError(c, err)
		return
	}

	s.setTokenCookies(c, res.Tokens.AccessToken, res.Tokens.RefreshToken)
	respond(c, http.StatusOK, gin.H{
		"user":         res.Account,
		"accessToken":  res.Tokens.AccessToken,
		"refreshToken": res.Tokens.RefreshToken,
	}, "User logged in successfully")
}

func (s *Server) handleLogout(c *gin.Context) {
	if err := s.service.Logout(c.Request.Context(), accountID(c)); err != nil {
		s.respondError(c, err)
		return
	}

	s.clearTokenCookies(c)
	respond(c, http.StatusOK, gin.H{}, "User logged out successfully")
}

func (s *Server) handleRefresh(c *gin.Context) {
	// cookie first, request body as fallback for non-browser clients
	presented, _ := c.Cookie(refreshTokenCookie)
	if presented == "" {
		var req refreshRequest
		if err := c.ShouldBindJSON(&req); err == nil {
			presented = req.RefreshToken
		}
	}

	pair, err := s.service.Refresh(c.Request.Context(), presented)
	if err != nil {
		s.respondError(c, err)
		return
	}

	s.setTokenCookies(c, pair.AccessToken, pair.RefreshToken)
	respond(c, http.StatusOK, gin.H{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	}, "Access token refreshed successfully")
}

func (s *Server) handleChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, common.NewError(common.ErrValidation, "invalid request body"))
		return
	}

	if err := s.service.ChangePassword(c.Request.Context(), accountID(c), req.OldPassword, req.NewPassword); err != nil {
		s.respondError(c, err)
		return
	}

	respond(c, http.StatusOK, gin.H{}, "Password updated successfully")
}

func (s *Server) handleCurrentUser(c *gin.Context) {
	account, err := s.service.CurrentAccount(c.Request.Context(), accountID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}

	respond(c, http.StatusOK, account, "Current user fetched successfully")
}

func (s *Server) handleUpdateAccount(c *gin.Context) {
	var req updateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, common.NewError(common.ErrValidation, "invalid request body"))
		return
	}

	account, err := s.service.UpdateProfile(c.Request.Context(), accountID(c), req.Fullname, req.Email)
	if err != nil {
		s.respondError(c, err)
		return
	}

	respond(c, http.StatusOK, account, "Account details updated successfully")
}

func (s *Server) handleUpdateAvatar(c *gin.Context) {
	s.handleMediaUpload(c, "avatar", s.service.UpdateAvatar, "Avatar updated successfully")
}

func (s *Server) handleUpdateCoverImage(c *gin.Context) {
	s.handleMediaUpload(c, "coverImage", s.service.UpdateCoverImage, "Cover image updated successfully")
}

// handleMediaUpload stages the multipart file locally, hands the path to the
// coordinator (which moves it into blob storage), and cleans up the staging
// copy.
func (s *Server) handleMediaUpload(c *gin.Context, field string,
	update func(ctx context.Context, accountID, localPath string) (*models.PublicAccount, error), message string) {

	file, err := c.FormFile(field)
	if err != nil {
		s.respondError(c, common.NewError(common.ErrValidation, field+" file is required"))
		return
	}

	dir, err := filex.EnsureSubDir(s.uploadDir)
	if err != nil {
		s.logger.Error(c.Request.Context(), "preparing upload dir", "error", err)
		s.respondError(c, common.NewError(common.ErrInternal, "internal error"))
		return
	}

	staged := filepath.Join(dir, uuid.New().String()+filepath.Ext(file.Filename))
	if err := c.SaveUploadedFile(file, staged); err != nil {
		s.logger.Error(c.Request.Context(), "staging upload", "error", err)
		s.respondError(c, common.NewError(common.ErrInternal, "internal error"))
		return
	}
	defer func() { _ = filex.RemoveIfExists(staged) }()

	account, err := update(c.Request.Context(), accountID(c), staged)
	if err != nil {
		s.respondError(c, err)
		return
	}

	respond(c, http.StatusOK, account, message)
}
