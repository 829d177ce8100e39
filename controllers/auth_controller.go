package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gamershop/gamershop/config"
	"github.com/gamershop/gamershop/middleware"
	"github.com/gamershop/gamershop/models"
	"github.com/gamershop/gamershop/services"
	"github.com/gamershop/gamershop/utils"
	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
)

// Accounts is the user side of the services layer
type Accounts interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, string, error)
	UpsertGoogleUser(ctx context.Context, profile services.GoogleProfile) (*models.User, error)
	IssueToken(user *models.User) (string, error)
}

type RegisterRequest struct {
	Username  string `json:"username" binding:"required"`
	Email     string `json:"email" binding:"required"`
	Password  string `json:"password" binding:"required"`
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
	Phone     string `json:"phone" binding:"max=20"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthController serves registration, login and Google sign in
type AuthController struct {
	Accounts    Accounts
	OAuth       *oauth2.Config
	FrontendURL string
}

// NewAuthController creates an AuthController. oauth may be nil when Google login is disabled.
func NewAuthController(accounts Accounts, oauth *oauth2.Config, frontendURL string) *AuthController {
	return &AuthController{Accounts: accounts, OAuth: oauth, FrontendURL: frontendURL}
}

// Register handles POST /api/auth/register
func (h *AuthController) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid input", utils.BindingErrors(err))
		return
	}

	user, err := h.Accounts.Register(c.Request.Context(), services.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	token, err := h.Accounts.IssueToken(user)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Registration successful", gin.H{"user": user, "token": token})
}

// Login handles POST /api/auth/login
func (h *AuthController) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid input", utils.BindingErrors(err))
		return
	}

	user, token, err := h.Accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.LogInfo("User logged in: %s", user.Email)
	utils.Success(c, "Login successful", gin.H{"user": user, "token": token})
}

// Me handles GET /api/auth/me
func (h *AuthController) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		utils.Unauthorized(c, "Please login for access")
		return
	}
	utils.Success(c, "User retrieved successfully", user)
}

// GoogleLogin handles GET /api/auth/google/login
func (h *AuthController) GoogleLogin(c *gin.Context) {
	if h.OAuth == nil {
		utils.NotFound(c, "Google login is not enabled")
		return
	}
	state, err := utils.NewOAuthState(c)
	if err != nil {
		utils.InternalServerError(c, "Failed to start Google login", err)
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, h.OAuth.AuthCodeURL(state))
}

// GoogleCallback handles GET /api/auth/google/callback and redirects to the
// frontend with the issued token
func (h *AuthController) GoogleCallback(c *gin.Context) {
	if h.OAuth == nil {
		utils.NotFound(c, "Google login is not enabled")
		return
	}
	if !utils.ConsumeOAuthState(c, c.Query("state")) {
		utils.BadRequest(c, "Invalid OAuth state", nil)
		return
	}
	code := c.Query("code")
	if code == "" {
		utils.BadRequest(c, "No code provided", nil)
		return
	}

	ctx := c.Request.Context()
	token, err := h.OAuth.Exchange(ctx, code)
	if err != nil {
		utils.InternalServerError(c, "Failed to exchange token", err)
		return
	}

	profile, err := fetchGoogleProfile(ctx, h.OAuth.Client(ctx, token))
	if err != nil {
		utils.InternalServerError(c, "Failed to get user info", err)
		return
	}

	user, err := h.Accounts.UpsertGoogleUser(ctx, *profile)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	jwtToken, err := h.Accounts.IssueToken(user)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.LogInfo("Google login: %s", user.Email)
	redirectURL := fmt.Sprintf("%s?token=%s", h.FrontendURL, url.QueryEscape(jwtToken))
	c.Redirect(http.StatusTemporaryRedirect, redirectURL)
}

func fetchGoogleProfile(ctx context.Context, client *http.Client) (*services.GoogleProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, config.GoogleUserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo returned %s", resp.Status)
	}
	var profile services.GoogleProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	return &profile, nil
}
