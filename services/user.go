package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gamershop/gamershop/models"
	"github.com/gamershop/gamershop/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RegisterInput carries a new account's details
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
}

// GoogleProfile is the subset of the Google userinfo response used for login
type GoogleProfile struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Verified   bool   `json:"verified_email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
}

// UserService handles accounts and token issuing
type UserService struct {
	db        *gorm.DB
	jwtSecret string
	tokenTTL  time.Duration
}

// NewUserService creates a UserService
func NewUserService(db *gorm.DB, jwtSecret string, tokenTTL time.Duration) *UserService {
	return &UserService{db: db, jwtSecret: jwtSecret, tokenTTL: tokenTTL}
}

// Register creates a customer account
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	var fields utils.FieldValidationErrors
	if ok, msg := utils.ValidateUsername(in.Username); !ok {
		fields = append(fields, utils.FieldValidationError{Field: "username", Message: msg})
	}
	if ok, msg := utils.ValidateEmail(in.Email); !ok {
		fields = append(fields, utils.FieldValidationError{Field: "email", Message: msg})
	}
	if ok, msg := utils.ValidatePassword(in.Password); !ok {
		fields = append(fields, utils.FieldValidationError{Field: "password", Message: msg})
	}
	if ok, msg := utils.ValidateName(in.FirstName); !ok {
		fields = append(fields, utils.FieldValidationError{Field: "firstName", Message: msg})
	}
	if ok, msg := utils.ValidateName(in.LastName); !ok {
		fields = append(fields, utils.FieldValidationError{Field: "lastName", Message: msg})
	}
	if len(fields) > 0 {
		return nil, utils.NewAppError(http.StatusBadRequest, utils.KindValidation, fields[0].Message, fields)
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, utils.InternalError("Failed to hash password", err)
	}

	user := models.User{
		Username:  in.Username,
		Email:     in.Email,
		Password:  hash,
		FirstName: utils.SanitizeString(in.FirstName),
		LastName:  utils.SanitizeString(in.LastName),
		Phone:     strings.TrimSpace(in.Phone),
		Role:      models.RoleUser,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, utils.ConflictError("Username or email already registered", err)
		}
		return nil, utils.InternalError("Failed to create user", err)
	}

	utils.LogInfo("User registered: %s (ID %d)", user.Email, user.ID)
	return &user, nil
}

// Login checks credentials and returns the user with a fresh token
func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		if isNotFound(err) {
			return nil, "", utils.UnauthorizedError("Invalid email or password", nil)
		}
		return nil, "", utils.InternalError("Failed to fetch user", err)
	}
	if !utils.CheckPassword(password, user.Password) {
		utils.LogInfo("Failed login for %s", user.Email)
		return nil, "", utils.UnauthorizedError("Invalid email or password", nil)
	}
	if user.IsBlocked {
		return nil, "", utils.ForbiddenError("Your account has been blocked")
	}

	token, err := s.IssueToken(&user)
	if err != nil {
		return nil, "", err
	}
	return &user, token, nil
}

// IssueToken signs a JWT for user
func (s *UserService) IssueToken(user *models.User) (string, error) {
	token, err := utils.GenerateToken(user, s.jwtSecret, s.tokenTTL)
	if err != nil {
		return "", utils.InternalError("Failed to generate token", err)
	}
	return token, nil
}

// FindActiveUser loads a user for an authenticated request. Blocked users are refused.
func (s *UserService) FindActiveUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if isNotFound(err) {
			return nil, utils.UnauthorizedError("User not found", err)
		}
		return nil, utils.InternalError("Failed to fetch user", err)
	}
	if user.IsBlocked {
		return nil, utils.ForbiddenError("Your account has been blocked")
	}
	return &user, nil
}

// UpsertGoogleUser finds the account linked to a Google profile, links an
// existing account with the same email, or creates a new one.
func (s *UserService) UpsertGoogleUser(ctx context.Context, profile GoogleProfile) (*models.User, error) {
	if profile.ID == "" || profile.Email == "" {
		return nil, utils.ValidationFailed("Google profile is missing id or email")
	}
	email := strings.ToLower(profile.Email)

	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("google_id = ? OR email = ?", profile.ID, email).First(&user).Error
		if err == nil {
			if user.GoogleID == nil {
				return tx.Model(&user).Update("google_id", profile.ID).Error
			}
			return nil
		}
		if !isNotFound(err) {
			return err
		}

		// Google accounts get an unusable random password.
		hash, err := utils.HashPassword(uuid.NewString())
		if err != nil {
			return err
		}
		googleID := profile.ID
		user = models.User{
			Username:  fmt.Sprintf("g_%s", strings.ReplaceAll(uuid.NewString(), "-", "")[:12]),
			Email:     email,
			Password:  hash,
			FirstName: profile.GivenName,
			LastName:  profile.FamilyName,
			Role:      models.RoleUser,
			GoogleID:  &googleID,
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		return nil, utils.InternalError("Failed to sign in with Google", err)
	}
	if user.IsBlocked {
		return nil, utils.ForbiddenError("Your account has been blocked")
	}
	return &user, nil
}

// EnsureAdmin creates the configured admin account when it does not exist yet
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", strings.ToLower(email)).Count(&count).Error; err != nil {
		return fmt.Errorf("check admin: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	admin := models.User{
		Username: "admin",
		Email:    strings.ToLower(email),
		Password: hash,
		Role:     models.RoleAdmin,
	}
	if err := s.db.WithContext(ctx).Create(&admin).Error; err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	utils.LogInfo("Admin account created: %s", admin.Email)
	return nil
}
