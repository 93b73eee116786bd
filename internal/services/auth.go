package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"

	"hnlite/internal/models"
	"hnlite/internal/utils"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,31}$`)

// AuthService backs signup and login. Sessions themselves live in the cookie store.
type AuthService struct {
	db *gorm.DB
	// users never change once created, so session lookups can be served from memory
	users *utils.TTLCache[uint, models.User]
}

func NewAuthService(conn *gorm.DB) *AuthService {
	users, err := utils.NewTTLCache[uint, models.User](1024, 5*time.Minute)
	if err != nil {
		// only reachable with a non-positive size
		panic(err)
	}
	return &AuthService{db: conn, users: users}
}

func validateCredentials(username, password string) error {
	if !usernamePattern.MatchString(username) {
		return invalid("username", "username must be 3-31 letters, digits or underscores")
	}
	if l := len(password); l < 3 || l > 255 {
		return invalid("password", "password must be between 3 and 255 characters")
	}
	return nil
}

// Signup creates a user with a bcrypt password hash.
func (s *AuthService) Signup(ctx context.Context, username, password string) (models.User, error) {
	username = strings.TrimSpace(username)
	if err := validateCredentials(username, password); err != nil {
		return models.User{}, err
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}
	user := models.User{Username: username, PasswordHash: hash}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.User{}, ErrUsernameTaken
		}
		return models.User{}, err
	}
	return user, nil
}

// Login returns the user whose password matches, or ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (models.User, error) {
	username = strings.TrimSpace(username)
	if err := validateCredentials(username, password); err != nil {
		return models.User{}, err
	}

	var user models.User
	res := s.db.WithContext(ctx).Where("username = ?", username).Limit(1).Find(&user)
	if res.Error != nil {
		return models.User{}, res.Error
	}
	if res.RowsAffected == 0 || !utils.CheckPassword(user.PasswordHash, password) {
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// UserByID resolves a session's user id. A missing user is ErrUnauthorized.
func (s *AuthService) UserByID(ctx context.Context, id uint) (models.User, error) {
	if user, ok := s.users.Get(id); ok {
		return user, nil
	}

	var user models.User
	res := s.db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&user)
	if res.Error != nil {
		return models.User{}, res.Error
	}
	if res.RowsAffected == 0 {
		return models.User{}, ErrUnauthorized
	}
	s.users.Set(id, user)
	return user, nil
}
