// Package service implements the application's business logic on top of the
// repository layer.
package service

import (
	"context"
	"errors"

	"dojo/internal/models"
	"dojo/internal/repository"
	"dojo/internal/validation"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthService verifies credentials and issues password hashes.
type AuthService struct {
	userRepo repository.UserRepository
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo repository.UserRepository) *AuthService {
	return &AuthService{userRepo: userRepo}
}

// HashPassword hashes a plaintext password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether the plaintext matches the stored hash.
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Authenticate checks the credentials and returns the account on success.
// Unknown usernames and wrong passwords yield the same error so the response
// does not leak which usernames exist. Inactive accounts are refused after
// the password check, with a distinct error.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewUnauthenticatedError("Invalid username or password")
		}
		return nil, err
	}

	if !VerifyPassword(user.PasswordHash, password) {
		return nil, models.NewUnauthenticatedError("Invalid username or password")
	}

	if !user.IsActive() {
		return nil, models.NewForbiddenError("Account is deactivated")
	}

	return user, nil
}

// ChangePassword verifies the current password before storing a new hash.
func (s *AuthService) ChangePassword(ctx context.Context, userID uint, current, next string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("User", userID)
		}
		return err
	}

	if !VerifyPassword(user.PasswordHash, current) {
		return models.NewUnauthenticatedError("Current password is incorrect")
	}

	if err := validation.ValidatePassword(next); err != nil {
		return models.NewValidationError(err.Error())
	}

	hash, err := HashPassword(next)
	if err != nil {
		return models.NewInternalError(err)
	}
	user.PasswordHash = hash
	return s.userRepo.Update(ctx, user)
}
