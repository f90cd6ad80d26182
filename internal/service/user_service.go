package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"dojo/internal/models"
	"dojo/internal/repository"
	"dojo/internal/validation"

	"gorm.io/gorm"
)

// UserService manages member accounts and belt grading.
type UserService struct {
	userRepo repository.UserRepository
}

// CreateUserInput carries the fields of a new account.
type CreateUserInput struct {
	Username  string
	Password  string
	FullName  string
	Email     string
	StudentID string
	Belt      string
	Role      models.UserRole
}

// NewUserService creates a new user service
func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// Create registers a new account. The zero role defaults to MEMBER and new
// accounts start ACTIVE.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*models.User, error) {
	if err := validation.ValidateUsername(in.Username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if strings.TrimSpace(in.FullName) == "" {
		return nil, models.NewValidationError("Full name is required")
	}
	if in.Email != "" {
		if err := validation.ValidateEmail(in.Email); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
	}
	if in.Belt != "" && models.BeltIndex(in.Belt) < 0 {
		return nil, models.NewValidationError("Unknown belt grade")
	}

	role := in.Role
	if role == "" {
		role = models.RoleMember
	}
	if role != models.RoleAdmin && role != models.RoleMember {
		return nil, models.NewValidationError("Invalid role")
	}

	if _, err := s.userRepo.GetByUsername(ctx, in.Username); err == nil {
		return nil, models.NewConflictError("Username is already taken")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if in.StudentID != "" {
		if _, err := s.userRepo.GetByStudentID(ctx, in.StudentID); err == nil {
			return nil, models.NewConflictError("Student ID is already assigned")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username:     in.Username,
		PasswordHash: hash,
		Role:         role,
		Status:       models.StatusActive,
		FullName:     strings.TrimSpace(in.FullName),
		Belt:         in.Belt,
	}
	if in.Email != "" {
		user.Email = &in.Email
	}
	if in.StudentID != "" {
		user.StudentID = &in.StudentID
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Get loads one account.
func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", id)
		}
		return nil, err
	}
	return user, nil
}

// List returns a page of accounts.
func (s *UserService) List(ctx context.Context, limit, offset int) ([]*models.User, int64, error) {
	users, err := s.userRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.userRepo.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Search finds accounts by username, full name or student ID.
func (s *UserService) Search(ctx context.Context, query string, limit, offset int) ([]*models.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, models.NewValidationError("Search query is required")
	}
	return s.userRepo.Search(ctx, query, limit, offset)
}

// Update applies a partial update. Only fields explicitly set in the input
// are touched; a set-and-null field is cleared.
func (s *UserService) Update(ctx context.Context, actor *models.User, id uint, in models.UpdateUserInput) (*models.User, error) {
	caps := actor.CapabilitiesFor(id)
	if !caps.CanModerate && !caps.CanSelf {
		return nil, models.NewForbiddenError("Not allowed to update this account")
	}

	// Role and status changes are moderation actions.
	if (in.Role.Set || in.Status.Set) && !caps.CanModerate {
		return nil, models.NewForbiddenError("Only administrators may change role or status")
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.FullName.Set {
		if in.FullName.Null || strings.TrimSpace(in.FullName.Value) == "" {
			return nil, models.NewValidationError("Full name cannot be cleared")
		}
		user.FullName = strings.TrimSpace(in.FullName.Value)
	}
	if in.Email.Set {
		if in.Email.Null {
			user.Email = nil
		} else {
			if err := validation.ValidateEmail(in.Email.Value); err != nil {
				return nil, models.NewValidationError(err.Error())
			}
			v := in.Email.Value
			user.Email = &v
		}
	}
	if in.StudentID.Set {
		if in.StudentID.Null {
			user.StudentID = nil
		} else {
			v := in.StudentID.Value
			if other, err := s.userRepo.GetByStudentID(ctx, v); err == nil {
				if other.ID != user.ID {
					return nil, models.NewConflictError("Student ID is already assigned")
				}
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
			user.StudentID = &v
		}
	}
	if in.Belt.Set {
		if in.Belt.Null {
			user.Belt = ""
		} else {
			if models.BeltIndex(in.Belt.Value) < 0 {
				return nil, models.NewValidationError("Unknown belt grade")
			}
			user.Belt = in.Belt.Value
		}
	}
	if in.PhoneNumber.Set {
		if in.PhoneNumber.Null {
			user.PhoneNumber = ""
		} else {
			user.PhoneNumber = in.PhoneNumber.Value
		}
	}
	if in.JoinDate.Set {
		if in.JoinDate.Null {
			user.JoinDate = nil
		} else {
			d, err := time.Parse("2006-01-02", in.JoinDate.Value)
			if err != nil {
				return nil, models.NewValidationError("Join date must be YYYY-MM-DD")
			}
			user.JoinDate = &d
		}
	}
	if in.Status.Set {
		if err := s.applyStatusChange(ctx, actor, user, in.Status); err != nil {
			return nil, err
		}
	}
	if in.Role.Set {
		if in.Role.Null {
			return nil, models.NewValidationError("Role cannot be cleared")
		}
		if in.Role.Value != models.RoleAdmin && in.Role.Value != models.RoleMember {
			return nil, models.NewValidationError("Invalid role")
		}
		if user.Role == models.RoleAdmin && in.Role.Value == models.RoleMember {
			if err := s.ensureNotLastAdmin(ctx, user); err != nil {
				return nil, err
			}
		}
		user.Role = in.Role.Value
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) applyStatusChange(ctx context.Context, actor, user *models.User, status models.Optional[models.UserStatus]) error {
	if status.Null {
		return models.NewValidationError("Status cannot be cleared")
	}
	if status.Value != models.StatusActive && status.Value != models.StatusInactive {
		return models.NewValidationError("Invalid status")
	}
	if status.Value == models.StatusInactive {
		if actor.ID == user.ID {
			return models.NewInvalidStateError("You cannot deactivate your own account")
		}
		if user.Role == models.RoleAdmin && user.Status == models.StatusActive {
			if err := s.ensureNotLastAdmin(ctx, user); err != nil {
				return err
			}
		}
	}
	user.Status = status.Value
	return nil
}

// ToggleStatus flips an account between ACTIVE and INACTIVE.
func (s *UserService) ToggleStatus(ctx context.Context, actor *models.User, id uint) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	next := models.StatusInactive
	if !user.IsActive() {
		next = models.StatusActive
	}
	if _, err := s.Update(ctx, actor, id, models.UpdateUserInput{
		Status: models.Assign(next),
	}); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes an account with all dependent records. Self-deletion is
// refused so a club is never left without its last administrator mid-request.
func (s *UserService) Delete(ctx context.Context, actor *models.User, id uint) error {
	if !actor.CapabilitiesFor(id).CanModerate {
		return models.NewForbiddenError("Only administrators may delete accounts")
	}
	if actor.ID == id {
		return models.NewInvalidStateError("You cannot delete your own account")
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if user.Role == models.RoleAdmin && user.IsActive() {
		if err := s.ensureNotLastAdmin(ctx, user); err != nil {
			return err
		}
	}

	return s.userRepo.Delete(ctx, id)
}

// PromoteBelt moves a member up the grading ladder. Demotion and sideways
// moves are refused.
func (s *UserService) PromoteBelt(ctx context.Context, id uint, belt string) (*models.User, error) {
	target := models.BeltIndex(belt)
	if target < 0 {
		return nil, models.NewValidationError("Unknown belt grade")
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if user.Belt != "" && models.BeltIndex(user.Belt) >= target {
		return nil, models.NewInvalidStateError("Belt can only move up the grading ladder")
	}

	user.Belt = belt
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// BulkPromoteBelt promotes several members to the same belt. Members whose
// current belt is already at or above the target are skipped, not failed.
func (s *UserService) BulkPromoteBelt(ctx context.Context, ids []uint, belt string) (promoted, skipped []uint, err error) {
	if models.BeltIndex(belt) < 0 {
		return nil, nil, models.NewValidationError("Unknown belt grade")
	}

	for _, id := range ids {
		if _, err := s.PromoteBelt(ctx, id, belt); err != nil {
			var appErr *models.AppError
			if errors.As(err, &appErr) &&
				(appErr.Code == models.CodeInvalidState || appErr.Code == models.CodeNotFound) {
				skipped = append(skipped, id)
				continue
			}
			return nil, nil, err
		}
		promoted = append(promoted, id)
	}
	return promoted, skipped, nil
}

func (s *UserService) ensureNotLastAdmin(ctx context.Context, user *models.User) error {
	admins, err := s.userRepo.CountAdmins(ctx)
	if err != nil {
		return err
	}
	if admins <= 1 {
		return models.NewInvalidStateError("Cannot remove the last active administrator")
	}
	return nil
}
