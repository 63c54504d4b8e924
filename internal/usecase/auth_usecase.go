package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"pharmacy-guard-backend/internal/domain"
	"pharmacy-guard-backend/pkg/apperror"
)

type authUsecase struct {
	userRepo domain.UserRepository
	now      func() time.Time
}

func NewAuthUsecase(userRepo domain.UserRepository) domain.AuthUsecase {
	return &authUsecase{userRepo: userRepo, now: time.Now}
}

// EnsureUserExists creates the local record for a freshly signed-up identity.
// New users default to customer; an existing user's role is synced when one is given.
func (u *authUsecase) EnsureUserExists(ctx context.Context, user *domain.User) error {
	if user.Role != "" && !user.Role.Valid() {
		return apperror.BadRequest("Unknown role")
	}

	existing, err := u.userRepo.GetByID(ctx, user.ID)
	if err == nil {
		if user.Role != "" && existing.Role != user.Role {
			existing.Role = user.Role
			existing.UpdatedAt = u.now()
			return u.userRepo.Update(ctx, existing)
		}
		return nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return err
	}

	user.Email = strings.TrimSpace(user.Email)
	if user.Email == "" {
		return apperror.BadRequest("Email is required to create a user")
	}
	if user.Role == "" {
		user.Role = domain.RoleCustomer
	}
	user.CreatedAt = u.now()
	user.UpdatedAt = user.CreatedAt
	return u.userRepo.Create(ctx, user)
}

func (u *authUsecase) AssignRole(ctx context.Context, userID string, role domain.Role) error {
	// Security: Only admin can assign roles
	ctxRole, ok := ctx.Value(domain.KeyUserRole).(domain.Role)
	if !ok || ctxRole != domain.RoleAdmin {
		return apperror.Forbidden("Only admins can assign roles")
	}
	if !role.Valid() {
		return apperror.BadRequest("Unknown role")
	}

	user, err := u.userRepo.GetByID(ctx, userID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return apperror.NotFound("User not found")
	}
	if err != nil {
		return err
	}

	user.Role = role
	user.UpdatedAt = u.now()
	return u.userRepo.Update(ctx, user)
}

func (u *authUsecase) GetCurrentUser(ctx context.Context, id string) (*domain.User, error) {
	return u.userRepo.GetByID(ctx, id)
}

func (u *authUsecase) CheckEmailExists(ctx context.Context, email string) (bool, error) {
	_, err := u.userRepo.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (u *authUsecase) ListUsers(ctx context.Context, roles []domain.Role) ([]domain.User, error) {
	ctxRole, ok := ctx.Value(domain.KeyUserRole).(domain.Role)
	if !ok || ctxRole != domain.RoleAdmin {
		return nil, apperror.Forbidden("Only admins can list users")
	}
	for _, r := range roles {
		if !r.Valid() {
			return nil, apperror.BadRequest("Unknown role: " + string(r))
		}
	}
	return u.userRepo.ListByRoles(ctx, roles)
}
