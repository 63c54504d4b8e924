package domain

import (
	"context"
	"errors"
	"time"
)

type Role string

const (
	RoleAdmin          Role = "admin"
	RolePharmacyOwner  Role = "pharmacy_owner"
	RoleDeliveryPerson Role = "delivery_person"
	RoleCustomer       Role = "customer"
)

// Roles lists every role a user can be assigned.
var Roles = []Role{RoleAdmin, RolePharmacyOwner, RoleDeliveryPerson, RoleCustomer}

// Valid reports whether r is one of the four known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RolePharmacyOwner, RoleDeliveryPerson, RoleCustomer:
		return true
	}
	return false
}

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Session is the authentication state as seen by the route guard.
// A nil User means nobody is signed in.
type Session struct {
	User      *User `json:"user,omitempty"`
	IsLoading bool  `json:"is_loading"`
}

type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, user *User) error
	ListByRoles(ctx context.Context, roles []Role) ([]User, error)
}

type AuthUsecase interface {
	EnsureUserExists(ctx context.Context, user *User) error
	AssignRole(ctx context.Context, userID string, role Role) error
	GetCurrentUser(ctx context.Context, id string) (*User, error)
	CheckEmailExists(ctx context.Context, email string) (bool, error)
	ListUsers(ctx context.Context, roles []Role) ([]User, error)
}

var ErrUserNotFound = errors.New("user not found")
