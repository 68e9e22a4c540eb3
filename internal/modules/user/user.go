package user

import (
	"time"

	"github.com/google/uuid"
)

// Site roles. The engines treat these as opaque strings compared by
// equality; the set here just seeds account creation.
const (
	RoleCompanyOwner      = "company_owner"
	RoleSupervisor        = "supervisor"
	RoleDepartmentManager = "department_manager"
	RoleInventoryManager  = "inventory_manager"
	RoleSiteStaff         = "site_staff"
)

// User represents a member of the site staff.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
