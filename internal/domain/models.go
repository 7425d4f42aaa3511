package domain

import "time"

type Role string

const (
	RoleDealerStaff   Role = "DEALER_STAFF"
	RoleDealerManager Role = "DEALER_MANAGER"
	RoleEVMStaff      Role = "EVM_STAFF"
	RoleEVMAdmin      Role = "EVM_ADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RoleDealerStaff, RoleDealerManager, RoleEVMStaff, RoleEVMAdmin:
		return true
	}
	return false
}

// Actor is the authenticated caller of every workflow operation.
type Actor struct {
	Name string `json:"actor_name"`
	Role Role   `json:"actor_role"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        Role   `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type UserAccount struct {
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	Role      Role      `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
