package models

import "time"

// Role drives authorization checks everywhere else.
type Role string

const (
	RoleClient     Role = "client"
	RoleStaff      Role = "staff"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// IsStaff reports whether the role carries back-office privileges.
func (r Role) IsStaff() bool {
	return r == RoleStaff || r == RoleAdmin || r == RoleSuperAdmin
}

// IsAdmin reports whether the role carries administrative privileges.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// Display returns the role label the audit log records.
func (r Role) Display() string {
	switch r {
	case RoleSuperAdmin:
		return "Super Admin"
	case RoleAdmin:
		return "Admin"
	case RoleStaff:
		return "Staff"
	default:
		return "Client"
	}
}

// Account represents a portal identity. Clients submit inquiries; staff and
// admins triage them.
type Account struct {
	ID            string    `bson:"_id,omitempty" json:"id,omitempty"`
	Name          string    `bson:"name" json:"name"`
	Email         string    `bson:"email" json:"email"`
	Phone         string    `bson:"phone,omitempty" json:"phone,omitempty"`
	Address       string    `bson:"address,omitempty" json:"address,omitempty"`
	PasswordHash  string    `bson:"password" json:"-"` // Store hash, not plaintext
	Role          Role      `bson:"role" json:"role"`
	Disabled      bool      `bson:"disabled" json:"disabled"`
	EmailVerified bool      `bson:"email_verified" json:"email_verified"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at" json:"updated_at"`
	Deleted       bool      `bson:"deleted" json:"-"` // Soft delete flag
}

// Snapshot denormalizes the identity fields copied onto inquiry records at
// submission time.
func (a *Account) Snapshot() AccountSnapshot {
	return AccountSnapshot{
		AccountID: a.ID,
		Name:      a.Name,
		Email:     a.Email,
		Phone:     a.Phone,
		Address:   a.Address,
	}
}

// AccountSnapshot is the identity copy embedded in inquiry records. It is
// frozen at submission; later account edits do not rewrite old records.
type AccountSnapshot struct {
	AccountID string `bson:"account_id" json:"account_id"`
	Name      string `bson:"name" json:"name"`
	Email     string `bson:"email" json:"email"`
	Phone     string `bson:"phone,omitempty" json:"phone,omitempty"`
	Address   string `bson:"address,omitempty" json:"address,omitempty"`
}
