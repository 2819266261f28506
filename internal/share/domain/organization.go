package domain

import "time"

// Organization membership roles. Owners may invite; invited users join
// as members.
const (
	OrgRoleMember int16 = 0
	OrgRoleOwner  int16 = 1
)

type Organization struct {
	ID          int64
	Name        string
	Description string
	MemberCount int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OrganizationMembership links a user to an organization with a role.
// One row per user per organization.
type OrganizationMembership struct {
	ID        int64
	OrgID     int64
	UserID    int64
	Role      int16
	CreatedAt time.Time
}
