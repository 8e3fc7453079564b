package models

const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// RoleGrantsAdmin reports whether a member role carries administrative capability.
func RoleGrantsAdmin(roleName string) bool {
	switch roleName {
	case RoleOwner, RoleAdmin:
		return true
	default:
		return false
	}
}
