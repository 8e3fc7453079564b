package models

// PublicUser is the public projection of a user, used for members and requesters.
type PublicUser struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Username string  `json:"username"`
	Avatar   *string `json:"avatar,omitempty"`
}

// GroupMember is a stored membership row.
type GroupMember struct {
	GroupID  string `json:"group_id"`
	UserID   string `json:"user_id"`
	RoleName string `json:"role_name"`
	AddedAt  int64  `json:"added_at"`
	AddedBy  string `json:"added_by"`
}
