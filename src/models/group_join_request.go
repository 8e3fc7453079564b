package models

// JoinRequestState is the lifecycle of a (user, group) join relation.
type JoinRequestState string

const (
	JoinRequestNone     JoinRequestState = "NONE"
	JoinRequestPending  JoinRequestState = "PENDING"
	JoinRequestAccepted JoinRequestState = "ACCEPTED"
	JoinRequestRejected JoinRequestState = "REJECTED"
)

// GroupJoinRequest is a pending request for membership.
type GroupJoinRequest struct {
	GroupID   string `json:"group_id"`
	UserID    string `json:"user_id"`
	CreatedAt int64  `json:"created_at"`
}

// JoinStateOf derives the viewer's join relation from the group flags.
// A rejected request is indistinguishable from none once resolved.
func JoinStateOf(g Group) JoinRequestState {
	switch {
	case g.IsMember:
		return JoinRequestAccepted
	case g.HasPendingRequest:
		return JoinRequestPending
	default:
		return JoinRequestNone
	}
}
