package models

// GroupType controls how a group admits new members.
type GroupType string

const (
	GroupTypePublic     GroupType = "PUBLIC"
	GroupTypePrivate    GroupType = "PRIVATE"
	GroupTypeRestricted GroupType = "RESTRICTED"
)

// Group is the projection of a community group as seen by one viewer.
type Group struct {
	ID                string       `json:"id"`
	Slug              string       `json:"slug"`
	Name              string       `json:"name"`
	Description       string       `json:"description"`
	Icon              *string      `json:"icon"`
	Type              GroupType    `json:"type"`
	MembersCount      int          `json:"membersCount"`
	InviteToken       *string      `json:"inviteToken"`
	IsMember          bool         `json:"isMember"`
	HasPendingRequest bool         `json:"hasPendingRequest"`
	IsAdmin           bool         `json:"isAdmin"`
	Members           []PublicUser `json:"members,omitempty"`
	JoinRequests      []PublicUser `json:"joinRequests,omitempty"`
}

// UsesInvites reports whether groups of this type admit members through
// invite links and join requests.
func (t GroupType) UsesInvites() bool {
	return t == GroupTypePrivate || t == GroupTypeRestricted
}

func (g Group) UsesInvites() bool {
	return g.Type.UsesInvites()
}

// CanonicalPath is the client route of the group's page.
func (g Group) CanonicalPath() string {
	return "/c/" + g.Slug
}
