package models

import "strings"

// InvitePathPrefix is the client route prefix of invite links.
const InvitePathPrefix = "/community/invite/"

// InviteLink joins an origin and an invite token into a shareable link.
func InviteLink(origin, token string) string {
	return strings.TrimRight(origin, "/") + InvitePathPrefix + token
}
