// Package directory is the RPC boundary to the backend directory service: the
// operation contracts, their GraphQL documents and an HTTP client.
package directory

import (
	"context"

	"campus-community/src/models"
)

// Directory is the set of backend operations the community client consumes.
// An empty credential means the call is made unauthenticated.
type Directory interface {
	// GroupByInviteToken returns nil without error when no group holds the token.
	GroupByInviteToken(ctx context.Context, token, credential string) (*models.Group, error)
	GroupBySlug(ctx context.Context, slug, credential string) (*models.Group, error)
	RequestJoin(ctx context.Context, groupID, token, credential string) error
	AcceptJoinRequest(ctx context.Context, groupID, userID, credential string) error
	RejectJoinRequest(ctx context.Context, groupID, userID, credential string) error
	RemoveMember(ctx context.Context, groupID, userID, credential string) error
	GenerateInvite(ctx context.Context, groupID, credential string) (string, error)
	UpdateGroup(ctx context.Context, input UpdateGroupInput, credential string) (*models.Group, error)
}

// UpdateGroupInput is the editable part of a group profile.
type UpdateGroupInput struct {
	GroupID     string `json:"groupId" validate:"required"`
	Name        string `json:"name" validate:"required,min=3,max=100"`
	Description string `json:"description" validate:"required,max=2000"`
	Icon        string `json:"icon" validate:"omitempty,url"`
}
