package api

import (
	"context"

	"campus-community/src/directory"
	"campus-community/src/models"
	"campus-community/src/services"
)

// Backend executes directory operations for a resolved viewer id.
// services.DirectoryService implements it.
type Backend interface {
	GroupByInviteToken(ctx context.Context, token, viewerID string) (*models.Group, error)
	GroupBySlug(ctx context.Context, slug, viewerID string) (*models.Group, error)
	RequestJoin(ctx context.Context, groupID, token, viewerID string) error
	AcceptJoinRequest(ctx context.Context, groupID, userID, actorID string) error
	RejectJoinRequest(ctx context.Context, groupID, userID, actorID string) error
	RemoveMember(ctx context.Context, groupID, userID, actorID string) error
	GenerateInvite(ctx context.Context, groupID, actorID string) (string, error)
	UpdateGroup(ctx context.Context, input directory.UpdateGroupInput, actorID string) (*models.Group, error)
}

// CredentialVerifier turns a bearer credential into a user id.
type CredentialVerifier interface {
	UserID(token string) (string, error)
}

var _ Backend = (*services.DirectoryService)(nil)
