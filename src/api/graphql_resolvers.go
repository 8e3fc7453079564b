package api

import (
	"context"
	"errors"
	"log/slog"

	graphql "github.com/graph-gophers/graphql-go"

	"campus-community/src/directory"
	"campus-community/src/models"
	"campus-community/src/services"
)

type viewerKey struct{}

func withViewer(ctx context.Context, viewerID string) context.Context {
	return context.WithValue(ctx, viewerKey{}, viewerID)
}

func viewerFrom(ctx context.Context) string {
	id, _ := ctx.Value(viewerKey{}).(string)
	return id
}

// resolverError carries the directory error code in the GraphQL error's
// extensions.
type resolverError struct {
	code string
	msg  string
}

func (e *resolverError) Error() string { return e.msg }

func (e *resolverError) Extensions() map[string]any {
	return map[string]any{"code": e.code}
}

// rootResolver answers the Query and Mutation fields of schema.graphql.
type rootResolver struct {
	backend Backend
	logger  *slog.Logger
}

func (r *rootResolver) fail(field string, err error) error {
	return classify(r.logger, field, err)
}

// classify maps service errors onto directory error codes. Unexpected errors
// are logged and hidden behind INTERNAL.
func classify(logger *slog.Logger, op string, err error) *resolverError {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return &resolverError{code: directory.CodeNotFound, msg: err.Error()}
	case errors.Is(err, services.ErrUnauthenticated):
		return &resolverError{code: directory.CodeUnauthenticated, msg: err.Error()}
	case errors.Is(err, services.ErrForbidden):
		return &resolverError{code: directory.CodeForbidden, msg: err.Error()}
	case errors.Is(err, services.ErrInvalidInput):
		return &resolverError{code: directory.CodeBadUserInput, msg: err.Error()}
	case errors.Is(err, services.ErrRateLimited):
		return &resolverError{code: directory.CodeRateLimited, msg: err.Error()}
	default:
		logger.Error("directory operation failed", "operation", op, "error", err)
		return &resolverError{code: directory.CodeInternal, msg: "internal error"}
	}
}

func (r *rootResolver) GroupByInviteToken(ctx context.Context, args struct{ Token string }) (*groupResolver, error) {
	group, err := r.backend.GroupByInviteToken(ctx, args.Token, viewerFrom(ctx))
	switch {
	case errors.Is(err, services.ErrNotFound):
		return nil, nil
	case err != nil:
		return nil, r.fail("groupByInviteToken", err)
	}
	return newGroupResolver(group), nil
}

func (r *rootResolver) Group(ctx context.Context, args struct{ Slug string }) (*groupResolver, error) {
	group, err := r.backend.GroupBySlug(ctx, args.Slug, viewerFrom(ctx))
	if err != nil {
		return nil, r.fail("group", err)
	}
	return newGroupResolver(group), nil
}

func (r *rootResolver) RequestJoinGroup(ctx context.Context, args struct {
	GroupID graphql.ID
	Token   string
}) (bool, error) {
	if err := r.backend.RequestJoin(ctx, string(args.GroupID), args.Token, viewerFrom(ctx)); err != nil {
		return false, r.fail("requestJoinGroup", err)
	}
	return true, nil
}

type membershipArgs struct {
	GroupID graphql.ID
	UserID  graphql.ID
}

func (r *rootResolver) AcceptJoinRequest(ctx context.Context, args membershipArgs) (bool, error) {
	if err := r.backend.AcceptJoinRequest(ctx, string(args.GroupID), string(args.UserID), viewerFrom(ctx)); err != nil {
		return false, r.fail("acceptJoinRequest", err)
	}
	return true, nil
}

func (r *rootResolver) RejectJoinRequest(ctx context.Context, args membershipArgs) (bool, error) {
	if err := r.backend.RejectJoinRequest(ctx, string(args.GroupID), string(args.UserID), viewerFrom(ctx)); err != nil {
		return false, r.fail("rejectJoinRequest", err)
	}
	return true, nil
}

func (r *rootResolver) RemoveMember(ctx context.Context, args membershipArgs) (bool, error) {
	if err := r.backend.RemoveMember(ctx, string(args.GroupID), string(args.UserID), viewerFrom(ctx)); err != nil {
		return false, r.fail("removeMember", err)
	}
	return true, nil
}

func (r *rootResolver) GenerateGroupInvite(ctx context.Context, args struct{ GroupID graphql.ID }) (string, error) {
	token, err := r.backend.GenerateInvite(ctx, string(args.GroupID), viewerFrom(ctx))
	if err != nil {
		return "", r.fail("generateGroupInvite", err)
	}
	return token, nil
}

func (r *rootResolver) UpdateGroup(ctx context.Context, args struct {
	GroupID     graphql.ID
	Name        string
	Description string
	Icon        *string
}) (*groupResolver, error) {
	input := directory.UpdateGroupInput{
		GroupID:     string(args.GroupID),
		Name:        args.Name,
		Description: args.Description,
	}
	if args.Icon != nil {
		input.Icon = *args.Icon
	}
	group, err := r.backend.UpdateGroup(ctx, input, viewerFrom(ctx))
	if err != nil {
		return nil, r.fail("updateGroup", err)
	}
	return newGroupResolver(group), nil
}

type groupResolver struct {
	g *models.Group
}

func newGroupResolver(g *models.Group) *groupResolver {
	if g == nil {
		return nil
	}
	return &groupResolver{g: g}
}

func (r *groupResolver) ID() graphql.ID          { return graphql.ID(r.g.ID) }
func (r *groupResolver) Slug() string            { return r.g.Slug }
func (r *groupResolver) Name() string            { return r.g.Name }
func (r *groupResolver) Description() string     { return r.g.Description }
func (r *groupResolver) Icon() *string           { return r.g.Icon }
func (r *groupResolver) Type() string            { return string(r.g.Type) }
func (r *groupResolver) MembersCount() int32     { return int32(r.g.MembersCount) }
func (r *groupResolver) InviteToken() *string    { return r.g.InviteToken }
func (r *groupResolver) IsMember() bool          { return r.g.IsMember }
func (r *groupResolver) HasPendingRequest() bool { return r.g.HasPendingRequest }
func (r *groupResolver) IsAdmin() bool           { return r.g.IsAdmin }

func (r *groupResolver) Members() *[]*userResolver      { return userList(r.g.Members) }
func (r *groupResolver) JoinRequests() *[]*userResolver { return userList(r.g.JoinRequests) }

// userList keeps nil collections null on the wire.
func userList(users []models.PublicUser) *[]*userResolver {
	if users == nil {
		return nil
	}
	out := make([]*userResolver, len(users))
	for i := range users {
		out[i] = &userResolver{u: users[i]}
	}
	return &out
}

type userResolver struct {
	u models.PublicUser
}

func (r *userResolver) ID() graphql.ID   { return graphql.ID(r.u.ID) }
func (r *userResolver) Name() string     { return r.u.Name }
func (r *userResolver) Username() string { return r.u.Username }
func (r *userResolver) Avatar() *string  { return r.u.Avatar }
