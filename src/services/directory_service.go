package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lucsky/cuid"

	"campus-community/src/directory"
	"campus-community/src/lib"
	"campus-community/src/models"
	"campus-community/src/storage"
)

const maxSlugAttempts = 20

// GroupStore is the persistence the directory service needs. storage.GroupRepo
// implements it.
type GroupStore interface {
	UpsertUser(ctx context.Context, user models.PublicUser) error
	CreateGroup(ctx context.Context, group storage.GroupRecord) error
	GetGroup(ctx context.Context, groupID string) (storage.GroupRecord, error)
	GetGroupBySlug(ctx context.Context, slug string) (storage.GroupRecord, error)
	GetGroupByInviteToken(ctx context.Context, token string) (storage.GroupRecord, error)
	SlugInUse(ctx context.Context, slug, exceptGroupID string) (bool, error)
	CountMembers(ctx context.Context, groupID string) (int, error)
	GetMemberRole(ctx context.Context, groupID, userID string) (string, bool, error)
	HasJoinRequest(ctx context.Context, groupID, userID string) (bool, error)
	ListMembers(ctx context.Context, groupID string) ([]models.PublicUser, error)
	ListJoinRequests(ctx context.Context, groupID string) ([]models.PublicUser, error)
	InsertJoinRequest(ctx context.Context, req models.GroupJoinRequest) (bool, error)
	AcceptJoinRequest(ctx context.Context, member models.GroupMember) (bool, error)
	RejectJoinRequest(ctx context.Context, groupID, userID string) (bool, error)
	RemoveMember(ctx context.Context, groupID, userID string) (bool, error)
	ReplaceInviteToken(ctx context.Context, groupID, token string, updatedAt int64) error
	UpdateProfile(ctx context.Context, groupID string, update storage.ProfileUpdate) (storage.GroupRecord, error)
}

var _ GroupStore = (*storage.GroupRepo)(nil)

// DirectoryService answers directory operations on behalf of a viewer id. An
// empty viewer id means an anonymous caller.
type DirectoryService struct {
	store    GroupStore
	metrics  *lib.Metrics
	limiter  *RateLimiter
	now      func() time.Time
	newToken func() string
}

type ServiceOption func(*DirectoryService)

// WithRateLimiter limits join requests and invite regeneration per user.
func WithRateLimiter(limiter *RateLimiter) ServiceOption {
	return func(s *DirectoryService) {
		s.limiter = limiter
	}
}

func NewDirectoryService(store GroupStore, metrics *lib.Metrics, opts ...ServiceOption) *DirectoryService {
	s := &DirectoryService{
		store:    store,
		metrics:  metrics,
		now:      time.Now,
		newToken: cuid.New,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *DirectoryService) allow(userID string) error {
	if s.limiter.Allow(userID, s.now()) {
		return nil
	}
	s.metrics.Inc(lib.MetricRateLimited)
	return newError(ErrRateLimited, "too many requests, try again in a minute")
}

func (s *DirectoryService) GroupByInviteToken(ctx context.Context, token, viewerID string) (*models.Group, error) {
	s.metrics.Inc(lib.MetricLookups)
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, newError(ErrNotFound, "invite link is invalid")
	}
	record, err := s.store.GetGroupByInviteToken(ctx, token)
	if err != nil {
		return nil, notFound(err, "invite link is invalid or has been revoked")
	}
	return s.project(ctx, record, viewerID)
}

func (s *DirectoryService) GroupBySlug(ctx context.Context, slug, viewerID string) (*models.Group, error) {
	s.metrics.Inc(lib.MetricLookups)
	record, err := s.store.GetGroupBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		return nil, notFound(err, "group not found")
	}
	return s.project(ctx, record, viewerID)
}

// RequestJoin records a pending request when the token still names the group.
// Members and users with a pending request get a no-op success.
func (s *DirectoryService) RequestJoin(ctx context.Context, groupID, token, viewerID string) error {
	if viewerID == "" {
		return newError(ErrUnauthenticated, "log in to request to join this group")
	}
	if err := s.allow(viewerID); err != nil {
		return err
	}
	record, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return notFound(err, "group not found")
	}
	if !record.Type.UsesInvites() {
		return newError(ErrInvalidInput, "public groups do not take join requests")
	}
	if record.InviteToken == nil || *record.InviteToken != strings.TrimSpace(token) {
		return newError(ErrForbidden, "this invite link is no longer valid")
	}

	_, isMember, err := s.store.GetMemberRole(ctx, groupID, viewerID)
	if err != nil {
		return err
	}
	if isMember {
		return nil
	}

	created, err := s.store.InsertJoinRequest(ctx, models.GroupJoinRequest{
		GroupID:   groupID,
		UserID:    viewerID,
		CreatedAt: s.now().Unix(),
	})
	if err != nil {
		return err
	}
	if created {
		s.metrics.Inc(lib.MetricJoinRequested)
	}
	return nil
}

func (s *DirectoryService) AcceptJoinRequest(ctx context.Context, groupID, userID, actorID string) error {
	if _, err := s.requireAdmin(ctx, groupID, actorID); err != nil {
		return err
	}
	applied, err := s.store.AcceptJoinRequest(ctx, models.GroupMember{
		GroupID:  groupID,
		UserID:   userID,
		RoleName: models.RoleMember,
		AddedAt:  s.now().Unix(),
		AddedBy:  actorID,
	})
	if err != nil {
		return err
	}
	if applied {
		s.metrics.Inc(lib.MetricJoinApproved)
	}
	return nil
}

func (s *DirectoryService) RejectJoinRequest(ctx context.Context, groupID, userID, actorID string) error {
	if _, err := s.requireAdmin(ctx, groupID, actorID); err != nil {
		return err
	}
	applied, err := s.store.RejectJoinRequest(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if applied {
		s.metrics.Inc(lib.MetricJoinRejected)
	}
	return nil
}

func (s *DirectoryService) RemoveMember(ctx context.Context, groupID, userID, actorID string) error {
	record, err := s.requireAdmin(ctx, groupID, actorID)
	if err != nil {
		return err
	}
	if userID == actorID {
		return newError(ErrInvalidInput, "you cannot remove yourself from the group")
	}
	if userID == record.OwnerID {
		return newError(ErrForbidden, "the group owner cannot be removed")
	}
	applied, err := s.store.RemoveMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if applied {
		s.metrics.Inc(lib.MetricMemberRemoved)
	}
	return nil
}

// GenerateInvite assigns a fresh token, invalidating any previous one.
func (s *DirectoryService) GenerateInvite(ctx context.Context, groupID, actorID string) (string, error) {
	record, err := s.requireAdmin(ctx, groupID, actorID)
	if err != nil {
		return "", err
	}
	if !record.Type.UsesInvites() {
		return "", newError(ErrInvalidInput, "public groups do not use invite links")
	}
	if err := s.allow(actorID); err != nil {
		return "", err
	}
	token := s.newToken()
	if err := s.store.ReplaceInviteToken(ctx, groupID, token, s.now().Unix()); err != nil {
		return "", notFound(err, "group not found")
	}
	s.metrics.Inc(lib.MetricInviteGenerated)
	return token, nil
}

func (s *DirectoryService) UpdateGroup(ctx context.Context, input directory.UpdateGroupInput, actorID string) (*models.Group, error) {
	input = input.Normalized()
	if err := input.Validate(); err != nil {
		return nil, newError(ErrInvalidInput, err.Error())
	}

	record, err := s.requireAdmin(ctx, input.GroupID, actorID)
	if err != nil {
		return nil, err
	}

	update := storage.ProfileUpdate{
		Name:        input.Name,
		Description: input.Description,
		UpdatedAt:   s.now().Unix(),
	}
	if input.Icon != "" {
		icon := input.Icon
		update.Icon = &icon
	}

	base := slugify(input.Name)
	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		candidate := slugCandidate(base, attempt)
		if candidate != record.Slug {
			inUse, err := s.store.SlugInUse(ctx, candidate, record.ID)
			if err != nil {
				return nil, err
			}
			if inUse {
				continue
			}
		}
		update.Slug = candidate
		updated, err := s.store.UpdateProfile(ctx, record.ID, update)
		if errors.Is(err, storage.ErrSlugTaken) {
			continue
		}
		if err != nil {
			return nil, notFound(err, "group not found")
		}
		s.metrics.Inc(lib.MetricGroupUpdated)
		return s.project(ctx, updated, actorID)
	}
	return nil, newError(ErrInvalidInput, fmt.Sprintf("no free address for group name %q", input.Name))
}

// CreateGroup registers a group owned by ownerID. Invite-based groups start
// with a token so a link can be shared immediately.
func (s *DirectoryService) CreateGroup(ctx context.Context, ownerID, name, description string, groupType models.GroupType) (*models.Group, error) {
	name = strings.TrimSpace(name)
	if len(name) < 3 {
		return nil, newError(ErrInvalidInput, "name must be at least 3 characters")
	}
	switch groupType {
	case models.GroupTypePublic, models.GroupTypePrivate, models.GroupTypeRestricted:
	default:
		return nil, newError(ErrInvalidInput, fmt.Sprintf("unknown group type %q", groupType))
	}

	now := s.now().Unix()
	record := storage.GroupRecord{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(description),
		Type:        groupType,
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if groupType.UsesInvites() {
		token := s.newToken()
		record.InviteToken = &token
	}

	base := slugify(name)
	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		record.Slug = slugCandidate(base, attempt)
		err := s.store.CreateGroup(ctx, record)
		if errors.Is(err, storage.ErrSlugTaken) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return s.project(ctx, record, ownerID)
	}
	return nil, newError(ErrInvalidInput, fmt.Sprintf("no free address for group name %q", name))
}

// RegisterUser creates a user with a generated id.
func (s *DirectoryService) RegisterUser(ctx context.Context, name, username string) (models.PublicUser, error) {
	user := models.PublicUser{
		ID:       uuid.NewString(),
		Name:     strings.TrimSpace(name),
		Username: strings.TrimSpace(username),
	}
	if user.Name == "" || user.Username == "" {
		return models.PublicUser{}, newError(ErrInvalidInput, "name and username are required")
	}
	if err := s.store.UpsertUser(ctx, user); err != nil {
		return models.PublicUser{}, err
	}
	return user, nil
}

func (s *DirectoryService) requireAdmin(ctx context.Context, groupID, actorID string) (storage.GroupRecord, error) {
	if actorID == "" {
		return storage.GroupRecord{}, newError(ErrUnauthenticated, "log in to manage this group")
	}
	record, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return storage.GroupRecord{}, notFound(err, "group not found")
	}
	isAdmin, err := s.isAdmin(ctx, record, actorID)
	if err != nil {
		return storage.GroupRecord{}, err
	}
	if !isAdmin {
		return storage.GroupRecord{}, newError(ErrForbidden, "only group admins can do that")
	}
	return record, nil
}

func (s *DirectoryService) isAdmin(ctx context.Context, record storage.GroupRecord, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	if record.OwnerID == userID {
		return true, nil
	}
	role, ok, err := s.store.GetMemberRole(ctx, record.ID, userID)
	if err != nil {
		return false, err
	}
	return ok && models.RoleGrantsAdmin(role), nil
}

// project builds the viewer's picture of a group. Admin-only collections and
// the invite token stay empty for everyone else.
func (s *DirectoryService) project(ctx context.Context, record storage.GroupRecord, viewerID string) (*models.Group, error) {
	count, err := s.store.CountMembers(ctx, record.ID)
	if err != nil {
		return nil, err
	}
	group := &models.Group{
		ID:           record.ID,
		Slug:         record.Slug,
		Name:         record.Name,
		Description:  record.Description,
		Icon:         record.Icon,
		Type:         record.Type,
		MembersCount: count,
	}
	if viewerID == "" {
		return group, nil
	}

	role, isMember, err := s.store.GetMemberRole(ctx, record.ID, viewerID)
	if err != nil {
		return nil, err
	}
	group.IsMember = isMember
	group.IsAdmin = record.OwnerID == viewerID || (isMember && models.RoleGrantsAdmin(role))
	if !isMember {
		pending, err := s.store.HasJoinRequest(ctx, record.ID, viewerID)
		if err != nil {
			return nil, err
		}
		group.HasPendingRequest = pending
	}
	if !group.IsAdmin {
		return group, nil
	}

	if group.Members, err = s.store.ListMembers(ctx, record.ID); err != nil {
		return nil, err
	}
	if record.Type.UsesInvites() {
		if group.JoinRequests, err = s.store.ListJoinRequests(ctx, record.ID); err != nil {
			return nil, err
		}
		group.InviteToken = record.InviteToken
	}
	return group, nil
}

func notFound(err error, msg string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return newError(ErrNotFound, msg)
	}
	return err
}
