package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5"

	"campus-community/src/models"
	"campus-community/src/storage"
)

type memberKey struct{ groupID, userID string }

// fakeStore is an in-memory GroupStore with the same no-op semantics as the
// Postgres repo.
type fakeStore struct {
	mu       sync.Mutex
	users    map[string]models.PublicUser
	groups   map[string]storage.GroupRecord
	members  map[memberKey]string
	requests map[memberKey]int64
	order    int64
	added    map[memberKey]int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[string]models.PublicUser),
		groups:   make(map[string]storage.GroupRecord),
		members:  make(map[memberKey]string),
		requests: make(map[memberKey]int64),
		added:    make(map[memberKey]int64),
	}
}

func (f *fakeStore) tick() int64 {
	f.order++
	return f.order
}

func (f *fakeStore) UpsertUser(_ context.Context, user models.PublicUser) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.ID] = user
	return nil
}

func (f *fakeStore) CreateGroup(_ context.Context, group storage.GroupRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.groups {
		if g.Slug == group.Slug {
			return storage.ErrSlugTaken
		}
	}
	f.groups[group.ID] = group
	key := memberKey{group.ID, group.OwnerID}
	f.members[key] = models.RoleOwner
	f.added[key] = f.tick()
	return nil
}

func (f *fakeStore) GetGroup(_ context.Context, groupID string) (storage.GroupRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.groups[groupID]
	if !ok {
		return storage.GroupRecord{}, fmt.Errorf("load group %s: %w", groupID, pgx.ErrNoRows)
	}
	return g, nil
}

func (f *fakeStore) GetGroupBySlug(_ context.Context, slug string) (storage.GroupRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.groups {
		if g.Slug == slug {
			return g, nil
		}
	}
	return storage.GroupRecord{}, fmt.Errorf("load group by slug: %w", pgx.ErrNoRows)
}

func (f *fakeStore) GetGroupByInviteToken(_ context.Context, token string) (storage.GroupRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.groups {
		if g.InviteToken != nil && *g.InviteToken == token && g.Type != models.GroupTypePublic {
			return g, nil
		}
	}
	return storage.GroupRecord{}, fmt.Errorf("load group by invite token: %w", pgx.ErrNoRows)
}

func (f *fakeStore) SlugInUse(_ context.Context, slug, exceptGroupID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, g := range f.groups {
		if g.Slug == slug && id != exceptGroupID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) CountMembers(_ context.Context, groupID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for k := range f.members {
		if k.groupID == groupID {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) GetMemberRole(_ context.Context, groupID, userID string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	role, ok := f.members[memberKey{groupID, userID}]
	return role, ok, nil
}

func (f *fakeStore) HasJoinRequest(_ context.Context, groupID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.requests[memberKey{groupID, userID}]
	return ok, nil
}

func (f *fakeStore) usersOf(groupID string, set map[memberKey]int64) []models.PublicUser {
	type entry struct {
		at   int64
		user models.PublicUser
	}
	entries := make([]entry, 0)
	for k, at := range set {
		if k.groupID == groupID {
			entries = append(entries, entry{at: at, user: f.users[k.userID]})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].at < entries[j].at })
	users := make([]models.PublicUser, 0, len(entries))
	for _, e := range entries {
		users = append(users, e.user)
	}
	return users
}

func (f *fakeStore) ListMembers(_ context.Context, groupID string) ([]models.PublicUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.usersOf(groupID, f.added), nil
}

func (f *fakeStore) ListJoinRequests(_ context.Context, groupID string) ([]models.PublicUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.usersOf(groupID, f.requests), nil
}

func (f *fakeStore) InsertJoinRequest(_ context.Context, req models.GroupJoinRequest) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := memberKey{req.GroupID, req.UserID}
	if _, ok := f.requests[key]; ok {
		return false, nil
	}
	f.requests[key] = f.tick()
	return true, nil
}

func (f *fakeStore) AcceptJoinRequest(_ context.Context, member models.GroupMember) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := memberKey{member.GroupID, member.UserID}
	if _, ok := f.requests[key]; !ok {
		return false, nil
	}
	delete(f.requests, key)
	if _, ok := f.members[key]; ok {
		return false, nil
	}
	f.members[key] = member.RoleName
	f.added[key] = f.tick()
	return true, nil
}

func (f *fakeStore) RejectJoinRequest(_ context.Context, groupID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := memberKey{groupID, userID}
	if _, ok := f.requests[key]; !ok {
		return false, nil
	}
	delete(f.requests, key)
	return true, nil
}

func (f *fakeStore) RemoveMember(_ context.Context, groupID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := memberKey{groupID, userID}
	role, ok := f.members[key]
	if !ok || role == models.RoleOwner {
		return false, nil
	}
	delete(f.members, key)
	delete(f.added, key)
	return true, nil
}

func (f *fakeStore) ReplaceInviteToken(_ context.Context, groupID, token string, updatedAt int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.groups[groupID]
	if !ok {
		return fmt.Errorf("replace invite token for %s: %w", groupID, pgx.ErrNoRows)
	}
	g.InviteToken = &token
	g.UpdatedAt = updatedAt
	f.groups[groupID] = g
	return nil
}

func (f *fakeStore) UpdateProfile(_ context.Context, groupID string, update storage.ProfileUpdate) (storage.GroupRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.groups[groupID]
	if !ok {
		return storage.GroupRecord{}, fmt.Errorf("update group profile: %w", pgx.ErrNoRows)
	}
	for id, other := range f.groups {
		if id != groupID && other.Slug == update.Slug {
			return storage.GroupRecord{}, storage.ErrSlugTaken
		}
	}
	g.Name = update.Name
	g.Description = update.Description
	g.Icon = update.Icon
	g.Slug = update.Slug
	g.UpdatedAt = update.UpdatedAt
	f.groups[groupID] = g
	return g, nil
}
