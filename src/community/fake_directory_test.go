package community

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"campus-community/src/directory"
	"campus-community/src/models"
)

// fakeDirectory is an in-memory directory. Credentials are user ids.
type fakeDirectory struct {
	mu        sync.Mutex
	group     models.Group
	token     string
	admins    map[string]bool
	members   []models.PublicUser
	pending   []models.PublicUser
	users     map[string]models.PublicUser
	calls     map[string]int
	nextToken int

	lookupErr   error
	// blipErr fails the next blips lookups, then lookups succeed again.
	blipErr     error
	blips       int
	joinErr     error
	joinGate    chan struct{}
	acceptGate  chan struct{}
	lookupHook  func()
	mutationErr error
}

func newFakeDirectory() *fakeDirectory {
	owner := models.PublicUser{ID: "admin", Name: "Ada", Username: "ada"}
	user := models.PublicUser{ID: "u1", Name: "Uma", Username: "uma"}
	guest := models.PublicUser{ID: "u2", Name: "Ravi", Username: "ravi"}
	return &fakeDirectory{
		group:   models.Group{ID: "g1", Slug: "robotics-club", Name: "Robotics Club", Description: "Robots", Type: models.GroupTypePrivate},
		token:   "abc123",
		admins:  map[string]bool{"admin": true},
		members: []models.PublicUser{owner},
		users:   map[string]models.PublicUser{"admin": owner, "u1": user, "u2": guest},
		calls:   make(map[string]int),
	}
}

func (f *fakeDirectory) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func indexOf(users []models.PublicUser, id string) int {
	for i, u := range users {
		if u.ID == id {
			return i
		}
	}
	return -1
}

func (f *fakeDirectory) projectLocked(viewer string) *models.Group {
	g := f.group
	g.MembersCount = len(f.members)
	if viewer == "" {
		return &g
	}
	g.IsMember = indexOf(f.members, viewer) >= 0
	g.HasPendingRequest = indexOf(f.pending, viewer) >= 0
	g.IsAdmin = f.admins[viewer]
	if g.IsAdmin {
		g.Members = append([]models.PublicUser(nil), f.members...)
		g.JoinRequests = append([]models.PublicUser{}, f.pending...)
		if f.token != "" {
			tok := f.token
			g.InviteToken = &tok
		}
	}
	return &g
}

func (f *fakeDirectory) GroupByInviteToken(_ context.Context, token, credential string) (*models.Group, error) {
	f.mu.Lock()
	f.calls["lookup"]++
	hook := f.lookupHook
	f.mu.Unlock()
	if hook != nil {
		hook()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	if f.blips > 0 {
		f.blips--
		return nil, f.blipErr
	}
	if token != f.token {
		return nil, nil
	}
	return f.projectLocked(credential), nil
}

func (f *fakeDirectory) GroupBySlug(_ context.Context, slug, credential string) (*models.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["slug"]++
	if slug != f.group.Slug {
		return nil, &directory.Error{Code: directory.CodeNotFound, Message: "group not found"}
	}
	return f.projectLocked(credential), nil
}

func (f *fakeDirectory) RequestJoin(ctx context.Context, groupID, token, credential string) error {
	f.mu.Lock()
	f.calls["join"]++
	gate := f.joinGate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.joinErr != nil {
		return f.joinErr
	}
	if token != f.token || groupID != f.group.ID {
		return &directory.Error{Code: directory.CodeForbidden, Message: "this invite link is no longer valid"}
	}
	if indexOf(f.members, credential) < 0 && indexOf(f.pending, credential) < 0 {
		f.pending = append(f.pending, f.users[credential])
	}
	return nil
}

func (f *fakeDirectory) adminLocked(credential string) error {
	if f.mutationErr != nil {
		return f.mutationErr
	}
	if !f.admins[credential] {
		return &directory.Error{Code: directory.CodeForbidden, Message: "only group admins can do that"}
	}
	return nil
}

func (f *fakeDirectory) AcceptJoinRequest(_ context.Context, _, userID, credential string) error {
	f.mu.Lock()
	f.calls["accept"]++
	gate := f.acceptGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.adminLocked(credential); err != nil {
		return err
	}
	if i := indexOf(f.pending, userID); i >= 0 {
		f.pending = append(f.pending[:i], f.pending[i+1:]...)
		f.members = append(f.members, f.users[userID])
	}
	return nil
}

func (f *fakeDirectory) RejectJoinRequest(_ context.Context, _, userID, credential string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["reject"]++
	if err := f.adminLocked(credential); err != nil {
		return err
	}
	if i := indexOf(f.pending, userID); i >= 0 {
		f.pending = append(f.pending[:i], f.pending[i+1:]...)
	}
	return nil
}

func (f *fakeDirectory) RemoveMember(_ context.Context, _, userID, credential string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["remove"]++
	if err := f.adminLocked(credential); err != nil {
		return err
	}
	if i := indexOf(f.members, userID); i >= 0 {
		f.members = append(f.members[:i], f.members[i+1:]...)
	}
	return nil
}

func (f *fakeDirectory) GenerateInvite(_ context.Context, _, credential string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["invite"]++
	if err := f.adminLocked(credential); err != nil {
		return "", err
	}
	f.nextToken++
	f.token = fmt.Sprintf("tok-%d", f.nextToken)
	return f.token, nil
}

func (f *fakeDirectory) UpdateGroup(_ context.Context, input directory.UpdateGroupInput, credential string) (*models.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["update"]++
	if err := f.adminLocked(credential); err != nil {
		return nil, err
	}
	f.group.Name = input.Name
	f.group.Description = input.Description
	f.group.Slug = slugOf(input.Name)
	return f.projectLocked(credential), nil
}

func slugOf(name string) string {
	out := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		ch := name[i]
		switch {
		case ch >= 'A' && ch <= 'Z':
			out = append(out, ch+'a'-'A')
		case ch >= 'a' && ch <= 'z', ch >= '0' && ch <= '9':
			out = append(out, ch)
		case len(out) > 0 && out[len(out)-1] != '-':
			out = append(out, '-')
		}
	}
	return string(out)
}

type recordingNavigator struct {
	mu    sync.Mutex
	paths []string
}

func (n *recordingNavigator) Navigate(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paths = append(n.paths, path)
}

func (n *recordingNavigator) Paths() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.paths...)
}

func session(userID string) models.Session {
	return models.Session{Authenticated: true, Token: userID, UserID: userID}
}

const testInterval = 10 * time.Millisecond

// waitFor polls View until cond holds or the deadline passes.
func waitFor(t *testing.T, r *Resolver, what string, cond func(View) bool) View {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		v := r.View()
		if cond(v) {
			return v
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s; last view %+v", what, v)
		}
		time.Sleep(testInterval / 2)
	}
}

func stateIs(s models.ViewState) func(View) bool {
	return func(v View) bool { return v.State == s }
}
