package community

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"campus-community/src/directory"
	"campus-community/src/models"
)

const (
	DefaultCopiedDuration = 2 * time.Second
	// DefaultCacheMaxAge bounds how stale the members and requests tabs get.
	DefaultCacheMaxAge = 30 * time.Second
)

// ConsoleOp names an admin action for in-flight tracking.
type ConsoleOp string

const (
	OpRemoveMember   ConsoleOp = "remove"
	OpAccept         ConsoleOp = "accept"
	OpReject         ConsoleOp = "reject"
	OpGenerateInvite ConsoleOp = "invite"
	OpUpdateProfile  ConsoleOp = "update"
	OpUploadIcon     ConsoleOp = "upload"
)

// MaxIconBytes is the largest icon the profile form accepts.
const MaxIconBytes = 2 << 20

// MemberRow is one line of the members tab.
type MemberRow struct {
	User      models.PublicUser
	CanRemove bool
}

// ProfileInput is the group profile form.
type ProfileInput struct {
	Name        string
	Description string
	Icon        string
}

type ConsoleOption func(*Console)

// WithOrigin sets the origin invite links are built on.
func WithOrigin(origin string) ConsoleOption {
	return func(c *Console) { c.origin = strings.TrimRight(strings.TrimSpace(origin), "/") }
}

// WithCacheMaxAge sets how long a fetched group view is served before the
// next read refetches it.
func WithCacheMaxAge(d time.Duration) ConsoleOption {
	return func(c *Console) {
		if d > 0 {
			c.maxAge = d
		}
	}
}

// WithImageUploader sets where UploadIcon sends images. A directory that
// implements ImageUploader is used when no uploader is given.
func WithImageUploader(u ImageUploader) ConsoleOption {
	return func(c *Console) { c.uploader = u }
}

func WithCopiedDuration(d time.Duration) ConsoleOption {
	return func(c *Console) {
		if d > 0 {
			c.copiedFor = d
		}
	}
}

func WithConsoleLogger(logger *slog.Logger) ConsoleOption {
	return func(c *Console) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Console manages one group's members, join requests, invite link and
// profile. Permission checks are left to the directory.
type Console struct {
	dir       directory.Directory
	sessions  SessionProvider
	nav       Navigator
	uploader  ImageUploader
	origin    string
	copiedFor time.Duration
	maxAge    time.Duration
	now       func() time.Time
	logger    *slog.Logger

	fetches singleflight.Group
	actions singleflight.Group

	mu          sync.Mutex
	slug        string
	cached      *models.Group
	cachedAt    time.Time
	generation  uint64
	pending     map[string]struct{}
	copied      bool
	copiedTimer *time.Timer
}

func NewConsole(dir directory.Directory, sessions SessionProvider, nav Navigator, slug string, opts ...ConsoleOption) *Console {
	c := &Console{
		dir:       dir,
		sessions:  sessions,
		nav:       nav,
		slug:      strings.TrimSpace(slug),
		copiedFor: DefaultCopiedDuration,
		maxAge:    DefaultCacheMaxAge,
		now:       time.Now,
		logger:    slog.New(slog.NewJSONHandler(io.Discard, nil)),
		pending:   make(map[string]struct{}),
	}
	if u, ok := dir.(ImageUploader); ok {
		c.uploader = u
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Slug is the group's current slug; it follows profile renames.
func (c *Console) Slug() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slug
}

// Group returns the cached group view, fetching it when the cache is empty or
// older than the max age.
func (c *Console) Group(ctx context.Context) (*models.Group, error) {
	session := c.sessions.Session()
	if !session.Authenticated {
		return nil, ErrNotAuthenticated
	}

	c.mu.Lock()
	if c.cached != nil && c.now().Sub(c.cachedAt) < c.maxAge {
		g := c.cached
		c.mu.Unlock()
		return g, nil
	}
	if c.cached != nil {
		c.cached = nil
		c.generation++
	}
	slug, gen := c.slug, c.generation
	c.mu.Unlock()

	v, err, _ := c.fetches.Do(fmt.Sprintf("%s#%d", slug, gen), func() (any, error) {
		group, err := c.dir.GroupBySlug(ctx, slug, session.Credential())
		if err != nil {
			return nil, err
		}
		if group == nil {
			return nil, fmt.Errorf("group %q: %w", slug, ErrGroupNotFound)
		}
		c.mu.Lock()
		if c.generation == gen {
			c.cached = group
			c.cachedAt = c.now()
		}
		c.mu.Unlock()
		return group, nil
	})
	if err != nil {
		if directory.IsNotFound(err) {
			return nil, fmt.Errorf("group %q: %w", slug, ErrGroupNotFound)
		}
		return nil, err
	}
	return v.(*models.Group), nil
}

// Invalidate drops the cached view; the next read refetches.
func (c *Console) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cached = nil
	c.generation++
}

// Refresh refetches the group view now, picking up join requests and members
// added elsewhere.
func (c *Console) Refresh(ctx context.Context) (*models.Group, error) {
	c.Invalidate()
	return c.Group(ctx)
}

func (c *Console) Members(ctx context.Context) ([]MemberRow, error) {
	group, err := c.Group(ctx)
	if err != nil {
		return nil, err
	}
	self := c.sessions.Session().UserID
	rows := make([]MemberRow, 0, len(group.Members))
	for _, member := range group.Members {
		rows = append(rows, MemberRow{User: member, CanRemove: member.ID != self})
	}
	return rows, nil
}

func (c *Console) JoinRequests(ctx context.Context) ([]models.PublicUser, error) {
	group, err := c.Group(ctx)
	if err != nil {
		return nil, err
	}
	if group.JoinRequests == nil {
		return []models.PublicUser{}, nil
	}
	return group.JoinRequests, nil
}

// RemoveMember removes userID. Removing an already removed member succeeds.
func (c *Console) RemoveMember(ctx context.Context, userID string) error {
	if userID == c.sessions.Session().UserID {
		return ErrSelfRemoval
	}
	return c.membershipAction(ctx, OpRemoveMember, userID, c.dir.RemoveMember)
}

// Accept approves a pending request. A request another admin already resolved
// counts as success.
func (c *Console) Accept(ctx context.Context, userID string) error {
	return c.membershipAction(ctx, OpAccept, userID, c.dir.AcceptJoinRequest)
}

func (c *Console) Reject(ctx context.Context, userID string) error {
	return c.membershipAction(ctx, OpReject, userID, c.dir.RejectJoinRequest)
}

func (c *Console) membershipAction(ctx context.Context, op ConsoleOp, userID string, call func(ctx context.Context, groupID, userID, credential string) error) error {
	group, err := c.Group(ctx)
	if err != nil {
		return err
	}
	credential := c.sessions.Session().Credential()
	_, err = c.guard(op, userID, func() (any, error) {
		if err := call(ctx, group.ID, userID, credential); err != nil {
			return nil, err
		}
		c.Invalidate()
		return nil, nil
	})
	if err != nil {
		c.logger.Warn("membership action failed", "op", string(op), "group_id", group.ID, "user_id", userID, "error", err)
	}
	return err
}

// GenerateInvite creates or replaces the invite token. The returned token is
// the directory's; the cache is refetched rather than patched.
func (c *Console) GenerateInvite(ctx context.Context) (string, error) {
	group, err := c.Group(ctx)
	if err != nil {
		return "", err
	}
	credential := c.sessions.Session().Credential()
	v, err := c.guard(OpGenerateInvite, "", func() (any, error) {
		token, err := c.dir.GenerateInvite(ctx, group.ID, credential)
		if err != nil {
			return "", err
		}
		c.Invalidate()
		return token, nil
	})
	if err != nil {
		c.logger.Warn("generate invite failed", "group_id", group.ID, "error", err)
		return "", err
	}
	return v.(string), nil
}

// InviteLink builds the shareable link from the current group view.
func (c *Console) InviteLink(ctx context.Context) (string, error) {
	group, err := c.Group(ctx)
	if err != nil {
		return "", err
	}
	if group.InviteToken == nil || *group.InviteToken == "" {
		return "", ErrNoInviteToken
	}
	return models.InviteLink(c.origin, *group.InviteToken), nil
}

// CopyInviteLink writes the link to the clipboard and raises Copied for a
// short while.
func (c *Console) CopyInviteLink(ctx context.Context, clipboard Clipboard) (string, error) {
	link, err := c.InviteLink(ctx)
	if err != nil {
		return "", err
	}
	if err := clipboard.WriteText(ctx, link); err != nil {
		return "", fmt.Errorf("copy invite link: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.copied = true
	if c.copiedTimer != nil {
		c.copiedTimer.Stop()
	}
	c.copiedTimer = time.AfterFunc(c.copiedFor, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.copied = false
	})
	return link, nil
}

func (c *Console) Copied() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copied
}

// UpdateProfile validates and saves the profile. When the slug changes the
// console follows it and navigates to the new canonical page.
func (c *Console) UpdateProfile(ctx context.Context, in ProfileInput) (*models.Group, error) {
	group, err := c.Group(ctx)
	if err != nil {
		return nil, err
	}
	input := directory.UpdateGroupInput{
		GroupID:     group.ID,
		Name:        in.Name,
		Description: in.Description,
		Icon:        in.Icon,
	}.Normalized()
	if err := input.Validate(); err != nil {
		return nil, err
	}

	credential := c.sessions.Session().Credential()
	v, err := c.guard(OpUpdateProfile, "", func() (any, error) {
		return c.dir.UpdateGroup(ctx, input, credential)
	})
	if err != nil {
		c.logger.Warn("update group failed", "group_id", group.ID, "error", err)
		return nil, err
	}
	updated := v.(*models.Group)

	c.mu.Lock()
	moved := updated.Slug != "" && updated.Slug != c.slug
	if moved {
		c.slug = updated.Slug
	}
	c.cached = nil
	c.generation++
	c.mu.Unlock()

	if moved && c.nav != nil {
		c.nav.Navigate(updated.CanonicalPath())
	}
	return updated, nil
}

// UploadIcon checks and uploads a new group icon and returns its URL for the
// profile form. The profile itself is not changed.
func (c *Console) UploadIcon(ctx context.Context, filename string, data []byte) (string, error) {
	session := c.sessions.Session()
	if !session.Authenticated {
		return "", ErrNotAuthenticated
	}
	if len(data) > MaxIconBytes {
		return "", ErrImageTooLarge
	}
	if !strings.HasPrefix(http.DetectContentType(data), "image/") {
		return "", ErrNotAnImage
	}
	if c.uploader == nil {
		return "", ErrNoImageUploader
	}

	v, err := c.guard(OpUploadIcon, "", func() (any, error) {
		return c.uploader.UploadImage(ctx, filename, data, session.Credential())
	})
	if err != nil {
		c.logger.Warn("upload icon failed", "slug", c.Slug(), "error", err)
		return "", err
	}
	return v.(string), nil
}

// Pending reports whether op for userID is in flight.
func (c *Console) Pending(op ConsoleOp, userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[actionKey(op, userID)]
	return ok
}

// guard runs fn once for concurrent identical actions and tracks it as
// pending while it runs.
func (c *Console) guard(op ConsoleOp, userID string, fn func() (any, error)) (any, error) {
	key := actionKey(op, userID)
	v, err, _ := c.actions.Do(key, func() (any, error) {
		c.mu.Lock()
		c.pending[key] = struct{}{}
		c.mu.Unlock()
		defer func() {
			c.mu.Lock()
			delete(c.pending, key)
			c.mu.Unlock()
		}()
		return fn()
	})
	return v, err
}

func actionKey(op ConsoleOp, userID string) string {
	return string(op) + ":" + userID
}
