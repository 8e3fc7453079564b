package community

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"campus-community/src/directory"
	"campus-community/src/models"
)

const (
	DefaultPollInterval           = time.Second
	DefaultMaxConsecutiveFailures = 3
)

// View is a snapshot of what the invite page shows.
type View struct {
	State models.ViewState
	// Group is the latest lookup result, nil before the first success.
	Group      *models.Group
	JoinError  string
	Submitting bool
	// LookupError explains an Invalid state caused by a failed lookup.
	LookupError string
	ReturnPath  string
}

type ResolverOption func(*Resolver)

func WithPollInterval(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithMaxConsecutiveFailures sets how many transport failures in a row are
// absorbed before the resolver gives up with Invalid.
func WithMaxConsecutiveFailures(n int) ResolverOption {
	return func(r *Resolver) {
		if n > 0 {
			r.maxFailures = n
		}
	}
}

// OnChange registers a callback for every view change. It runs on the
// resolver's goroutines and must not call Stop.
func OnChange(fn func(View)) ResolverOption {
	return func(r *Resolver) { r.onChange = fn }
}

func WithResolverLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Resolver polls the directory for one invite token and derives the viewer's
// view-state. A new token needs a new Resolver.
type Resolver struct {
	dir         directory.Directory
	sessions    SessionProvider
	nav         Navigator
	token       string
	interval    time.Duration
	maxFailures int
	onChange    func(View)
	logger      *slog.Logger
	join        *JoinRequester

	mu    sync.Mutex
	state models.ViewState
	group *models.Group
	// lookupSeq numbers issued lookups; sentAtSeq is the last lookup issued
	// before a join request was acknowledged.
	lookupSeq   uint64
	sentAtSeq   uint64
	requestSent bool
	navigated   bool
	failures    int
	lookupErr   string
	joinErr     string
	submitting  bool
	// rejected is the credential the directory refused; lookups resume once
	// the session carries a different one.
	rejected string
	started  bool
	stopped  bool
	cancel   context.CancelFunc
	done     chan struct{}

	emitMu sync.Mutex
}

func NewResolver(dir directory.Directory, sessions SessionProvider, nav Navigator, token string, opts ...ResolverOption) (*Resolver, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrEmptyToken
	}
	r := &Resolver{
		dir:         dir,
		sessions:    sessions,
		nav:         nav,
		token:       token,
		interval:    DefaultPollInterval,
		maxFailures: DefaultMaxConsecutiveFailures,
		logger:      slog.New(slog.NewJSONHandler(io.Discard, nil)),
		state:       models.ViewLoading,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.join = &JoinRequester{r: r}
	return r, nil
}

func (r *Resolver) Token() string { return r.token }

// Join returns the resolver's join-request orchestrator.
func (r *Resolver) Join() *JoinRequester { return r.join }

// Start issues the first lookup immediately and then polls until Stop, ctx
// cancellation, or an Invalid state.
func (r *Resolver) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return ErrStopped
	}
	if r.started {
		return errors.New("resolver already started")
	}
	r.started = true
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	go r.run(ctx)
	return nil
}

// Stop cancels polling and discards in-flight results. When Stop returns no
// further callbacks or navigations happen.
func (r *Resolver) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	// Wait out an emission that started before stopped was set.
	r.emitMu.Lock()
	r.emitMu.Unlock()
}

func (r *Resolver) View() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.viewLocked()
}

func (r *Resolver) run(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if !r.tick(ctx) {
			return
		}
		var sessionCh <-chan struct{}
		if n, ok := r.sessions.(SessionNotifier); ok {
			sessionCh = n.SessionChanged()
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-sessionCh:
		}
	}
}

// tick runs one evaluation and reports whether polling should continue.
func (r *Resolver) tick(ctx context.Context) bool {
	session := r.sessions.Session()

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return false
	}
	if r.state == models.ViewInvalid {
		r.mu.Unlock()
		return false
	}
	if r.state == models.ViewLoginRequired && !r.canResume(session) {
		r.mu.Unlock()
		return true
	}
	r.lookupSeq++
	seq := r.lookupSeq
	r.mu.Unlock()

	group, err := r.dir.GroupByInviteToken(ctx, r.token, session.Credential())

	r.mu.Lock()
	if r.stopped || ctx.Err() != nil {
		r.mu.Unlock()
		return false
	}
	before := r.state
	navigateTo := r.applyLookupLocked(seq, session, group, err)
	view := r.viewLocked()
	r.mu.Unlock()

	if before != view.State {
		r.logger.Debug("invite view changed", "token", r.token, "from", before, "to", view.State)
	}
	r.emit(view, navigateTo)
	return !view.State.Terminal()
}

func (r *Resolver) canResume(session models.Session) bool {
	return session.Authenticated && session.Token != r.rejected
}

// applyLookupLocked folds one lookup result into the cached state and returns
// the path to navigate to, if any.
func (r *Resolver) applyLookupLocked(seq uint64, session models.Session, group *models.Group, err error) string {
	if err != nil {
		switch {
		case directory.IsUnauthenticated(err):
			r.failures = 0
			r.rejected = session.Token
			r.state = models.ViewLoginRequired
		case directory.IsRetryable(err):
			r.failures++
			r.logger.Debug("invite lookup failed", "token", r.token, "failures", r.failures, "error", err)
			if r.failures < r.maxFailures {
				return ""
			}
			r.state = models.ViewInvalid
			r.lookupErr = userMessage(err)
		default:
			r.state = models.ViewInvalid
			r.lookupErr = userMessage(err)
		}
		return ""
	}

	r.failures = 0
	if group == nil {
		r.group = nil
		r.state = models.ViewInvalid
		r.lookupErr = ""
		return ""
	}
	r.group = group
	if r.requestSent && seq > r.sentAtSeq {
		r.requestSent = false
	}
	if !session.Authenticated {
		r.rejected = ""
		r.state = models.ViewLoginRequired
		return ""
	}
	return r.deriveLocked()
}

// deriveLocked evaluates Member, Awaiting and CanRequest for an authenticated
// viewer with a resolved group.
func (r *Resolver) deriveLocked() string {
	switch {
	case r.group.IsMember:
		r.state = models.ViewMember
		if !r.navigated {
			r.navigated = true
			return r.group.CanonicalPath()
		}
	case r.group.HasPendingRequest || r.requestSent:
		r.state = models.ViewAwaiting
	default:
		r.state = models.ViewCanRequest
	}
	return ""
}

func (r *Resolver) viewLocked() View {
	v := View{
		State:       r.state,
		Group:       r.group,
		JoinError:   r.joinErr,
		Submitting:  r.submitting,
		LookupError: r.lookupErr,
	}
	if r.state != models.ViewLoading && r.state != models.ViewMember {
		v.ReturnPath = ReturnPath
	}
	return v
}

// emit delivers a view and an optional navigation unless the resolver has
// been stopped.
func (r *Resolver) emit(view View, navigateTo string) {
	r.emitMu.Lock()
	defer r.emitMu.Unlock()

	r.mu.Lock()
	stopped := r.stopped
	r.mu.Unlock()
	if stopped {
		return
	}
	if navigateTo != "" && r.nav != nil {
		r.logger.Info("member confirmed, navigating", "token", r.token, "path", navigateTo)
		r.nav.Navigate(navigateTo)
	}
	if r.onChange != nil {
		r.onChange(view)
	}
}
