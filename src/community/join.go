package community

import (
	"context"

	"golang.org/x/sync/singleflight"

	"campus-community/src/models"
)

// JoinRequester submits the viewer's join request for a resolver's group. At
// most one submission is in flight; concurrent callers share its result.
type JoinRequester struct {
	r      *Resolver
	flight singleflight.Group
}

// Submit issues exactly one RequestJoin mutation when the view allows it. A
// failure is also recorded in View.JoinError and may be retried.
func (j *JoinRequester) Submit(ctx context.Context) error {
	_, err, _ := j.flight.Do("submit", func() (any, error) {
		return nil, j.submit(ctx)
	})
	return err
}

// InFlight reports whether a submission awaits its acknowledgment.
func (j *JoinRequester) InFlight() bool {
	j.r.mu.Lock()
	defer j.r.mu.Unlock()
	return j.r.submitting
}

func (j *JoinRequester) submit(ctx context.Context) error {
	r := j.r
	session := r.sessions.Session()

	r.mu.Lock()
	switch {
	case r.stopped:
		r.mu.Unlock()
		return ErrStopped
	case !session.Authenticated:
		r.mu.Unlock()
		return ErrNotAuthenticated
	case r.group == nil, r.group.IsMember, r.state != models.ViewCanRequest:
		r.mu.Unlock()
		return ErrJoinNotAllowed
	}
	groupID := r.group.ID
	r.submitting = true
	r.joinErr = ""
	view := r.viewLocked()
	r.mu.Unlock()
	r.emit(view, "")

	err := r.dir.RequestJoin(ctx, groupID, r.token, session.Credential())

	r.mu.Lock()
	r.submitting = false
	if r.stopped {
		r.mu.Unlock()
		return err
	}
	if err != nil {
		r.joinErr = userMessage(err)
		r.logger.Warn("join request failed", "token", r.token, "group_id", groupID, "error", err)
	} else {
		r.requestSent = true
		r.sentAtSeq = r.lookupSeq
		if r.state == models.ViewCanRequest {
			r.state = models.ViewAwaiting
		}
	}
	view = r.viewLocked()
	r.mu.Unlock()
	r.emit(view, "")
	return err
}
