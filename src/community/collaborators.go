// Package community resolves invite links into membership view-states and
// drives the join-request and admin membership flows against the directory.
package community

import (
	"context"
	"sync"

	"campus-community/src/models"
)

// ReturnPath is where dead-end and decline actions lead.
const ReturnPath = "/c"

// SessionProvider supplies the viewer's identity. Implementations must be safe
// for concurrent use.
type SessionProvider interface {
	Session() models.Session
}

// SessionNotifier is implemented by providers that can announce session
// changes. The resolver re-evaluates right away instead of on its next tick.
type SessionNotifier interface {
	// SessionChanged returns a channel closed at the next change.
	SessionChanged() <-chan struct{}
}

// Navigator moves the client to another route.
type Navigator interface {
	Navigate(path string)
}

// Clipboard receives copied invite links.
type Clipboard interface {
	WriteText(ctx context.Context, text string) error
}

// ImageUploader stores an image and returns its public URL. directory.Client
// implements it.
type ImageUploader interface {
	UploadImage(ctx context.Context, filename string, data []byte, credential string) (string, error)
}

type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) { f(path) }

// StaticSession always returns the same session.
type StaticSession models.Session

func (s StaticSession) Session() models.Session { return models.Session(s) }

// MutableSession is a SessionProvider whose session can be replaced, e.g.
// after a login completes.
type MutableSession struct {
	mu      sync.Mutex
	session models.Session
	changed chan struct{}
}

func NewMutableSession(initial models.Session) *MutableSession {
	return &MutableSession{session: initial, changed: make(chan struct{})}
}

func (s *MutableSession) Session() models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

func (s *MutableSession) Set(session models.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = session
	close(s.changed)
	s.changed = make(chan struct{})
}

func (s *MutableSession) SessionChanged() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changed
}
