package call

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Registry tracks live sessions by call ID. Lookups by the same ID always
// return the same *Session pointer until the session is removed.
type Registry struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	idleTimeout time.Duration
	expireHook  func(*Session)
	log         *logrus.Logger
}

func NewRegistry(idleTimeout time.Duration, log *logrus.Logger) *Registry {
	return &Registry{
		sessions:    make(map[string]*Session),
		idleTimeout: idleTimeout,
		log:         log,
	}
}

// SetExpireHook installs a callback invoked for each session the janitor
// evicts. Set it before StartJanitor.
func (r *Registry) SetExpireHook(hook func(*Session)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expireHook = hook
}

// GetOrCreate returns the live session for id, creating it in the initial
// state when none exists.
func (r *Registry) GetOrCreate(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[id]; ok {
		return s
	}
	now := time.Now().UTC()
	s := &Session{
		ID:             id,
		State:          StateInitial,
		StartedAt:      now,
		LastActivityAt: now,
	}
	r.sessions[id] = s
	return s
}

// Peek returns the session for id without creating one.
func (r *Registry) Peek(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// StartJanitor runs a background sweep that evicts sessions idle longer
// than the registry's idle timeout. It stops when ctx is cancelled.
func (r *Registry) StartJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.sweep()
			}
		}
	}()
}

func (r *Registry) sweep() {
	r.mu.RLock()
	candidates := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		candidates = append(candidates, s)
	}
	hook := r.expireHook
	timeout := r.idleTimeout
	r.mu.RUnlock()

	cutoff := time.Now().UTC().Add(-timeout)
	for _, s := range candidates {
		s.lock()
		expired := !s.closed && s.LastActivityAt.Before(cutoff)
		if expired {
			s.closed = true
		}
		s.unlock()
		if !expired {
			continue
		}
		r.Remove(s.ID)
		if r.log != nil {
			r.log.WithFields(logrus.Fields{"call_id": s.ID, "state": s.State}).
				Info("evicted idle call session")
		}
		if hook != nil {
			hook(s)
		}
	}
}
