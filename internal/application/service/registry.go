package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/assessment-bulk/internal/application/port"
	"github.com/garyjia/assessment-bulk/internal/domain/workflow"
)

// DependenciesFunc builds the collaborators of a new session
type DependenciesFunc func(sessionID string) Dependencies

// SessionRegistry keeps the open completion sessions. As a worker it closes
// sessions that stayed idle longer than the idle timeout.
type SessionRegistry struct {
	newDeps DependenciesFunc
	logger  Logger

	idleTimeout   time.Duration
	sweepInterval time.Duration

	mu       sync.RWMutex
	sessions map[string]*CompletionService
	onClose  []func(sessionID string)

	lifecycleMu sync.Mutex
	cancel      context.CancelFunc
	done        chan struct{}
}

// NewSessionRegistry creates a registry. A zero idleTimeout disables sweeping.
func NewSessionRegistry(newDeps DependenciesFunc, idleTimeout time.Duration, logger Logger) *SessionRegistry {
	if logger == nil {
		logger = nopLogger{}
	}
	sweep := idleTimeout / 4
	if sweep < time.Second {
		sweep = time.Second
	}
	return &SessionRegistry{
		newDeps:       newDeps,
		logger:        logger,
		idleTimeout:   idleTimeout,
		sweepInterval: sweep,
		sessions:      make(map[string]*CompletionService),
	}
}

// OnClose registers fn to run after a session is closed and forgotten
func (r *SessionRegistry) OnClose(fn func(sessionID string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onClose = append(r.onClose, fn)
}

// Create opens a new empty session
func (r *SessionRegistry) Create() *CompletionService {
	id := uuid.NewString()
	session := NewCompletionService(id, r.newDeps(id))

	r.mu.Lock()
	r.sessions[id] = session
	r.mu.Unlock()

	r.logger.Info("Session created", "session_id", id)
	return session
}

// Get returns an open session
func (r *SessionRegistry) Get(id string) (*CompletionService, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return session, nil
}

// List returns the open sessions, oldest first
func (r *SessionRegistry) List() []*CompletionService {
	r.mu.RLock()
	sessions := make([]*CompletionService, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].createdAt.Before(sessions[j].createdAt)
	})
	return sessions
}

// Close closes a session and forgets it
func (r *SessionRegistry) Close(ctx context.Context, id string, confirmer port.Confirmer) error {
	session, err := r.Get(id)
	if err != nil {
		return err
	}
	if err := session.Close(ctx, confirmer); err != nil {
		return err
	}

	r.mu.Lock()
	delete(r.sessions, id)
	hooks := append(([]func(string))(nil), r.onClose...)
	r.mu.Unlock()

	for _, fn := range hooks {
		fn(id)
	}
	return nil
}

// Sweep closes the sessions idle since before now minus the idle timeout.
// Sessions with a running task are kept.
func (r *SessionRegistry) Sweep(ctx context.Context, now time.Time) int {
	if r.idleTimeout <= 0 {
		return 0
	}

	discard := port.ConfirmFunc(func(context.Context, string) bool { return true })
	closed := 0
	for _, session := range r.List() {
		if now.Sub(session.LastActivity()) < r.idleTimeout {
			continue
		}
		if session.State() == workflow.StateTaskRunning {
			continue
		}
		if err := r.Close(ctx, session.ID(), discard); err != nil {
			r.logger.Error("Failed to close idle session", "session_id", session.ID(), "error", err)
			continue
		}
		r.logger.Info("Idle session closed", "session_id", session.ID())
		closed++
	}
	return closed
}

// Start starts the idle sweep loop
func (r *SessionRegistry) Start(ctx context.Context) error {
	r.lifecycleMu.Lock()
	defer r.lifecycleMu.Unlock()

	if r.cancel != nil {
		return fmt.Errorf("session registry is already running")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(r.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case now := <-ticker.C:
				r.Sweep(loopCtx, now)
			}
		}
	}(r.done)

	return nil
}

// Stop stops the sweep loop
func (r *SessionRegistry) Stop() {
	r.lifecycleMu.Lock()
	defer r.lifecycleMu.Unlock()

	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
	r.cancel = nil
}

// Name returns the worker name for identification
func (r *SessionRegistry) Name() string {
	return "SessionRegistry"
}
