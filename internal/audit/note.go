package audit

import (
	"context"
	"sync"
)

type noteContextKey struct{}

// Note collects what a handler wants audited. The middleware installs it
// before dispatch and turns it into an Entry once the response is written;
// handlers that never call Set produce no audit entry.
type Note struct {
	mu         sync.Mutex
	set        bool
	action     string
	entityType string
	entityID   string
	detail     string
	category   string
	actorID    string
	actorName  string
}

// Set marks the request as auditable.
func (n *Note) Set(action, entityType, entityID, detail, category string) {
	if n == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.set = true
	n.action = action
	n.entityType = entityType
	n.entityID = entityID
	n.detail = detail
	n.category = category
}

// SetActor overrides the actor, used when no principal is attached yet (login).
func (n *Note) SetActor(id, name string) {
	if n == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.actorID = id
	n.actorName = name
}

// Snapshot copies the note into the entry; reports whether it was set.
func (n *Note) Snapshot(e *Entry) bool {
	if n == nil {
		return false
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.set {
		return false
	}
	e.Action = n.action
	e.EntityType = n.entityType
	e.EntityID = n.entityID
	e.Detail = n.detail
	e.Category = n.category
	if n.actorID != "" {
		e.ActorID = n.actorID
		e.ActorName = n.actorName
	}
	return true
}

// WithNote installs a fresh note in the context.
func WithNote(ctx context.Context) (context.Context, *Note) {
	n := &Note{}
	return context.WithValue(ctx, noteContextKey{}, n), n
}

// NoteFromContext returns the note installed by the audit middleware, if any.
func NoteFromContext(ctx context.Context) *Note {
	if ctx == nil {
		return nil
	}
	n, _ := ctx.Value(noteContextKey{}).(*Note)
	return n
}
