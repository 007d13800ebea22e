// Package session holds the per-connection SessionBinding: a non-owning
// reference to the per-session facade the internal server created at
// CreateSession time (spec.md §3, §4.4).
package session

import (
	"sync"

	"github.com/lAndbz/opcua-processor/ua"
)

// Facade is the external per-session collaborator (spec.md §6). One
// Facade is created per CreateSession call and lives until CloseSession
// or connection loss.
type Facade interface {
	CreateSession(params ua.Params) (ua.Params, error)
	ActivateSession(params ua.Params) (ua.Params, error)
	CloseSession(deleteSubscriptions bool) error
	Read(params ua.Params) (ua.Params, error)
	Write(params ua.Params) (ua.Params, error)
	Browse(params ua.Params) (ua.Params, error)
	TranslateBrowsePathsToNodeIDs(paths ua.Params) (ua.Params, error)
	AddNodes(nodes ua.Params) (ua.Params, error)
	CreateSubscription(params ua.Params, publish PublishCallback) (ua.Params, error)
	DeleteSubscriptions(ids ua.Params) (ua.Params, error)
	CreateMonitoredItems(params ua.Params) (ua.Params, error)
	DeleteMonitoredItems(params ua.Params) (ua.Params, error)
	Publish(acks []int32) error
}

// PublishCallback delivers a ready notification to the processor
// asynchronously (spec.md §6, §9 "prefer delivering notifications via a
// channel the processor owns"). Implementations must not block the
// subscription engine indefinitely.
type PublishCallback func(ua.NotificationMessage)

// Binding holds the (possibly absent) Facade bound to a connection.
// Nullable until CreateSession completes; cleared on CloseSession or
// connection loss (spec.md §3).
type Binding struct {
	mu     sync.RWMutex
	facade Facade
}

// Bind attaches a freshly created Facade.
func (b *Binding) Bind(f Facade) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.facade = f
}

// Clear detaches the Facade, e.g. on CloseSession or disconnection.
func (b *Binding) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.facade = nil
}

// Get returns the bound Facade, or false if none is bound
// (spec.md §4.4 ActivateSession: "If no session bound: result =
// BadSessionIdInvalid").
func (b *Binding) Get() (Facade, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.facade, b.facade != nil
}
