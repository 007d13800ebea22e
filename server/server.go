// Package server defines the internal server facade (spec.md §6) the
// dispatcher consumes for channel id allocation, session creation, and
// endpoint discovery, plus a small in-memory reference implementation
// used by the example binary and by processor tests.
package server

import (
	"sync"
	"sync/atomic"

	"github.com/gofrs/uuid"

	"github.com/lAndbz/opcua-processor/session"
	"github.com/lAndbz/opcua-processor/ua"
)

// Server is the external internal-server facade (spec.md §6).
type Server interface {
	CreateSession(name string) (session.Facade, error)
	GetNewChannelID() uint32
	GetEndpoints(params ua.Params) (ua.Params, error)
}

// InMemory is a minimal reference Server: channel ids are assigned from
// an atomic counter, sessions are a no-op facade that echoes whatever
// Params it is given, and GetEndpoints always returns an empty endpoint
// list. It exists so the example binary and happy-path processor tests
// have a real (not mocked) collaborator to run against.
type InMemory struct {
	nextChannelID uint32

	mu       sync.Mutex
	sessions map[string]*inMemorySession
}

// NewInMemory returns an InMemory server with channel ids starting at 1.
func NewInMemory() *InMemory {
	return &InMemory{sessions: make(map[string]*inMemorySession)}
}

// GetNewChannelID implements Server.
func (s *InMemory) GetNewChannelID() uint32 {
	return atomic.AddUint32(&s.nextChannelID, 1)
}

// GetEndpoints implements Server. The in-memory reference returns an
// empty endpoint list; wiring a real address-space node manager here is
// the external collaborator's job (spec.md §1).
func (s *InMemory) GetEndpoints(params ua.Params) (ua.Params, error) {
	return ua.Params{}, nil
}

// CreateSession implements Server: allocates a session id and returns a
// bound session.Facade.
func (s *InMemory) CreateSession(name string) (session.Facade, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}

	sess := &inMemorySession{id: id.String(), connectionName: name}

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	return sess, nil
}

// inMemorySession is a no-op session.Facade: every call succeeds and
// echoes its input back as the result, enough to drive the dispatcher's
// request/response plumbing in tests without a real address space.
type inMemorySession struct {
	id             string
	connectionName string

	mu            sync.Mutex
	subscriptions map[int32]struct{}
	nextSubID     int32
}

func (s *inMemorySession) CreateSession(params ua.Params) (ua.Params, error) {
	return params, nil
}

func (s *inMemorySession) ActivateSession(params ua.Params) (ua.Params, error) {
	return params, nil
}

func (s *inMemorySession) CloseSession(deleteSubscriptions bool) error {
	return nil
}

func (s *inMemorySession) Read(params ua.Params) (ua.Params, error)  { return params, nil }
func (s *inMemorySession) Write(params ua.Params) (ua.Params, error) { return params, nil }
func (s *inMemorySession) Browse(params ua.Params) (ua.Params, error) {
	return params, nil
}

func (s *inMemorySession) TranslateBrowsePathsToNodeIDs(paths ua.Params) (ua.Params, error) {
	return paths, nil
}

func (s *inMemorySession) AddNodes(nodes ua.Params) (ua.Params, error) {
	return nodes, nil
}

func (s *inMemorySession) CreateSubscription(params ua.Params, publish session.PublishCallback) (ua.Params, error) {
	s.mu.Lock()
	if s.subscriptions == nil {
		s.subscriptions = make(map[int32]struct{})
	}
	s.nextSubID++
	s.subscriptions[s.nextSubID] = struct{}{}
	s.mu.Unlock()
	return params, nil
}

func (s *inMemorySession) DeleteSubscriptions(ids ua.Params) (ua.Params, error) {
	return ids, nil
}

func (s *inMemorySession) CreateMonitoredItems(params ua.Params) (ua.Params, error) {
	return params, nil
}

func (s *inMemorySession) DeleteMonitoredItems(params ua.Params) (ua.Params, error) {
	return params, nil
}

func (s *inMemorySession) Publish(acks []int32) error {
	return nil
}
