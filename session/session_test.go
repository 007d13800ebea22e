package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lAndbz/opcua-processor/session"
	"github.com/lAndbz/opcua-processor/ua"
)

type stubFacade struct{}

func (stubFacade) CreateSession(params ua.Params) (ua.Params, error)          { return params, nil }
func (stubFacade) ActivateSession(params ua.Params) (ua.Params, error)        { return params, nil }
func (stubFacade) CloseSession(deleteSubscriptions bool) error                { return nil }
func (stubFacade) Read(params ua.Params) (ua.Params, error)                   { return params, nil }
func (stubFacade) Write(params ua.Params) (ua.Params, error)                  { return params, nil }
func (stubFacade) Browse(params ua.Params) (ua.Params, error)                 { return params, nil }
func (stubFacade) TranslateBrowsePathsToNodeIDs(p ua.Params) (ua.Params, error) { return p, nil }
func (stubFacade) AddNodes(nodes ua.Params) (ua.Params, error)                { return nodes, nil }
func (stubFacade) CreateSubscription(params ua.Params, cb session.PublishCallback) (ua.Params, error) {
	return params, nil
}
func (stubFacade) DeleteSubscriptions(ids ua.Params) (ua.Params, error)        { return ids, nil }
func (stubFacade) CreateMonitoredItems(params ua.Params) (ua.Params, error)    { return params, nil }
func (stubFacade) DeleteMonitoredItems(params ua.Params) (ua.Params, error)    { return params, nil }
func (stubFacade) Publish(acks []int32) error                                 { return nil }

func TestBindingUnboundByDefault(t *testing.T) {
	var b session.Binding
	_, ok := b.Get()
	assert.False(t, ok)
}

func TestBindingBindAndClear(t *testing.T) {
	var b session.Binding
	b.Bind(stubFacade{})

	facade, ok := b.Get()
	assert.True(t, ok)
	assert.NotNil(t, facade)

	b.Clear()
	_, ok = b.Get()
	assert.False(t, ok)
}
