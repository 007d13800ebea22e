package processor_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lAndbz/opcua-processor/session"
	"github.com/lAndbz/opcua-processor/ua"
)

// notifyingFacade is a no-op session.Facade except CreateSubscription
// stashes the publish callback so the test can fire notifications on
// demand, driving the subscription-engine side of spec.md §4.4's publish
// fan-out (S5).
type notifyingFacade struct {
	cb session.PublishCallback
}

func (f *notifyingFacade) CreateSession(params ua.Params) (ua.Params, error)   { return params, nil }
func (f *notifyingFacade) ActivateSession(params ua.Params) (ua.Params, error) { return params, nil }
func (f *notifyingFacade) CloseSession(deleteSubscriptions bool) error         { return nil }
func (f *notifyingFacade) Read(params ua.Params) (ua.Params, error)            { return params, nil }
func (f *notifyingFacade) Write(params ua.Params) (ua.Params, error)           { return params, nil }
func (f *notifyingFacade) Browse(params ua.Params) (ua.Params, error)          { return params, nil }
func (f *notifyingFacade) TranslateBrowsePathsToNodeIDs(p ua.Params) (ua.Params, error) {
	return p, nil
}
func (f *notifyingFacade) AddNodes(nodes ua.Params) (ua.Params, error) { return nodes, nil }
func (f *notifyingFacade) CreateSubscription(params ua.Params, cb session.PublishCallback) (ua.Params, error) {
	f.cb = cb
	return params, nil
}
func (f *notifyingFacade) DeleteSubscriptions(ids ua.Params) (ua.Params, error)     { return ids, nil }
func (f *notifyingFacade) CreateMonitoredItems(params ua.Params) (ua.Params, error) { return params, nil }
func (f *notifyingFacade) DeleteMonitoredItems(params ua.Params) (ua.Params, error) { return params, nil }
func (f *notifyingFacade) Publish(acks []int32) error                              { return nil }

type notifyingServer struct {
	facade *notifyingFacade
	nextID uint32
}

func (s *notifyingServer) GetNewChannelID() uint32 {
	s.nextID++
	return s.nextID
}
func (s *notifyingServer) GetEndpoints(params ua.Params) (ua.Params, error) { return ua.Params{}, nil }
func (s *notifyingServer) CreateSession(name string) (session.Facade, error) {
	return s.facade, nil
}

func TestPublishPairing_S5(t *testing.T) {
	facade := &notifyingFacade{}
	iserver := &notifyingServer{facade: facade}

	client, serverConn := newTestClient(t)
	startProcessor(t, serverConn, iserver)

	channelID, tokenID := client.openChannel(t, 600000)

	send := func(seq, handle uint32, typeID ua.ObjectID, extra func(w *ua.Writer)) {
		hdr := ua.NewSecureHeader(ua.MessageTypeSecureMessage, ua.ChunkTypeSingle, channelID)
		algo := ua.SymmetricAlgorithmHeader{TokenID: tokenID}
		seqHdr := ua.SequenceHeader{SequenceNumber: seq, RequestID: seq}
		client.writeFrame(hdr, algo, seqHdr, serviceRequestBody{typeID, requestHeaderBytes(handle), extra})
	}

	// CreateSession, then CreateSubscription to capture the publish callback.
	send(2, 1, ua.CreateSessionRequestEncodingDefaultBinary, func(w *ua.Writer) { w.WriteByteString(nil) })
	hdr := client.readHeader()
	body := client.readBody(hdr)
	checkResponseHandle(t, body, tokenID, 1, ua.StatusGood)

	send(3, 2, ua.CreateSubscriptionRequestEncodingDefaultBinary, func(w *ua.Writer) { w.WriteByteString(nil) })
	hdr = client.readHeader()
	body = client.readBody(hdr)
	checkResponseHandle(t, body, tokenID, 2, ua.StatusGood)

	require.NotNil(t, facade.cb, "CreateSubscription must capture the publish callback")

	// Two PublishRequests, no immediate reply expected for either.
	send(4, 20, ua.PublishRequestEncodingDefaultBinary, func(w *ua.Writer) { w.WriteInt32Array(nil) })
	send(5, 21, ua.PublishRequestEncodingDefaultBinary, func(w *ua.Writer) { w.WriteInt32Array(nil) })

	// Give the read loop a moment to enqueue both slots before notifying.
	time.Sleep(50 * time.Millisecond)

	// Fire from another goroutine, as the subscription engine would: each
	// callback's write blocks on the pipe until this goroutine reads it.
	go func() {
		facade.cb(ua.NotificationMessage{Raw: []byte("N1")})
		facade.cb(ua.NotificationMessage{Raw: []byte("N2")})
	}()

	hdr1 := client.readHeader()
	body1 := client.readBody(hdr1)
	seq1 := checkResponseHandle(t, body1, tokenID, 20, ua.StatusGood)
	payload1 := body1.ReadRest()
	assert.Equal(t, []byte("N1"), payload1)

	hdr2 := client.readHeader()
	body2 := client.readBody(hdr2)
	seq2 := checkResponseHandle(t, body2, tokenID, 21, ua.StatusGood)
	payload2 := body2.ReadRest()
	assert.Equal(t, []byte("N2"), payload2)

	assert.Equal(t, seq1+1, seq2, "publish responses get successive sequence numbers")
}
