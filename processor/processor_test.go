package processor_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lAndbz/opcua-processor/internal/config"
	"github.com/lAndbz/opcua-processor/processor"
	"github.com/lAndbz/opcua-processor/server"
	"github.com/lAndbz/opcua-processor/ua"
)

// testClient drives the server side of a net.Pipe as a minimal OPC UA
// client, enough to exercise the end-to-end scenarios of spec.md §8.
type testClient struct {
	t    *testing.T
	conn net.Conn
}

func newTestClient(t *testing.T) (*testClient, net.Conn) {
	serverConn, clientConn := net.Pipe()
	return &testClient{t: t, conn: clientConn}, serverConn
}

func (c *testClient) writeFrame(hdr ua.Header, parts ...interface{ Encode(w *ua.Writer) }) {
	t := c.t
	t.Helper()

	encoded := make([][]byte, 0, len(parts))
	hdr.AddSize(0) // ensure Size reflects at least the header itself, even with no parts
	for _, p := range parts {
		w := ua.NewWriter()
		p.Encode(w)
		encoded = append(encoded, w.Bytes())
		hdr.AddSize(len(w.Bytes()))
	}
	buf := hdr.Encode()
	for _, e := range encoded {
		buf = append(buf, e...)
	}
	_, err := c.conn.Write(buf)
	require.NoError(t, err)
}

func (c *testClient) readHeader() ua.Header {
	c.t.Helper()
	hdr, err := ua.ReadHeader(c.conn)
	require.NoError(c.t, err)
	return hdr
}

func (c *testClient) readBody(hdr ua.Header) *ua.Buffer {
	c.t.Helper()
	body, err := ua.ReadBody(c.conn, hdr.BodySize())
	require.NoError(c.t, err)
	return body
}

func startProcessor(t *testing.T, serverConn net.Conn, iserver server.Server) {
	t.Helper()
	if iserver == nil {
		iserver = server.NewInMemory()
	}
	p := processor.New(iserver, serverConn, t.Name(), config.Config{}, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = p.Run(context.Background())
	}()
	t.Cleanup(func() {
		serverConn.Close()
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	})
}

func (c *testClient) sendHello(recvBuf, sendBuf uint32) {
	hdr := ua.NewHeader(ua.MessageTypeHello, ua.ChunkTypeSingle)
	hello := ua.HelloMessage{
		ProtocolVersion:   0,
		ReceiveBufferSize: recvBuf,
		SendBufferSize:    sendBuf,
		MaxMessageSize:    1 << 20,
		MaxChunkCount:     0,
		EndpointURL:       "opc.tcp://localhost:4840",
	}
	c.writeFrame(hdr, hello)
}

func (c *testClient) expectAcknowledge(t *testing.T, recvBuf, sendBuf uint32) {
	hdr := c.readHeader()
	require.Equal(t, ua.MessageTypeAcknowledge, hdr.MessageType)
	body := c.readBody(hdr)
	ack, err := ua.DecodeAcknowledgeMessage(body)
	require.NoError(t, err)
	assert.Equal(t, recvBuf, ack.ReceiveBufferSize)
	assert.Equal(t, sendBuf, ack.SendBufferSize)
}

func requestHeaderBytes(handle uint32) ua.RequestHeader {
	return ua.RequestHeader{RequestHandle: handle}
}

// encodableRequestHeader adapts ua.RequestHeader to the minimal wire shape
// DecodeRequestHeader expects, since ua.RequestHeader has no Encode method
// of its own (the processor never sends one as a request).
type encodableRequestHeader struct {
	h ua.RequestHeader
}

func (e encodableRequestHeader) Encode(w *ua.Writer) {
	e.h.AuthenticationToken.Encode(w)
	w.WriteUint64(e.h.Timestamp)
	w.WriteUint32(e.h.RequestHandle)
	w.WriteUint32(e.h.ReturnDiagnostics)
	w.WriteString(e.h.AuditEntryID)
	w.WriteUint32(e.h.TimeoutHint)
	w.WriteByte(0)
}

func (c *testClient) openChannel(t *testing.T, requestedLifetime uint32) (channelID, tokenID uint32) {
	c.sendHello(65536, 65536)
	c.expectAcknowledge(t, 65536, 65536)

	hdr := ua.NewSecureHeader(ua.MessageTypeSecureOpen, ua.ChunkTypeSingle, 0)
	asymHdr := ua.AsymmetricAlgorithmHeader{}
	seqHdr := ua.SequenceHeader{SequenceNumber: 1, RequestID: 1}
	params := ua.OpenSecureChannelParameters{
		ClientProtocolVersion: 0,
		RequestType:           ua.SecurityTokenRequestTypeIssue,
		SecurityMode:          1,
		ClientNonce:           nil,
		RequestedLifetime:     requestedLifetime,
	}
	reqHdr := encodableRequestHeader{requestHeaderBytes(0)}

	c.writeFrame(hdr, asymHdr, seqHdr, openRequestBody{reqHdr, params})

	respHdr := c.readHeader()
	require.Equal(t, ua.MessageTypeSecureOpen, respHdr.MessageType)
	body := c.readBody(respHdr)

	_, err := ua.DecodeAsymmetricAlgorithmHeader(body)
	require.NoError(t, err)
	_, err = ua.DecodeSequenceHeader(body)
	require.NoError(t, err)

	_, err = body.ReadUint64() // ResponseHeader.Timestamp
	require.NoError(t, err)
	_, err = body.ReadUint32() // ResponseHeader.RequestHandle
	require.NoError(t, err)
	result, err := body.ReadUint32() // ResponseHeader.ServiceResult
	require.NoError(t, err)
	require.Equal(t, uint32(ua.StatusGood), result)
	_, err = body.ReadByte() // DiagnosticInfo
	require.NoError(t, err)
	_, err = body.ReadInt32Array() // StringTable is encoded as -1 Int32 length
	require.NoError(t, err)
	_, err = body.ReadByte() // AdditionalHeader
	require.NoError(t, err)

	_, err = body.ReadUint32() // ServerProtocolVersion
	require.NoError(t, err)
	channelID, err = body.ReadUint32()
	require.NoError(t, err)
	tokenID, err = body.ReadUint32()
	require.NoError(t, err)
	_, err = body.ReadUint64() // CreatedAt
	require.NoError(t, err)
	revisedLifetime, err := body.ReadUint32()
	require.NoError(t, err)
	nonce, err := body.ReadByteString()
	require.NoError(t, err)

	assert.NotZero(t, channelID)
	assert.NotZero(t, tokenID)
	assert.Equal(t, requestedLifetime, revisedLifetime)
	assert.GreaterOrEqual(t, len(nonce), 32)
	return channelID, tokenID
}

type openRequestBody struct {
	reqHdr encodableRequestHeader
	params ua.OpenSecureChannelParameters
}

func (b openRequestBody) Encode(w *ua.Writer) {
	b.reqHdr.Encode(w)
	w.WriteUint32(b.params.ClientProtocolVersion)
	w.WriteInt32(int32(b.params.RequestType))
	w.WriteUint32(b.params.SecurityMode)
	w.WriteByteString(b.params.ClientNonce)
	w.WriteUint32(b.params.RequestedLifetime)
}

func TestHandshake_S1(t *testing.T) {
	client, serverConn := newTestClient(t)
	startProcessor(t, serverConn, nil)

	client.sendHello(65536, 65536)
	client.expectAcknowledge(t, 65536, 65536)
}

func TestWrongFirstFrame_S2(t *testing.T) {
	client, serverConn := newTestClient(t)
	startProcessor(t, serverConn, nil)

	hdr := ua.NewSecureHeader(ua.MessageTypeSecureOpen, ua.ChunkTypeSingle, 0)
	client.writeFrame(hdr)

	respHdr := client.readHeader()
	assert.Equal(t, ua.MessageTypeError, respHdr.MessageType)
}

func TestOpenCloseChannel_S3(t *testing.T) {
	client, serverConn := newTestClient(t)
	startProcessor(t, serverConn, nil)

	channelID, _ := client.openChannel(t, 600000)

	closeHdr := ua.NewSecureHeader(ua.MessageTypeSecureClose, ua.ChunkTypeSingle, channelID)
	client.writeFrame(closeHdr)

	// The connection must terminate without a reply: the next read sees EOF.
	buf := make([]byte, 1)
	client.conn.SetReadDeadline(time.Now().Add(time.Second))
	_, err := client.conn.Read(buf)
	assert.Error(t, err)
}

func TestCreateActivateCloseSession_S4(t *testing.T) {
	client, serverConn := newTestClient(t)
	startProcessor(t, serverConn, nil)

	channelID, tokenID := client.openChannel(t, 600000)

	seq := uint32(2)
	sendService := func(handle uint32, typeID ua.ObjectID, extra func(w *ua.Writer)) {
		hdr := ua.NewSecureHeader(ua.MessageTypeSecureMessage, ua.ChunkTypeSingle, channelID)
		algo := ua.SymmetricAlgorithmHeader{TokenID: tokenID}
		seqHdr := ua.SequenceHeader{SequenceNumber: seq, RequestID: seq}
		seq++
		client.writeFrame(hdr, algo, seqHdr, serviceRequestBody{typeID, requestHeaderBytes(handle), extra})
	}

	var lastSeq uint32
	expectResponse := func(wantHandle uint32) {
		respHdr := client.readHeader()
		require.Equal(t, ua.MessageTypeSecureMessage, respHdr.MessageType)
		assert.Equal(t, channelID, respHdr.ChannelID)
		body := client.readBody(respHdr)
		gotSeq := checkResponseHandle(t, body, tokenID, wantHandle, ua.StatusGood)
		if lastSeq != 0 {
			assert.Equal(t, lastSeq+1, gotSeq, "sequence numbers must increase by exactly 1")
		}
		lastSeq = gotSeq
	}

	sendService(7, ua.CreateSessionRequestEncodingDefaultBinary, func(w *ua.Writer) { w.WriteByteString(nil) })
	expectResponse(7)

	sendService(8, ua.ActivateSessionRequestEncodingDefaultBinary, func(w *ua.Writer) { w.WriteByteString(nil) })
	expectResponse(8)

	sendService(9, ua.CloseSessionRequestEncodingDefaultBinary, func(w *ua.Writer) { w.WriteBool(true) })
	expectResponse(9)
}

// checkResponseHandle decodes the SymmetricAlgorithmHeader + SequenceHeader
// + ResponseHeader prefix of a SecureMessage reply, asserts its
// request_handle/service_result per spec.md §4.4's send_response contract,
// and returns the decoded sequence number for monotonicity checks.
func checkResponseHandle(t *testing.T, body *ua.Buffer, wantTokenID, wantHandle uint32, wantResult ua.StatusCode) uint32 {
	t.Helper()
	gotTokenID, err := body.ReadUint32()
	require.NoError(t, err)
	assert.Equal(t, wantTokenID, gotTokenID)

	gotSeq, err := body.ReadUint32()
	require.NoError(t, err)
	_, err = body.ReadUint32() // request id
	require.NoError(t, err)

	_, err = body.ReadUint64() // ResponseHeader.Timestamp
	require.NoError(t, err)
	handle, err := body.ReadUint32()
	require.NoError(t, err)
	assert.Equal(t, wantHandle, handle)
	result, err := body.ReadUint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(wantResult), result)

	_, err = body.ReadByte() // DiagnosticInfo
	require.NoError(t, err)
	_, err = body.ReadInt32Array() // StringTable, encoded as -1 Int32 length
	require.NoError(t, err)
	_, err = body.ReadByte() // AdditionalHeader
	require.NoError(t, err)

	return gotSeq
}

type serviceRequestBody struct {
	typeID ua.ObjectID
	reqHdr ua.RequestHeader
	extra  func(w *ua.Writer)
}

func (b serviceRequestBody) Encode(w *ua.Writer) {
	ua.NewNumericNodeID(b.typeID).Encode(w)
	encodableRequestHeader{b.reqHdr}.Encode(w)
	if b.extra != nil {
		b.extra(w)
	}
}

func TestUnknownService_S6(t *testing.T) {
	client, serverConn := newTestClient(t)
	startProcessor(t, serverConn, nil)

	channelID, tokenID := client.openChannel(t, 600000)

	hdr := ua.NewSecureHeader(ua.MessageTypeSecureMessage, ua.ChunkTypeSingle, channelID)
	algo := ua.SymmetricAlgorithmHeader{TokenID: tokenID}
	seqHdr := ua.SequenceHeader{SequenceNumber: 2, RequestID: 2}
	const unknownTypeID = ua.ObjectID(999999)
	client.writeFrame(hdr, algo, seqHdr, serviceRequestBody{unknownTypeID, requestHeaderBytes(99), nil})

	respHdr := client.readHeader()
	require.Equal(t, ua.MessageTypeSecureMessage, respHdr.MessageType)
	body := client.readBody(respHdr)
	checkResponseHandle(t, body, tokenID, 99, ua.StatusBadNotImplemented)
}
