// Package processor implements the per-connection OPC UA protocol
// processor: Hello/Acknowledge handshake, secure-channel negotiation,
// chunk framing, service dispatch, and sequence/token bookkeeping
// (spec.md §1-§5).
package processor

import (
	"context"
	"io"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/lAndbz/opcua-processor/channel"
	"github.com/lAndbz/opcua-processor/internal/config"
	uaerrors "github.com/lAndbz/opcua-processor/internal/errors"
	"github.com/lAndbz/opcua-processor/publish"
	"github.com/lAndbz/opcua-processor/server"
	"github.com/lAndbz/opcua-processor/session"
	"github.com/lAndbz/opcua-processor/ua"
)

// Processor is bound to a single accepted connection (spec.md §6
// "Construction: (internal_server, stream, connection_name)").
type Processor struct {
	name    string
	iserver server.Server
	conn    io.ReadWriteCloser
	logger  log.Logger
	cfg     config.Config

	reader *frameReader
	state  *connState

	channels *channel.Manager
	queue    *publish.Queue
	session  *session.Binding
}

// New builds a Processor for one accepted connection. cfg supplies the
// hardening knobs of spec.md §9's Open Questions; pass config.Config{}
// for the original's undefended defaults.
func New(iserver server.Server, conn io.ReadWriteCloser, name string, cfg config.Config, logger log.Logger) *Processor {
	if logger == nil {
		logger = log.NewNopLogger()
	}

	queue := publish.NewQueue(cfg.PublishQueueMax)
	channels := channel.NewManager(channelAllocator{iserver}, cfg.ServerNonceLength, cfg.MaxChannelLifetimeMS)
	writer := newFrameWriter(conn)

	return &Processor{
		name:     name,
		iserver:  iserver,
		conn:     conn,
		logger:   logger,
		cfg:      cfg,
		reader:   newFrameReader(conn),
		state:    newConnState(writer, channels, queue),
		channels: channels,
		queue:    queue,
		session:  &session.Binding{},
	}
}

type channelAllocator struct {
	iserver server.Server
}

func (c channelAllocator) GetNewChannelID() uint32 {
	return c.iserver.GetNewChannelID()
}

// Run drives the connection until termination: Phase H once, then Phase
// O/S in a loop (spec.md §4.5). It always relinquishes the session
// binding, drains the publish queue and closes the connection before
// returning, so pending publish slots can be garbage-collected and late
// callbacks become no-ops (spec.md §4.5, §5).
func (p *Processor) Run(ctx context.Context) error {
	defer p.shutdown()

	if err := p.phaseHello(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		hdr, err := p.reader.readHeader()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return uaerrors.Wrap(err, "opcua: read header")
		}

		done, err := p.dispatchFrame(hdr)
		if err != nil {
			level.Warn(p.logger).Log("msg", "connection terminated", "name", p.name, "err", err)
			return err
		}
		if done {
			return nil
		}
	}
}

func (p *Processor) shutdown() {
	p.state.close()
	p.session.Clear()
	_ = p.conn.Close()
}

// phaseHello implements spec.md §4.4 Phase H: the first frame must be
// Hello, replied to with Acknowledge echoing the negotiated buffer
// sizes (clamped per spec.md §9 Open Question (c) when configured).
func (p *Processor) phaseHello() error {
	hdr, err := p.reader.readHeader()
	if err != nil {
		return uaerrors.Wrap(err, "opcua: read Hello header")
	}

	if hdr.MessageType != ua.MessageTypeHello {
		level.Warn(p.logger).Log("msg", "first frame was not Hello", "name", p.name, "type", hdr.MessageType)
		errHdr := ua.NewHeader(ua.MessageTypeError, ua.ChunkTypeSingle)
		_ = p.state.writer.write(errHdr)
		return uaerrors.Wrap(ua.ErrBadMessageType, "opcua: first frame was not Hello")
	}

	body, err := p.reader.readBody(hdr.BodySize())
	if err != nil {
		return uaerrors.Wrap(err, "opcua: read Hello body")
	}
	hello, err := ua.DecodeHelloMessage(body)
	if err != nil {
		return uaerrors.Wrap(err, "opcua: decode Hello")
	}

	ack := ua.AcknowledgeMessage{
		ProtocolVersion:   hello.ProtocolVersion,
		ReceiveBufferSize: p.clamp(hello.ReceiveBufferSize, p.cfg.MaxReceiveBufferSize),
		SendBufferSize:    p.clamp(hello.SendBufferSize, p.cfg.MaxSendBufferSize),
		MaxMessageSize:    hello.MaxMessageSize,
		MaxChunkCount:     hello.MaxChunkCount,
	}
	ackHdr := ua.NewHeader(ua.MessageTypeAcknowledge, ua.ChunkTypeSingle)
	return p.state.writer.write(ackHdr, ack)
}

func (p *Processor) clamp(requested, max uint32) uint32 {
	if max > 0 && requested > max {
		return max
	}
	return requested
}

// dispatchFrame implements Phase O / Phase S for one incoming frame
// (spec.md §4.4). done is true once the connection should terminate.
func (p *Processor) dispatchFrame(hdr ua.Header) (done bool, err error) {
	switch hdr.MessageType {
	case ua.MessageTypeError:
		level.Warn(p.logger).Log("msg", "received Error frame", "name", p.name)
		return true, nil

	case ua.MessageTypeSecureClose:
		body, err := p.reader.readBody(hdr.BodySize())
		if err != nil {
			return true, err
		}
		_ = body // the close body carries only a RequestHeader we don't need
		if err := p.channels.VerifyClose(hdr.ChannelID); err != nil {
			level.Warn(p.logger).Log("msg", "SecureClose channel id mismatch", "name", p.name, "err", err)
			return true, err
		}
		return true, nil

	case ua.MessageTypeSecureOpen:
		body, err := p.reader.readBody(hdr.BodySize())
		if err != nil {
			return true, err
		}
		if err := p.handleSecureOpen(body); err != nil {
			return true, err
		}
		return false, nil

	case ua.MessageTypeSecureMessage:
		body, err := p.reader.readBody(hdr.BodySize())
		if err != nil {
			return true, err
		}
		if err := p.handleSecureMessage(body); err != nil {
			return true, err
		}
		return false, nil

	default:
		level.Warn(p.logger).Log("msg", "unsupported message type", "name", p.name, "type", hdr.MessageType)
		return true, nil
	}
}

// handleSecureOpen implements spec.md §4.3/§4.4 Phase O.
func (p *Processor) handleSecureOpen(body *ua.Buffer) error {
	algoHdr, err := ua.DecodeAsymmetricAlgorithmHeader(body)
	if err != nil {
		return uaerrors.Wrap(err, "opcua: decode AsymmetricAlgorithmHeader")
	}
	seqHdr, err := ua.DecodeSequenceHeader(body)
	if err != nil {
		return uaerrors.Wrap(err, "opcua: decode SequenceHeader")
	}
	req, err := ua.DecodeOpenSecureChannelRequest(body)
	if err != nil {
		return uaerrors.Wrap(err, "opcua: decode OpenSecureChannelRequest")
	}

	record, err := p.channels.HandleOpen(req.Parameters.RequestType, req.Parameters.RequestedLifetime)
	if err != nil {
		return uaerrors.Wrap(err, "opcua: open secure channel")
	}

	result := ua.OpenSecureChannelResult{
		ServerProtocolVersion: req.Parameters.ClientProtocolVersion,
		SecurityToken: ua.ChannelSecurityToken{
			ChannelID:       record.ChannelID,
			TokenID:         record.TokenID,
			CreatedAt:       uint64(record.CreatedAt.UnixNano()),
			RevisedLifetime: record.RevisedLifetime,
		},
		ServerNonce: record.ServerNonce,
	}
	resp := ua.OpenSecureChannelResponse{
		ResponseHeader: ua.ResponseHeader{RequestHandle: req.RequestHeader.RequestHandle, ServiceResult: ua.StatusGood},
		Parameters:     result,
	}

	return p.sendSecureOpenResponse(record, algoHdr, seqHdr, resp)
}

// sendSecureOpenResponse sends the OpenSecureChannelResponse, spec.md
// §4.4 Phase O: AsymmetricAlgorithmHeader (echoed as-is — it carries no
// token id, only the client's security policy and certificates),
// SequenceHeader (assigned sequence number), then the response body.
func (p *Processor) sendSecureOpenResponse(record channel.Record, algoHdr ua.AsymmetricAlgorithmHeader, seqHdr ua.SequenceHeader, resp ua.OpenSecureChannelResponse) error {
	hdr := ua.NewSecureHeader(ua.MessageTypeSecureOpen, ua.ChunkTypeSingle, record.ChannelID)
	stampers := []func(uint32, channel.Record){
		func(seqNum uint32, r channel.Record) { seqHdr.SequenceNumber = seqNum },
	}
	return p.state.send(hdr, stampers, asymmetricHeaderEncoder{&algoHdr}, seqHdrEncoder{&seqHdr}, resp)
}

// handleSecureMessage implements spec.md §4.4 Phase S's SecureMessage
// row: decode the common headers and type-id, then run the dispatch
// table.
func (p *Processor) handleSecureMessage(body *ua.Buffer) error {
	algoHdr, err := ua.DecodeSymmetricAlgorithmHeader(body)
	if err != nil {
		return uaerrors.Wrap(err, "opcua: decode SymmetricAlgorithmHeader")
	}
	seqHdr, err := ua.DecodeSequenceHeader(body)
	if err != nil {
		return uaerrors.Wrap(err, "opcua: decode SequenceHeader")
	}
	typeID, err := ua.DecodeNodeID(body)
	if err != nil {
		return uaerrors.Wrap(err, "opcua: decode service type-id")
	}
	reqHdr, err := ua.DecodeRequestHeader(body)
	if err != nil {
		return uaerrors.Wrap(err, "opcua: decode RequestHeader")
	}

	handler, ok := dispatchTable[ua.ObjectID(typeID.Numeric)]
	if ok && !typeID.Equal(ua.NewNumericNodeID(ua.ObjectID(typeID.Numeric))) {
		ok = false // service type-ids live in namespace 0
	}
	if !ok {
		level.Warn(p.logger).Log("msg", "unknown service request", "name", p.name, "typeId", typeID.Numeric, "handle", reqHdr.RequestHandle)
		fault := ua.ServiceFault{ResponseHeader: faultHeader(reqHdr, ua.StatusBadNotImplemented)}
		return p.sendResponse(&algoHdr, seqHdr, fault)
	}

	resp, err := handler(p, &algoHdr, seqHdr, reqHdr, body)
	if err != nil {
		level.Warn(p.logger).Log("msg", "service handler failed", "name", p.name, "typeId", typeID.Numeric, "err", err)
		fault := ua.ServiceFault{ResponseHeader: faultHeader(reqHdr, ua.StatusBadNotImplemented)}
		return p.sendResponse(&algoHdr, seqHdr, fault)
	}
	if resp == nil {
		// PublishRequest: reply arrives later via deliverNotification.
		return nil
	}
	return p.sendResponse(&algoHdr, seqHdr, resp)
}

// sendResponse implements spec.md §4.4's send_response: acquire the send
// mutex, assign the outgoing sequence number, stamp the current
// channel/token id, and emit the frame. Used for every steady-state
// reply, including publish fan-out (spec.md §4.4
// forward_publish_response).
func (p *Processor) sendResponse(algoHdr *ua.SymmetricAlgorithmHeader, seqHdr ua.SequenceHeader, body encoder) error {
	record, _ := p.channels.Current()
	hdr := ua.NewSecureHeader(ua.MessageTypeSecureMessage, ua.ChunkTypeSingle, record.ChannelID)
	stampers := []func(uint32, channel.Record){
		func(seqNum uint32, r channel.Record) {
			seqHdr.SequenceNumber = seqNum
			algoHdr.TokenID = r.TokenID
		},
	}
	return p.state.send(hdr, stampers, symmetricHeaderEncoder{algoHdr}, seqHdrEncoder{&seqHdr}, body)
}

// deliverNotification is the publish_cb handed to session.Facade's
// CreateSubscription (spec.md §6). It is the single entry point by which
// the subscription engine's foreign thread re-enters the send path
// (spec.md §9 "Callbacks vs. channels").
func (p *Processor) deliverNotification(result ua.NotificationMessage) {
	p.ForwardPublishResponse(result)
}

// ForwardPublishResponse implements spec.md §4.4's
// forward_publish_response: pop the head PublishRequestSlot and pair it
// with result. Safe to call concurrently with the read thread and after
// the connection has closed (spec.md §5 cancellation: a no-op once the
// queue is drained/closed).
func (p *Processor) ForwardPublishResponse(result ua.NotificationMessage) {
	slot, ok := p.queue.Pop()
	if !ok {
		level.Warn(p.logger).Log("msg", "publish answer with no outstanding request, dropping", "name", p.name)
		return
	}

	algoHdr, _ := slot.AlgoHeader.(*ua.SymmetricAlgorithmHeader)
	if algoHdr == nil {
		algoHdr = &ua.SymmetricAlgorithmHeader{}
	}

	resp := ua.PublishResponse{
		ResponseHeader: ua.ResponseHeader{RequestHandle: slot.RequestHeader.RequestHandle, ServiceResult: ua.StatusGood},
		Parameters:     result.AsParams(),
	}
	if err := p.sendResponse(algoHdr, slot.SequenceHeader, resp); err != nil {
		level.Warn(p.logger).Log("msg", "failed to send publish response", "name", p.name, "err", err)
	}
}

// asymmetricHeaderEncoder defers encoding of the Phase O reply's
// AsymmetricAlgorithmHeader until inside the send mutex, matching the
// other header encoders used by connState.send's stampers.
type asymmetricHeaderEncoder struct {
	hdr *ua.AsymmetricAlgorithmHeader
}

func (e asymmetricHeaderEncoder) Encode(w *ua.Writer) {
	e.hdr.Encode(w)
}

type symmetricHeaderEncoder struct {
	hdr *ua.SymmetricAlgorithmHeader
}

func (e symmetricHeaderEncoder) Encode(w *ua.Writer) {
	e.hdr.Encode(w)
}

type seqHdrEncoder struct {
	hdr *ua.SequenceHeader
}

func (e seqHdrEncoder) Encode(w *ua.Writer) {
	e.hdr.Encode(w)
}
