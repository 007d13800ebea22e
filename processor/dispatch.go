package processor

import (
	"github.com/go-kit/log/level"

	uaerrors "github.com/lAndbz/opcua-processor/internal/errors"
	"github.com/lAndbz/opcua-processor/publish"
	"github.com/lAndbz/opcua-processor/ua"
)

// serviceHandler implements one row of spec.md §4.4's service dispatch
// table. It decodes its own parameters from body, calls the session (or
// internal server) facade, and returns the response body to send back.
// A handler that returns (nil, nil) deliberately sends no reply now
// (PublishRequest); every other handler's result is wrapped into a
// SecureMessage reply by the caller.
type serviceHandler func(p *Processor, algoHdr *ua.SymmetricAlgorithmHeader, seqHdr ua.SequenceHeader, reqHdr ua.RequestHeader, body *ua.Buffer) (encoder, error)

// dispatchTable maps a service request type-id to its handler, spec.md
// §4.4's table rendered data-driven (Design Note §9) instead of an
// if/else chain.
var dispatchTable = map[ua.ObjectID]serviceHandler{
	ua.CreateSessionRequestEncodingDefaultBinary:                      handleCreateSession,
	ua.ActivateSessionRequestEncodingDefaultBinary:                    handleActivateSession,
	ua.CloseSessionRequestEncodingDefaultBinary:                       handleCloseSession,
	ua.ReadRequestEncodingDefaultBinary:                               handleRead,
	ua.WriteRequestEncodingDefaultBinary:                              handleWrite,
	ua.BrowseRequestEncodingDefaultBinary:                             handleBrowse,
	ua.TranslateBrowsePathsToNodeIdsRequestEncoding:                   handleTranslateBrowsePaths,
	ua.AddNodesRequestEncodingDefaultBinary:                           handleAddNodes,
	ua.GetEndpointsRequestEncodingDefaultBinary:                       handleGetEndpoints,
	ua.CreateSubscriptionRequestEncodingDefaultBinary:                 handleCreateSubscription,
	ua.DeleteSubscriptionsRequestEncodingDefaultBinary:                handleDeleteSubscriptions,
	ua.CreateMonitoredItemsRequestEncodingDefaultBinary:               handleCreateMonitoredItems,
	ua.DeleteMonitoredItemsRequestEncodingDefaultBinary:               handleDeleteMonitoredItems,
	ua.PublishRequestEncodingDefaultBinary:                            handlePublish,
}

func okHeader(reqHdr ua.RequestHeader) ua.ResponseHeader {
	return ua.ResponseHeader{RequestHandle: reqHdr.RequestHandle, ServiceResult: ua.StatusGood}
}

func faultHeader(reqHdr ua.RequestHeader, code ua.StatusCode) ua.ResponseHeader {
	return ua.ResponseHeader{RequestHandle: reqHdr.RequestHandle, ServiceResult: code}
}

func handleCreateSession(p *Processor, algoHdr *ua.SymmetricAlgorithmHeader, seqHdr ua.SequenceHeader, reqHdr ua.RequestHeader, body *ua.Buffer) (encoder, error) {
	params := ua.DecodeParams(body)

	facade, err := p.iserver.CreateSession(p.name)
	if err != nil {
		return nil, uaerrors.Wrap(err, "opcua: create session")
	}
	result, err := facade.CreateSession(params)
	if err != nil {
		return nil, uaerrors.Wrap(err, "opcua: session create_session")
	}
	p.session.Bind(facade)

	return ua.CreateSessionResponse{ResponseHeader: okHeader(reqHdr), Parameters: result}, nil
}

func handleActivateSession(p *Processor, algoHdr *ua.SymmetricAlgorithmHeader, seqHdr ua.SequenceHeader, reqHdr ua.RequestHeader, body *ua.Buffer) (encoder, error) {
	params := ua.DecodeParams(body)

	facade, bound := p.session.Get()
	if !bound {
		hdr := faultHeader(reqHdr, ua.StatusBadSessionIDInvalid)
		return ua.ActivateSessionResponse{ResponseHeader: hdr}, nil
	}
	result, err := facade.ActivateSession(params)
	if err != nil {
		return nil, uaerrors.Wrap(err, "opcua: activate session")
	}
	return ua.ActivateSessionResponse{ResponseHeader: okHeader(reqHdr), Parameters: result}, nil
}

func handleCloseSession(p *Processor, algoHdr *ua.SymmetricAlgorithmHeader, seqHdr ua.SequenceHeader, reqHdr ua.RequestHeader, body *ua.Buffer) (encoder, error) {
	deleteSubs, err := body.ReadBool()
	if err != nil {
		return nil, uaerrors.Wrap(err, "opcua: decode CloseSessionRequest")
	}

	facade, bound := p.session.Get()
	if bound {
		if err := facade.CloseSession(deleteSubs); err != nil {
			return nil, uaerrors.Wrap(err, "opcua: close session")
		}
		p.session.Clear()
	}
	return ua.CloseSessionResponse{ResponseHeader: okHeader(reqHdr)}, nil
}

func handleRead(p *Processor, algoHdr *ua.SymmetricAlgorithmHeader, seqHdr ua.SequenceHeader, reqHdr ua.RequestHeader, body *ua.Buffer) (encoder, error) {
	facade, bound := p.session.Get()
	params := ua.DecodeParams(body)
	if !bound {
		return ua.ReadResponse{ResponseHeader: faultHeader(reqHdr, ua.StatusBadSessionIDInvalid)}, nil
	}
	results, err := facade.Read(params)
	if err != nil {
		return nil, uaerrors.Wrap(err, "opcua: read")
	}
	return ua.ReadResponse{ResponseHeader: okHeader(reqHdr), Results: results}, nil
}

func handleWrite(p *Processor, algoHdr *ua.SymmetricAlgorithmHeader, seqHdr ua.SequenceHeader, reqHdr ua.RequestHeader, body *ua.Buffer) (encoder, error) {
	facade, bound := p.session.Get()
	params := ua.DecodeParams(body)
	if !bound {
		return ua.WriteResponse{ResponseHeader: faultHeader(reqHdr, ua.StatusBadSessionIDInvalid)}, nil
	}
	results, err := facade.Write(params)
	if err != nil {
		return nil, uaerrors.Wrap(err, "opcua: write")
	}
	return ua.WriteResponse{ResponseHeader: okHeader(reqHdr), Results: results}, nil
}

func handleBrowse(p *Processor, algoHdr *ua.SymmetricAlgorithmHeader, seqHdr ua.SequenceHeader, reqHdr ua.RequestHeader, body *ua.Buffer) (encoder, error) {
	facade, bound := p.session.Get()
	params := ua.DecodeParams(body)
	if !bound {
		return ua.BrowseResponse{ResponseHeader: faultHeader(reqHdr, ua.StatusBadSessionIDInvalid)}, nil
	}
	results, err := facade.Browse(params)
	if err != nil {
		return nil, uaerrors.Wrap(err, "opcua: browse")
	}
	return ua.BrowseResponse{ResponseHeader: okHeader(reqHdr), Results: results}, nil
}

func handleTranslateBrowsePaths(p *Processor, algoHdr *ua.SymmetricAlgorithmHeader, seqHdr ua.SequenceHeader, reqHdr ua.RequestHeader, body *ua.Buffer) (encoder, error) {
	facade, bound := p.session.Get()
	paths := ua.DecodeParams(body)
	if !bound {
		return ua.TranslateBrowsePathsToNodeIdsResponse{ResponseHeader: faultHeader(reqHdr, ua.StatusBadSessionIDInvalid)}, nil
	}
	results, err := facade.TranslateBrowsePathsToNodeIDs(paths)
	if err != nil {
		return nil, uaerrors.Wrap(err, "opcua: translate browse paths")
	}
	return ua.TranslateBrowsePathsToNodeIdsResponse{ResponseHeader: okHeader(reqHdr), Results: results}, nil
}

func handleAddNodes(p *Processor, algoHdr *ua.SymmetricAlgorithmHeader, seqHdr ua.SequenceHeader, reqHdr ua.RequestHeader, body *ua.Buffer) (encoder, error) {
	facade, bound := p.session.Get()
	nodes := ua.DecodeParams(body)
	if !bound {
		return ua.AddNodesResponse{ResponseHeader: faultHeader(reqHdr, ua.StatusBadSessionIDInvalid)}, nil
	}
	results, err := facade.AddNodes(nodes)
	if err != nil {
		return nil, uaerrors.Wrap(err, "opcua: add nodes")
	}
	return ua.AddNodesResponse{ResponseHeader: okHeader(reqHdr), Results: results}, nil
}

func handleGetEndpoints(p *Processor, algoHdr *ua.SymmetricAlgorithmHeader, seqHdr ua.SequenceHeader, reqHdr ua.RequestHeader, body *ua.Buffer) (encoder, error) {
	params := ua.DecodeParams(body)
	endpoints, err := p.iserver.GetEndpoints(params)
	if err != nil {
		return nil, uaerrors.Wrap(err, "opcua: get endpoints")
	}
	return ua.GetEndpointsResponse{ResponseHeader: okHeader(reqHdr), Endpoints: endpoints}, nil
}

func handleCreateSubscription(p *Processor, algoHdr *ua.SymmetricAlgorithmHeader, seqHdr ua.SequenceHeader, reqHdr ua.RequestHeader, body *ua.Buffer) (encoder, error) {
	facade, bound := p.session.Get()
	params := ua.DecodeParams(body)
	if !bound {
		return ua.CreateSubscriptionResponse{ResponseHeader: faultHeader(reqHdr, ua.StatusBadSessionIDInvalid)}, nil
	}
	result, err := facade.CreateSubscription(params, p.deliverNotification)
	if err != nil {
		return nil, uaerrors.Wrap(err, "opcua: create subscription")
	}
	return ua.CreateSubscriptionResponse{ResponseHeader: okHeader(reqHdr), Parameters: result}, nil
}

func handleDeleteSubscriptions(p *Processor, algoHdr *ua.SymmetricAlgorithmHeader, seqHdr ua.SequenceHeader, reqHdr ua.RequestHeader, body *ua.Buffer) (encoder, error) {
	facade, bound := p.session.Get()
	ids := ua.DecodeParams(body)
	if !bound {
		return ua.DeleteSubscriptionsResponse{ResponseHeader: faultHeader(reqHdr, ua.StatusBadSessionIDInvalid)}, nil
	}
	results, err := facade.DeleteSubscriptions(ids)
	if err != nil {
		return nil, uaerrors.Wrap(err, "opcua: delete subscriptions")
	}
	return ua.DeleteSubscriptionsResponse{ResponseHeader: okHeader(reqHdr), Results: results}, nil
}

func handleCreateMonitoredItems(p *Processor, algoHdr *ua.SymmetricAlgorithmHeader, seqHdr ua.SequenceHeader, reqHdr ua.RequestHeader, body *ua.Buffer) (encoder, error) {
	facade, bound := p.session.Get()
	params := ua.DecodeParams(body)
	if !bound {
		return ua.CreateMonitoredItemsResponse{ResponseHeader: faultHeader(reqHdr, ua.StatusBadSessionIDInvalid)}, nil
	}
	results, err := facade.CreateMonitoredItems(params)
	if err != nil {
		return nil, uaerrors.Wrap(err, "opcua: create monitored items")
	}
	return ua.CreateMonitoredItemsResponse{ResponseHeader: okHeader(reqHdr), Results: results}, nil
}

func handleDeleteMonitoredItems(p *Processor, algoHdr *ua.SymmetricAlgorithmHeader, seqHdr ua.SequenceHeader, reqHdr ua.RequestHeader, body *ua.Buffer) (encoder, error) {
	facade, bound := p.session.Get()
	params := ua.DecodeParams(body)
	if !bound {
		return ua.DeleteMonitoredItemsResponse{ResponseHeader: faultHeader(reqHdr, ua.StatusBadSessionIDInvalid)}, nil
	}
	results, err := facade.DeleteMonitoredItems(params)
	if err != nil {
		return nil, uaerrors.Wrap(err, "opcua: delete monitored items")
	}
	return ua.DeleteMonitoredItemsResponse{ResponseHeader: okHeader(reqHdr), Results: results}, nil
}

// handlePublish implements spec.md §4.4's PublishRequest row: enqueue a
// slot, invoke session.Publish, and send nothing now — the reply comes
// later through deliverNotification/forward_publish_response. When a
// bounded queue is already full, a BadTooManyPublishRequests
// PublishResponse is sent at once instead.
func handlePublish(p *Processor, algoHdr *ua.SymmetricAlgorithmHeader, seqHdr ua.SequenceHeader, reqHdr ua.RequestHeader, body *ua.Buffer) (encoder, error) {
	reqBody, err := ua.DecodePublishRequestBody(body)
	if err != nil {
		return nil, uaerrors.Wrap(err, "opcua: decode PublishRequest acks")
	}
	acks := reqBody.SubscriptionAcknowledgements

	slot := publish.Slot{
		RequestHeader:  reqHdr,
		AlgoHeader:     algoHdr,
		SequenceHeader: seqHdr,
	}
	if err := p.queue.Push(slot); err != nil {
		level.Warn(p.logger).Log("msg", "publish queue full, rejecting request", "err", err)
		return ua.PublishResponse{ResponseHeader: faultHeader(reqHdr, ua.StatusBadTooManyPublishReqs)}, nil
	}

	facade, bound := p.session.Get()
	if !bound {
		return nil, nil
	}
	if err := facade.Publish(acks); err != nil {
		level.Warn(p.logger).Log("msg", "session.Publish failed", "err", err)
	}
	return nil, nil
}
