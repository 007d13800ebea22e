package ua

// Params carries the service-specific portion of a request or response
// body (e.g. CreateSessionParameters, ReadResults, BrowseResults). Field
// layouts for these structures belong to the external codec library
// (spec.md §1: "assumed to exist"); this package only moves their already
// -encoded bytes between the wire and the session/internal-server
// facades, which is all the dispatcher itself ever needs to do with them.
type Params struct {
	Raw []byte
}

// DecodeParams consumes the remainder of buf as an opaque parameter
// blob. Used whenever Params is the last field of a body.
func DecodeParams(buf *Buffer) Params {
	return Params{Raw: buf.ReadRest()}
}

// Encode writes the blob back out verbatim.
func (p Params) Encode(w *Writer) {
	w.buf = append(w.buf, p.Raw...)
}

// ServiceFault is returned for unrecognised or failed requests (spec.md
// §4.4/§7).
type ServiceFault struct {
	ResponseHeader ResponseHeader
}

// Encode serialises a ServiceFault body.
func (f ServiceFault) Encode(w *Writer) {
	f.ResponseHeader.Encode(w)
}

// --- OpenSecureChannel -------------------------------------------------

// OpenSecureChannelParameters is the one service body whose fields the
// dispatcher itself reads (spec.md §4.3), so it is modeled concretely
// rather than left opaque.
type OpenSecureChannelParameters struct {
	ClientProtocolVersion uint32
	RequestType           SecurityTokenRequestType
	SecurityMode          uint32
	ClientNonce           []byte
	RequestedLifetime     uint32
}

// DecodeOpenSecureChannelParameters decodes the parameters.
func DecodeOpenSecureChannelParameters(buf *Buffer) (OpenSecureChannelParameters, error) {
	var p OpenSecureChannelParameters
	var err error
	if p.ClientProtocolVersion, err = buf.ReadUint32(); err != nil {
		return p, err
	}
	var rt int32
	if rt, err = buf.ReadInt32(); err != nil {
		return p, err
	}
	p.RequestType = SecurityTokenRequestType(rt)
	if p.SecurityMode, err = buf.ReadUint32(); err != nil {
		return p, err
	}
	if p.ClientNonce, err = buf.ReadByteString(); err != nil {
		return p, err
	}
	p.RequestedLifetime, err = buf.ReadUint32()
	return p, err
}

// OpenSecureChannelRequest is the decoded SecureOpen body (minus the
// algorithm/sequence headers, read separately per spec.md §4.4).
type OpenSecureChannelRequest struct {
	RequestHeader RequestHeader
	Parameters    OpenSecureChannelParameters
}

// DecodeOpenSecureChannelRequest decodes the request.
func DecodeOpenSecureChannelRequest(buf *Buffer) (OpenSecureChannelRequest, error) {
	var req OpenSecureChannelRequest
	var err error
	if req.RequestHeader, err = DecodeRequestHeader(buf); err != nil {
		return req, err
	}
	req.Parameters, err = DecodeOpenSecureChannelParameters(buf)
	return req, err
}

// ChannelSecurityToken describes the active token of a secure channel
// (spec.md §3 SecureChannelRecord).
type ChannelSecurityToken struct {
	ChannelID        uint32
	TokenID          uint32
	CreatedAt        uint64
	RevisedLifetime  uint32
}

// OpenSecureChannelResult is the body of an OpenSecureChannelResponse.
type OpenSecureChannelResult struct {
	ServerProtocolVersion uint32
	SecurityToken         ChannelSecurityToken
	ServerNonce           []byte
}

// Encode serialises the result.
func (r OpenSecureChannelResult) Encode(w *Writer) {
	w.WriteUint32(r.ServerProtocolVersion)
	w.WriteUint32(r.SecurityToken.ChannelID)
	w.WriteUint32(r.SecurityToken.TokenID)
	w.WriteUint64(r.SecurityToken.CreatedAt)
	w.WriteUint32(r.SecurityToken.RevisedLifetime)
	w.WriteByteString(r.ServerNonce)
}

// OpenSecureChannelResponse is the reply sent in Phase O (spec.md §4.4).
type OpenSecureChannelResponse struct {
	ResponseHeader ResponseHeader
	Parameters     OpenSecureChannelResult
}

// Encode serialises the response.
func (r OpenSecureChannelResponse) Encode(w *Writer) {
	r.ResponseHeader.Encode(w)
	r.Parameters.Encode(w)
}

// --- Session services ----------------------------------------------------

// CreateSessionResponse wraps the session facade's creation result.
type CreateSessionResponse struct {
	ResponseHeader ResponseHeader
	Parameters     Params
}

func (r CreateSessionResponse) Encode(w *Writer) {
	r.ResponseHeader.Encode(w)
	r.Parameters.Encode(w)
}

// ActivateSessionResponse wraps the session facade's activation result.
type ActivateSessionResponse struct {
	ResponseHeader ResponseHeader
	Parameters     Params
}

func (r ActivateSessionResponse) Encode(w *Writer) {
	r.ResponseHeader.Encode(w)
	r.Parameters.Encode(w)
}

// CloseSessionResponse carries no service-specific body beyond the
// response header.
type CloseSessionResponse struct {
	ResponseHeader ResponseHeader
}

func (r CloseSessionResponse) Encode(w *Writer) {
	r.ResponseHeader.Encode(w)
}

// ReadResponse wraps the session facade's read results.
type ReadResponse struct {
	ResponseHeader ResponseHeader
	Results        Params
}

func (r ReadResponse) Encode(w *Writer) {
	r.ResponseHeader.Encode(w)
	r.Results.Encode(w)
}

// WriteResponse wraps the session facade's write results.
type WriteResponse struct {
	ResponseHeader ResponseHeader
	Results        Params
}

func (r WriteResponse) Encode(w *Writer) {
	r.ResponseHeader.Encode(w)
	r.Results.Encode(w)
}

// BrowseResponse wraps the session facade's browse results.
type BrowseResponse struct {
	ResponseHeader ResponseHeader
	Results        Params
}

func (r BrowseResponse) Encode(w *Writer) {
	r.ResponseHeader.Encode(w)
	r.Results.Encode(w)
}

// TranslateBrowsePathsToNodeIdsResponse wraps the translation results.
type TranslateBrowsePathsToNodeIdsResponse struct {
	ResponseHeader ResponseHeader
	Results        Params
}

func (r TranslateBrowsePathsToNodeIdsResponse) Encode(w *Writer) {
	r.ResponseHeader.Encode(w)
	r.Results.Encode(w)
}

// AddNodesResponse wraps the add-nodes results.
type AddNodesResponse struct {
	ResponseHeader ResponseHeader
	Results        Params
}

func (r AddNodesResponse) Encode(w *Writer) {
	r.ResponseHeader.Encode(w)
	r.Results.Encode(w)
}

// GetEndpointsResponse wraps the internal server's endpoint descriptions.
type GetEndpointsResponse struct {
	ResponseHeader ResponseHeader
	Endpoints      Params
}

func (r GetEndpointsResponse) Encode(w *Writer) {
	r.ResponseHeader.Encode(w)
	r.Endpoints.Encode(w)
}

// CreateSubscriptionResponse wraps the subscription creation result.
type CreateSubscriptionResponse struct {
	ResponseHeader ResponseHeader
	Parameters     Params
}

func (r CreateSubscriptionResponse) Encode(w *Writer) {
	r.ResponseHeader.Encode(w)
	r.Parameters.Encode(w)
}

// DeleteSubscriptionsResponse wraps the deletion results.
type DeleteSubscriptionsResponse struct {
	ResponseHeader ResponseHeader
	Results        Params
}

func (r DeleteSubscriptionsResponse) Encode(w *Writer) {
	r.ResponseHeader.Encode(w)
	r.Results.Encode(w)
}

// CreateMonitoredItemsResponse wraps the creation results.
type CreateMonitoredItemsResponse struct {
	ResponseHeader ResponseHeader
	Results        Params
}

func (r CreateMonitoredItemsResponse) Encode(w *Writer) {
	r.ResponseHeader.Encode(w)
	r.Results.Encode(w)
}

// DeleteMonitoredItemsResponse wraps the deletion results.
type DeleteMonitoredItemsResponse struct {
	ResponseHeader ResponseHeader
	Results        Params
}

func (r DeleteMonitoredItemsResponse) Encode(w *Writer) {
	r.ResponseHeader.Encode(w)
	r.Results.Encode(w)
}

// PublishResponse carries a notification (or keep-alive) payload back to
// a previously queued PublishRequest slot (spec.md §4.4 publish fan-out).
type PublishResponse struct {
	ResponseHeader ResponseHeader
	Parameters     Params
}

func (r PublishResponse) Encode(w *Writer) {
	r.ResponseHeader.Encode(w)
	r.Parameters.Encode(w)
}
