package ua

// RequestHeader is the common envelope prefixed to every service request
// body. Every field is decoded into the struct except AdditionalHeader,
// whose single encoding byte is consumed for cursor alignment and
// discarded.
type RequestHeader struct {
	AuthenticationToken NodeID
	Timestamp           uint64 // DateTime, 100ns ticks since 1601-01-01
	RequestHandle       uint32
	ReturnDiagnostics   uint32
	AuditEntryID        string
	TimeoutHint         uint32
}

// DecodeRequestHeader decodes a RequestHeader.
func DecodeRequestHeader(buf *Buffer) (RequestHeader, error) {
	var h RequestHeader
	var err error
	if h.AuthenticationToken, err = DecodeNodeID(buf); err != nil {
		return h, err
	}
	if h.Timestamp, err = buf.ReadUint64(); err != nil {
		return h, err
	}
	if h.RequestHandle, err = buf.ReadUint32(); err != nil {
		return h, err
	}
	if h.ReturnDiagnostics, err = buf.ReadUint32(); err != nil {
		return h, err
	}
	if h.AuditEntryID, err = buf.ReadString(); err != nil {
		return h, err
	}
	h.TimeoutHint, err = buf.ReadUint32()
	if err != nil {
		return h, err
	}
	// ExtensionObject AdditionalHeader: encoding byte 0x00 means no body.
	_, err = buf.ReadByte()
	return h, err
}

// ResponseHeader is the common envelope prefixed to every service
// response body; RequestHandle and ServiceResult are the fields
// send_response (spec.md §4.4) and the fault path (spec.md §7) set.
type ResponseHeader struct {
	Timestamp     uint64
	RequestHandle uint32
	ServiceResult StatusCode
}

// Encode serialises a ResponseHeader. The StringTable, diagnostic info,
// and additional-header fields real OPC UA carries are emitted empty —
// this core never populates them.
func (h ResponseHeader) Encode(w *Writer) {
	w.WriteUint64(h.Timestamp)
	w.WriteUint32(h.RequestHandle)
	w.WriteUint32(uint32(h.ServiceResult))
	w.WriteByte(0) // ServiceDiagnostics: null DiagnosticInfo
	w.WriteInt32(-1) // StringTable: null array
	w.WriteByte(0) // AdditionalHeader: null ExtensionObject
}
