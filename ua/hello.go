package ua

// HelloMessage is the client's opening handshake body (spec.md §3).
type HelloMessage struct {
	ProtocolVersion   uint32
	ReceiveBufferSize uint32
	SendBufferSize    uint32
	MaxMessageSize    uint32
	MaxChunkCount     uint32
	EndpointURL       string
}

// DecodeHelloMessage decodes a Hello body.
func DecodeHelloMessage(buf *Buffer) (HelloMessage, error) {
	var h HelloMessage
	var err error
	if h.ProtocolVersion, err = buf.ReadUint32(); err != nil {
		return h, err
	}
	if h.ReceiveBufferSize, err = buf.ReadUint32(); err != nil {
		return h, err
	}
	if h.SendBufferSize, err = buf.ReadUint32(); err != nil {
		return h, err
	}
	if h.MaxMessageSize, err = buf.ReadUint32(); err != nil {
		return h, err
	}
	if h.MaxChunkCount, err = buf.ReadUint32(); err != nil {
		return h, err
	}
	h.EndpointURL, err = buf.ReadString()
	return h, err
}

// Encode serialises a Hello body.
func (h HelloMessage) Encode(w *Writer) {
	w.WriteUint32(h.ProtocolVersion)
	w.WriteUint32(h.ReceiveBufferSize)
	w.WriteUint32(h.SendBufferSize)
	w.WriteUint32(h.MaxMessageSize)
	w.WriteUint32(h.MaxChunkCount)
	w.WriteString(h.EndpointURL)
}

// AcknowledgeMessage is the server's handshake reply (spec.md §3).
type AcknowledgeMessage struct {
	ProtocolVersion   uint32
	ReceiveBufferSize uint32
	SendBufferSize    uint32
	MaxMessageSize    uint32
	MaxChunkCount     uint32
}

// Encode serialises an Acknowledge body.
func (a AcknowledgeMessage) Encode(w *Writer) {
	w.WriteUint32(a.ProtocolVersion)
	w.WriteUint32(a.ReceiveBufferSize)
	w.WriteUint32(a.SendBufferSize)
	w.WriteUint32(a.MaxMessageSize)
	w.WriteUint32(a.MaxChunkCount)
}

// DecodeAcknowledgeMessage decodes an Acknowledge body (used by test
// fixtures acting as a client).
func DecodeAcknowledgeMessage(buf *Buffer) (AcknowledgeMessage, error) {
	var a AcknowledgeMessage
	var err error
	if a.ProtocolVersion, err = buf.ReadUint32(); err != nil {
		return a, err
	}
	if a.ReceiveBufferSize, err = buf.ReadUint32(); err != nil {
		return a, err
	}
	if a.SendBufferSize, err = buf.ReadUint32(); err != nil {
		return a, err
	}
	if a.MaxMessageSize, err = buf.ReadUint32(); err != nil {
		return a, err
	}
	a.MaxChunkCount, err = buf.ReadUint32()
	return a, err
}
