package ua

// AsymmetricAlgorithmHeader is present only on SecureOpen bodies. The
// processor treats it as opaque: it has no TokenId field, and the Phase O
// reply echoes it unchanged.
type AsymmetricAlgorithmHeader struct {
	SecurityPolicyURI           string
	SenderCertificate           []byte
	ReceiverCertificateThumbprint []byte
}

// DecodeAsymmetricAlgorithmHeader decodes the header.
func DecodeAsymmetricAlgorithmHeader(buf *Buffer) (AsymmetricAlgorithmHeader, error) {
	var h AsymmetricAlgorithmHeader
	var err error
	if h.SecurityPolicyURI, err = buf.ReadString(); err != nil {
		return h, err
	}
	if h.SenderCertificate, err = buf.ReadByteString(); err != nil {
		return h, err
	}
	h.ReceiverCertificateThumbprint, err = buf.ReadByteString()
	return h, err
}

// Encode serialises the header. TokenId has no field here — the
// processor tags the reply's token id onto the SymmetricAlgorithmHeader
// used for steady-state replies; Phase O replies echo this header as-is,
// and their token id travels only in the response's SecurityToken.
func (h AsymmetricAlgorithmHeader) Encode(w *Writer) {
	w.WriteString(h.SecurityPolicyURI)
	w.WriteByteString(h.SenderCertificate)
	w.WriteByteString(h.ReceiverCertificateThumbprint)
}

// SymmetricAlgorithmHeader is present on SecureMessage bodies and carries
// the token id identifying which security token was used (spec.md §3).
type SymmetricAlgorithmHeader struct {
	TokenID uint32
}

// DecodeSymmetricAlgorithmHeader decodes the header.
func DecodeSymmetricAlgorithmHeader(buf *Buffer) (SymmetricAlgorithmHeader, error) {
	id, err := buf.ReadUint32()
	return SymmetricAlgorithmHeader{TokenID: id}, err
}

// Encode serialises the header.
func (h SymmetricAlgorithmHeader) Encode(w *Writer) {
	w.WriteUint32(h.TokenID)
}

// SequenceHeader carries the outgoing sequence number and the request id
// echoed from the caller (spec.md §3).
type SequenceHeader struct {
	SequenceNumber uint32
	RequestID      uint32
}

// DecodeSequenceHeader decodes the header.
func DecodeSequenceHeader(buf *Buffer) (SequenceHeader, error) {
	var h SequenceHeader
	var err error
	if h.SequenceNumber, err = buf.ReadUint32(); err != nil {
		return h, err
	}
	h.RequestID, err = buf.ReadUint32()
	return h, err
}

// Encode serialises the header.
func (h SequenceHeader) Encode(w *Writer) {
	w.WriteUint32(h.SequenceNumber)
	w.WriteUint32(h.RequestID)
}
