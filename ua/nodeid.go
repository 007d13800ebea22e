package ua

// NodeIDType distinguishes the wire encoding used for a NodeId's
// identifier (two-byte numeric, four-byte numeric, full numeric, string,
// ...). Only the numeric encodings are needed for service dispatch.
type NodeIDType byte

const (
	NodeIDTypeTwoByte  NodeIDType = 0x00
	NodeIDTypeFourByte NodeIDType = 0x01
	NodeIDTypeNumeric  NodeIDType = 0x02
	NodeIDTypeString   NodeIDType = 0x03
)

// NodeID is a decoded OPC UA NodeId. The dispatcher only ever compares
// NodeIDs by (Namespace, Numeric) equality (spec.md §6: "NodeId decoding
// must recognise the numeric identifier equality used for service
// dispatch").
type NodeID struct {
	Namespace uint16
	Numeric   uint32
}

// NewNumericNodeID builds a namespace-0 numeric NodeId, the only kind the
// dispatch table needs to construct.
func NewNumericNodeID(id ObjectID) NodeID {
	return NodeID{Numeric: uint32(id)}
}

// Equal reports numeric identifier equality, ignoring the encoding the
// value happened to arrive in.
func (n NodeID) Equal(other NodeID) bool {
	return n.Namespace == other.Namespace && n.Numeric == other.Numeric
}

// DecodeNodeID decodes a NodeId value from buf, recognising the three
// numeric encodings (two-byte, four-byte, full numeric); string and GUID
// NodeIds decode their identifier but are never matched during dispatch.
func DecodeNodeID(buf *Buffer) (NodeID, error) {
	encoding, err := buf.ReadByte()
	if err != nil {
		return NodeID{}, err
	}
	switch NodeIDType(encoding & 0x3f) {
	case NodeIDTypeTwoByte:
		id, err := buf.ReadByte()
		return NodeID{Numeric: uint32(id)}, err
	case NodeIDTypeFourByte:
		ns, err := buf.ReadByte()
		if err != nil {
			return NodeID{}, err
		}
		id, err := buf.ReadUint16()
		return NodeID{Namespace: uint16(ns), Numeric: uint32(id)}, err
	case NodeIDTypeNumeric:
		ns, err := buf.ReadUint16()
		if err != nil {
			return NodeID{}, err
		}
		id, err := buf.ReadUint32()
		return NodeID{Namespace: ns, Numeric: id}, err
	case NodeIDTypeString:
		ns, err := buf.ReadUint16()
		if err != nil {
			return NodeID{}, err
		}
		if _, err := buf.ReadString(); err != nil {
			return NodeID{}, err
		}
		return NodeID{Namespace: ns}, nil
	default:
		// GUID and opaque (ByteString) identifiers: consumed for cursor
		// alignment but never used as a dispatch key.
		ns, err := buf.ReadUint16()
		if err != nil {
			return NodeID{}, err
		}
		if NodeIDType(encoding&0x3f) == 0x04 {
			if _, err := buf.take(16); err != nil {
				return NodeID{}, err
			}
		} else if _, err := buf.ReadByteString(); err != nil {
			return NodeID{}, err
		}
		return NodeID{Namespace: ns}, nil
	}
}

// Encode serialises a numeric NodeId using the most compact applicable
// encoding.
func (n NodeID) Encode(w *Writer) {
	switch {
	case n.Namespace == 0 && n.Numeric <= 0xff:
		w.WriteByte(byte(NodeIDTypeTwoByte))
		w.WriteByte(byte(n.Numeric))
	case n.Namespace <= 0xff && n.Numeric <= 0xffff:
		w.WriteByte(byte(NodeIDTypeFourByte))
		w.WriteByte(byte(n.Namespace))
		w.WriteUint16(uint16(n.Numeric))
	default:
		w.WriteByte(byte(NodeIDTypeNumeric))
		w.WriteUint16(n.Namespace)
		w.WriteUint32(n.Numeric)
	}
}
