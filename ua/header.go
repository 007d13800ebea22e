package ua

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// MessageType identifies the kind of message a frame carries.
type MessageType byte

// Message types, spec.md §3.
const (
	MessageTypeHello MessageType = iota
	MessageTypeAcknowledge
	MessageTypeError
	MessageTypeSecureOpen
	MessageTypeSecureMessage
	MessageTypeSecureClose
)

var messageTypeCodes = map[MessageType][3]byte{
	MessageTypeHello:         {'H', 'E', 'L'},
	MessageTypeAcknowledge:   {'A', 'C', 'K'},
	MessageTypeError:         {'E', 'R', 'R'},
	MessageTypeSecureOpen:    {'O', 'P', 'N'},
	MessageTypeSecureMessage: {'M', 'S', 'G'},
	MessageTypeSecureClose:   {'C', 'L', 'O'},
}

var codeToMessageType = func() map[[3]byte]MessageType {
	out := make(map[[3]byte]MessageType, len(messageTypeCodes))
	for mt, code := range messageTypeCodes {
		out[code] = mt
	}
	return out
}()

// hasChannelID reports whether this message type's header carries a
// ChannelId field (spec.md §3: "absent on Hello/Ack/Error").
func (mt MessageType) hasChannelID() bool {
	switch mt {
	case MessageTypeSecureOpen, MessageTypeSecureMessage, MessageTypeSecureClose:
		return true
	default:
		return false
	}
}

// ChunkType identifies how a frame relates to the logical message it is
// part of. This core only emits/accepts Single (glossary: "Chunk").
type ChunkType byte

const (
	ChunkTypeIntermediate ChunkType = 'C'
	// ChunkTypeFinal closes a logical message; a message sent as one chunk
	// (the only case this core produces or accepts) uses this byte, hence
	// ChunkTypeSingle is defined as an alias rather than a distinct code.
	ChunkTypeFinal  ChunkType = 'F'
	ChunkTypeSingle ChunkType = ChunkTypeFinal
	ChunkTypeAbort  ChunkType = 'A'
)

const (
	// baseHeaderSize covers MessageType(3) + ChunkType(1) + Size(4).
	baseHeaderSize = 8
	// securedHeaderSize additionally carries ChannelId(4).
	securedHeaderSize = baseHeaderSize + 4
)

// ErrBadMessageType is returned when a frame's leading bytes do not match
// any known message type code.
var ErrBadMessageType = errors.New("ua: BadTcpMessageTypeInvalid")

// Header is the fixed-layout frame header described in spec.md §3.
type Header struct {
	MessageType MessageType
	ChunkType   ChunkType
	Size        uint32
	ChannelID   uint32 // valid only when MessageType.hasChannelID()
}

// NewHeader builds a header for message types with no ChannelId field.
func NewHeader(mt MessageType, ct ChunkType) Header {
	return Header{MessageType: mt, ChunkType: ct}
}

// NewSecureHeader builds a header carrying a ChannelId.
func NewSecureHeader(mt MessageType, ct ChunkType, channelID uint32) Header {
	return Header{MessageType: mt, ChunkType: ct, ChannelID: channelID}
}

// HeaderSize returns the encoded size of this header: base header plus the
// ChannelId field when the message type carries one.
func (h Header) HeaderSize() int {
	if h.MessageType.hasChannelID() {
		return securedHeaderSize
	}
	return baseHeaderSize
}

// BodySize returns Size - HeaderSize(), the invariant from spec.md §3.
func (h Header) BodySize() uint32 {
	hs := uint32(h.HeaderSize())
	if h.Size < hs {
		return 0
	}
	return h.Size - hs
}

// AddSize accumulates n encoded payload bytes into Size, on top of the
// header's own size — mirrors the source's header.add_size contract used
// by the Frame Writer (spec.md §4.2 step 2).
func (h *Header) AddSize(n int) {
	if h.Size == 0 {
		h.Size = uint32(h.HeaderSize())
	}
	h.Size += uint32(n)
}

// Encode serialises the header to its fixed wire layout.
func (h Header) Encode() []byte {
	code := messageTypeCodes[h.MessageType]
	buf := make([]byte, h.HeaderSize())
	buf[0], buf[1], buf[2] = code[0], code[1], code[2]
	buf[3] = byte(h.ChunkType)
	binary.LittleEndian.PutUint32(buf[4:8], h.Size)
	if h.MessageType.hasChannelID() {
		binary.LittleEndian.PutUint32(buf[8:12], h.ChannelID)
	}
	return buf
}

// ReadHeader reads exactly the base header-size prefix from r, then the
// extra ChannelId word if the decoded message type carries one. On a
// clean end-of-stream before any byte is read it returns io.EOF, matching
// the Frame Reader's "Closed" outcome in spec.md §4.1.
func ReadHeader(r io.Reader) (Header, error) {
	var base [baseHeaderSize]byte
	if _, err := io.ReadFull(r, base[:]); err != nil {
		return Header{}, err
	}

	var code [3]byte
	copy(code[:], base[0:3])
	mt, ok := codeToMessageType[code]
	if !ok {
		return Header{}, ErrBadMessageType
	}

	h := Header{
		MessageType: mt,
		ChunkType:   ChunkType(base[3]),
		Size:        binary.LittleEndian.Uint32(base[4:8]),
	}
	if h.Size < uint32(baseHeaderSize) {
		return Header{}, errors.Wrap(ErrBadMessageType, "ua: BadTcpMessageTooSmall")
	}

	if mt.hasChannelID() {
		var extra [4]byte
		if _, err := io.ReadFull(r, extra[:]); err != nil {
			return Header{}, err
		}
		h.ChannelID = binary.LittleEndian.Uint32(extra[:])
		if h.Size < uint32(securedHeaderSize) {
			return Header{}, errors.Wrap(ErrBadMessageType, "ua: BadTcpMessageTooSmall")
		}
	}
	return h, nil
}

// ReadBody reads exactly BodySize() bytes following a header already
// consumed from r (spec.md §4.1 read_body).
func ReadBody(r io.Reader, bodySize uint32) (*Buffer, error) {
	body := make([]byte, bodySize)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, errors.Wrap(err, "ua: short body read")
	}
	return NewBuffer(body), nil
}
