// Package ua implements the wire types of the OPC UA TCP binary protocol
// used by the processor: message headers, algorithm/sequence headers, and
// the request/response structures the dispatcher exchanges with the
// session and internal server facades.
package ua

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// ErrShortBuffer is returned by decoders when a field would read past the
// end of the buffer.
var ErrShortBuffer = errors.New("ua: short buffer")

// Buffer is a position-tracked byte slice. Decoders advance pos as they
// consume fields; a decoder that does not consume the bytes it describes
// leaves later fields misaligned, which is a protocol bug, not something
// this type guards against at runtime.
type Buffer struct {
	data []byte
	pos  int
}

// NewBuffer wraps data for decoding, cursor at zero.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{data: data}
}

// Len returns the number of unread bytes.
func (b *Buffer) Len() int {
	return len(b.data) - b.pos
}

// Bytes returns the unread tail of the buffer without advancing the cursor.
func (b *Buffer) Bytes() []byte {
	return b.data[b.pos:]
}

func (b *Buffer) take(n int) ([]byte, error) {
	if b.Len() < n {
		return nil, errors.Wrapf(ErrShortBuffer, "need %d bytes, have %d", n, b.Len())
	}
	out := b.data[b.pos : b.pos+n]
	b.pos += n
	return out, nil
}

// ReadByte consumes one byte.
func (b *Buffer) ReadByte() (byte, error) {
	raw, err := b.take(1)
	if err != nil {
		return 0, err
	}
	return raw[0], nil
}

// ReadBool consumes one byte as a Boolean.
func (b *Buffer) ReadBool() (bool, error) {
	v, err := b.ReadByte()
	return v != 0, err
}

// ReadUint16 consumes a little-endian UInt16.
func (b *Buffer) ReadUint16() (uint16, error) {
	raw, err := b.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(raw), nil
}

// ReadUint32 consumes a little-endian UInt32.
func (b *Buffer) ReadUint32() (uint32, error) {
	raw, err := b.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(raw), nil
}

// ReadInt32 consumes a little-endian Int32.
func (b *Buffer) ReadInt32() (int32, error) {
	v, err := b.ReadUint32()
	return int32(v), err
}

// ReadUint64 consumes a little-endian UInt64.
func (b *Buffer) ReadUint64() (uint64, error) {
	raw, err := b.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(raw), nil
}

// ReadByteString consumes an Int32 length prefix followed by that many
// bytes. A length of -1 denotes a null string, returned as nil.
func (b *Buffer) ReadByteString() ([]byte, error) {
	n, err := b.ReadInt32()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, nil
	}
	return b.take(int(n))
}

// ReadString consumes a ByteString and returns it as a Go string.
func (b *Buffer) ReadString() (string, error) {
	raw, err := b.ReadByteString()
	return string(raw), err
}

// ReadRest consumes and returns every remaining byte without a length
// prefix. Used for structures whose internal field layout belongs to the
// external codec library (spec.md §1/§6) — this package only needs to
// move their encoded bytes between the wire and the facades unopened.
func (b *Buffer) ReadRest() []byte {
	out := b.data[b.pos:]
	b.pos = len(b.data)
	return out
}

// ReadInt32Array consumes an Int32 length prefix followed by that many
// little-endian Int32 values. A length of -1 denotes a null array.
func (b *Buffer) ReadInt32Array() ([]int32, error) {
	n, err := b.ReadInt32()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, nil
	}
	out := make([]int32, n)
	for i := range out {
		if out[i], err = b.ReadInt32(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Writer accumulates encoded fields in wire order.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Bytes returns the accumulated encoding.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// WriteByte appends a single byte.
func (w *Writer) WriteByte(v byte) {
	w.buf = append(w.buf, v)
}

// WriteBool appends a Boolean.
func (w *Writer) WriteBool(v bool) {
	if v {
		w.WriteByte(1)
	} else {
		w.WriteByte(0)
	}
}

// WriteUint16 appends a little-endian UInt16.
func (w *Writer) WriteUint16(v uint16) {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

// WriteUint32 appends a little-endian UInt32.
func (w *Writer) WriteUint32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

// WriteInt32 appends a little-endian Int32.
func (w *Writer) WriteInt32(v int32) {
	w.WriteUint32(uint32(v))
}

// WriteUint64 appends a little-endian UInt64.
func (w *Writer) WriteUint64(v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

// WriteByteString appends an Int32 length prefix (-1 for nil) and the bytes.
func (w *Writer) WriteByteString(v []byte) {
	if v == nil {
		w.WriteInt32(-1)
		return
	}
	w.WriteInt32(int32(len(v)))
	w.buf = append(w.buf, v...)
}

// WriteString appends a String as a ByteString.
func (w *Writer) WriteString(v string) {
	w.WriteByteString([]byte(v))
}

// WriteInt32Array appends an Int32 length prefix (-1 for nil) and the values.
func (w *Writer) WriteInt32Array(v []int32) {
	if v == nil {
		w.WriteInt32(-1)
		return
	}
	w.WriteInt32(int32(len(v)))
	for _, e := range v {
		w.WriteInt32(e)
	}
}
