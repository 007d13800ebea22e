package processor

import (
	"io"

	"github.com/sagernet/sing/common/bufio"

	"github.com/lAndbz/opcua-processor/ua"
)

// encoder is anything that can serialise itself onto a ua.Writer. Every
// body/header type the processor sends implements this.
type encoder interface {
	Encode(w *ua.Writer)
}

// frameReader reads framed messages off a stream: a fixed-size header
// followed by exactly its declared body (spec.md §4.1).
type frameReader struct {
	r io.Reader
}

func newFrameReader(r io.Reader) *frameReader {
	return &frameReader{r: r}
}

// readHeader reads the next frame header. A clean EOF before any byte is
// read is returned as io.EOF (the "Closed" outcome of spec.md §4.1);
// anything else is a framing error.
func (f *frameReader) readHeader() (ua.Header, error) {
	return ua.ReadHeader(f.r)
}

// readBody reads exactly bodySize bytes into a position-tracked buffer.
func (f *frameReader) readBody(bodySize uint32) (*ua.Buffer, error) {
	return ua.ReadBody(f.r, bodySize)
}

// frameWriter encodes a header template plus an ordered list of body
// parts and writes the resulting single contiguous chunk to the stream
// (spec.md §4.2). Vectorised writes avoid copying header and body into
// one buffer when the underlying connection supports writev, exactly as
// the teacher's sendLoop does for its own frames.
type frameWriter struct {
	w io.Writer
}

func newFrameWriter(w io.Writer) *frameWriter {
	return &frameWriter{w: w}
}

// write encodes each part in order, fills in header.Size, and writes
// header+parts as one chunk. Callers serialise access to this method
// themselves (spec.md §4.2: "The writer holds a send mutex ... covering
// step 1-3"); frameWriter itself does no locking so that the mutex can
// also cover outgoing sequence-number assignment performed by the
// caller, per spec.md.
func (fw *frameWriter) write(hdr ua.Header, parts ...encoder) error {
	encoded := make([][]byte, 0, len(parts))
	hdr.AddSize(0) // initialise Size to the header's own size even when there are no parts (e.g. a bare Error reply)
	for _, p := range parts {
		w := ua.NewWriter()
		p.Encode(w)
		encoded = append(encoded, w.Bytes())
		hdr.AddSize(len(w.Bytes()))
	}

	headerBytes := hdr.Encode()

	if bw, ok := bufio.CreateVectorisedWriter(fw.w); ok {
		vec := make([][]byte, 0, len(encoded)+1)
		vec = append(vec, headerBytes)
		vec = append(vec, encoded...)
		_, err := bufio.WriteVectorised(bw, vec)
		return err
	}

	buf := make([]byte, 0, hdr.Size)
	buf = append(buf, headerBytes...)
	for _, e := range encoded {
		buf = append(buf, e...)
	}
	_, err := fw.w.Write(buf)
	return err
}
