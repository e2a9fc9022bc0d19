package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"github.com/ValentinKolb/mcpc/rpc/common"
	"github.com/lithdew/bytesutil"
	"github.com/valyala/bytebufferpool"
	"io"
	"math"
)

// HeaderSize is the size of the length prefix of each frame
const HeaderSize = 4

// --------------------------------------------------------------------------
// Encoding
// --------------------------------------------------------------------------

// AppendFrame appends the frame of msg to dst and returns the extended buffer.
// A frame has the format:
// - 4 bytes: length N of the body (uint32, big endian)
// - N bytes: UTF-8 JSON encoding of the message
func AppendFrame(dst []byte, msg *common.Message) ([]byte, error) {
	body, err := msg.MarshalJSON()
	if err != nil {
		return dst, fmt.Errorf("failed to encode %s message: %w", msg.Type, err)
	}
	if uint64(len(body)) > math.MaxUint32 {
		return dst, fmt.Errorf("%w: %d bytes", common.ErrFrameTooLarge, len(body))
	}

	dst = bytesutil.AppendUint32BE(dst, uint32(len(body)))
	return append(dst, body...), nil
}

// Encode returns the frame of msg
func Encode(msg *common.Message) ([]byte, error) {
	return AppendFrame(nil, msg)
}

// WriteFrame encodes msg into a pooled buffer and writes the frame with a
// single call to w. Callers must serialize concurrent writes themselves.
func WriteFrame(w io.Writer, msg *common.Message) error {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	var err error
	if buf.B, err = AppendFrame(buf.B[:0], msg); err != nil {
		return err
	}

	_, err = w.Write(buf.B)
	return err
}

// --------------------------------------------------------------------------
// Decoding
// --------------------------------------------------------------------------

// Decoder reads frames from a byte stream
type Decoder struct {
	r            io.Reader
	maxFrameSize uint32
	header       [HeaderSize]byte
}

// NewDecoder creates a decoder reading from r. Frames with a declared length
// above maxFrameSize are skipped, 0 disables the limit.
func NewDecoder(r io.Reader, maxFrameSize uint32) *Decoder {
	if maxFrameSize == 0 {
		maxFrameSize = math.MaxUint32
	}
	return &Decoder{r: r, maxFrameSize: maxFrameSize}
}

// Decode reads the next frame and returns the message it carries.
//
// The returned error is:
//   - io.EOF if the stream ended before a new frame or a zero length frame
//     signalled a graceful close
//   - common.ErrMalformedFrame (wrapped) if the frame was consumed but its
//     body is not a JSON object or exceeds the size limit; the next call
//     continues with the following frame
//   - any other error (io.ErrUnexpectedEOF for short reads) is fatal
func (d *Decoder) Decode() (*common.Message, error) {
	if _, err := io.ReadFull(d.r, d.header[:]); err != nil {
		return nil, err
	}

	length := bytesutil.Uint32BE(d.header[:])
	if length == 0 {
		return nil, io.EOF
	}

	// skip the body to stay in sync with the stream
	if length > d.maxFrameSize {
		if _, err := io.CopyN(io.Discard, d.r, int64(length)); err != nil {
			return nil, unexpected(err)
		}
		return nil, fmt.Errorf("%w: declared length %d exceeds limit %d", common.ErrMalformedFrame, length, d.maxFrameSize)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(d.r, body); err != nil {
		return nil, unexpected(err)
	}

	msg := &common.Message{}
	if err := json.Unmarshal(body, msg); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedFrame, err)
	}
	return msg, nil
}

// Decode reads a single frame from r, see Decoder.Decode
func Decode(r io.Reader) (*common.Message, error) {
	return NewDecoder(r, 0).Decode()
}

// unexpected converts an EOF inside a frame into io.ErrUnexpectedEOF
func unexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
