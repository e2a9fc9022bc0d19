// Package codec implements the wire format of the protocol: every message is
// sent as one frame consisting of a 4 byte big endian length followed by that
// many bytes of UTF-8 encoded JSON.
//
// Key Components:
//
//   - AppendFrame / Encode / WriteFrame: Build frames. WriteFrame uses pooled
//     buffers so the header and body reach the socket in a single write.
//
//   - Decoder: Reads frames from a stream. A zero length frame or the end of
//     the stream is reported as io.EOF. Frames that cannot be parsed are
//     reported as common.ErrMalformedFrame and are skipped without breaking
//     the stream, so the caller can simply continue reading.
package codec
