package common

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// wire names of the well known message fields
const (
	fieldType    = "type"
	fieldMsgID   = "msg_id"
	fieldReplyTo = "reply_to"
	fieldPayload = "payload"
)

// Message represents a single JSON object exchanged with the peer.
// Requests carry a MsgID, responses carry a ReplyTo equal to the MsgID of the
// request they answer, and notifications carry neither.
type Message struct {
	// Type of message (required on the wire for requests)
	Type MessageType

	// Correlation fields, nil if absent
	MsgID   *uint64 // Set on client originated requests
	ReplyTo *uint64 // Set on responses

	// Payload is the type dependent body of the message, kept as raw JSON
	Payload json.RawMessage

	// Extra holds any additional top level fields the peer sent. They are
	// written back unchanged when the message is encoded.
	Extra map[string]json.RawMessage
}

// ID returns the msg_id of the message and whether it is set
func (m *Message) ID() (uint64, bool) {
	if m.MsgID == nil {
		return 0, false
	}
	return *m.MsgID, true
}

// ReplyToID returns the reply_to field of the message and whether it is set
func (m *Message) ReplyToID() (uint64, bool) {
	if m.ReplyTo == nil {
		return 0, false
	}
	return *m.ReplyTo, true
}

// SetMsgID sets the msg_id field, overwriting any previous value
func (m *Message) SetMsgID(id uint64) {
	m.MsgID = &id
}

// SetReplyTo sets the reply_to field, overwriting any previous value
func (m *Message) SetReplyTo(id uint64) {
	m.ReplyTo = &id
}

// IsReply reports whether the message answers a request
func (m *Message) IsReply() bool {
	return m.ReplyTo != nil
}

// DecodePayload unmarshals the payload into v
func (m *Message) DecodePayload(v any) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("message of type %q has no payload", m.Type)
	}
	return json.Unmarshal(m.Payload, v)
}

// Clone returns a copy of the message that shares no memory with the original
func (m *Message) Clone() *Message {
	c := &Message{Type: m.Type}
	if id, ok := m.ID(); ok {
		c.SetMsgID(id)
	}
	if id, ok := m.ReplyToID(); ok {
		c.SetReplyTo(id)
	}
	if m.Payload != nil {
		c.Payload = append(json.RawMessage(nil), m.Payload...)
	}
	if m.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(m.Extra))
		for k, v := range m.Extra {
			c.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return c
}

// String returns a short description of the message for log output
func (m *Message) String() string {
	s := fmt.Sprintf("type=%q", m.Type)
	if id, ok := m.ID(); ok {
		s += fmt.Sprintf(" msg_id=%d", id)
	}
	if id, ok := m.ReplyToID(); ok {
		s += fmt.Sprintf(" reply_to=%d", id)
	}
	if len(m.Payload) > 0 {
		s += fmt.Sprintf(" payload=%s", m.Payload)
	}
	return s
}

// --------------------------------------------------------------------------
// JSON encoding
// --------------------------------------------------------------------------

// MarshalJSON implements the json.Marshaler interface for Message.
// Fields are written in key order and raw values are copied verbatim, so a
// decoded message encodes back to the same bytes.
func (m Message) MarshalJSON() ([]byte, error) {
	fields := make(map[string]json.RawMessage, len(m.Extra)+4)
	for k, v := range m.Extra {
		fields[k] = v
	}

	if m.Type != "" {
		typ, err := marshalNoEscape(string(m.Type))
		if err != nil {
			return nil, err
		}
		fields[fieldType] = typ
	}
	if id, ok := m.ID(); ok {
		fields[fieldMsgID] = strconv.AppendUint(nil, id, 10)
	}
	if id, ok := m.ReplyToID(); ok {
		fields[fieldReplyTo] = strconv.AppendUint(nil, id, 10)
	}
	if len(m.Payload) > 0 {
		fields[fieldPayload] = m.Payload
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalNoEscape(k)
		if err != nil {
			return nil, err
		}
		if !json.Valid(fields[k]) {
			return nil, fmt.Errorf("field %q holds invalid JSON", k)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(fields[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface for Message.
// The input must be a JSON object. Well known fields of an unexpected JSON
// type are kept in Extra and treated as absent, so such a message still
// reaches the notification handler instead of being dropped.
func (m *Message) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		return errors.New("message must be a JSON object")
	}

	*m = Message{}

	if raw, ok := fields[fieldType]; ok {
		var typ string
		if err := json.Unmarshal(raw, &typ); err == nil {
			m.Type = MessageType(typ)
			delete(fields, fieldType)
		}
	}

	m.MsgID = takeID(fields, fieldMsgID)
	m.ReplyTo = takeID(fields, fieldReplyTo)

	if raw, ok := fields[fieldPayload]; ok {
		m.Payload = raw
		delete(fields, fieldPayload)
	}

	if len(fields) > 0 {
		m.Extra = fields
	}
	return nil
}

// maxExactID is the largest integer a float64 represents exactly
const maxExactID = 1 << 53

// takeID removes an id field from fields and returns its value. Integral
// numbers such as 7 or 7.0 are ids, null counts as absent and any other value
// stays in fields.
func takeID(fields map[string]json.RawMessage, name string) *uint64 {
	raw, ok := fields[name]
	if !ok {
		return nil
	}
	if string(raw) == "null" {
		delete(fields, name)
		return nil
	}

	id, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		// JSON strings fail here, so only numbers pass
		f, ferr := strconv.ParseFloat(string(raw), 64)
		if ferr != nil || f < 0 || f > maxExactID || f != math.Trunc(f) {
			return nil
		}
		id = uint64(f)
	}

	delete(fields, name)
	return &id
}

// marshalNoEscape encodes v without escaping HTML characters
func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

// --------------------------------------------------------------------------
// Payload types
// --------------------------------------------------------------------------

// EchoPayload is the payload of echo requests and responses
type EchoPayload struct {
	Text string `json:"text"`
}

// ErrorPayload is the payload of error responses
type ErrorPayload struct {
	Error string `json:"error"`
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewRequest creates a new request of the given type. The payload is
// marshalled to JSON, a nil payload leaves the field unset.
func NewRequest(msgType MessageType, payload any) (*Message, error) {
	msg := &Message{Type: msgType}
	if payload != nil {
		raw, err := marshalNoEscape(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", msgType, err)
		}
		msg.Payload = raw
	}
	return msg, nil
}

// NewPingRequest creates a new ping request
func NewPingRequest() *Message {
	return &Message{Type: MsgTPing}
}

// NewEchoRequest creates a new echo request
func NewEchoRequest(text string) *Message {
	payload, _ := marshalNoEscape(EchoPayload{Text: text})
	return &Message{
		Type:    MsgTEcho,
		Payload: payload,
	}
}

// NewHeartbeatRequest creates a new heartbeat request
func NewHeartbeatRequest() *Message {
	return &Message{Type: MsgTHeartbeat}
}

// NewResponse creates a response to req. ReplyTo is copied from the request's msg_id.
func NewResponse(req *Message, msgType MessageType, payload json.RawMessage) *Message {
	msg := &Message{
		Type:    msgType,
		Payload: payload,
	}
	if id, ok := req.ID(); ok {
		msg.SetReplyTo(id)
	}
	return msg
}

// NewErrorResponse creates a new error response to req
func NewErrorResponse(req *Message, errMsg string) *Message {
	payload, _ := marshalNoEscape(ErrorPayload{Error: errMsg})
	return NewResponse(req, MsgTError, payload)
}

// NewNotification creates a message without correlation fields
func NewNotification(msgType MessageType, payload json.RawMessage) *Message {
	return &Message{
		Type:    msgType,
		Payload: payload,
	}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType is the value of the "type" field. Peers may define their own
// types, the constants below are the ones this module sends or answers.
type MessageType string

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	if t == "" {
		return "unknown"
	}
	return string(t)
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types

	MsgTRequest  MessageType = "request"  // Default type of outgoing requests
	MsgTResponse MessageType = "response" // Generic response
	MsgTError    MessageType = "error"    // Indicates an error occurred

	// Liveness

	MsgTPing         MessageType = "ping"          // Ping request
	MsgTPong         MessageType = "pong"          // Answer to a ping
	MsgTHeartbeat    MessageType = "heartbeat"     // Periodic keep-alive request
	MsgTHeartbeatAck MessageType = "heartbeat_ack" // Answer to a heartbeat

	// Payload operations

	MsgTEcho MessageType = "echo" // Echo the payload back
)
