package common

import (
	"encoding/json"
	"errors"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestMessageUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		check   func(t *testing.T, m *Message)
		wantErr bool
	}{
		{
			name:  "reply with extra fields",
			input: `{"reply_to":1,"type":"pong","server":"s1","n":[1,2]}`,
			check: func(t *testing.T, m *Message) {
				id, ok := m.ReplyToID()
				require.True(t, ok)
				require.EqualValues(t, 1, id)
				require.Equal(t, MsgTPong, m.Type)
				_, ok = m.ID()
				require.False(t, ok)
				require.JSONEq(t, `"s1"`, string(m.Extra["server"]))
				require.JSONEq(t, `[1,2]`, string(m.Extra["n"]))
			},
		},
		{
			name:  "notification without correlation fields",
			input: `{"type":"event","payload":{"x":1}}`,
			check: func(t *testing.T, m *Message) {
				require.False(t, m.IsReply())
				require.JSONEq(t, `{"x":1}`, string(m.Payload))
			},
		},
		{
			name:  "missing type is accepted",
			input: `{"reply_to":7}`,
			check: func(t *testing.T, m *Message) {
				require.Equal(t, MessageType(""), m.Type)
				require.True(t, m.IsReply())
			},
		},
		{
			name:  "null reply_to counts as absent",
			input: `{"type":"event","reply_to":null}`,
			check: func(t *testing.T, m *Message) {
				require.False(t, m.IsReply())
			},
		},
		{
			name:  "integral float ids",
			input: `{"reply_to":1.0,"msg_id":2e0,"type":"pong"}`,
			check: func(t *testing.T, m *Message) {
				id, ok := m.ReplyToID()
				require.True(t, ok)
				require.EqualValues(t, 1, id)
				id, ok = m.ID()
				require.True(t, ok)
				require.EqualValues(t, 2, id)
				require.Nil(t, m.Extra)
			},
		},
		{
			name:  "numeric type is kept as extra field",
			input: `{"type":5,"payload":{}}`,
			check: func(t *testing.T, m *Message) {
				require.Equal(t, MessageType(""), m.Type)
				require.Equal(t, `5`, string(m.Extra["type"]))

				out, err := m.MarshalJSON()
				require.NoError(t, err)
				require.Equal(t, `{"payload":{},"type":5}`, string(out))
			},
		},
		{
			name:  "ids that are not unsigned integers are kept as extra fields",
			input: `{"type":"x","msg_id":-1,"reply_to":"1"}`,
			check: func(t *testing.T, m *Message) {
				_, ok := m.ID()
				require.False(t, ok)
				require.False(t, m.IsReply())
				require.Equal(t, `-1`, string(m.Extra["msg_id"]))
				require.Equal(t, `"1"`, string(m.Extra["reply_to"]))
			},
		},
		{
			name:  "fractional reply_to",
			input: `{"reply_to":1.5}`,
			check: func(t *testing.T, m *Message) {
				require.False(t, m.IsReply())
				require.Equal(t, `1.5`, string(m.Extra["reply_to"]))
			},
		},
		{name: "array", input: `[1,2,3]`, wantErr: true},
		{name: "null", input: `null`, wantErr: true},
		{name: "string", input: `"hello"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m Message
			err := json.Unmarshal([]byte(tt.input), &m)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, &m)
		})
	}
}

func TestMessageMarshal(t *testing.T) {
	t.Run("sorted keys and compact output", func(t *testing.T) {
		m := &Message{Type: MsgTEcho, Payload: json.RawMessage(`{"text":"hi"}`)}
		m.SetMsgID(3)

		out, err := m.MarshalJSON()
		require.NoError(t, err)
		require.Equal(t, `{"msg_id":3,"payload":{"text":"hi"},"type":"echo"}`, string(out))
	})

	t.Run("empty type is omitted", func(t *testing.T) {
		m := &Message{}
		m.SetReplyTo(9)

		out, err := m.MarshalJSON()
		require.NoError(t, err)
		require.Equal(t, `{"reply_to":9}`, string(out))
	})

	t.Run("non ascii and html characters are kept", func(t *testing.T) {
		m := NewEchoRequest("grüße <&>")

		out, err := m.MarshalJSON()
		require.NoError(t, err)
		require.Equal(t, `{"payload":{"text":"grüße <&>"},"type":"echo"}`, string(out))
	})

	t.Run("invalid raw payload", func(t *testing.T) {
		m := &Message{Type: MsgTRequest, Payload: json.RawMessage(`{broken`)}
		_, err := m.MarshalJSON()
		require.Error(t, err)
	})

	t.Run("decoded message encodes to the same bytes", func(t *testing.T) {
		in := `{"extra":{"a":[true,null]},"msg_id":42,"payload":"x","type":"custom"}`

		var m Message
		require.NoError(t, json.Unmarshal([]byte(in), &m))

		out, err := json.Marshal(m)
		require.NoError(t, err)
		require.Equal(t, in, string(out))
	})
}

func TestMessageClone(t *testing.T) {
	orig := &Message{
		Type:    MsgTRequest,
		Payload: json.RawMessage(`{"a":1}`),
		Extra:   map[string]json.RawMessage{"k": json.RawMessage(`"v"`)},
	}
	orig.SetMsgID(1)

	c := orig.Clone()
	c.SetMsgID(2)
	c.Payload[2] = 'b'
	c.Extra["k"] = json.RawMessage(`"w"`)

	id, _ := orig.ID()
	require.EqualValues(t, 1, id)
	require.Equal(t, `{"a":1}`, string(orig.Payload))
	require.Equal(t, `"v"`, string(orig.Extra["k"]))
}

func TestMessageFactories(t *testing.T) {
	req, err := NewRequest(MsgTRequest, map[string]string{"q": "<x>"})
	require.NoError(t, err)
	require.Equal(t, `{"q":"<x>"}`, string(req.Payload))

	req.SetMsgID(5)

	t.Run("response copies msg_id into reply_to", func(t *testing.T) {
		resp := NewResponse(req, MsgTResponse, req.Payload)
		id, ok := resp.ReplyToID()
		require.True(t, ok)
		require.EqualValues(t, 5, id)
		_, ok = resp.ID()
		require.False(t, ok)
	})

	t.Run("error response", func(t *testing.T) {
		resp := NewErrorResponse(req, "boom")
		require.Equal(t, MsgTError, resp.Type)

		var payload ErrorPayload
		require.NoError(t, resp.DecodePayload(&payload))
		require.Equal(t, "boom", payload.Error)
	})

	t.Run("unmarshalable payload", func(t *testing.T) {
		_, err := NewRequest(MsgTRequest, make(chan int))
		require.Error(t, err)
	})

	t.Run("decode without payload", func(t *testing.T) {
		var payload EchoPayload
		require.Error(t, NewPingRequest().DecodePayload(&payload))
	})
}

func TestErrorKinds(t *testing.T) {
	require.True(t, errors.Is(ErrConnectionLost, ErrConnection))
	require.True(t, errors.Is(ErrConnectionClosed, ErrConnection))
	require.False(t, errors.Is(ErrConnectionClosed, ErrConnectionLost))
	require.False(t, errors.Is(ErrTimeout, ErrConnection))

	var respErr error = &ResponseError{ReplyTo: 3, Message: "nope"}
	require.Contains(t, respErr.Error(), "nope")
}
