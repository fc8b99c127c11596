package chat

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeEventPayloads(t *testing.T) {
	tests := []struct {
		name  string
		env   string
		check func(t *testing.T, ev Event)
	}{
		{
			name: "new message",
			env:  `{"event":"new_message","data":{"room_id":"general","username":"alice","msg":"hi","ts":1700000000}}`,
			check: func(t *testing.T, ev Event) {
				require.NotNil(t, ev.Message)
				require.Equal(t, "general", ev.Message.RoomID)
			},
		},
		{
			name: "room joined",
			env:  `{"event":"room_joined","data":{"room_id":"dev","room_name":"开发","active_users":["alice","bob"]}}`,
			check: func(t *testing.T, ev Event) {
				require.NotNil(t, ev.RoomJoined)
				require.Equal(t, []string{"alice", "bob"}, ev.RoomJoined.ActiveUsers)
			},
		},
		{
			name: "user left",
			env:  `{"event":"user_left","data":{"room_id":"dev","username":"bob","active_users":["alice"]}}`,
			check: func(t *testing.T, ev Event) {
				require.NotNil(t, ev.Presence)
				require.Equal(t, "bob", ev.Presence.Username)
			},
		},
		{
			name: "unknown is passed through",
			env:  `{"event":"typing","data":{"username":"bob"}}`,
			check: func(t *testing.T, ev Event) {
				require.Equal(t, "typing", ev.Name)
				require.Nil(t, ev.Message)
				require.Nil(t, ev.Presence)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var env Envelope
			require.NoError(t, json.Unmarshal([]byte(tt.env), &env))
			ev, err := DecodeEvent(env)
			require.NoError(t, err)
			tt.check(t, ev)
		})
	}
}

func TestDecodeEventMissingData(t *testing.T) {
	_, err := DecodeEvent(Envelope{Event: EventNewMessage})
	require.Error(t, err)
}

func TestNewEnvelopeRoundTrip(t *testing.T) {
	env, err := NewEnvelope(EventJoinRoom, JoinRoom{Username: "alice", RoomID: "dev"})
	require.NoError(t, err)
	require.Equal(t, EventJoinRoom, env.Event)
	require.JSONEq(t, `{"username":"alice","room_id":"dev"}`, string(env.Data))
}

func TestRawMessageHelpers(t *testing.T) {
	msg := RawMessage{Username: "  ", Msg: "hi", TS: Epoch(10)}
	require.False(t, msg.HasAuthor())
	require.True(t, msg.HasBody())

	clone := msg.Clone()
	*clone.TS = 20
	require.Equal(t, float64(10), *msg.TS)

	require.Equal(t, "10|alice|hi", RawMessage{Username: "alice", Msg: "hi"}.DedupKey(10))
}
