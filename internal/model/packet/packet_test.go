package packet

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/kawaii-watch/backend/internal/model/chat"
	"github.com/zhouzirui/kawaii-watch/backend/internal/model/persona"
)

func TestEncodeEnvelope(t *testing.T) {
	cases := []struct {
		name string
		in   Outbound
		want string
	}{
		{
			name: "notification",
			in:   Notification{Text: "Vivian and Kevin matched! say hi in chat", Color: Green},
			want: `{"type":"notification","data":{"text":"Vivian and Kevin matched! say hi in chat","color":"green"}}`,
		},
		{
			name: "message",
			in:   Message{Content: "hey gng", SenderName: "Kevin", Role: persona.Boy},
			want: `{"type":"message","data":{"content":"hey gng","senderName":"Kevin","role":"boy"}}`,
		},
		{
			name: "stats",
			in:   Stats{Girls: 4, Boys: 4, Starters: 6},
			want: `{"type":"stats","data":{"girls":4,"boys":4,"starters":6}}`,
		},
		{
			name: "start vote",
			in:   StartVote{Question: "keep watching this match?", Choices: []string{"continue", "skip"}, DurationMs: 15000},
			want: `{"type":"start-vote","data":{"question":"keep watching this match?","choices":["continue","skip"],"durationMs":15000}}`,
		},
		{
			name: "end vote",
			in:   EndVote{Result: map[string]int{"skip": 1, "continue": 0}},
			want: `{"type":"end-vote","data":{"result":{"continue":0,"skip":1}}}`,
		},
		{
			name: "chat broadcast",
			in:   ChatBroadcast{{Username: "Ethan", Message: "W", Timestamp: 1}},
			want: `{"type":"chat-broadcast","data":[{"username":"Ethan","message":"W","timestamp":1}]}`,
		},
		{
			name: "empty history",
			in:   Init{History: []chat.Message{}},
			want: `{"type":"init","data":{"girl":{"name":"","gender":"","age":0,"ethnicity":"","university":"","systemPrompt":""},"boy":{"name":"","gender":"","age":0,"ethnicity":"","university":"","systemPrompt":""},"history":[]}}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Encode(tc.in)
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, string(got))
		})
	}
}

func TestDecodeInbound(t *testing.T) {
	p, err := DecodeInbound([]byte(`{"type":"choice-vote","data":{"choice":"skip"}}`))
	require.NoError(t, err)
	assert.Equal(t, ChoiceVote{Choice: "skip"}, p)

	p, err = DecodeInbound([]byte(`{"type":"chat-in","data":{"message":"she is so real"}}`))
	require.NoError(t, err)
	assert.Equal(t, ChatIn{Message: "she is so real"}, p)
}

func TestDecodeInboundRejects(t *testing.T) {
	cases := []struct {
		raw  string
		want error
	}{
		{`not json`, ErrMalformed},
		{`{"type":"init","data":{}}`, ErrUnknownType},
		{`{"type":"launch-missiles"}`, ErrUnknownType},
		{`{"type":"chat-in"}`, ErrMalformed},
		{`{"type":"chat-in","data":{"message":42}}`, ErrMalformed},
		{`{"type":"choice-vote","data":{"choice":""}}`, ErrMalformed},
	}
	for _, tc := range cases {
		_, err := DecodeInbound([]byte(tc.raw))
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.raw, tc.want, err)
		}
	}
}
