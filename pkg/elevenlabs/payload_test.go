package elevenlabs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePostCallPayload(t *testing.T) {
	raw := []byte(`{
		"type": "post_call_transcription",
		"data": {
			"conversation_id": "conv_abc",
			"metadata": {"dynamic_variables": {"submissionId": 42}},
			"transcript": [
				{"role": "agent", "message": "Walk me through the design.", "time_in_call_secs": 3.5},
				{"role": "user", "message": "I started with the data model."}
			],
			"analysis": {"transcript_summary": "Clear reasoning."}
		}
	}`)

	payload, err := ParsePostCallPayload(raw)
	require.NoError(t, err)
	require.Equal(t, "post_call_transcription", payload.Type)
	require.Equal(t, "conv_abc", payload.Data.ConversationID)
	require.Len(t, payload.Data.Transcript, 2)
	require.NotNil(t, payload.Data.Transcript[0].TimeInCallSecs)
	require.Equal(t, 3.5, *payload.Data.Transcript[0].TimeInCallSecs)
	require.Nil(t, payload.Data.Transcript[1].TimeInCallSecs)
	require.Equal(t, "Clear reasoning.", payload.Data.Analysis.TranscriptSummary)

	id, err := payload.SubmissionID()
	require.NoError(t, err)
	require.Equal(t, uint(42), id)
}

func TestParsePostCallPayloadStringSubmissionID(t *testing.T) {
	raw := []byte(`{"data":{"conversation_id":"conv_x","metadata":{"dynamic_variables":{"submissionId":"17"}}}}`)

	payload, err := ParsePostCallPayload(raw)
	require.NoError(t, err)

	id, err := payload.SubmissionID()
	require.NoError(t, err)
	require.Equal(t, uint(17), id)
}

func TestParsePostCallPayloadRejectsBadInput(t *testing.T) {
	_, err := ParsePostCallPayload([]byte(`not json`))
	require.ErrorIs(t, err, ErrPayloadInvalid)

	// Missing conversation id.
	_, err = ParsePostCallPayload([]byte(`{"data":{}}`))
	require.ErrorIs(t, err, ErrPayloadInvalid)
}

func TestSubmissionIDMissingVariable(t *testing.T) {
	payload := PostCallPayload{Data: PostCallData{ConversationID: "conv_x"}}

	_, err := payload.SubmissionID()
	require.ErrorIs(t, err, ErrPayloadInvalid)
}
