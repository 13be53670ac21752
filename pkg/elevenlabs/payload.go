package elevenlabs

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ProviderName identifies this vendor on interview records.
const ProviderName = "elevenlabs"

// ErrPayloadInvalid indicates the webhook body could not be decoded.
var ErrPayloadInvalid = errors.New("post-call payload invalid")

// PostCallPayload is the decoded body of a post_call_transcription webhook.
type PostCallPayload struct {
	Type string       `json:"type"`
	Data PostCallData `json:"data"`
}

// PostCallData holds the conversation outcome.
type PostCallData struct {
	ConversationID string           `json:"conversation_id"`
	Metadata       PostCallMetadata `json:"metadata"`
	Transcript     []TranscriptItem `json:"transcript"`
	Analysis       PostCallAnalysis `json:"analysis"`
}

// PostCallMetadata carries the dynamic variables the call was started with.
type PostCallMetadata struct {
	DynamicVariables map[string]json.RawMessage `json:"dynamic_variables"`
}

// TranscriptItem is one utterance as reported by the provider.
type TranscriptItem struct {
	Role           string   `json:"role"`
	Message        string   `json:"message"`
	TimeInCallSecs *float64 `json:"time_in_call_secs,omitempty"`
}

// PostCallAnalysis contains the provider's synthesized call summary.
type PostCallAnalysis struct {
	TranscriptSummary string `json:"transcript_summary"`
}

// ParsePostCallPayload decodes a raw webhook body.
func ParsePostCallPayload(rawBody []byte) (PostCallPayload, error) {
	var payload PostCallPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return PostCallPayload{}, fmt.Errorf("%w: %v", ErrPayloadInvalid, err)
	}
	if payload.Data.ConversationID == "" {
		return PostCallPayload{}, fmt.Errorf("%w: conversation_id missing", ErrPayloadInvalid)
	}
	return payload, nil
}

// SubmissionID extracts the submissionId dynamic variable the call was
// initiated with. The provider echoes it back as either a JSON number or a
// string depending on how the call was configured.
func (p PostCallPayload) SubmissionID() (uint, error) {
	raw, ok := p.Data.Metadata.DynamicVariables["submissionId"]
	if !ok {
		return 0, fmt.Errorf("%w: submissionId dynamic variable missing", ErrPayloadInvalid)
	}

	var asNumber uint64
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return uint(asNumber), nil
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		parsed, err := strconv.ParseUint(strings.TrimSpace(asString), 10, 64)
		if err == nil {
			return uint(parsed), nil
		}
	}

	return 0, fmt.Errorf("%w: submissionId dynamic variable unreadable", ErrPayloadInvalid)
}
