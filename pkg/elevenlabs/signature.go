// Package elevenlabs verifies and parses post-call webhooks delivered by the
// ElevenLabs conversational-voice platform.
package elevenlabs

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultTolerance is how far a webhook timestamp may drift from server time
// before the delivery is treated as a replay.
const DefaultTolerance = 30 * time.Minute

// ErrHeaderMalformed indicates the signature header does not match t=...,v0=... form.
var ErrHeaderMalformed = errors.New("signature header malformed")

// ErrSignatureInvalid indicates the HMAC digest does not match the body.
var ErrSignatureInvalid = errors.New("signature mismatch")

// ErrSignatureExpired indicates the signed timestamp is outside the tolerance window.
var ErrSignatureExpired = errors.New("signature timestamp outside tolerance")

// VerifySignature authenticates a webhook delivery. The header carries
// "t=<unixSeconds>,v0=<hexHmacSha256>" and the digest covers "<t>.<rawBody>".
// rawBody must be the unparsed request bytes: re-serialized JSON can reorder
// keys or change whitespace and silently break the digest.
func VerifySignature(rawBody []byte, header, secret string, now time.Time, tolerance time.Duration) error {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}

	timestamp, signature, err := splitHeader(header)
	if err != nil {
		return err
	}

	drift := now.Sub(time.Unix(timestamp, 0))
	if drift > tolerance || drift < -tolerance {
		return ErrSignatureExpired
	}

	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	if subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(signature))) != 1 {
		return ErrSignatureInvalid
	}

	return nil
}

func splitHeader(header string) (int64, string, error) {
	var timestamp int64
	var signature string
	var haveTimestamp bool

	for _, part := range strings.Split(strings.TrimSpace(header), ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			return 0, "", ErrHeaderMalformed
		}
		switch key {
		case "t":
			parsed, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return 0, "", ErrHeaderMalformed
			}
			timestamp = parsed
			haveTimestamp = true
		case "v0":
			signature = value
		}
	}

	if !haveTimestamp || signature == "" {
		return 0, "", ErrHeaderMalformed
	}

	return timestamp, signature, nil
}
