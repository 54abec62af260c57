// Package integrity generates and validates the HMAC-SHA256 signatures that
// authenticate every payload exchanged with the payment network.
//
// The digest is computed over a canonical rendering of the payload: map keys
// sorted lexicographically at every nesting level (array order preserved),
// then the top-level entries concatenated as key + compact JSON value with
// the "signature" field skipped. Two payloads that differ only in field
// order therefore always produce the same digest.
package integrity

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"github.com/goliatone/go-paytoken/core"
)

// SignatureField is the reserved payload attribute carrying the digest; it is
// always excluded from the signed message.
const SignatureField = "signature"

// HashHMACSHA256 computes the keyed digest of input, hex encoded.
func HashHMACSHA256(input string, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(input))
	return hex.EncodeToString(mac.Sum(nil))
}

// Sign computes the canonical digest of payload using secret. Any existing
// signature attribute is ignored.
func Sign(payload map[string]any, secret string) (string, error) {
	message, err := canonicalMessage(payload)
	if err != nil {
		return "", err
	}
	return HashHMACSHA256(message, secret), nil
}

// SignAny signs an arbitrary value (typically a request struct) after
// normalizing it through its JSON form.
func SignAny(payload any, secret string) (string, error) {
	normalized, err := Canonicalize(payload)
	if err != nil {
		return "", err
	}
	return Sign(normalized, secret)
}

// SignedPayload returns a copy of payload with its signature attached.
func SignedPayload(payload map[string]any, secret string) (map[string]any, error) {
	digest, err := Sign(payload, secret)
	if err != nil {
		return nil, err
	}
	signed := make(map[string]any, len(payload)+1)
	for key, value := range payload {
		signed[key] = value
	}
	signed[SignatureField] = digest
	return signed, nil
}

// SignedPayloadAny normalizes payload through its JSON form and attaches the
// signature to the resulting map.
func SignedPayloadAny(payload any, secret string) (map[string]any, error) {
	normalized, err := Canonicalize(payload)
	if err != nil {
		return nil, err
	}
	return SignedPayload(normalized, secret)
}

// Verify recomputes the digest over payload (minus its signature attribute)
// and compares it with the supplied one.
func Verify(payload map[string]any, secret string) bool {
	supplied, _ := payload[SignatureField].(string)
	if strings.TrimSpace(supplied) == "" {
		return false
	}
	expected, err := Sign(payload, secret)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(supplied)) == 1
}

// VerifyOrFail is Verify with an invalid-signature error envelope instead of
// a boolean.
func VerifyOrFail(payload map[string]any, secret string) error {
	if !Verify(payload, secret) {
		return core.NewInvalidSignatureError()
	}
	return nil
}

// Canonicalize round-trips a value through encoding/json into the map form
// the signing algorithm operates on. Struct fields marked omitempty drop out
// exactly like absent wire attributes.
func Canonicalize(payload any) (map[string]any, error) {
	normalized, err := normalize(payload)
	if err != nil {
		return nil, err
	}
	asMap, ok := normalized.(map[string]any)
	if !ok {
		return nil, core.NewBadInputError("integrity: payload must encode to a JSON object")
	}
	return asMap, nil
}

// canonicalMessage renders the signable string: sorted top-level keys, each
// followed by the compact JSON of its value, signature skipped.
func canonicalMessage(payload map[string]any) (string, error) {
	normalized, err := normalize(payload)
	if err != nil {
		return "", err
	}
	object, ok := normalized.(map[string]any)
	if !ok {
		return "", core.NewBadInputError("integrity: payload must encode to a JSON object")
	}

	keys := make([]string, 0, len(object))
	for key := range object {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var message strings.Builder
	for _, key := range keys {
		if key == SignatureField {
			continue
		}
		message.WriteString(key)
		if err := writeCompactJSON(&message, object[key]); err != nil {
			return "", err
		}
	}
	return message.String(), nil
}

// normalize converts payload into the generic JSON value tree, preserving
// number text via json.Number so digests match the wire bytes.
func normalize(payload any) (any, error) {
	raw, err := marshalNoHTMLEscape(payload)
	if err != nil {
		return nil, core.NewBadInputError("integrity: payload is not JSON serializable: " + err.Error())
	}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var normalized any
	if err := decoder.Decode(&normalized); err != nil {
		return nil, core.NewBadInputError("integrity: payload decode failed: " + err.Error())
	}
	return normalized, nil
}

func writeCompactJSON(message *strings.Builder, value any) error {
	switch typed := value.(type) {
	case nil:
		message.WriteString("null")
	case bool:
		if typed {
			message.WriteString("true")
		} else {
			message.WriteString("false")
		}
	case json.Number:
		message.WriteString(typed.String())
	case string:
		encoded, err := marshalNoHTMLEscape(typed)
		if err != nil {
			return core.NewBadInputError("integrity: string encode failed: " + err.Error())
		}
		message.Write(encoded)
	case []any:
		message.WriteByte('[')
		for i, item := range typed {
			if i > 0 {
				message.WriteByte(',')
			}
			if err := writeCompactJSON(message, item); err != nil {
				return err
			}
		}
		message.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(typed))
		for key := range typed {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		message.WriteByte('{')
		for i, key := range keys {
			if i > 0 {
				message.WriteByte(',')
			}
			encodedKey, err := marshalNoHTMLEscape(key)
			if err != nil {
				return core.NewBadInputError("integrity: key encode failed: " + err.Error())
			}
			message.Write(encodedKey)
			message.WriteByte(':')
			if err := writeCompactJSON(message, typed[key]); err != nil {
				return err
			}
		}
		message.WriteByte('}')
	default:
		// normalize only ever yields the cases above
		encoded, err := marshalNoHTMLEscape(typed)
		if err != nil {
			return core.NewBadInputError("integrity: value encode failed: " + err.Error())
		}
		message.Write(encoded)
	}
	return nil
}

// marshalNoHTMLEscape matches the network's JSON.stringify output, which does
// not escape &, <, or >.
func marshalNoHTMLEscape(value any) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(value); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
