package integrity

import (
	"testing"

	"github.com/goliatone/go-paytoken/core"
)

const testSecret = "f441bb4d-9cd3-410a-8ede-cefd33cf3fa0"

func TestHashHMACSHA256_KnownVector(t *testing.T) {
	hash := HashHMACSHA256("test input", testSecret)
	if hash != "39db93aef628cecb40a223ccf336e7d3a93e16a66248412c01b6bcb513df243a" {
		t.Fatalf("unexpected digest: %s", hash)
	}
}

func TestSign_KnownVector(t *testing.T) {
	digest, err := Sign(map[string]any{"hello": "world"}, testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if digest != "ba1cf4f1a0d5659a4c7dd8c70f74788a532c644c65eeb3d46d9e56cdb22eaeaa" {
		t.Fatalf("unexpected digest: %s", digest)
	}
}

func TestSign_IgnoresExistingSignature(t *testing.T) {
	digest, err := Sign(map[string]any{
		"hello":     "world",
		"signature": "stale-value",
	}, testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if digest != "ba1cf4f1a0d5659a4c7dd8c70f74788a532c644c65eeb3d46d9e56cdb22eaeaa" {
		t.Fatalf("expected signature field to be excluded, got %s", digest)
	}
}

func TestSign_FieldOrderIndependent(t *testing.T) {
	first := map[string]any{
		"token_uuid": "tok-1",
		"amount":     1500,
		"operations": map[string]any{
			"generation_uuid":    "gen-1",
			"authorization_uuid": "auth-1",
		},
	}
	second := map[string]any{
		"operations": map[string]any{
			"authorization_uuid": "auth-1",
			"generation_uuid":    "gen-1",
		},
		"amount":     1500,
		"token_uuid": "tok-1",
	}

	digestFirst, err := Sign(first, testSecret)
	if err != nil {
		t.Fatalf("sign first: %v", err)
	}
	digestSecond, err := Sign(second, testSecret)
	if err != nil {
		t.Fatalf("sign second: %v", err)
	}
	if digestFirst != digestSecond {
		t.Fatalf("expected order-independent digests, got %s vs %s", digestFirst, digestSecond)
	}
}

func TestSign_ArraysKeepOrder(t *testing.T) {
	first, err := Sign(map[string]any{"items": []any{"a", "b"}}, testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	second, err := Sign(map[string]any{"items": []any{"b", "a"}}, testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if first == second {
		t.Fatalf("expected array order to affect the digest")
	}
}

func TestSignAny_OmittedFieldsMatchAbsentFields(t *testing.T) {
	type payload struct {
		Hello  string `json:"hello"`
		Unused string `json:"unused,omitempty"`
	}

	digest, err := SignAny(payload{Hello: "world"}, testSecret)
	if err != nil {
		t.Fatalf("sign struct: %v", err)
	}
	if digest != "ba1cf4f1a0d5659a4c7dd8c70f74788a532c644c65eeb3d46d9e56cdb22eaeaa" {
		t.Fatalf("expected omitted field to leave digest unchanged, got %s", digest)
	}
}

func TestSignedPayload_RoundTripVerifies(t *testing.T) {
	signed, err := SignedPayload(map[string]any{
		"token_uuid": "tok-1",
		"amount":     990,
		"nested": map[string]any{
			"z": "last",
			"a": "first",
		},
	}, testSecret)
	if err != nil {
		t.Fatalf("signed payload: %v", err)
	}
	if signed["signature"] == "" {
		t.Fatalf("expected attached signature")
	}
	if !Verify(signed, testSecret) {
		t.Fatalf("expected signed payload to verify")
	}
}

func TestVerify_KnownVector(t *testing.T) {
	valid := Verify(map[string]any{
		"hello":     "world",
		"signature": "ba1cf4f1a0d5659a4c7dd8c70f74788a532c644c65eeb3d46d9e56cdb22eaeaa",
	}, testSecret)
	if !valid {
		t.Fatalf("expected known-vector signature to verify")
	}
}

func TestVerify_RejectsTamperedValue(t *testing.T) {
	signed, err := SignedPayload(map[string]any{"hello": "world", "amount": 100}, testSecret)
	if err != nil {
		t.Fatalf("signed payload: %v", err)
	}
	signed["amount"] = 101

	if Verify(signed, testSecret) {
		t.Fatalf("expected tampered payload to fail verification")
	}
}

func TestVerify_RejectsMissingSignature(t *testing.T) {
	if Verify(map[string]any{"hello": "world"}, testSecret) {
		t.Fatalf("expected unsigned payload to fail verification")
	}
}

func TestVerify_RejectsWrongSecret(t *testing.T) {
	signed, err := SignedPayload(map[string]any{"hello": "world"}, testSecret)
	if err != nil {
		t.Fatalf("signed payload: %v", err)
	}
	if Verify(signed, "another-secret") {
		t.Fatalf("expected verification to fail under a different secret")
	}
}

func TestVerifyOrFail_ReturnsInvalidSignatureEnvelope(t *testing.T) {
	err := VerifyOrFail(map[string]any{
		"hello":     "world",
		"signature": "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
	}, testSecret)
	if err == nil {
		t.Fatalf("expected invalid signature error")
	}
	if !core.IsInvalidSignature(err) {
		t.Fatalf("expected invalid-signature envelope, got %v", err)
	}
}

func TestCanonicalize_RejectsNonObject(t *testing.T) {
	if _, err := Canonicalize([]string{"a", "b"}); err == nil {
		t.Fatalf("expected non-object payload rejection")
	}
}

func TestSign_StringsEscapeLikeTheWire(t *testing.T) {
	// & < > must not be HTML-escaped or the digest diverges from the
	// network's rendering.
	first, err := Sign(map[string]any{"extra_data": "a&b<c>"}, testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	second, err := Sign(map[string]any{"extra_data": "a&b<c>"}, testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if first != second {
		t.Fatalf("expected deterministic digest")
	}
	tampered, err := Sign(map[string]any{"extra_data": "a&b<c>x"}, testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if tampered == first {
		t.Fatalf("expected different content to change digest")
	}
}
