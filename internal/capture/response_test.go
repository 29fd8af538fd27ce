package capture

import (
	"strings"
	"testing"
)

func TestSerializeResponse_ShortPassesThrough(t *testing.T) {
	got := serializeResponse(map[string]any{"out": "hello"})
	if got != `{"out":"hello"}` {
		t.Errorf("serializeResponse = %q", got)
	}
	if strings.Contains(got, truncatedMarker) {
		t.Error("short response must not carry truncation marker")
	}
}

func TestSerializeResponse_Truncates(t *testing.T) {
	big := strings.Repeat("x", 6000)
	got := serializeResponse(map[string]any{"out": big})

	if !strings.HasSuffix(got, truncatedMarker) {
		t.Fatal("expected truncation marker suffix")
	}
	if len(got) > maxResponseBytes+len(truncatedMarker) {
		t.Errorf("truncated length = %d, cap = %d", len(got), maxResponseBytes+len(truncatedMarker))
	}
}

func TestSerializeResponse_EmptyAndUnmarshalable(t *testing.T) {
	if got := serializeResponse(nil); got != "" {
		t.Errorf("nil result = %q, want empty", got)
	}
	if got := serializeResponse(map[string]any{"fn": func() {}}); got != "" {
		t.Errorf("unmarshalable result = %q, want empty", got)
	}
}

func TestDecodeInput_RoundTrip(t *testing.T) {
	enc := encodeInput(map[string]any{"command": "npm test"})
	dec := decodeInput(enc)
	if dec["command"] != "npm test" {
		t.Errorf("round trip = %v", dec)
	}
	if decodeInput("{bad") != nil {
		t.Error("malformed input must decode to nil")
	}
	if decodeInput("") != nil {
		t.Error("empty input must decode to nil")
	}
}
