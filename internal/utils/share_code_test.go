package utils

import "testing"

const testShareKey = "0123456789abcdef" // 16 bytes

func TestShareCode_RoundTrip(t *testing.T) {
	for _, id := range []uint{1, 42, 99999} {
		code, err := EncodeShareCode(id, testShareKey)
		if err != nil {
			t.Fatalf("encode %d: %v", id, err)
		}
		got, err := DecodeShareCode(code, testShareKey)
		if err != nil {
			t.Fatalf("decode %q: %v", code, err)
		}
		if got != id {
			t.Fatalf("round trip %d -> %d", id, got)
		}
	}
}

func TestShareCode_PlainNumericFallback(t *testing.T) {
	got, err := DecodeShareCode("17", testShareKey)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 17 {
		t.Fatalf("got %d, want 17", got)
	}
}

func TestShareCode_BadKey(t *testing.T) {
	if _, err := EncodeShareCode(1, "short"); err == nil {
		t.Fatalf("expected error for short key")
	}
}

func TestShareCode_Garbage(t *testing.T) {
	if _, err := DecodeShareCode("not-a-code!!", testShareKey); err == nil {
		t.Fatalf("expected error")
	}
}
