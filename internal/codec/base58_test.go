package codec

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeKnownVector(t *testing.T) {
	got := Encode([]byte("hello"))
	if got != "Cn8eVZg" {
		t.Errorf("Encode(hello) = %q, want Cn8eVZg", got)
	}
}

func TestRoundTrip(t *testing.T) {
	cases := [][]byte{
		nil,
		{},
		{0},
		{0, 0, 1},
		[]byte("hello"),
		[]byte(`{"api_site":{"a":{"name":"x","api":"https://x.test/api"}}}`),
		{0xff, 0xfe, 0x00, 0x01},
	}

	for _, in := range cases {
		enc := Encode(in)
		out, err := Decode(enc)
		if err != nil {
			t.Errorf("Decode(Encode(%v)) returned error: %v", in, err)
			continue
		}
		if !bytes.Equal(out, in) {
			t.Errorf("round trip of %v: got %v via %q", in, out, enc)
		}
	}
}

func TestDecodeInvalidCharacter(t *testing.T) {
	// 0, O, I and l are not in the alphabet
	for _, in := range []string{"0abc", "O", "hellO", "l1", "abc!"} {
		_, err := Decode(in)
		if err == nil {
			t.Errorf("Decode(%q) succeeded, want error", in)
			continue
		}
		if !errors.Is(err, ErrInvalidCharacter) {
			t.Errorf("Decode(%q) error = %v, want ErrInvalidCharacter", in, err)
		}
	}
}
