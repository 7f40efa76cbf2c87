package wire

import (
	"math"
	"testing"

	"github.com/pkg/errors"
)

func TestVarintRoundTrip(t *testing.T) {
	cases := []uint32{0, 1, 63, 127, 128, 300, 16383, 16384, 1 << 20, math.MaxUint32, math.MaxUint32 - 1}
	for _, n := range cases {
		enc := EncodeVarint(nil, n)
		if len(enc) != VarintLen(n) {
			t.Fatalf("VarintLen(%d) = %d, want %d", n, VarintLen(n), len(enc))
		}
		got, consumed, err := DecodeVarint(enc)
		if err != nil {
			t.Fatalf("DecodeVarint(%x) error: %v", enc, err)
		}
		if got != n {
			t.Errorf("DecodeVarint(encode(%d)) = %d, want %d", n, got, n)
		}
		if consumed != len(enc) {
			t.Errorf("consumed = %d, want %d", consumed, len(enc))
		}
	}
}

func TestVarintExactLayout(t *testing.T) {
	// 300 = 0b1_0010_1100 -> low 7 bits 0x2C with continuation, then 0x02
	enc := EncodeVarint(nil, 300)
	want := []byte{0xAC, 0x02}
	if len(enc) != len(want) {
		t.Fatalf("len = %d, want %d", len(enc), len(want))
	}
	for i := range want {
		if enc[i] != want[i] {
			t.Errorf("byte[%d] = 0x%02X, want 0x%02X", i, enc[i], want[i])
		}
	}
}

func TestVarintTruncated(t *testing.T) {
	enc := EncodeVarint(nil, 16384) // 3 bytes
	_, _, err := DecodeVarint(enc[:2])
	if err == nil {
		t.Fatal("expected ErrVarintTruncated, got nil")
	}
}

func TestVarintTooLarge(t *testing.T) {
	// Five bytes, all with continuation bit set: never terminates.
	buf := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x01}
	_, _, err := DecodeVarint(buf)
	if !errors.Is(err, ErrVarintTooLarge) {
		t.Fatalf("err = %v, want ErrVarintTooLarge", err)
	}
}

func TestVarintAppend(t *testing.T) {
	prefix := []byte{0x07, 0x03}
	out := EncodeVarint(prefix, 5)
	if out[0] != 0x07 || out[1] != 0x03 {
		t.Fatalf("EncodeVarint must append, got %v", out)
	}
}
