package wire

import (
	"math"
	"testing"
)

func TestSeqLessBasic(t *testing.T) {
	if SeqLess(5, 5) {
		t.Error("a < a must be false")
	}
	if !SeqLess(5, 6) {
		t.Error("5 < 6 must be true")
	}
	if SeqLess(6, 5) {
		t.Error("6 < 5 must be false")
	}
}

func TestSeqLessWraparound(t *testing.T) {
	near := Seq(math.MaxInt32 - 1)
	for delta := int64(0); delta < 1<<20; delta += 997 {
		a := near
		b := AddSeq(a, delta+1)
		if !SeqLess(a, b) {
			t.Fatalf("seq_less_than(%d, add_seq(%d,%d)) should be true", a, a, delta+1)
		}
		if SeqLess(a, a) {
			t.Fatalf("seq_less_than(%d,%d) should be false", a, a)
		}
	}
}

func TestAddSeqWraps(t *testing.T) {
	a := Seq(math.MaxInt32)
	b := AddSeq(a, 1)
	if b != math.MinInt32 {
		t.Errorf("AddSeq wraparound: got %d, want %d", b, math.MinInt32)
	}
}

func TestBigEndianHelpers(t *testing.T) {
	buf := make([]byte, 4)
	PutUint32BE(buf, 0x01020304)
	want := []byte{0x01, 0x02, 0x03, 0x04}
	for i := range want {
		if buf[i] != want[i] {
			t.Fatalf("byte[%d] = 0x%02X, want 0x%02X", i, buf[i], want[i])
		}
	}
	if Uint32BE(buf) != 0x01020304 {
		t.Errorf("Uint32BE round trip failed")
	}

	buf8 := make([]byte, 8)
	PutInt64BE(buf8, -1)
	for _, b := range buf8 {
		if b != 0xFF {
			t.Fatalf("PutInt64BE(-1) should be all 0xFF, got %x", buf8)
		}
	}
	if Int64BE(buf8) != -1 {
		t.Errorf("Int64BE round trip failed")
	}
}

func TestDecodeHalfFloat(t *testing.T) {
	cases := []struct {
		bits uint16
		want float32
	}{
		{0x0000, 0},
		{0x3C00, 1.0},
		{0xC000, -2.0},
		{0x7BFF, 65504},
	}
	for _, c := range cases {
		got := DecodeHalfFloat(c.bits)
		if got != c.want {
			t.Errorf("DecodeHalfFloat(0x%04X) = %v, want %v", c.bits, got, c.want)
		}
	}
}
