package channel

import "testing"

func TestEncodeFrameLayout(t *testing.T) {
	frame := EncodeFrame(0x07, []byte{0xAA, 0xBB, 0xCC})

	expected := []byte{0x07, 0x03, 0xAA, 0xBB, 0xCC}
	if len(frame) != len(expected) {
		t.Fatalf("frame length = %d, want %d", len(frame), len(expected))
	}
	for i := range expected {
		if frame[i] != expected[i] {
			t.Errorf("frame[%d] = 0x%02X, want 0x%02X", i, frame[i], expected[i])
		}
	}
}

func TestEncodeFrameEmptyBody(t *testing.T) {
	frame := EncodeFrame(0x01, nil)
	expected := []byte{0x01, 0x00}
	if len(frame) != len(expected) || frame[0] != expected[0] || frame[1] != expected[1] {
		t.Fatalf("frame = %v, want %v", frame, expected)
	}
}
