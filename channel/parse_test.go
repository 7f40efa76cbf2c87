package channel

import (
	"errors"
	"testing"

	"cubyznet/protocol"
)

func TestParseChannelPacketOK(t *testing.T) {
	buf := []byte{protocol.ChannelFast, 0x00, 0x00, 0x00, 0x64, 0x01, 0x02, 0x03}
	channelID, start, payload, err := ParseChannelPacket(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if channelID != protocol.ChannelFast {
		t.Errorf("channelID = %d, want %d", channelID, protocol.ChannelFast)
	}
	if start != 0x64 {
		t.Errorf("start = %d, want 100", start)
	}
	if len(payload) != 3 || payload[0] != 0x01 {
		t.Errorf("payload = %v", payload)
	}
}

func TestParseChannelPacketTooShort(t *testing.T) {
	buf := []byte{protocol.ChannelLossy, 0x00, 0x00}
	_, _, _, err := ParseChannelPacket(buf)
	if !errors.Is(err, ErrBufferTooShort) {
		t.Fatalf("err = %v, want ErrBufferTooShort", err)
	}
}

func TestParseChannelPacketRejectsControlChannel(t *testing.T) {
	buf := []byte{protocol.ChannelKeepAlive, 0, 0, 0, 0}
	_, _, _, err := ParseChannelPacket(buf)
	if !errors.Is(err, ErrNotSequencedChannel) {
		t.Fatalf("err = %v, want ErrNotSequencedChannel", err)
	}
}
