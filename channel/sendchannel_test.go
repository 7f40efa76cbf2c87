package channel

import (
	"errors"
	"testing"
	"time"

	"cubyznet/protocol"
)

func TestSendChannelQueueAndGetPacket(t *testing.T) {
	c := NewSendChannel(protocol.ChannelFast, 100)
	now := time.Unix(0, 0)

	if c.HasWork() {
		t.Fatal("empty channel should have no work")
	}

	c.Queue(0x07, []byte{0xAA, 0xBB, 0xCC})
	if !c.HasWork() {
		t.Fatal("channel with a queued frame should have work")
	}

	pkt, ok, err := c.GetPacket(now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected a packet")
	}
	if pkt.Start != 100 {
		t.Errorf("start = %d, want 100", pkt.Start)
	}
	if pkt.Resend {
		t.Error("first send must not be marked as resend")
	}
	want := []byte{0x07, 0x03, 0xAA, 0xBB, 0xCC}
	if len(pkt.Payload) != len(want) {
		t.Fatalf("payload len = %d, want %d", len(pkt.Payload), len(want))
	}

	// nothing left to send immediately: frame is in flight, not yet due.
	_, ok, _ = c.GetPacket(now)
	if ok {
		t.Fatal("no packet should be due immediately after first send")
	}
}

func TestSendChannelRetransmitsOnTimeout(t *testing.T) {
	c := NewSendChannel(protocol.ChannelFast, 0)
	t0 := time.Unix(0, 0)

	c.Queue(0x01, []byte("hello"))
	first, ok, _ := c.GetPacket(t0)
	if !ok || first.Resend {
		t.Fatalf("unexpected first packet: %+v ok=%v", first, ok)
	}

	late := t0.Add(protocol.ResendTimeout + time.Millisecond)
	resend, ok, err := c.GetPacket(late)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected a retransmission once the resend timeout elapses")
	}
	if !resend.Resend {
		t.Error("second delivery of the same frame must be marked as resend")
	}
	if resend.Start != first.Start {
		t.Errorf("resend start = %d, want %d", resend.Start, first.Start)
	}
	if resend.Retries != 1 {
		t.Errorf("retries = %d, want 1", resend.Retries)
	}
}

func TestSendChannelHandleAckOutOfOrderThenInOrder(t *testing.T) {
	c := NewSendChannel(protocol.ChannelFast, 0)
	t0 := time.Unix(0, 0)

	c.Queue(0x01, []byte("AAAAA")) // frame length 7 (1 id + 1 varint + 5 body)
	c.Queue(0x01, []byte("BBB"))

	first, _, _ := c.GetPacket(t0)
	second, _, _ := c.GetPacket(t0)

	// Ack the second frame first: the frontier cannot move yet because the
	// first frame's byte range is still unconfirmed.
	c.HandleAck(second.Start)
	if c.FullyConfirmed() != 0 {
		t.Fatalf("fully_confirmed = %d, want 0 (first frame still outstanding)", c.FullyConfirmed())
	}

	// Acking the first frame now lets the frontier sweep through both.
	c.HandleAck(first.Start)
	wantFrontier := second.Start + int32(len(second.Payload))
	if c.FullyConfirmed() != wantFrontier {
		t.Errorf("fully_confirmed = %d, want %d", c.FullyConfirmed(), wantFrontier)
	}
	if c.HasWork() {
		t.Error("channel should have no outstanding work once everything is acked")
	}
}

func TestSendChannelMessageTooLarge(t *testing.T) {
	c := NewSendChannel(protocol.ChannelFast, 0)
	oversized := make([]byte, protocol.MaxFramePayload+1)
	c.Queue(0x01, oversized)

	_, ok, err := c.GetPacket(time.Unix(0, 0))
	if ok {
		t.Fatal("oversized frame must not be returned as a packet")
	}
	if !errors.Is(err, ErrMessageTooLarge) {
		t.Fatalf("err = %v, want ErrMessageTooLarge", err)
	}

	// The bad frame is discarded, not retried forever.
	if c.HasWork() {
		t.Error("channel should have no work left after discarding the oversized frame")
	}
}

func TestSendChannelDuplicateAckIsIgnored(t *testing.T) {
	c := NewSendChannel(protocol.ChannelFast, 0)
	c.HandleAck(0) // ack of an unknown start: recorded as length-0 placeholder
	c.HandleAck(0) // duplicate: must not panic or corrupt state

	c.Queue(0x01, []byte("x"))
	pkt, _, _ := c.GetPacket(time.Unix(0, 0))
	if pkt.Start != 0 {
		t.Fatalf("start = %d, want 0", pkt.Start)
	}
	c.HandleAck(pkt.Start)
	if c.FullyConfirmed() != int32(len(pkt.Payload)) {
		t.Errorf("fully_confirmed = %d, want %d", c.FullyConfirmed(), len(pkt.Payload))
	}
}
