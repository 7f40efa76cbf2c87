package channel

import (
	"time"

	"cubyznet/protocol"
	"cubyznet/wire"

	"github.com/pkg/errors"
)

type inFlightEntry struct {
	payload []byte
	sentAt  time.Time
	retries int
}

// Packet is one outgoing sequenced datagram payload: the start sequence
// the peer must ack, the frame bytes to carry, and whether this is a
// retransmission of previously sent bytes.
type Packet struct {
	Start   wire.Seq
	Payload []byte
	Resend  bool
	Retries int
}

// SendChannel turns a stream of queued application frames into a sequence
// of MTU-bounded packets, tracking which byte ranges are still unconfirmed
// and retransmitting them on timeout. Grounded on the teacher's
// Session.AddToQueue/Update/HandleACK/HandleNACK (source/protocol/raknet.go)
// and on the sliding-window timeout scan in
// other_examples/852146fe_nickolajgrishuk-overproto-go (transport-reliable.go
// ProcessTimeouts), adapted from a windowed-retransmit design to this
// protocol's unbounded in-flight set with an insertion-ordered scan.
type SendChannel struct {
	channelID uint8

	nextStart      wire.Seq
	fullyConfirmed wire.Seq

	pending [][]byte

	inFlight map[wire.Seq]*inFlightEntry
	order    []wire.Seq // insertion order of inFlight keys, for the "first due" scan

	acked map[wire.Seq]uint32
}

// NewSendChannel creates a SendChannel for channelID, starting its sequence
// numbering at initialSequence (the value exchanged during the INIT
// handshake).
func NewSendChannel(channelID uint8, initialSequence wire.Seq) *SendChannel {
	return &SendChannel{
		channelID:      channelID,
		nextStart:      initialSequence,
		fullyConfirmed: initialSequence,
		inFlight:       make(map[wire.Seq]*inFlightEntry),
		acked:          make(map[wire.Seq]uint32),
	}
}

// Queue appends a new application message to the channel's outgoing stream.
// The frame is built here; size validation happens lazily in GetPacket,
// matching spec.md §4.1's get_packet policy.
func (c *SendChannel) Queue(protocolID uint8, body []byte) {
	c.pending = append(c.pending, EncodeFrame(protocolID, body))
}

// HasWork reports whether the channel may have anything to send: a fresh
// frame waiting to go out, or any in-flight frame not yet acknowledged
// (whether or not its resend timeout has elapsed).
func (c *SendChannel) HasWork() bool {
	return len(c.pending) > 0 || len(c.inFlight) > 0
}

// FullyConfirmed returns the sequence frontier below which every byte the
// channel has ever sent is known to have arrived.
func (c *SendChannel) FullyConfirmed() wire.Seq {
	return c.fullyConfirmed
}

// GetPacket returns the next datagram this channel should send, if any.
// It first scans in-flight frames in the order they were originally sent
// for one whose resend timeout has elapsed; failing that, it pops the next
// queued frame. ok is false when there is nothing to send right now.
func (c *SendChannel) GetPacket(now time.Time) (pkt Packet, ok bool, err error) {
	for _, start := range c.order {
		entry, present := c.inFlight[start]
		if !present {
			continue
		}
		if now.Sub(entry.sentAt) < protocol.ResendTimeout {
			continue
		}
		entry.sentAt = now
		entry.retries++
		return Packet{Start: start, Payload: entry.payload, Resend: true, Retries: entry.retries}, true, nil
	}

	if len(c.pending) == 0 {
		return Packet{}, false, nil
	}
	frame := c.pending[0]
	c.pending = c.pending[1:]

	if len(frame) > protocol.MaxFramePayload {
		return Packet{}, false, errors.Wrapf(ErrMessageTooLarge,
			"channel %d: frame of %d bytes exceeds max %d", c.channelID, len(frame), protocol.MaxFramePayload)
	}

	start := c.nextStart
	c.inFlight[start] = &inFlightEntry{payload: frame, sentAt: now}
	c.order = append(c.order, start)
	c.nextStart = wire.AddSeq(start, int64(len(frame)))

	return Packet{Start: start, Payload: frame, Resend: false}, true, nil
}

// HandleAck records that the peer has confirmed receipt of the frame
// starting at start. If start matches an in-flight frame, it is retired and
// its length recorded so the confirmation frontier can advance over it;
// otherwise a length-0 placeholder is recorded so a later legitimate match
// can still upgrade it (see spec.md §9 Open Question — the in-flight branch
// below always overwrites, which is exactly the upgrade path: a start only
// ever matches in_flight once its real length is known).
func (c *SendChannel) HandleAck(start wire.Seq) {
	if entry, present := c.inFlight[start]; present {
		delete(c.inFlight, start)
		c.removeFromOrder(start)
		c.acked[start] = uint32(len(entry.payload))
	} else if _, already := c.acked[start]; !already {
		c.acked[start] = 0
	}

	for {
		length, present := c.acked[c.fullyConfirmed]
		if !present || length == 0 {
			return
		}
		delete(c.acked, c.fullyConfirmed)
		c.fullyConfirmed = wire.AddSeq(c.fullyConfirmed, int64(length))
	}
}

func (c *SendChannel) removeFromOrder(start wire.Seq) {
	for i, s := range c.order {
		if s == start {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
