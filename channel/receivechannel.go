package channel

import (
	"cubyznet/wire"

	"github.com/pkg/errors"
)

// Message is one reassembled application frame handed to the connection's
// event sink.
type Message struct {
	ProtocolID uint8
	Payload    []byte
}

type chunk struct {
	buf    []byte
	offset int
}

type partialHeader struct {
	protocolID uint8
	size       uint32
}

// ReceiveChannel reassembles a peer's byte stream out of (possibly
// reordered, possibly duplicated) sequenced packets and slices it back
// into length-prefixed application frames, even when a frame boundary
// crosses packet boundaries. Grounded on the teacher's
// Session.HandleDataPacket split/dedup/reorder handling
// (source/protocol/raknet.go), re-expressed as a byte-offset buffer rather
// than a packet-reassembly table since this protocol orders by byte, not
// by packet index.
type ReceiveChannel struct {
	channelID uint8

	expected wire.Seq
	pending  map[wire.Seq][]byte

	chunks        []chunk
	bufferedLen   int
	partialHeader *partialHeader

	err error
}

// NewReceiveChannel creates a ReceiveChannel for channelID, expecting the
// peer's stream to begin at initialSequence.
func NewReceiveChannel(channelID uint8, initialSequence wire.Seq) *ReceiveChannel {
	return &ReceiveChannel{
		channelID: channelID,
		expected:  initialSequence,
		pending:   make(map[wire.Seq][]byte),
	}
}

// Err returns the fatal decoding error, if any, that has permanently
// disabled frame extraction on this channel (an oversized varint length
// prefix — spec.md §4.2). The channel keeps accepting and acking packets
// after this so the peer's resend timers are satisfied; it simply never
// produces another message.
func (c *ReceiveChannel) Err() error {
	return c.err
}

// HandlePacket folds a freshly arrived packet's payload into the channel's
// reassembly buffer at byte offset start. It always returns ack=true: the
// protocol acknowledges every received packet, including duplicates and
// packets preceding the current window, each time it arrives.
// messages contains every application frame that became fully buffered as
// a result of this call, in stream order.
func (c *ReceiveChannel) HandlePacket(start wire.Seq, payload []byte) (ack bool, messages []Message) {
	if wire.SeqLess(start, c.expected) {
		return true, nil
	}
	if _, duplicate := c.pending[start]; duplicate {
		return true, nil
	}

	buf := make([]byte, len(payload))
	copy(buf, payload)
	c.pending[start] = buf

	progressed := false
	for {
		next, present := c.pending[c.expected]
		if !present {
			break
		}
		delete(c.pending, c.expected)
		c.chunks = append(c.chunks, chunk{buf: next})
		c.bufferedLen += len(next)
		c.expected = wire.AddSeq(c.expected, int64(len(next)))
		progressed = true
	}

	if progressed && c.err == nil {
		messages = c.drain()
	}
	return true, messages
}

func (c *ReceiveChannel) byteAt(i int) (byte, bool) {
	for _, ch := range c.chunks {
		remain := len(ch.buf) - ch.offset
		if i < remain {
			return ch.buf[ch.offset+i], true
		}
		i -= remain
	}
	return 0, false
}

func (c *ReceiveChannel) consume(n int) []byte {
	out := make([]byte, 0, n)
	for n > 0 && len(c.chunks) > 0 {
		ch := &c.chunks[0]
		remain := len(ch.buf) - ch.offset
		take := remain
		if take > n {
			take = n
		}
		out = append(out, ch.buf[ch.offset:ch.offset+take]...)
		ch.offset += take
		n -= take
		c.bufferedLen -= take
		if ch.offset >= len(ch.buf) {
			c.chunks = c.chunks[1:]
		}
	}
	return out
}

// peekHeader attempts to read the 1-byte protocol id and varint length
// prefix without consuming anything. ok is false when not enough bytes are
// buffered yet; a non-nil err means the varint itself is malformed
// (ErrVarintTooLarge), which is fatal to the stream.
func (c *ReceiveChannel) peekHeader() (hdr partialHeader, headerLen int, ok bool, err error) {
	if c.bufferedLen < 1 {
		return partialHeader{}, 0, false, nil
	}
	pid, _ := c.byteAt(0)

	var buf [wire.MaxVarintBytes]byte
	n := 0
	for n < wire.MaxVarintBytes {
		b, has := c.byteAt(1 + n)
		if !has {
			break
		}
		buf[n] = b
		n++
	}

	size, consumed, verr := wire.DecodeVarint(buf[:n])
	if verr != nil {
		if errors.Is(verr, wire.ErrVarintTooLarge) {
			return partialHeader{}, 0, false, verr
		}
		// ErrVarintTruncated: we simply haven't buffered enough bytes yet.
		return partialHeader{}, 0, false, nil
	}
	return partialHeader{protocolID: pid, size: size}, 1 + consumed, true, nil
}

// drain extracts as many complete length-prefixed frames as the buffer
// currently holds, stopping when a header or body is incomplete.
func (c *ReceiveChannel) drain() []Message {
	var out []Message
	for {
		if c.partialHeader == nil {
			hdr, headerLen, ok, err := c.peekHeader()
			if err != nil {
				c.err = errors.Wrapf(err, "channel %d: frame length prefix", c.channelID)
				return out
			}
			if !ok {
				return out
			}
			c.consume(headerLen)
			c.partialHeader = &hdr
		}

		if uint32(c.bufferedLen) < c.partialHeader.size {
			return out
		}
		payload := c.consume(int(c.partialHeader.size))
		out = append(out, Message{ProtocolID: c.partialHeader.protocolID, Payload: payload})
		c.partialHeader = nil
	}
}
