package conn

import (
	"time"

	"cubyznet/protocol"
	"cubyznet/wire"
)

func (c *Connection) enqueueConfirmation(channelID uint8, start wire.Seq, now time.Time) {
	c.pending = append(c.pending, confirmationEntry{channelID: channelID, start: start, enqueuedAt: now})
}

// flushConfirmations drains up to protocol.ConfirmationBatchSize pending
// acknowledgments into a single CONFIRMATION datagram, per spec.md §4.3
// step 4 and the wire layout in §6.
func (c *Connection) flushConfirmations(now time.Time) {
	if len(c.pending) == 0 {
		return
	}
	n := len(c.pending)
	if n > protocol.ConfirmationBatchSize {
		n = protocol.ConfirmationBatchSize
	}
	batch := c.pending[:n]
	c.pending = c.pending[n:]

	datagram := make([]byte, 1+n*protocol.ConfirmationEntrySize)
	datagram[0] = protocol.ChannelConfirmation
	for i, entry := range batch {
		off := 1 + i*protocol.ConfirmationEntrySize
		datagram[off] = entry.channelID
		wire.PutUint16BE(datagram[off+1:off+3], confirmationDelay(now, entry.enqueuedAt))
		wire.PutSeqBE(datagram[off+3:off+7], entry.start)
	}

	if err := c.transport.Send(datagram); err != nil {
		c.log.Warnf("conn[%s]: send CONFIRMATION failed: %v", c.traceID, err)
	}
}

// confirmationDelay computes the half-RTT estimate written into each
// confirmation entry, per spec.md §6: min(0xFFFF, max(0, (now-enqueued)/2
// in milliseconds)).
func confirmationDelay(now, enqueuedAt time.Time) uint16 {
	ms := now.Sub(enqueuedAt).Milliseconds() / 2
	if ms < 0 {
		ms = 0
	}
	if ms > 0xFFFF {
		ms = 0xFFFF
	}
	return uint16(ms)
}
