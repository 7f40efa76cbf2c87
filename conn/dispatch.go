package conn

import (
	"strconv"
	"time"

	"cubyznet/channel"
	"cubyznet/events"
	"cubyznet/protocol"
	"cubyznet/wire"
)

// HandleDatagram is the inbound entry point: every datagram the caller's
// read loop receives from the peer must be passed here. Per spec.md
// §4.3, every non-empty datagram touches last_inbound regardless of its
// contents or validity; an empty datagram, or any datagram arriving once
// the connection is closing or closed, is ignored entirely.
func (c *Connection) HandleDatagram(now time.Time, payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase == PhaseClosing || c.phase == PhaseClosed {
		return
	}
	if len(payload) == 0 {
		return
	}
	c.lastInbound = now

	switch payload[0] {
	case protocol.ChannelInit:
		c.handleInit(now, payload)
	case protocol.ChannelConfirmation:
		c.handleConfirmation(payload)
	case protocol.ChannelKeepAlive:
		// no-op beyond the last_inbound touch above
	case protocol.ChannelDisconnect:
		c.emitDisconnect(events.ReasonRemote, nil)
		_ = c.teardown(now, false)
	default:
		c.handleSequenced(now, payload)
	}
}

func (c *Connection) handleInit(now time.Time, payload []byte) {
	if c.phase == PhaseConnected {
		return
	}

	switch {
	case len(payload) >= protocol.InitLongPayloadSize:
		c.remoteID = wire.Int64BE(payload[1:9])
		var peerSeqs [3]wire.Seq
		peerSeqs[0] = wire.SeqBE(payload[9:13])
		peerSeqs[1] = wire.SeqBE(payload[13:17])
		peerSeqs[2] = wire.SeqBE(payload[17:21])
		c.initReceiveChannels(peerSeqs)

		ack := make([]byte, protocol.InitAckPayloadSize)
		ack[0] = protocol.ChannelInit
		wire.PutInt64BE(ack[1:9], c.remoteID)
		if err := c.transport.Send(ack); err != nil {
			c.log.Warnf("conn[%s]: send INIT ack failed: %v", c.traceID, err)
		}

		if len(c.handshakePayload) > 0 {
			c.send[1].ch.Queue(protocol.HandshakePayloadProtocolID, c.handshakePayload)
		}

		c.phase = PhaseConnected
		c.handshakeComplete = true
		c.lastKeepAliveSent = now
		c.metrics.ConnectionOpened()
		c.metrics.HandshakeCompleted()
		if c.sink != nil {
			c.sink(events.Connected{RemoteConnectionID: c.remoteID, HandshakePayload: c.handshakePayload})
		}

	case len(payload) >= protocol.InitAckPayloadSize:
		c.log.Debugf("conn[%s]: received short INIT ack while awaiting server", c.traceID)

	default:
		c.log.Warnf("conn[%s]: truncated INIT datagram (%d bytes)", c.traceID, len(payload))
	}
}

func (c *Connection) handleConfirmation(payload []byte) {
	buf := payload[1:]
	for len(buf) >= protocol.ConfirmationEntrySize {
		channelID := buf[0]
		start := wire.SeqBE(buf[3:7])
		if idx, ok := channelIndex(channelID); ok && c.send[idx] != nil {
			c.send[idx].ch.HandleAck(start)
		}
		buf = buf[protocol.ConfirmationEntrySize:]
	}
}

func (c *Connection) handleSequenced(now time.Time, payload []byte) {
	channelID, start, body, err := channel.ParseChannelPacket(payload)
	if err != nil {
		c.log.Warnf("conn[%s]: %v", c.traceID, err)
		return
	}
	if c.phase != PhaseConnected {
		// ReceiveChannels do not exist before the handshake completes;
		// spec.md §4.2: "dropped silently".
		return
	}
	idx, ok := channelIndex(channelID)
	if !ok || c.recv[idx] == nil {
		return
	}
	slot := c.recv[idx]

	ack, messages := slot.ch.HandlePacket(start, body)
	c.metrics.PacketReceived(strconv.Itoa(int(channelID)))
	if ack {
		c.enqueueConfirmation(channelID, start, now)
	}
	for _, m := range messages {
		c.metrics.MessageDelivered(strconv.Itoa(int(channelID)), len(m.Payload))
		if c.sink != nil {
			c.sink(events.Message{Channel: channelID, ProtocolID: m.ProtocolID, Payload: m.Payload})
		}
	}
	if fatal := slot.ch.Err(); fatal != nil {
		c.log.Errorf("conn[%s]: channel %d stream corrupt: %v", c.traceID, channelID, fatal)
	}
}
