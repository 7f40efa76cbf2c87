package conn

import (
	"cubyznet/channel"
	"cubyznet/protocol"
)

type channelSendSlot struct {
	id uint8
	ch *channel.SendChannel
}

type channelRecvSlot struct {
	id uint8
	ch *channel.ReceiveChannel
}

// initSendChannels constructs the three SendChannels immediately: unlike
// ReceiveChannels, whose origin depends on the peer's advertised initial
// sequences, a side's own SendChannels only need its own initial
// sequences, known at construction time (spec.md §4.3).
func (c *Connection) initSendChannels() {
	for i, id := range protocol.ReliableChannels {
		c.send[i] = &channelSendSlot{id: id, ch: channel.NewSendChannel(id, c.initialSeqs[i])}
	}
}

// initReceiveChannels instantiates the three ReceiveChannels once the
// peer's initial sequences are known, per the handshake's
// awaiting_server -> connected transition.
func (c *Connection) initReceiveChannels(peerSeqs [3]int32) {
	for i, id := range protocol.ReliableChannels {
		c.recv[i] = &channelRecvSlot{id: id, ch: channel.NewReceiveChannel(id, peerSeqs[i])}
	}
}
