package channel

import (
	"cubyznet/protocol"
	"cubyznet/wire"

	"github.com/pkg/errors"
)

// ParseChannelPacket splits a raw incoming datagram into its channel id,
// sequence start, and remaining payload. It only validates the fixed
// 5-byte sequenced header; it does not distinguish control channels beyond
// rejecting them, since control-channel framing is handled by conn directly.
func ParseChannelPacket(buf []byte) (channelID uint8, start wire.Seq, payload []byte, err error) {
	if len(buf) < protocol.SequencedHeaderSize {
		return 0, 0, nil, errors.WithStack(ErrBufferTooShort)
	}
	channelID = buf[0]
	if !protocol.IsSequencedChannel(channelID) {
		return 0, 0, nil, errors.Wrapf(ErrNotSequencedChannel, "channel id 0x%02X", channelID)
	}
	start = wire.SeqBE(buf[1:5])
	payload = buf[5:]
	return channelID, start, payload, nil
}
