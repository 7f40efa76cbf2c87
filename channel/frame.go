package channel

import "cubyznet/wire"

// EncodeFrame prefixes body with the application protocol id and a varint
// length, producing the byte stream a SendChannel queues internally.
// Mirrors spec.md §4.2: [protocol_id:1][varint(len(body))][body].
func EncodeFrame(protocolID uint8, body []byte) []byte {
	out := make([]byte, 0, 1+wire.VarintLen(uint32(len(body)))+len(body))
	out = append(out, protocolID)
	out = wire.EncodeVarint(out, uint32(len(body)))
	out = append(out, body...)
	return out
}
