// Package wire implements the protocol's pure byte-level primitives:
// varint framing, signed modular sequence arithmetic, big-endian helpers,
// and a half-precision float decoder used by out-of-scope payload parsers.
package wire

// Seq is a 32-bit byte-stream sequence number interpreted modulo 2^32.
// Comparison and addition wrap using signed difference, matching the
// protocol's tolerance for unbounded session lifetime.
type Seq = int32

// SeqLess reports whether a precedes b under signed wraparound comparison:
// a < b iff int32(a-b) < 0.
func SeqLess(a, b Seq) bool {
	return int32(a-b) < 0
}

// AddSeq returns base+delta truncated to signed 32-bit, wrapping on overflow.
func AddSeq(base Seq, delta int64) Seq {
	return Seq(int64(base) + delta)
}

// PutUint32BE writes v into buf[0:4] big-endian. buf must have length >= 4.
func PutUint32BE(buf []byte, v uint32) {
	buf[0] = byte(v >> 24)
	buf[1] = byte(v >> 16)
	buf[2] = byte(v >> 8)
	buf[3] = byte(v)
}

// Uint32BE reads a big-endian uint32 from buf[0:4]. buf must have length >= 4.
func Uint32BE(buf []byte) uint32 {
	return uint32(buf[0])<<24 | uint32(buf[1])<<16 | uint32(buf[2])<<8 | uint32(buf[3])
}

// PutSeqBE writes s into buf[0:4] big-endian.
func PutSeqBE(buf []byte, s Seq) {
	PutUint32BE(buf, uint32(s))
}

// SeqBE reads a big-endian signed sequence number from buf[0:4].
func SeqBE(buf []byte) Seq {
	return Seq(Uint32BE(buf))
}

// PutUint16BE writes v into buf[0:2] big-endian.
func PutUint16BE(buf []byte, v uint16) {
	buf[0] = byte(v >> 8)
	buf[1] = byte(v)
}

// Uint16BE reads a big-endian uint16 from buf[0:2].
func Uint16BE(buf []byte) uint16 {
	return uint16(buf[0])<<8 | uint16(buf[1])
}

// PutInt64BE writes v into buf[0:8] big-endian.
func PutInt64BE(buf []byte, v int64) {
	u := uint64(v)
	for i := 0; i < 8; i++ {
		buf[i] = byte(u >> uint(56-8*i))
	}
}

// Int64BE reads a big-endian int64 from buf[0:8].
func Int64BE(buf []byte) int64 {
	var u uint64
	for i := 0; i < 8; i++ {
		u = u<<8 | uint64(buf[i])
	}
	return int64(u)
}
