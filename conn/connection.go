// Package conn implements the connection controller: it multiplexes three
// reliable channel pairs over a single Transport, runs the INIT handshake,
// batches acknowledgments, and drives keep-alive and timeout detection.
// Grounded on the teacher's source/server/server.go (Server owning a
// listen/update/cleanup ticker trio) and source/protocol/raknet.go's
// Session (per-peer state, thread-safe accessors) — server.go's own
// RakNetHandler wiring was never completed in the teacher (it calls a
// NewRakNetHandler that does not exist anywhere in that repo), so the
// tick/dispatch loop here is built fresh from Session's shape rather than
// adapted line-by-line from a working reference.
package conn

import (
	"math/rand"
	"strconv"
	"sync"
	"time"

	"cubyznet/events"
	"cubyznet/pkg/logger"
	"cubyznet/pkg/metrics"
	"cubyznet/protocol"
	"cubyznet/wire"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/rs/xid"
)

// Phase is the connection's transport-level lifecycle state, distinct
// from the handshake-complete flag: phase tracks the socket/session, the
// flag tracks whether the application handshake has been acknowledged.
type Phase int

const (
	PhaseAwaitingServer Phase = iota
	PhaseConnected
	PhaseClosing
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseAwaitingServer:
		return "awaiting_server"
	case PhaseConnected:
		return "connected"
	case PhaseClosing:
		return "closing"
	case PhaseClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Config bundles everything NewConnection needs besides the current time.
type Config struct {
	Transport        Transport
	Sink             events.Sink
	Logger           logger.Logger
	Metrics          metrics.Recorder
	HandshakePayload []byte

	// Rand supplies the connection id and the three initial sequence
	// numbers. Left nil in production (a source seeded from the time passed
	// to NewConnection is used); tests inject a deterministic one.
	Rand *rand.Rand
}

type confirmationEntry struct {
	channelID  uint8
	start      wire.Seq
	enqueuedAt time.Time
}

// Connection is the per-peer controller described in spec.md §4.3. Every
// public method that reads or changes connection state locks mu for its
// duration, per spec.md §5's guidance for platforms without an intrinsic
// single-threaded event loop: Go's goroutines mean inbound reads, ticks,
// and application sends can all originate on different goroutines, so
// every such entry point serializes on mu. Log lines carry traceID
// (grounded on the rs/xid-tagged-session style runZeroInc's collectors use
// for per-conn diagnosis).
type Connection struct {
	mu sync.Mutex

	transport Transport
	sink      events.Sink
	log       logger.Logger
	metrics   metrics.Recorder
	traceID   xid.ID

	handshakePayload []byte

	localID  int64
	remoteID int64

	phase             Phase
	handshakeComplete bool

	initialSeqs [3]wire.Seq // this side's advertised initial sequence per reliable channel

	send [3]*channelSendSlot
	recv [3]*channelRecvSlot

	pending []confirmationEntry

	lastInbound       time.Time
	lastKeepAliveSent time.Time
	lastInitSent      time.Time

	disconnectSent     bool
	disconnectEmitted  bool
}

// channelSendSlot/channelRecvSlot exist only so this file does not need
// to import the channel package's concrete types into every signature;
// see wiring.go for the thin indirection.

// NewConnection builds a Connection in PhaseAwaitingServer: it generates
// the local connection id and three initial sequence numbers but performs
// no I/O. Call Start to send the first INIT datagram.
func NewConnection(cfg Config, now time.Time) *Connection {
	r := cfg.Rand
	if r == nil {
		r = rand.New(rand.NewSource(now.UnixNano()))
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Noop
	}
	rec := cfg.Metrics
	if rec == nil {
		rec = metrics.Noop
	}

	c := &Connection{
		transport:        cfg.Transport,
		sink:             cfg.Sink,
		log:              log,
		metrics:          rec,
		traceID:          xid.New(),
		handshakePayload: cfg.HandshakePayload,
		localID:          generateConnectionID(r, now),
		phase:            PhaseAwaitingServer,
		lastInbound:      now,
	}
	for i := range c.initialSeqs {
		c.initialSeqs[i] = wire.Seq(r.Int31())
	}
	c.initSendChannels()
	return c
}

// generateConnectionID follows spec.md §4.3: wall-clock milliseconds
// shifted left 20 bits, OR-ed with 20 random bits, interpreted as a
// signed 64-bit value.
func generateConnectionID(r *rand.Rand, now time.Time) int64 {
	ms := now.UnixMilli()
	low20 := int64(r.Int31()) & 0xFFFFF
	return (ms << 20) | low20
}

// Phase returns the connection's current transport-level lifecycle state.
func (c *Connection) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// TraceID is a stable per-connection identifier surfaced in log lines,
// useful for correlating this connection's traffic across a busy process.
func (c *Connection) TraceID() string {
	return c.traceID.String()
}

// HandshakeComplete reports whether the application-level handshake
// (distinct from Phase's transport-level state) has finished.
func (c *Connection) HandshakeComplete() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handshakeComplete
}

// Start sends the initial INIT datagram. The connection remains in
// PhaseAwaitingServer; Tick will resend INIT until the peer answers.
func (c *Connection) Start(now time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendInit(now)
}

func (c *Connection) sendInit(now time.Time) error {
	buf := make([]byte, protocol.InitLongPayloadSize)
	buf[0] = protocol.ChannelInit
	wire.PutInt64BE(buf[1:9], c.localID)
	wire.PutSeqBE(buf[9:13], c.initialSeqs[0])
	wire.PutSeqBE(buf[13:17], c.initialSeqs[1])
	wire.PutSeqBE(buf[17:21], c.initialSeqs[2])

	c.lastInitSent = now
	if err := c.transport.Send(buf); err != nil {
		c.log.Warnf("conn[%s]: send INIT failed: %v", c.traceID, err)
		return nil // transient failure per spec.md §7: logged, no state mutation
	}
	return nil
}

// QueueOutgoing schedules an application message on one of the three
// reliable channels. channelID must be LOSSY, FAST, or SLOW.
func (c *Connection) QueueOutgoing(channelID uint8, protocolID uint8, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx, ok := channelIndex(channelID)
	if !ok {
		return errors.Errorf("conn: channel id %d is not a reliable channel", channelID)
	}
	c.send[idx].ch.Queue(protocolID, payload)
	return nil
}

// Tick runs one iteration of the 20ms cooperative schedule described in
// spec.md §4.3: INIT resend, keep-alive timeout, keep-alive send,
// confirmation flush, then one packet per channel with outstanding work.
func (c *Connection) Tick(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase == PhaseClosing || c.phase == PhaseClosed {
		return
	}

	if c.phase == PhaseAwaitingServer {
		if c.lastInitSent.IsZero() || now.Sub(c.lastInitSent) >= protocol.InitResendInterval {
			_ = c.sendInit(now)
		}
	}

	if c.phase == PhaseConnected {
		if now.Sub(c.lastInbound) >= protocol.KeepAliveTimeout {
			c.emitDisconnect(events.ReasonTimeout, nil)
			c.teardown(now, false)
			return
		}
		if now.Sub(c.lastKeepAliveSent) >= protocol.KeepAliveInterval {
			if err := c.transport.Send([]byte{protocol.ChannelKeepAlive}); err != nil {
				c.log.Warnf("conn[%s]: send KEEP_ALIVE failed: %v", c.traceID, err)
			}
			c.lastKeepAliveSent = now
		}
	}

	c.flushConfirmations(now)

	for i := range c.send {
		slot := c.send[i]
		if slot == nil || !slot.ch.HasWork() {
			continue
		}
		pkt, ok, err := slot.ch.GetPacket(now)
		if err != nil {
			c.log.Warnf("conn[%s]: channel %d: %v", c.traceID, slot.id, err)
			c.metrics.FrameDropped(strconv.Itoa(int(slot.id)))
			continue
		}
		if !ok {
			continue
		}
		datagram := make([]byte, protocol.SequencedHeaderSize+len(pkt.Payload))
		datagram[0] = slot.id
		wire.PutSeqBE(datagram[1:5], pkt.Start)
		copy(datagram[5:], pkt.Payload)

		if err := c.transport.Send(datagram); err != nil {
			c.log.Warnf("conn[%s]: send on channel %d failed: %v", c.traceID, slot.id, err)
			continue
		}
		c.metrics.PacketSent(strconv.Itoa(int(slot.id)))
		if pkt.Resend {
			c.metrics.Retransmit(strconv.Itoa(int(slot.id)))
		}
	}
}

// Close tears the connection down. It is idempotent: calling it more than
// once, or after a peer-initiated or timeout-initiated teardown, is a
// no-op. When notify is true and no DISCONNECT has been sent yet, one is
// sent before the socket is considered closed.
func (c *Connection) Close(notify bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == PhaseClosing || c.phase == PhaseClosed {
		return nil
	}
	c.emitDisconnect(events.ReasonLocal, nil)
	return c.teardown(time.Now(), notify)
}

func (c *Connection) teardown(now time.Time, notify bool) error {
	c.phase = PhaseClosing
	var result *multierror.Error
	if notify && !c.disconnectSent {
		if err := c.transport.Send([]byte{protocol.ChannelDisconnect}); err != nil {
			result = multierror.Append(result, errors.Wrap(err, "send DISCONNECT"))
		}
		c.disconnectSent = true
	}
	c.phase = PhaseClosed
	if c.handshakeComplete {
		// ConnectionOpened only fires once the handshake completes (see
		// handleInit); closing before that point must not drive the open
		// gauge negative.
		c.metrics.ConnectionClosed(c.closeReason())
	}
	return result.ErrorOrNil()
}

func (c *Connection) closeReason() string {
	if c.disconnectSent {
		return "local"
	}
	return "remote"
}

func (c *Connection) emitDisconnect(reason events.DisconnectReason, err error) {
	if c.disconnectEmitted {
		return
	}
	c.disconnectEmitted = true
	if c.sink != nil {
		c.sink(events.Disconnected{Reason: reason, Err: err})
	}
}

func channelIndex(channelID uint8) (int, bool) {
	switch channelID {
	case protocol.ChannelLossy:
		return 0, true
	case protocol.ChannelFast:
		return 1, true
	case protocol.ChannelSlow:
		return 2, true
	default:
		return 0, false
	}
}
