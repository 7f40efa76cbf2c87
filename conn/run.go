package conn

import (
	"context"
	"net"
	"time"

	"cubyznet/protocol"
)

// udpTransport adapts a dialed *net.UDPConn to the Transport interface.
// Grounded on the read/write split cmd/democlient wires up in the teacher's
// core/main.go start/stop goroutine pattern, simplified to a single
// connected socket since spec.md's Non-goals rule out multi-peer operation.
type udpTransport struct {
	conn *net.UDPConn
}

func (t *udpTransport) Send(payload []byte) error {
	_, err := t.conn.Write(payload)
	return err
}

// Dial resolves addr, opens a connected UDP socket to it, and wraps it as
// a Transport suitable for Config.Transport.
func Dial(addr string) (Transport, *net.UDPConn, error) {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, nil, err
	}
	sock, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, nil, err
	}
	return &udpTransport{conn: sock}, sock, nil
}

// Run drives Connection against a live socket until ctx is cancelled or
// the connection closes: a reader goroutine feeds inbound datagrams back
// onto this call's goroutine so every Tick/HandleDatagram invocation stays
// serialized through c's own mutex, matching the single-active-owner
// model spec.md §5 describes. sock must be the same socket passed to
// Config.Transport (via Dial).
func (c *Connection) Run(ctx context.Context, sock *net.UDPConn) error {
	type inbound struct {
		payload []byte
		err     error
	}
	datagrams := make(chan inbound, 16)

	go func() {
		buf := make([]byte, protocol.MTU)
		for {
			n, err := sock.Read(buf)
			if err != nil {
				datagrams <- inbound{err: err}
				return
			}
			cp := make([]byte, n)
			copy(cp, buf[:n])
			datagrams <- inbound{payload: cp}
		}
	}()

	ticker := time.NewTicker(protocol.TickInterval)
	defer ticker.Stop()

	if err := c.Start(time.Now()); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return c.Close(true)
		case t := <-ticker.C:
			c.Tick(t)
			if c.Phase() == PhaseClosed {
				return nil
			}
		case dg := <-datagrams:
			if dg.err != nil {
				return dg.err
			}
			c.HandleDatagram(time.Now(), dg.payload)
			if c.Phase() == PhaseClosed {
				return nil
			}
		}
	}
}
