package conn

// Transport is the minimal send primitive Connection depends on. Binding
// the socket, resolving the peer address, and the process-level read
// loop are left to the caller per spec.md §1's scope boundary — Connection
// only ever calls Send with a fully formed datagram.
type Transport interface {
	Send(payload []byte) error
}
