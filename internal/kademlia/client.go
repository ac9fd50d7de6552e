package kademlia

import (
	"log"
	"net"
	"time"

	"github.com/google/uuid"

	"kademlia-node/internal/kademlia/wire"
)

// request opens a fresh connection to addr, writes req as a single
// frame, and reads exactly one reply frame back, per spec.md §4.4's
// one-message-per-connection convention. The connection is always
// closed before returning.
func request(addr string, req wire.Message, connectTimeout, readTimeout time.Duration) (wire.Message, error) {
	conn, err := net.DialTimeout("tcp", addr, connectTimeout)
	if err != nil {
		return wire.Message{}, &TransportError{Op: "dial", Addr: addr, Err: err}
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(readTimeout)); err != nil {
		return wire.Message{}, &TransportError{Op: "set-deadline", Addr: addr, Err: err}
	}

	if err := wire.WriteFrame(conn, wire.Marshal(req)); err != nil {
		return wire.Message{}, &TransportError{Op: "write", Addr: addr, Err: err}
	}

	payload, err := wire.ReadFrame(conn)
	if err != nil {
		return wire.Message{}, &TransportError{Op: "read", Addr: addr, Err: err}
	}

	msg, err := wire.Unmarshal(payload)
	if err != nil {
		return wire.Message{}, &DecodeError{Err: err}
	}
	return msg, nil
}

// dialAndRequest wraps request with a per-call trace id logged on
// failure, for correlating a single outbound RPC across log lines.
// Mirrors stellar-lab/dht.go's sendRequest stamping every outbound
// DHTMessage with a uuid RequestID, generalized here to a pure logging
// aid since this protocol needs no request/response multiplexing.
func dialAndRequest(logger *log.Logger, label, addr string, req wire.Message, connectTimeout, readTimeout time.Duration) (wire.Message, error) {
	reply, err := request(addr, req, connectTimeout, readTimeout)
	if err != nil {
		logger.Printf("[%s] %s to %s (%s): %v", uuid.New().String(), label, addr, req.Type, err)
	}
	return reply, err
}
