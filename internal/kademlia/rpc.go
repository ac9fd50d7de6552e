package kademlia

import (
	"log"
	"net"
	"time"

	"kademlia-node/internal/kademlia/wire"
)

// Handler reacts to one inbound connection per spec.md §4.4: read
// exactly one frame, dispatch by type, write at most one reply frame,
// then close.
type Handler struct {
	Owner       NodeID
	Port        uint16
	Table       *RoutingTable
	Logger      *log.Logger
	ReadTimeout time.Duration
}

// HandleConn is the accept loop's per-connection worker.
func (h *Handler) HandleConn(conn net.Conn) {
	defer conn.Close()

	if h.ReadTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(h.ReadTimeout))
	}

	payload, err := wire.ReadFrame(conn)
	if err != nil {
		h.logf("transport error reading from %s: %v", conn.RemoteAddr(), err)
		return
	}

	msg, err := wire.Unmarshal(payload)
	if err != nil {
		h.logf("decode error from %s: %v", conn.RemoteAddr(), err)
		return
	}

	reply, hasReply := h.dispatch(conn.RemoteAddr().String(), msg)
	if !hasReply {
		return
	}
	if err := wire.WriteFrame(conn, wire.Marshal(reply)); err != nil {
		h.logf("transport error writing reply to %s: %v", conn.RemoteAddr(), err)
	}
}

func (h *Handler) dispatch(remoteAddr string, msg wire.Message) (wire.Message, bool) {
	switch msg.Type {
	case wire.TypePing:
		if addr, ok := rewriteAddr(remoteAddr, msg.Port); ok {
			h.Table.Insert(msg.SenderID, addr)
		}
		return wire.Message{Type: wire.TypePong, SenderID: h.Owner, Port: h.Port}, true

	case wire.TypePong:
		if addr, ok := rewriteAddr(remoteAddr, msg.Port); ok {
			h.Table.Insert(msg.SenderID, addr)
		}
		return wire.Message{}, false

	case wire.TypeFindNode:
		closest := h.Table.FindClosest(msg.TargetID, 5)
		return wire.Message{Type: wire.TypeFoundNodes, Nodes: toWireNodes(closest)}, true

	case wire.TypeFoundNodes:
		h.logf("unsolicited FoundNodes from %s (%d entries), ignoring", remoteAddr, len(msg.Nodes))
		return wire.Message{}, false

	default:
		h.logf("unknown message type %v from %s", msg.Type, remoteAddr)
		return wire.Message{}, false
	}
}

func (h *Handler) logf(format string, args ...interface{}) {
	if h.Logger != nil {
		h.Logger.Printf(format, args...)
	}
}
