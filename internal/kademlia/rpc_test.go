package kademlia

import (
	"log"
	"net"
	"testing"
	"time"

	"kademlia-node/internal/kademlia/wire"
)

// serveOnce starts a one-shot TCP listener on loopback and hands the
// first accepted connection to h. rewriteAddr needs a real "host:port"
// remote address, which net.Pipe does not provide, so these tests dial
// real loopback sockets. The returned channel closes once HandleConn
// returns, letting tests with no reply frame to read synchronize on
// completion instead of racing the table update.
func serveOnce(t *testing.T, h *Handler) (addr string, done <-chan struct{}) {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ch := make(chan struct{})
	go func() {
		defer close(ch)
		conn, err := l.Accept()
		l.Close()
		if err != nil {
			return
		}
		h.HandleConn(conn)
	}()
	return l.Addr().String(), ch
}

func newTestHandler(owner NodeID) (*Handler, *RoutingTable) {
	rt := NewRoutingTable(owner, DefaultK)
	return &Handler{Owner: owner, Port: 9000, Table: rt, Logger: log.Default()}, rt
}

func TestHandlePingRepliesPongAndInserts(t *testing.T) {
	owner := RandomID()
	h, rt := newTestHandler(owner)
	addr, _ := serveOnce(t, h)

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	sender := RandomID()
	req := wire.Message{Type: wire.TypePing, SenderID: sender, Port: 4242}
	if err := wire.WriteFrame(conn, wire.Marshal(req)); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	payload, err := wire.ReadFrame(conn)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	reply, err := wire.Unmarshal(payload)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if reply.Type != wire.TypePong || reply.SenderID != owner {
		t.Fatalf("unexpected reply %+v", reply)
	}

	if rt.Size() != 1 {
		t.Fatalf("expected ping to insert the sender, table size = %d", rt.Size())
	}
}

func TestHandleFindNodeReturnsClosest(t *testing.T) {
	owner := RandomID()
	h, rt := newTestHandler(owner)

	want := RandomIDInBucket(owner, 50)
	rt.Insert(want, "10.5.0.1:9000")

	addr, _ := serveOnce(t, h)
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	req := wire.Message{Type: wire.TypeFindNode, TargetID: want}
	if err := wire.WriteFrame(conn, wire.Marshal(req)); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	payload, err := wire.ReadFrame(conn)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	reply, err := wire.Unmarshal(payload)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if reply.Type != wire.TypeFoundNodes {
		t.Fatalf("reply type = %v, want FoundNodes", reply.Type)
	}
	if len(reply.Nodes) != 1 || reply.Nodes[0].ID != want {
		t.Fatalf("unexpected nodes in reply: %+v", reply.Nodes)
	}
}

func TestHandlePongIsSilent(t *testing.T) {
	owner := RandomID()
	h, rt := newTestHandler(owner)
	addr, done := serveOnce(t, h)

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	sender := RandomID()
	req := wire.Message{Type: wire.TypePong, SenderID: sender, Port: 7777}
	if err := wire.WriteFrame(conn, wire.Marshal(req)); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := wire.ReadFrame(conn); err == nil {
		t.Fatal("pong drew a reply frame")
	}
	conn.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("HandleConn did not return in time")
	}

	if rt.Size() != 1 {
		t.Fatalf("expected pong to insert the sender, table size = %d", rt.Size())
	}
}
