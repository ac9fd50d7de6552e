package kademlia

import (
	"io"
	"log"
	"net"
	"strconv"
	"testing"
	"time"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func newTestNode(t *testing.T) *Node {
	t.Helper()
	n := New(RandomID(), freePort(t), log.New(io.Discard, "", 0))
	n.ConnectTimeout = 2 * time.Second
	n.ReadTimeout = 2 * time.Second
	if err := n.StartServer(); err != nil {
		t.Fatalf("StartServer: %v", err)
	}
	t.Cleanup(n.Stop)
	return n
}

func localAddr(n *Node) string {
	return net.JoinHostPort("127.0.0.1", strconv.Itoa(n.Port))
}

func TestBootstrapPullsClosestFromSeed(t *testing.T) {
	seed := newTestNode(t)
	joiner := newTestNode(t)

	third := RandomID()
	seed.Table.Insert(third, "127.0.0.1:1")

	if err := joiner.Bootstrap(localAddr(seed)); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	found := false
	for _, rec := range joiner.Table.AllNodes() {
		if rec.ID == seed.ID || rec.ID == third {
			found = true
		}
	}
	if !found {
		t.Fatal("bootstrap did not populate the joiner's table with the seed's known peers")
	}
}

func TestLivenessSweepEvictsDeadPeer(t *testing.T) {
	n := newTestNode(t)
	dead := RandomID()
	n.Table.Insert(dead, "127.0.0.1:1") // nothing listens here

	n.livenessSweep()

	for _, rec := range n.Table.AllNodes() {
		if rec.ID == dead {
			t.Fatal("dead peer survived the liveness sweep with an empty replacement cache")
		}
	}
}

func TestSnapshotReflectsTable(t *testing.T) {
	n := newTestNode(t)
	n.Table.Insert(RandomID(), "127.0.0.1:1")
	snap := n.Snapshot()
	if snap.RoutingTableSize != 1 {
		t.Fatalf("snapshot table size = %d, want 1", snap.RoutingTableSize)
	}
	if snap.ID != n.ID {
		t.Fatalf("snapshot id mismatch")
	}
}
