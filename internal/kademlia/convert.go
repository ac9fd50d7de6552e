package kademlia

import (
	"net"
	"strconv"

	"kademlia-node/internal/kademlia/wire"
)

func toWireNodes(peers []Peer) []wire.NodeAddr {
	out := make([]wire.NodeAddr, len(peers))
	for i, p := range peers {
		out[i] = wire.NodeAddr{ID: p.ID, Addr: p.Addr}
	}
	return out
}

func fromWireNodes(nodes []wire.NodeAddr) []Peer {
	out := make([]Peer, len(nodes))
	for i, n := range nodes {
		out[i] = Peer{ID: n.ID, Addr: n.Addr}
	}
	return out
}

// rewriteAddr implements spec.md §4.4's address-rewrite rule: the host
// is taken from the observed TCP peer address, the port from the
// message body, since a dialer's source port is never its listening
// port. A remote address with no parseable port is discarded rather
// than guessed at.
func rewriteAddr(remoteAddr string, advertisedPort uint16) (string, bool) {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return "", false
	}
	return net.JoinHostPort(host, strconv.Itoa(int(advertisedPort))), true
}
