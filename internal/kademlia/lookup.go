package kademlia

import (
	"fmt"

	"kademlia-node/internal/kademlia/wire"
)

// RecursiveFindNode implements spec.md §4.5's iterative lookup: start
// from the alpha closest known peers, query each frontier member once
// (never twice, across the whole lookup), and fold every discovered
// peer into both the routing table and next round's frontier. The
// frontier is never re-sorted or trimmed mid-lookup; it only grows.
func (n *Node) RecursiveFindNode(target NodeID, maxRounds int) {
	queried := make(map[NodeID]bool)
	frontier := n.Table.FindClosest(target, n.Alpha)

	for round := 0; round < maxRounds; round++ {
		var harvest []Peer
		for _, p := range frontier {
			if queried[p.ID] {
				continue
			}
			queried[p.ID] = true

			reply, err := dialAndRequest(n.Logger, "find_node", p.Addr, wire.Message{Type: wire.TypeFindNode, TargetID: target}, n.ConnectTimeout, n.ReadTimeout)
			if err != nil {
				continue
			}
			if reply.Type != wire.TypeFoundNodes {
				n.Logger.Printf("find_node to %s (%s): unexpected reply %v", p.ID, p.Addr, reply.Type)
				continue
			}
			harvest = append(harvest, fromWireNodes(reply.Nodes)...)
		}

		for _, p := range harvest {
			if p.ID == n.ID {
				continue
			}
			n.Table.Insert(p.ID, p.Addr)
			frontier = append(frontier, p)
		}
	}
}

// RefreshBucket drives a lookup for a random id in bucket i, pulling
// fresh peers into a bucket that has gone quiet (spec.md §4.6).
func (n *Node) RefreshBucket(i int) {
	n.RecursiveFindNode(RandomIDInBucket(n.ID, i), n.LookupRounds)
}

// Bootstrap implements spec.md §4.1's join sequence: ping the seed on
// one connection, find_node(self) on a second, seed the table with
// whatever comes back, then run a full recursive lookup for this
// node's own id to populate the rest of the table.
func (n *Node) Bootstrap(seedAddr string) error {
	dialAndRequest(n.Logger, "bootstrap_ping", seedAddr, wire.Message{Type: wire.TypePing, SenderID: n.ID, Port: uint16(n.Port)}, n.ConnectTimeout, n.ReadTimeout)

	reply, err := dialAndRequest(n.Logger, "bootstrap_find_node", seedAddr, wire.Message{Type: wire.TypeFindNode, TargetID: n.ID}, n.ConnectTimeout, n.ReadTimeout)
	if err != nil {
		return fmt.Errorf("bootstrap find_node to %s: %w", seedAddr, err)
	}
	if reply.Type != wire.TypeFoundNodes {
		return &ProtocolViolationError{Want: wire.TypeFoundNodes.String(), Got: reply.Type.String()}
	}

	for _, p := range fromWireNodes(reply.Nodes) {
		if p.ID == n.ID {
			continue
		}
		n.Table.Insert(p.ID, p.Addr)
	}

	n.RecursiveFindNode(n.ID, n.LookupRounds)
	return nil
}
