package kademlia

import (
	"time"

	"kademlia-node/internal/kademlia/wire"
)

const (
	// LivenessPeriod is how often every known peer is pinged.
	LivenessPeriod = 30 * time.Second
	// BucketScanPeriod is how often buckets are checked for staleness.
	BucketScanPeriod = 60 * time.Second
	// BucketFreshnessHorizon is how long a bucket may go untouched
	// before its next scan triggers a refresh lookup.
	BucketFreshnessHorizon = 30 * time.Minute
)

// StartLivenessMaintenance launches the background sweep that pings
// every peer currently in the routing table and evicts the ones that
// fail to answer (spec.md §4.6).
func (n *Node) StartLivenessMaintenance() {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ticker := time.NewTicker(LivenessPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-n.shutdown:
				return
			case <-ticker.C:
				n.checkInboundStatus()
				n.livenessSweep()
			}
		}
	}()
}

func (n *Node) livenessSweep() {
	for _, rec := range n.Table.AllNodes() {
		if rec.ID == n.ID {
			continue
		}
		reply, err := request(rec.Addr, wire.Message{Type: wire.TypePing, SenderID: n.ID, Port: uint16(n.Port)}, n.ConnectTimeout, n.ReadTimeout)

		if err == nil && reply.Type == wire.TypePong && reply.SenderID != rec.ID {
			// The address now answers for a different identity, most
			// likely a restarted peer that picked a new random id.
			// Drop the stale entry outright with Remove; unlike
			// SubstituteOrRemove, this does not promote a
			// replacement-cache entry into the freed slot.
			n.Table.Remove(rec.ID)
			continue
		}

		alive := err == nil && reply.Type == wire.TypePong
		if !alive {
			n.Table.SubstituteOrRemove(rec.ID)
		}
	}
}

// StartBucketMaintenance launches the background sweep that refreshes
// any bucket that has gone stale for longer than BucketFreshnessHorizon.
func (n *Node) StartBucketMaintenance() {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ticker := time.NewTicker(BucketScanPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-n.shutdown:
				return
			case <-ticker.C:
				n.bucketRefreshSweep()
			}
		}
	}()
}

func (n *Node) bucketRefreshSweep() {
	cutoff := time.Now().Add(-BucketFreshnessHorizon)
	for _, i := range n.Table.NonEmptyBuckets() {
		if n.Table.LastTouched(i).Before(cutoff) {
			n.RefreshBucket(i)
		}
	}
}
