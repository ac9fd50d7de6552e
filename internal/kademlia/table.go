package kademlia

import (
	"sort"
	"sync"
	"time"
)

// DefaultK is the maximum number of peers held per bucket.
const DefaultK = 8

// Peer is a (NodeID, Address) pair. Address is an opaque "host:port"
// string; the routing table never parses it beyond what §4.3/§4.4
// require for address rewriting.
type Peer struct {
	ID   NodeID
	Addr string
}

// bucket is an ordered sequence of at most k peers plus its bounded
// replacement cache. Most-recently-inserted entries are appended;
// stale entries are evicted from the front when replaced.
type bucket struct {
	entries     []Peer
	replacement []Peer
	lastTouched time.Time
}

// RoutingTable is 160 buckets + 160 replacement caches + 160
// last-touched timestamps, guarded by a single exclusive lock. Every
// public operation here is linearisable; there are no cross-operation
// transactions (spec.md §5).
type RoutingTable struct {
	mu      sync.Mutex
	owner   NodeID
	k       int
	buckets [IDBits]bucket
}

// NewRoutingTable creates a routing table for the given owner id with
// bucket capacity k (use DefaultK unless a test needs a smaller one).
func NewRoutingTable(owner NodeID, k int) *RoutingTable {
	if k <= 0 {
		k = DefaultK
	}
	rt := &RoutingTable{owner: owner, k: k}
	now := time.Now()
	for i := range rt.buckets {
		rt.buckets[i].lastTouched = now
	}
	return rt
}

func (rt *RoutingTable) cacheCap() int {
	return rt.k / 2
}

// Insert implements spec.md §4.3 "insert(id, addr)". It is a no-op
// (I-SELF) if id equals the table owner.
func (rt *RoutingTable) Insert(id NodeID, addr string) {
	if id == rt.owner {
		return
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	i := BucketIndex(rt.owner, id)
	b := &rt.buckets[i]

	for _, p := range b.entries {
		if p.ID == id && p.Addr == addr {
			// TOUCH: identical pair already present.
			b.lastTouched = time.Now()
			return
		}
	}

	// Purge conflicts against the incoming pair: same id/different
	// addr, or different id/same addr (enforces I-UNIQ-ID, I-UNIQ-ADDR
	// against stale address records after a peer restarts).
	kept := make([]Peer, 0, len(b.entries))
	for _, p := range b.entries {
		if p.ID == id || p.Addr == addr {
			continue
		}
		kept = append(kept, p)
	}
	b.entries = kept

	if len(b.entries) < rt.k {
		b.entries = append(b.entries, Peer{ID: id, Addr: addr})
		b.lastTouched = time.Now()
		return
	}

	// EVICT: bucket full, promote to replacement cache.
	for idx, p := range b.replacement {
		if p.ID == id {
			b.replacement[idx].Addr = addr
			return
		}
	}
	cap := rt.cacheCap()
	if cap == 0 {
		// k is small enough that the cache holds nothing; there is
		// nowhere to put the incoming pair.
		return
	}
	if len(b.replacement) >= cap {
		b.replacement = b.replacement[1:]
	}
	b.replacement = append(b.replacement, Peer{ID: id, Addr: addr})
}

// Remove deletes any peer with matching id from its main bucket. It
// never touches the replacement cache.
func (rt *RoutingTable) Remove(id NodeID) {
	if id == rt.owner {
		return
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()

	i := BucketIndex(rt.owner, id)
	b := &rt.buckets[i]
	for idx, p := range b.entries {
		if p.ID == id {
			b.entries = append(b.entries[:idx], b.entries[idx+1:]...)
			return
		}
	}
}

// SubstituteOrRemove implements spec.md §4.3: called by maintenance
// upon a confirmed dead peer. If id is present in its bucket and the
// bucket's replacement cache is non-empty, the cache's front entry
// replaces it in place (preserving bucket position); if the cache is
// empty the dead entry is removed outright. A missing id is a no-op.
func (rt *RoutingTable) SubstituteOrRemove(id NodeID) {
	if id == rt.owner {
		return
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()

	i := BucketIndex(rt.owner, id)
	b := &rt.buckets[i]

	idx := -1
	for j, p := range b.entries {
		if p.ID == id {
			idx = j
			break
		}
	}
	if idx == -1 {
		return
	}

	if len(b.replacement) > 0 {
		repl := b.replacement[0]
		b.replacement = b.replacement[1:]
		b.entries[idx] = repl
		return
	}

	b.entries = append(b.entries[:idx], b.entries[idx+1:]...)
}

// FindClosest flattens every main bucket (caches are NOT consulted)
// and returns the kPrime peers with the smallest XOR distance to
// target, ascending, ties broken by byte-lex order of the peer id.
func (rt *RoutingTable) FindClosest(target NodeID, kPrime int) []Peer {
	rt.mu.Lock()
	var all []Peer
	for i := range rt.buckets {
		all = append(all, rt.buckets[i].entries...)
	}
	rt.mu.Unlock()

	sort.Slice(all, func(i, j int) bool {
		di := XOR(all[i].ID, target)
		dj := XOR(all[j].ID, target)
		if di != dj {
			return di.Less(dj)
		}
		return all[i].ID.Less(all[j].ID)
	})

	if kPrime > len(all) {
		kPrime = len(all)
	}
	return all[:kPrime]
}

// NodeRecord is a routing-table entry annotated with its bucket index,
// as returned by AllNodes.
type NodeRecord struct {
	Bucket int
	ID     NodeID
	Addr   string
}

// AllNodes returns a snapshot of every main-bucket peer.
func (rt *RoutingTable) AllNodes() []NodeRecord {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	var out []NodeRecord
	for i := range rt.buckets {
		for _, p := range rt.buckets[i].entries {
			out = append(out, NodeRecord{Bucket: i, ID: p.ID, Addr: p.Addr})
		}
	}
	return out
}

// LastTouched returns when bucket i last had a peer inserted or
// touched.
func (rt *RoutingTable) LastTouched(i int) time.Time {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.buckets[i].lastTouched
}

// NonEmptyBuckets returns the indices of every bucket holding at
// least one main-table peer, used by maintenance's freshness scan.
func (rt *RoutingTable) NonEmptyBuckets() []int {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	var out []int
	for i := range rt.buckets {
		if len(rt.buckets[i].entries) > 0 {
			out = append(out, i)
		}
	}
	return out
}

// Size returns the total number of main-bucket peers.
func (rt *RoutingTable) Size() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	n := 0
	for i := range rt.buckets {
		n += len(rt.buckets[i].entries)
	}
	return n
}

// BucketContents returns a snapshot of bucket i's main entries, used
// by tests.
func (rt *RoutingTable) BucketContents(i int) []Peer {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	out := make([]Peer, len(rt.buckets[i].entries))
	copy(out, rt.buckets[i].entries)
	return out
}

// CacheContents returns a snapshot of bucket i's replacement cache.
func (rt *RoutingTable) CacheContents(i int) []Peer {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	out := make([]Peer, len(rt.buckets[i].replacement))
	copy(out, rt.buckets[i].replacement)
	return out
}

// Owner returns the routing table's owner id.
func (rt *RoutingTable) Owner() NodeID { return rt.owner }

// K returns the table's bucket capacity.
func (rt *RoutingTable) K() int { return rt.k }
