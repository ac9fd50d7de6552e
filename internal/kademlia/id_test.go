package kademlia

import (
	"testing"
	"testing/quick"
)

func TestXORSelfIsZero(t *testing.T) {
	f := func(a [IDLen]byte) bool {
		id := NodeID(a)
		return XOR(id, id).IsZero()
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

func TestXORCommutative(t *testing.T) {
	f := func(a, b [IDLen]byte) bool {
		x := NodeID(a)
		y := NodeID(b)
		return XOR(x, y) == XOR(y, x)
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

func TestBucketIndexRange(t *testing.T) {
	f := func(a, b [IDLen]byte) bool {
		idx := BucketIndex(NodeID(a), NodeID(b))
		return idx >= 0 && idx < IDBits
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

func TestBucketIndexSelf(t *testing.T) {
	id := RandomID()
	if got := BucketIndex(id, id); got != IDBits-1 {
		t.Fatalf("BucketIndex(id, id) = %d, want %d", got, IDBits-1)
	}
}

func TestRandomIDInBucketMatchesIndex(t *testing.T) {
	owner := RandomID()
	for i := 0; i < IDBits; i++ {
		got := RandomIDInBucket(owner, i)
		if idx := BucketIndex(owner, got); idx != i {
			t.Fatalf("RandomIDInBucket(owner, %d) landed in bucket %d", i, idx)
		}
	}
}

func TestLessIsIrreflexive(t *testing.T) {
	f := func(a [IDLen]byte) bool {
		x := NodeID(a)
		return !x.Less(x)
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

func TestIdentityPath(t *testing.T) {
	cases := map[int]string{0: "._", 9001: "._.9001"}
	for port, want := range cases {
		if got := IdentityPath(port); got != want {
			t.Fatalf("IdentityPath(%d) = %q, want %q", port, got, want)
		}
	}
}
