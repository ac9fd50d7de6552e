package kademlia

import "testing"

func TestRewriteAddrSubstitutesPort(t *testing.T) {
	got, ok := rewriteAddr("192.0.2.1:54321", 9000)
	if !ok {
		t.Fatal("expected ok for a well-formed remote address")
	}
	if want := "192.0.2.1:9000"; got != want {
		t.Fatalf("rewriteAddr = %q, want %q", got, want)
	}
}

func TestRewriteAddrDiscardsWhenNoPort(t *testing.T) {
	if _, ok := rewriteAddr("not-a-host-port", 9000); ok {
		t.Fatal("expected rewriteAddr to discard a remote address with no port separator")
	}
}
