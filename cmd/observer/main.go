// Command observer joins a mesh just long enough to run a lookup for
// its own (throwaway) identity, then prints the resulting routing
// table and exits. It binds no listener of its own.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"kademlia-node/internal/kademlia"
)

func main() {
	rounds := flag.Int("rounds", kademlia.DefaultLookupRounds, "Number of lookup rounds to run against the bootstrap peer")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [-rounds 3] <bootstrap_addr>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	addr := flag.Arg(0)

	n := kademlia.New(kademlia.RandomID(), 0, log.Default())
	n.LookupRounds = *rounds

	if err := n.Bootstrap(addr); err != nil {
		log.Printf("bootstrap against %s: %v", addr, err)
	}

	printTable(n.Snapshot())
}

func printTable(snap kademlia.Snapshot) {
	fmt.Printf("observer id: %s\n", snap.ID)
	fmt.Printf("%-6s %-42s %s\n", "bucket", "id", "address")
	for _, rec := range snap.Nodes {
		fmt.Printf("%-6d %-42s %s\n", rec.Bucket, rec.ID, rec.Addr)
	}
	fmt.Printf("%d peers known\n", snap.RoutingTableSize)
}
