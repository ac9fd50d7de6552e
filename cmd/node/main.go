// Command node runs a single kademlia peer: it listens for RPCs, joins
// an existing mesh (if a bootstrap address is given), and keeps its
// routing table alive in the background until interrupted.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"kademlia-node/internal/kademlia"
)

func main() {
	var (
		bootstrap = flag.String("bootstrap", "", "Bootstrap peer address (host:port)")
		alpha     = flag.Int("alpha", kademlia.DefaultAlpha, "Initial fan-out for FIND_NODE lookups")
		idPath    = flag.String("id-path", "", "Identity file path (default derived from the listen port)")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [-bootstrap host:port] [-alpha 3] [-id-path ._] <listen_port>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	port, err := strconv.Atoi(flag.Arg(0))
	if err != nil || port <= 0 || port > 65535 {
		log.Fatalf("%v", &kademlia.ConfigFatalError{Err: fmt.Errorf("invalid listen port %q", flag.Arg(0))})
	}

	path := *idPath
	if path == "" {
		path = kademlia.IdentityPath(port)
	}
	id := kademlia.LoadOrGenerate(path)
	log.Printf("node id %s, identity file %s", id, path)

	n := kademlia.New(id, port, log.Default())
	n.Alpha = *alpha

	if err := n.StartServer(); err != nil {
		log.Fatalf("%v", err)
	}
	log.Printf("listening on 0.0.0.0:%d", port)

	if *bootstrap != "" {
		if err := n.Bootstrap(*bootstrap); err != nil {
			log.Printf("bootstrap against %s failed: %v", *bootstrap, err)
		} else {
			log.Printf("bootstrap against %s complete, table size %d", *bootstrap, n.Table.Size())
		}
	}

	n.StartLivenessMaintenance()
	n.StartBucketMaintenance()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	log.Println("shutting down...")
	n.Stop()
}
