// A minimal terminal client for manual testing: dials the server, sends the
// username, then pipes stdin to the socket and the socket to stdout.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
)

func main() {
	addr := flag.String("addr", "localhost:6470", "Server address")
	name := flag.String("name", "", "Username (first protocol line)")
	flag.Parse()

	if *name == "" {
		log.Fatal("-name is required")
	}

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		log.Fatalf("Failed to connect to %s: %v", *addr, err)
	}
	defer conn.Close()

	if _, err := fmt.Fprintf(conn, "%s\n", *name); err != nil {
		log.Fatalf("Failed to send username: %v", err)
	}

	// Server → stdout
	done := make(chan struct{})
	go func() {
		defer close(done)
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			fmt.Println(scanner.Text())
		}
	}()

	// Stdin → server
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			if _, err := fmt.Fprintf(conn, "%s\n", scanner.Text()); err != nil {
				return
			}
		}
		conn.Close()
	}()

	<-done
}
