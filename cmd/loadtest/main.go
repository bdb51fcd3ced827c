// Fan-out stress tool: connects many line-protocol clients, has a fraction
// of them chat at a fixed rate, and reports delivery throughput.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

const loremIpsum = "Lorem ipsum dolor sit amet, consectetur adipiscing elit, sed do eiusmod tempor incididunt ut labore et dolore magna aliqua."

var loremWords = strings.Fields(loremIpsum)

type stats struct {
	sent     atomic.Int64
	received atomic.Int64
	errors   atomic.Int64
}

func main() {
	addr := flag.String("addr", "localhost:6470", "Server address")
	clients := flag.Int("clients", 100, "Number of concurrent clients")
	talkers := flag.Int("talkers", 10, "Number of clients that send messages")
	rate := flag.Duration("rate", time.Second, "Delay between messages per talker")
	duration := flag.Duration("duration", 30*time.Second, "Test duration")
	flag.Parse()

	if *talkers > *clients {
		log.Fatalf("talkers (%d) cannot exceed clients (%d)", *talkers, *clients)
	}

	var st stats
	stop := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < *clients; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runClient(id, *addr, id < *talkers, *rate, stop, &st)
		}(i)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	start := time.Now()
	select {
	case <-time.After(*duration):
	case <-sigChan:
	}
	close(stop)
	wg.Wait()

	elapsed := time.Since(start)
	sent := st.sent.Load()
	received := st.received.Load()
	fmt.Printf("Clients: %d (talkers: %d)\n", *clients, *talkers)
	fmt.Printf("Sent: %d (%.1f/s)\n", sent, float64(sent)/elapsed.Seconds())
	fmt.Printf("Received: %d (%.1f/s)\n", received, float64(received)/elapsed.Seconds())
	fmt.Printf("Errors: %d\n", st.errors.Load())
}

func runClient(id int, addr string, talker bool, rate time.Duration, stop <-chan struct{}, st *stats) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		st.errors.Add(1)
		return
	}
	defer conn.Close()

	if _, err := fmt.Fprintf(conn, "loadtest-%d\n", id); err != nil {
		st.errors.Add(1)
		return
	}

	// Count every delivered line
	go func() {
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			st.received.Add(1)
		}
	}()

	if !talker {
		<-stop
		return
	}

	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if _, err := fmt.Fprintf(conn, "%s\n", randomMessage()); err != nil {
				st.errors.Add(1)
				return
			}
			st.sent.Add(1)
		}
	}
}

func randomMessage() string {
	count := 3 + rand.Intn(8)
	words := make([]string, count)
	for i := range words {
		words[i] = loremWords[rand.Intn(len(loremWords))]
	}
	return strings.Join(words, " ")
}
