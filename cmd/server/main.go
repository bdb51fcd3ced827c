package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	"github.com/parleychat/parley/pkg/server"
)

var (
	// Version is set at build time via ldflags
	Version = "dev"
)

func main() {
	// Configure logger with microsecond precision
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	// Command line flags
	configPath := flag.String("config", "~/.parley/config.toml", "Path to config file")
	port := flag.Int("port", 0, "TCP port to listen on (overrides config)")
	httpPort := flag.Int("http-port", 0, "HTTP port for WebSocket and metrics (overrides config, -1 disables)")
	sshPort := flag.Int("ssh-port", 0, "SSH port (overrides config, -1 disables)")
	dbPath := flag.String("db", "", "Path to banned-phrase database (overrides config)")
	serverName := flag.String("server-name", "", "Server name (overrides config)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	pprofAddr := flag.String("pprof", "", "Address for the pprof HTTP server (e.g. localhost:6060), empty disables")
	version := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *version {
		fmt.Printf("Parley Server %s\n", Version)
		os.Exit(0)
	}

	// Load configuration (creates default if not found)
	tomlConfig, err := server.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Command-line flags override config file
	if *port != 0 {
		tomlConfig.Server.TCPPort = *port
	}
	if *httpPort != 0 {
		tomlConfig.Server.HTTPPort = *httpPort
	}
	if *sshPort != 0 {
		tomlConfig.Server.SSHPort = *sshPort
	}
	if *dbPath != "" {
		tomlConfig.Server.DatabasePath = *dbPath
	}
	if *serverName != "" {
		tomlConfig.Server.ServerName = *serverName
	}

	config := tomlConfig.ToConfig()

	// Resolve ~ in the database path
	if config.DatabasePath != "" {
		resolved, err := tomlConfig.GetDatabasePath()
		if err != nil {
			log.Fatalf("Failed to resolve database path: %v", err)
		}
		config.DatabasePath = resolved
	}

	srv, err := server.NewServer(config)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	if *debug {
		srv.EnableDebugLogging()
		log.Printf("Debug logging enabled")
	}

	if err := srv.Start(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	log.Printf("%s %s started successfully", config.ServerName, Version)
	log.Printf("Available connection methods:")
	log.Printf("  - TCP: %s", srv.Addr())
	if addr := srv.HTTPAddr(); addr != nil {
		log.Printf("  - WebSocket: ws://%s/ws (metrics at /metrics)", addr)
	}
	if addr := srv.SSHAddr(); addr != nil {
		log.Printf("  - SSH: %s", addr)
	}
	if phrases := srv.Filter().Phrases(); len(phrases) > 0 {
		log.Printf("Banned phrases loaded: %d", len(phrases))
	}

	// Start pprof HTTP server for profiling
	if *pprofAddr != "" {
		go func() {
			log.Printf("Starting pprof server on http://%s", *pprofAddr)
			if err := http.ListenAndServe(*pprofAddr, nil); err != nil {
				log.Printf("pprof server error: %v", err)
			}
		}()
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down server...")
	if err := srv.Stop(); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
	log.Println("Server stopped")
}
