package server

import (
	"io"
	"log"
	"os"
)

var (
	errorLog = log.New(os.Stderr, "ERROR: ", log.Ldate|log.Ltime|log.Lmicroseconds)
	debugLog = log.New(io.Discard, "DEBUG: ", log.Ldate|log.Ltime|log.Lmicroseconds)
)

// EnableDebugLogging turns on verbose per-session logging.
func (s *Server) EnableDebugLogging() {
	debugLog.SetOutput(os.Stderr)
}
